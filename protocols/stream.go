package protocols

import (
	"bufio"
	"io"
)

// sizedReader exposes the length reported by the server ahead of the data.
// A negative size means unknown.
type sizedReader struct {
	io.ReadCloser
	size int64
}

func (r *sizedReader) Size() int64 { return r.size }

// pipeWriter feeds a push-style upload running in its own goroutine. Close
// waits for the upload and reports its result.
type pipeWriter struct {
	*io.PipeWriter
	done chan error
}

func newPipeWriter(upload func(r io.Reader) error) *pipeWriter {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := upload(pr)
		pr.CloseWithError(err)
		done <- err
	}()
	return &pipeWriter{PipeWriter: pw, done: done}
}

func (w *pipeWriter) Close() error {
	if w.done == nil {
		return nil
	}
	cerr := w.PipeWriter.Close()
	err := <-w.done
	w.done = nil
	if err != nil {
		return err
	}
	return cerr
}

// pipeReader is the read side of a push-style download. The download error
// is surfaced through Read; Close only reports it once the stream was
// drained, an early Close aborts the download.
type pipeReader struct {
	pr      *io.PipeReader
	br      *bufio.Reader
	done    chan error
	size    int64
	drained bool
}

func newPipeReader(size int64, download func(w io.Writer) error) *pipeReader {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := download(pw)
		pw.CloseWithError(err)
		done <- err
	}()
	return &pipeReader{pr: pr, br: bufio.NewReader(pr), done: done, size: size}
}

// openPipeReader starts the download and blocks until the first byte or the
// end of the transfer, so a refused download fails here and not on the
// first Read.
func openPipeReader(size int64, download func(w io.Writer) error) (*pipeReader, error) {
	r := newPipeReader(size, download)
	if _, err := r.br.Peek(1); err != nil && err != io.EOF {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *pipeReader) Read(p []byte) (int, error) {
	n, err := r.br.Read(p)
	if err == io.EOF {
		r.drained = true
	}
	return n, err
}

func (r *pipeReader) Size() int64 { return r.size }

func (r *pipeReader) Close() error {
	if r.done == nil {
		return nil
	}
	_ = r.pr.Close()
	err := <-r.done
	r.done = nil
	if r.drained {
		return err
	}
	return nil
}
