package session

import (
	"io"
)

// onceReader and onceWriter make Close idempotent so a stream can be closed
// both by the copier and by a deferred cleanup. Some transports read a
// completion reply on Close and must not do so twice.
type onceReader struct {
	io.ReadCloser
	closed bool
}

func (r *onceReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.ReadCloser.Close()
}

func (r *onceReader) Size() int64 { return SourceLength(r.ReadCloser) }

type onceWriter struct {
	io.WriteCloser
	closed bool
}

func (w *onceWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.WriteCloser.Close()
}

func closeOnceReader(r io.ReadCloser) *onceReader  { return &onceReader{ReadCloser: r} }
func closeOnceWriter(w io.WriteCloser) *onceWriter { return &onceWriter{WriteCloser: w} }
