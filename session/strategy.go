package session

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"ftpsession/protocols"
)

const DefaultChunkSize = 4 << 20

// Strategy copies a source stream into a destination stream, either byte
// for byte or line by line, and always closes both.
type Strategy struct {
	ChunkSize  int64
	LineEnding string
	log        zerolog.Logger
}

func NewStrategy() *Strategy {
	return &Strategy{
		ChunkSize:  DefaultChunkSize,
		LineEnding: NativeLineEnding,
		log:        zerolog.Nop(),
	}
}

func (s *Strategy) Copy(dst io.WriteCloser, src io.ReadCloser, t protocols.TransferType) error {
	if t == protocols.Binary {
		return s.CopyBinary(dst, src)
	}
	return s.CopyASCII(dst, src)
}

// CopyBinary copies src to dst unchanged. A source of known length no
// larger than one chunk is moved with a single read and write; anything
// else is moved chunk by chunk until the known length or end of stream.
func (s *Strategy) CopyBinary(dst io.WriteCloser, src io.ReadCloser) (err error) {
	s.log.Debug().Msg("Initiating BINARY transfer")
	defer func() { err = closeStreams(err, dst, src) }()

	if err := s.copyChunks(dst, src, SourceLength(src)); err != nil {
		return wrapError(err)
	}
	return nil
}

func (s *Strategy) copyChunks(dst io.Writer, src io.Reader, length int64) error {
	chunk := s.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	if length >= 0 && length <= chunk {
		buf := make([]byte, length)
		if _, err := io.ReadFull(src, buf); err != nil {
			return shortRead(err, length)
		}
		_, err := dst.Write(buf)
		return err
	}

	buf := make([]byte, chunk)
	var total int64
	for length < 0 || total < length {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			total += int64(n)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			if length >= 0 && total < length {
				return fmt.Errorf("short read: got %d of %d bytes", total, length)
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func shortRead(err error, length int64) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("short read: expected %d bytes: %w", length, err)
	}
	return err
}

// CopyASCII rewrites src line by line, terminating every line with
// LineEnding. LF, CRLF and a lone CR all end a line. Lines of any length are
// streamed through in buffer-sized fragments.
func (s *Strategy) CopyASCII(dst io.WriteCloser, src io.ReadCloser) (err error) {
	s.log.Debug().Msg("Initiating ASCII transfer")
	defer func() { err = closeStreams(err, dst, src) }()

	eol := s.LineEnding
	if eol == "" {
		eol = NativeLineEnding
	}

	lw := &lineWriter{w: bufio.NewWriter(dst), eol: eol}
	br := bufio.NewReaderSize(src, lineBufferSize)
	for {
		frag, rerr := br.ReadSlice('\n')
		if err := lw.write(frag); err != nil {
			return wrapError(err)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil && rerr != bufio.ErrBufferFull {
			return wrapError(rerr)
		}
	}
	if err := lw.finish(); err != nil {
		return wrapError(err)
	}
	return nil
}

const lineBufferSize = 64 * 1024

// lineWriter re-terminates lines arriving in arbitrary fragments. A CR
// ending one fragment and an LF starting the next are a single CRLF.
type lineWriter struct {
	w       *bufio.Writer
	eol     string
	afterCR bool
	inLine  bool
}

func (l *lineWriter) write(frag []byte) error {
	for len(frag) > 0 {
		if l.afterCR && frag[0] == '\n' {
			frag = frag[1:]
			l.afterCR = false
			continue
		}
		l.afterCR = false

		i := bytes.IndexAny(frag, "\r\n")
		if i < 0 {
			l.inLine = true
			_, err := l.w.Write(frag)
			return err
		}
		if _, err := l.w.Write(frag[:i]); err != nil {
			return err
		}
		if _, err := l.w.WriteString(l.eol); err != nil {
			return err
		}
		l.inLine = false
		l.afterCR = frag[i] == '\r'
		frag = frag[i+1:]
	}
	return nil
}

// finish terminates an unterminated last line and flushes.
func (l *lineWriter) finish() error {
	if l.inLine {
		if _, err := l.w.WriteString(l.eol); err != nil {
			return err
		}
		l.inLine = false
	}
	return l.w.Flush()
}

// closeStreams closes dst then src and folds their errors into err.
func closeStreams(err error, dst io.Closer, src io.Closer) error {
	var errs *multierror.Error
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	if cerr := dst.Close(); cerr != nil {
		errs = multierror.Append(errs, wrapError(cerr))
	}
	if cerr := src.Close(); cerr != nil {
		errs = multierror.Append(errs, wrapError(cerr))
	}
	return flatten(errs)
}

// SourceLength reports the length of r when it is known up front, or -1.
func SourceLength(r io.Reader) int64 {
	switch v := r.(type) {
	case interface{ Size() int64 }:
		return v.Size()
	case interface{ Stat() (os.FileInfo, error) }:
		if fi, err := v.Stat(); err == nil && fi.Mode().IsRegular() {
			return fi.Size()
		}
	}
	return -1
}
