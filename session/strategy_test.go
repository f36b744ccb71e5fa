package session

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftpsession/protocols"
)

// source is a readable stream of known length that records Close.
type source struct {
	*bytes.Reader
	closed bool
}

func newSource(data []byte) *source { return &source{Reader: bytes.NewReader(data)} }

func (s *source) Close() error {
	s.closed = true
	return nil
}

// stream hides the length of its reader.
type stream struct {
	io.Reader
	closed bool
}

func (s *stream) Close() error {
	s.closed = true
	return nil
}

type sink struct {
	bytes.Buffer
	closed   bool
	writeErr error
	closeErr error
}

func (s *sink) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	return s.Buffer.Write(p)
}

func (s *sink) Close() error {
	s.closed = true
	return s.closeErr
}

func payload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return data
}

func TestCopyBinary(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		chunk int64
		sized bool
	}{
		{name: "empty", size: 0, chunk: 8, sized: true},
		{name: "below chunk", size: 5, chunk: 8, sized: true},
		{name: "exactly one chunk", size: 8, chunk: 8, sized: true},
		{name: "above chunk", size: 100, chunk: 8, sized: true},
		{name: "above chunk unknown length", size: 100, chunk: 8},
		{name: "uneven tail unknown length", size: 13, chunk: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := payload(tt.size)
			var src io.ReadCloser = newSource(data)
			if !tt.sized {
				src = &stream{Reader: bytes.NewReader(data)}
			}
			dst := &sink{}

			s := NewStrategy()
			s.ChunkSize = tt.chunk
			require.NoError(t, s.CopyBinary(dst, src))

			assert.True(t, bytes.Equal(data, dst.Bytes()))
			assert.True(t, dst.closed)
		})
	}
}

func TestCopyBinaryShortSource(t *testing.T) {
	tests := []struct {
		name  string
		chunk int64
	}{
		{name: "single read", chunk: 1024},
		{name: "chunked", chunk: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &struct {
				*stream
				sizeStub
			}{&stream{Reader: bytes.NewReader(payload(40))}, sizeStub(100)}
			dst := &sink{}

			s := NewStrategy()
			s.ChunkSize = tt.chunk
			err := s.CopyBinary(dst, src)

			require.Error(t, err)
			assert.Equal(t, CodeGeneric, Code(err))
			assert.Contains(t, err.Error(), "short read")
			assert.True(t, dst.closed)
			assert.True(t, src.closed)
		})
	}
}

type sizeStub int64

func (s sizeStub) Size() int64 { return int64(s) }

func TestCopyASCII(t *testing.T) {
	tests := []struct {
		name string
		in   string
		eol  string
		want string
	}{
		{name: "lf to crlf", in: "one\ntwo\n", eol: "\r\n", want: "one\r\ntwo\r\n"},
		{name: "crlf to lf", in: "one\r\ntwo\r\n", eol: "\n", want: "one\ntwo\n"},
		{name: "bare cr", in: "one\rtwo", eol: "\n", want: "one\ntwo\n"},
		{name: "mixed", in: "alpha\r\nbeta\rgamma\ndelta", eol: "\r\n", want: "alpha\r\nbeta\r\ngamma\r\ndelta\r\n"},
		{name: "blank lines", in: "a\n\n\nb\n", eol: "\n", want: "a\n\n\nb\n"},
		{name: "empty", in: "", eol: "\r\n", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &stream{Reader: strings.NewReader(tt.in)}
			dst := &sink{}

			s := NewStrategy()
			s.LineEnding = tt.eol
			require.NoError(t, s.CopyASCII(dst, src))

			assert.Equal(t, tt.want, dst.String())
			assert.True(t, dst.closed)
			assert.True(t, src.closed)
		})
	}
}

func TestCopyASCIISplitCRLF(t *testing.T) {
	src := &stream{Reader: iotest.OneByteReader(strings.NewReader("a\r\nb\r\n"))}
	dst := &sink{}

	s := NewStrategy()
	s.LineEnding = "|"
	require.NoError(t, s.CopyASCII(dst, src))
	assert.Equal(t, "a|b|", dst.String())
}

func TestCopyASCIILongLine(t *testing.T) {
	long := strings.Repeat("x", 3*lineBufferSize+17)
	in := long + "\r" + "\n" + long + "\r" + long
	src := &stream{Reader: strings.NewReader(in)}
	dst := &sink{}

	s := NewStrategy()
	s.LineEnding = "\n"
	require.NoError(t, s.CopyASCII(dst, src))
	assert.Equal(t, long+"\n"+long+"\n"+long+"\n", dst.String())
}

func TestCopyASCIICRAtFragmentBoundary(t *testing.T) {
	// the CR is the last byte the reader buffer can hold
	line := strings.Repeat("y", lineBufferSize-1)
	src := &stream{Reader: strings.NewReader(line + "\r\nz\n")}
	dst := &sink{}

	s := NewStrategy()
	s.LineEnding = "|"
	require.NoError(t, s.CopyASCII(dst, src))
	assert.Equal(t, line+"|z|", dst.String())
}

func TestTransferTypeChangesDigest(t *testing.T) {
	content := []byte("line one\nline two\n")
	want := sha256.Sum256(content)

	s := NewStrategy()
	s.LineEnding = "\r\n"

	binary := &sink{}
	require.NoError(t, s.Copy(binary, newSource(content), protocols.Binary))
	assert.Equal(t, want, sha256.Sum256(binary.Bytes()))

	text := &sink{}
	require.NoError(t, s.Copy(text, newSource(content), protocols.ASCII))
	assert.NotEqual(t, want, sha256.Sum256(text.Bytes()))
	assert.Len(t, text.Bytes(), len(content)+2)
}

func TestCopyClosesStreamsOnFailure(t *testing.T) {
	src := newSource(payload(64))
	dst := &sink{
		writeErr: &protocols.ProtocolError{Code: 451, Message: "Local error in processing"},
		closeErr: errors.New("connection reset"),
	}

	s := NewStrategy()
	s.ChunkSize = 16
	err := s.CopyBinary(dst, src)

	require.Error(t, err)
	assert.True(t, dst.closed)
	assert.True(t, src.closed)
	assert.Equal(t, 451, Code(err))
	assert.Equal(t, "Local error in processing; connection reset", err.Error())
}

func TestSourceLength(t *testing.T) {
	assert.Equal(t, int64(3), SourceLength(bytes.NewReader([]byte("abc"))))
	assert.Equal(t, int64(-1), SourceLength(&stream{Reader: strings.NewReader("abc")}))
	assert.Equal(t, int64(3), SourceLength(closeOnceReader(newSource([]byte("abc")))))
}
