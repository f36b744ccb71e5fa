package session

import (
	"io"
)

// Access is the direction a RemoteFile is opened for.
type Access int

const (
	Read Access = 1 << iota
	Write
	ReadWrite = Read | Write
)

func (a Access) String() string {
	switch a {
	case Read:
		return "read"
	case Write:
		return "write"
	case ReadWrite:
		return "read-write"
	}
	return "invalid"
}

type fileErr string

func (e fileErr) Error() string { return string(e) }

const (
	errWriteOnly = fileErr("remote file is open for writing only")
	errReadOnly  = fileErr("remote file is open for reading only")
	errClosed    = fileErr("remote file is closed")
)

// RemoteFile is a one-way stream on a remote file. It occupies the
// session's connection until closed.
type RemoteFile struct {
	path   string
	access Access
	r      io.ReadCloser
	w      io.WriteCloser
}

func (f *RemoteFile) Path() string { return f.path }

func (f *RemoteFile) Access() Access { return f.access }

func (f *RemoteFile) Read(p []byte) (int, error) {
	if f.access != Read {
		return 0, errWriteOnly
	}
	if f.r == nil {
		return 0, errClosed
	}
	n, err := f.r.Read(p)
	if err != nil && err != io.EOF {
		err = wrapError(err)
	}
	return n, err
}

func (f *RemoteFile) Write(p []byte) (int, error) {
	if f.access != Write {
		return 0, errReadOnly
	}
	if f.w == nil {
		return 0, errClosed
	}
	n, err := f.w.Write(p)
	return n, wrapError(err)
}

// Close finishes the transfer. For a written file it reports whether the
// server accepted the upload.
func (f *RemoteFile) Close() error {
	var err error
	if f.r != nil {
		err = f.r.Close()
		f.r = nil
	}
	if f.w != nil {
		err = f.w.Close()
		f.w = nil
	}
	return wrapError(err)
}
