package protocols

import (
	"errors"
	"io"
	"net/textproto"

	"github.com/jlaffaye/ftp"
)

// FTPTransport speaks FTP in passive mode.
type FTPTransport struct {
	opts Options
	conn *ftp.ServerConn
}

func NewFTPTransport(opts Options) *FTPTransport {
	return &FTPTransport{opts: opts}
}

func (f *FTPTransport) Connect(server string, cred Credentials, mode ConnMode) error {
	if mode != Passive {
		return errors.New("ftp: active mode is served by ActiveFTPTransport")
	}
	dialOpts := []ftp.DialOption{
		ftp.DialWithTimeout(f.opts.DialTimeout),
		ftp.DialWithDisabledEPSV(f.opts.DisableEPSV),
	}
	if f.opts.Debug {
		dialOpts = append(dialOpts, ftp.DialWithDebugOutput(f.opts.Logger))
	}

	c, err := ftp.Dial(withDefaultPort(server, "21"), dialOpts...)
	if err != nil {
		return ftpError(err)
	}
	if err := c.Login(cred.User, cred.Password); err != nil {
		_ = c.Quit()
		return ftpError(err)
	}
	f.conn = c
	return nil
}

func (f *FTPTransport) Disconnect() error {
	if f.conn == nil {
		return nil
	}
	err := f.conn.Quit()
	f.conn = nil
	return ftpError(err)
}

func (f *FTPTransport) IsConnected() bool {
	return f.conn != nil
}

func (f *FTPTransport) setType(t TransferType) error {
	ft := ftp.TransferTypeASCII
	if t == Binary {
		ft = ftp.TransferTypeBinary
	}
	return f.check(f.conn.Type(ft))
}

func (f *FTPTransport) OpenRead(path string, t TransferType) (io.ReadCloser, error) {
	if f.conn == nil {
		return nil, transportClosed
	}
	if err := f.setType(t); err != nil {
		return nil, err
	}
	size := int64(-1)
	if t == Binary {
		// SIZE is unreliable in ASCII mode
		if n, err := f.conn.FileSize(path); err == nil {
			size = n
		}
	}
	resp, err := f.conn.Retr(path)
	if err != nil {
		return nil, f.check(err)
	}
	return &sizedReader{ReadCloser: &ftpResponse{resp}, size: size}, nil
}

func (f *FTPTransport) OpenWrite(path string, t TransferType) (io.WriteCloser, error) {
	if f.conn == nil {
		return nil, transportClosed
	}
	if err := f.setType(t); err != nil {
		return nil, err
	}
	conn := f.conn
	return newPipeWriter(func(r io.Reader) error {
		return ftpError(conn.Stor(path, r))
	}), nil
}

func (f *FTPTransport) NameList(path string) ([]string, error) {
	if f.conn == nil {
		return nil, transportClosed
	}
	names, err := f.conn.NameList(path)
	return names, f.check(err)
}

func (f *FTPTransport) Delete(path string) error {
	if f.conn == nil {
		return transportClosed
	}
	return f.check(f.conn.Delete(path))
}

func (f *FTPTransport) MakeDir(path string) error {
	if f.conn == nil {
		return transportClosed
	}
	return f.check(f.conn.MakeDir(path))
}

func (f *FTPTransport) RemoveDir(path string) error {
	if f.conn == nil {
		return transportClosed
	}
	return f.check(f.conn.RemoveDir(path))
}

func (f *FTPTransport) Rename(from, to string) error {
	if f.conn == nil {
		return transportClosed
	}
	return f.check(f.conn.Rename(from, to))
}

func (f *FTPTransport) CurrentDir() (string, error) {
	if f.conn == nil {
		return "", transportClosed
	}
	dir, err := f.conn.CurrentDir()
	return dir, f.check(err)
}

func (f *FTPTransport) ChangeDir(path string) error {
	if f.conn == nil {
		return transportClosed
	}
	return f.check(f.conn.ChangeDir(path))
}

// ftpResponse translates the completion reply read on Close.
type ftpResponse struct {
	*ftp.Response
}

func (r *ftpResponse) Close() error {
	return ftpError(r.Response.Close())
}

// check translates err and drops the connection when the server is gone,
// so the next Connect dials again.
func (f *FTPTransport) check(err error) error {
	err = ftpError(err)
	if f.conn != nil && connectionLost(err) {
		_ = f.conn.Quit()
		f.conn = nil
	}
	return err
}

func ftpError(err error) error {
	if err == nil {
		return nil
	}
	var te *textproto.Error
	if errors.As(err, &te) {
		return &ProtocolError{Code: te.Code, Message: te.Msg}
	}
	return err
}
