package protocols

import (
	"errors"
	"io"

	gftp "github.com/gonzalop/ftp"
)

// ActiveFTPTransport speaks FTP with the server connecting back to us for
// data (PORT/EPRT). Its client always transfers in image mode, so ASCII
// conversion happens entirely on our side.
type ActiveFTPTransport struct {
	opts   Options
	client *gftp.Client
}

func NewActiveFTPTransport(opts Options) *ActiveFTPTransport {
	return &ActiveFTPTransport{opts: opts}
}

func (a *ActiveFTPTransport) Connect(server string, cred Credentials, mode ConnMode) error {
	dialOpts := []gftp.Option{gftp.WithTimeout(a.opts.DialTimeout)}
	if mode == Active {
		dialOpts = append(dialOpts, gftp.WithActiveMode())
	}
	if a.opts.DisableEPSV {
		dialOpts = append(dialOpts, gftp.WithDisableEPSV())
	}

	c, err := gftp.Dial(withDefaultPort(server, "21"), dialOpts...)
	if err != nil {
		return activeError(err)
	}
	if err := c.Login(cred.User, cred.Password); err != nil {
		_ = c.Quit()
		return activeError(err)
	}
	a.client = c
	return nil
}

func (a *ActiveFTPTransport) Disconnect() error {
	if a.client == nil {
		return nil
	}
	err := a.client.Quit()
	a.client = nil
	return activeError(err)
}

func (a *ActiveFTPTransport) IsConnected() bool {
	return a.client != nil
}

func (a *ActiveFTPTransport) OpenRead(path string, _ TransferType) (io.ReadCloser, error) {
	if a.client == nil {
		return nil, transportClosed
	}
	size, err := a.client.Size(path)
	if err != nil {
		size = -1
	}
	c := a.client
	r, err := openPipeReader(size, func(w io.Writer) error {
		return activeError(c.Retrieve(path, w))
	})
	if err != nil {
		return nil, a.check(err)
	}
	return r, nil
}

func (a *ActiveFTPTransport) OpenWrite(path string, _ TransferType) (io.WriteCloser, error) {
	if a.client == nil {
		return nil, transportClosed
	}
	c := a.client
	return newPipeWriter(func(r io.Reader) error {
		return activeError(c.Store(path, r))
	}), nil
}

func (a *ActiveFTPTransport) NameList(path string) ([]string, error) {
	if a.client == nil {
		return nil, transportClosed
	}
	names, err := a.client.NameList(path)
	return names, a.check(err)
}

func (a *ActiveFTPTransport) Delete(path string) error {
	if a.client == nil {
		return transportClosed
	}
	return a.check(a.client.Delete(path))
}

func (a *ActiveFTPTransport) MakeDir(path string) error {
	if a.client == nil {
		return transportClosed
	}
	return a.check(a.client.MakeDir(path))
}

func (a *ActiveFTPTransport) RemoveDir(path string) error {
	if a.client == nil {
		return transportClosed
	}
	return a.check(a.client.RemoveDir(path))
}

func (a *ActiveFTPTransport) Rename(from, to string) error {
	if a.client == nil {
		return transportClosed
	}
	return a.check(a.client.Rename(from, to))
}

func (a *ActiveFTPTransport) CurrentDir() (string, error) {
	if a.client == nil {
		return "", transportClosed
	}
	dir, err := a.client.CurrentDir()
	return dir, a.check(err)
}

func (a *ActiveFTPTransport) ChangeDir(path string) error {
	if a.client == nil {
		return transportClosed
	}
	return a.check(a.client.ChangeDir(path))
}

// check translates err and drops the client when the server is gone.
func (a *ActiveFTPTransport) check(err error) error {
	err = activeError(err)
	if a.client != nil && connectionLost(err) {
		_ = a.client.Quit()
		a.client = nil
	}
	return err
}

func activeError(err error) error {
	if err == nil {
		return nil
	}
	var pe *gftp.ProtocolError
	if errors.As(err, &pe) {
		return &ProtocolError{Code: pe.Code, Message: pe.Response}
	}
	return err
}
