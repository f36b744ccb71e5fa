package protocols

import (
	"errors"
	"io"
	"os"
	"path"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SSH_FX status codes
const (
	sftpNoSuchFile       = 2
	sftpPermissionDenied = 3
	sftpFailure          = 4
)

// dialSFTP opens the SSH connection and the SFTP subsystem on it. The
// returned closer tears down the SSH connection.
var dialSFTP = func(addr string, cred Credentials, opts Options) (*sftp.Client, io.Closer, error) {
	config := &ssh.ClientConfig{
		User: cred.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(cred.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         opts.DialTimeout,
	}

	conn, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, nil, err
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return client, conn, nil
}

// SFTPTransport maps the session operations onto SFTP. SFTP has no working
// directory of its own, so it is tracked here and relative paths are
// resolved against it.
type SFTPTransport struct {
	opts    Options
	client  *sftp.Client
	sshConn io.Closer
	cwd     string
}

func NewSFTPTransport(opts Options) *SFTPTransport {
	return &SFTPTransport{opts: opts}
}

func (s *SFTPTransport) Connect(server string, cred Credentials, _ ConnMode) error {
	client, conn, err := dialSFTP(withDefaultPort(server, "22"), cred, s.opts)
	if err != nil {
		return sftpError(err)
	}
	s.client = client
	s.sshConn = conn

	s.cwd = "/"
	if wd, err := client.Getwd(); err == nil && wd != "" {
		s.cwd = wd
	}
	return nil
}

func (s *SFTPTransport) Disconnect() error {
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	if s.sshConn != nil {
		if cerr := s.sshConn.Close(); err == nil {
			err = cerr
		}
	}
	s.client = nil
	s.sshConn = nil
	return sftpError(err)
}

func (s *SFTPTransport) IsConnected() bool {
	return s.client != nil
}

func (s *SFTPTransport) resolve(p string) string {
	if p == "" {
		return s.cwd
	}
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(s.cwd, p)
}

// OpenRead ignores the transfer type; SFTP always moves raw bytes.
func (s *SFTPTransport) OpenRead(p string, _ TransferType) (io.ReadCloser, error) {
	if s.client == nil {
		return nil, transportClosed
	}
	f, err := s.client.Open(s.resolve(p))
	if err != nil {
		return nil, s.check(err)
	}
	return f, nil
}

func (s *SFTPTransport) OpenWrite(p string, _ TransferType) (io.WriteCloser, error) {
	if s.client == nil {
		return nil, transportClosed
	}
	f, err := s.client.Create(s.resolve(p))
	if err != nil {
		return nil, s.check(err)
	}
	return f, nil
}

func (s *SFTPTransport) NameList(p string) ([]string, error) {
	if s.client == nil {
		return nil, transportClosed
	}
	entries, err := s.client.ReadDir(s.resolve(p))
	if err != nil {
		return nil, s.check(err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Name() == "." || entry.Name() == ".." {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (s *SFTPTransport) Delete(p string) error {
	if s.client == nil {
		return transportClosed
	}
	return s.check(s.client.Remove(s.resolve(p)))
}

func (s *SFTPTransport) MakeDir(p string) error {
	if s.client == nil {
		return transportClosed
	}
	return s.check(s.client.Mkdir(s.resolve(p)))
}

func (s *SFTPTransport) RemoveDir(p string) error {
	if s.client == nil {
		return transportClosed
	}
	return s.check(s.client.RemoveDirectory(s.resolve(p)))
}

func (s *SFTPTransport) Rename(from, to string) error {
	if s.client == nil {
		return transportClosed
	}
	return s.check(s.client.Rename(s.resolve(from), s.resolve(to)))
}

func (s *SFTPTransport) CurrentDir() (string, error) {
	if s.client == nil {
		return "", transportClosed
	}
	return s.cwd, nil
}

func (s *SFTPTransport) ChangeDir(p string) error {
	if s.client == nil {
		return transportClosed
	}
	target := s.resolve(p)
	fi, err := s.client.Stat(target)
	if err != nil {
		return s.check(err)
	}
	if !fi.IsDir() {
		return &ProtocolError{Code: sftpFailure, Message: target + ": not a directory"}
	}
	s.cwd = target
	return nil
}

// check translates err and tears the connection down when it is gone.
func (s *SFTPTransport) check(err error) error {
	lost := errors.Is(err, sftp.ErrSSHFxConnectionLost) || connectionLost(err)
	err = sftpError(err)
	if s.client != nil && lost {
		_ = s.Disconnect()
	}
	return err
}

func sftpError(err error) error {
	if err == nil {
		return nil
	}
	var se *sftp.StatusError
	switch {
	case errors.As(err, &se):
		return &ProtocolError{Code: int(se.Code), Message: se.Error()}
	case errors.Is(err, os.ErrNotExist):
		return &ProtocolError{Code: sftpNoSuchFile, Message: err.Error()}
	case errors.Is(err, os.ErrPermission):
		return &ProtocolError{Code: sftpPermissionDenied, Message: err.Error()}
	}
	return err
}
