package protocols

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TransferType selects how file content is encoded on the wire.
type TransferType int

const (
	ASCII TransferType = iota
	Binary
)

func (t TransferType) Valid() bool {
	return t == ASCII || t == Binary
}

func (t TransferType) String() string {
	switch t {
	case ASCII:
		return "ascii"
	case Binary:
		return "binary"
	}
	return fmt.Sprintf("TransferType(%d)", int(t))
}

// ConnMode selects which side opens the data connection.
type ConnMode int

const (
	Active ConnMode = iota
	Passive
)

func (m ConnMode) Valid() bool {
	return m == Active || m == Passive
}

func (m ConnMode) String() string {
	switch m {
	case Active:
		return "active"
	case Passive:
		return "passive"
	}
	return fmt.Sprintf("ConnMode(%d)", int(m))
}

type Scheme string

const (
	SchemeFTP  Scheme = "ftp"
	SchemeSFTP Scheme = "sftp"
)

func (s Scheme) Valid() bool {
	switch s {
	case SchemeFTP, SchemeSFTP:
		return true
	}
	return false
}

func ParseScheme(s string) (Scheme, error) {
	if s == "" {
		return SchemeFTP, nil
	}
	scheme := Scheme(strings.ToLower(s))
	if !scheme.Valid() {
		return "", fmt.Errorf("unknown scheme %q", s)
	}
	return scheme, nil
}

type Credentials struct {
	User     string
	Password string
}

// ProtocolError is a failure reported by the remote server, carrying the
// server's numeric reply code and text.
type ProtocolError struct {
	Code    int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

// Transport is a single logical connection to a remote file server.
type Transport interface {
	Connect(server string, cred Credentials, mode ConnMode) error
	Disconnect() error
	IsConnected() bool

	// OpenRead starts a download. The returned stream must be closed before
	// the next command is issued on the same Transport.
	OpenRead(path string, t TransferType) (io.ReadCloser, error)
	// OpenWrite starts an upload. The upload is committed when the stream is
	// closed; Close reports the server's final verdict.
	OpenWrite(path string, t TransferType) (io.WriteCloser, error)

	NameList(path string) ([]string, error)
	Delete(path string) error
	MakeDir(path string) error
	RemoveDir(path string) error
	Rename(from, to string) error
	CurrentDir() (string, error)
	ChangeDir(path string) error
}

// Resolver maps a host name to its addresses.
type Resolver func(host string) ([]string, error)

func LookupHost(host string) ([]string, error) {
	return net.LookupHost(host)
}

// Factory builds an unconnected Transport for the scheme and mode.
type Factory func(scheme Scheme, mode ConnMode) Transport

type Options struct {
	DialTimeout time.Duration
	DisableEPSV bool
	// Debug copies the raw control channel to Logger.
	Debug  bool
	Logger zerolog.Logger
}

func DefaultOptions() Options {
	return Options{
		DialTimeout: 30 * time.Second,
		Logger:      zerolog.Nop(),
	}
}

func NewFactory(opts Options) Factory {
	return func(scheme Scheme, mode ConnMode) Transport {
		switch {
		case scheme == SchemeSFTP:
			return NewSFTPTransport(opts)
		case mode == Active:
			return NewActiveFTPTransport(opts)
		default:
			return NewFTPTransport(opts)
		}
	}
}

const transportClosed = transportErr("transport is not connected")

type transportErr string

func (e transportErr) Error() string { return string(e) }

// connectionLost reports whether err means the control connection is gone:
// a 421 reply or a closed or broken socket.
func connectionLost(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Code == 421
	}
	var oe *net.OpError
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.As(err, &oe)
}

func withDefaultPort(server, port string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), port)
}
