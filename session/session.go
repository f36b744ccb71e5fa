// Package session is a connection-oriented file transfer client. A Session
// holds the settings for one remote server, opens at most one connection to
// it, and runs file and directory operations over that connection.
//
// Operations report failure through their error return. When no connection
// is open most operations return a false or empty result with a nil error;
// DeleteFile instead returns ErrNotConnected.
package session

import (
	"fmt"
	"net"

	"github.com/rs/zerolog"

	"ftpsession/protocols"
)

type Config struct {
	Server       string
	User         string
	Password     string
	Scheme       protocols.Scheme
	TransferType protocols.TransferType
	ConnMode     protocols.ConnMode
	Overwrite    bool
}

type Session struct {
	cfg       Config
	transport protocols.Transport
	factory   protocols.Factory
	resolve   protocols.Resolver
	strategy  *Strategy
	local     *protocols.LocalFileSystem
	log       zerolog.Logger
}

// New returns a disconnected Session using FTP, ASCII transfers, active
// mode and no overwrite.
func New(opts ...Option) *Session {
	s := &Session{
		cfg:      Config{Scheme: protocols.SchemeFTP},
		factory:  protocols.NewFactory(protocols.DefaultOptions()),
		resolve:  protocols.LookupHost,
		strategy: NewStrategy(),
		local:    &protocols.LocalFileSystem{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Config() Config { return s.cfg }

// Apply replaces every setting at once. Nothing is changed if any value is
// invalid.
func (s *Session) Apply(cfg Config) error {
	if cfg.Scheme == "" {
		cfg.Scheme = protocols.SchemeFTP
	}
	if err := validateScheme(cfg.Scheme); err != nil {
		return err
	}
	if err := validateTransferType(cfg.TransferType); err != nil {
		return err
	}
	if err := validateConnMode(cfg.ConnMode); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

func (s *Session) Server() string                       { return s.cfg.Server }
func (s *Session) SetServer(server string)              { s.cfg.Server = server }
func (s *Session) User() string                         { return s.cfg.User }
func (s *Session) SetUser(user string)                  { s.cfg.User = user }
func (s *Session) Password() string                     { return s.cfg.Password }
func (s *Session) SetPassword(password string)          { s.cfg.Password = password }
func (s *Session) Overwrite() bool                      { return s.cfg.Overwrite }
func (s *Session) SetOverwrite(overwrite bool)          { s.cfg.Overwrite = overwrite }
func (s *Session) Scheme() protocols.Scheme             { return s.cfg.Scheme }
func (s *Session) TransferType() protocols.TransferType { return s.cfg.TransferType }
func (s *Session) ConnMode() protocols.ConnMode         { return s.cfg.ConnMode }

// SetScheme takes effect on the next Connect.
func (s *Session) SetScheme(scheme protocols.Scheme) error {
	if err := validateScheme(scheme); err != nil {
		return err
	}
	s.cfg.Scheme = scheme
	return nil
}

func (s *Session) SetTransferType(t protocols.TransferType) error {
	if err := validateTransferType(t); err != nil {
		return err
	}
	s.cfg.TransferType = t
	return nil
}

// SetConnMode takes effect on the next Connect.
func (s *Session) SetConnMode(m protocols.ConnMode) error {
	if err := validateConnMode(m); err != nil {
		return err
	}
	s.cfg.ConnMode = m
	return nil
}

func validateScheme(scheme protocols.Scheme) error {
	if !scheme.Valid() {
		return &ConfigError{Field: "scheme", Message: fmt.Sprintf("unsupported scheme %q", string(scheme))}
	}
	return nil
}

func validateTransferType(t protocols.TransferType) error {
	if !t.Valid() {
		return &ConfigError{Field: "transfer_type", Message: fmt.Sprintf("invalid transfer type %d", int(t))}
	}
	return nil
}

func validateConnMode(m protocols.ConnMode) error {
	if !m.Valid() {
		return &ConfigError{Field: "conn_mode", Message: fmt.Sprintf("invalid connection mode %d", int(m))}
	}
	return nil
}

func (s *Session) IsConnected() bool {
	return s.transport != nil && s.transport.IsConnected()
}

// Connect opens the connection. It does nothing when a connection is
// already open. The server name is resolved first; an empty or
// unresolvable name is a ConfigError.
func (s *Session) Connect() (bool, error) {
	if s.IsConnected() {
		return true, nil
	}

	host := s.cfg.Server
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" {
		return false, &ConfigError{Field: "server", Message: "Server name required"}
	}
	addrs, err := s.resolve(host)
	if err != nil {
		return false, &ConfigError{Field: "server", Message: fmt.Sprintf("cannot resolve %s", host), Err: err}
	}
	if len(addrs) == 0 {
		return false, &ConfigError{Field: "server", Message: "Server name required"}
	}

	log := s.log.With().Str("server", s.cfg.Server).Stringer("mode", s.cfg.ConnMode).Str("scheme", string(s.cfg.Scheme)).Logger()
	log.Debug().Strs("addrs", addrs).Msg("connecting")

	t := s.factory(s.cfg.Scheme, s.cfg.ConnMode)
	cred := protocols.Credentials{User: s.cfg.User, Password: s.cfg.Password}
	if err := t.Connect(s.cfg.Server, cred, s.cfg.ConnMode); err != nil || !t.IsConnected() {
		_ = t.Disconnect()
		log.Warn().Err(err).Msg("connect failed")
		return false, wrapError(err)
	}
	s.transport = t
	log.Info().Msg("connected")
	return true, nil
}

// Disconnect closes the connection if one is open.
func (s *Session) Disconnect() error {
	t := s.transport
	s.transport = nil
	if t == nil || !t.IsConnected() {
		return nil
	}
	s.log.Debug().Str("server", s.cfg.Server).Msg("disconnecting")
	return wrapError(t.Disconnect())
}

func (s *Session) Close() error {
	return s.Disconnect()
}

func (s *Session) DeleteFile(path string) (bool, error) {
	if !s.IsConnected() {
		return false, ErrNotConnected
	}
	if err := s.transport.Delete(path); err != nil {
		return false, wrapError(err)
	}
	return true, nil
}

// EnumerateDirectory returns the names in path. An empty directory yields an
// empty, non-nil slice; nil with a nil error means no connection is open.
func (s *Session) EnumerateDirectory(path string) ([]string, error) {
	if !s.IsConnected() {
		return nil, nil
	}
	names, err := s.transport.NameList(path)
	if err != nil {
		return nil, wrapError(err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// GetFile downloads remotePath into localPath using the current transfer
// type. An existing local file is replaced only when Overwrite is set.
func (s *Session) GetFile(remotePath, localPath string) (bool, error) {
	if !s.IsConnected() {
		return false, nil
	}
	s.log.Debug().Str("remote", remotePath).Str("local", localPath).Stringer("type", s.cfg.TransferType).Msg("get file")

	from, err := s.transport.OpenRead(remotePath, s.cfg.TransferType)
	if err != nil {
		return false, wrapError(err)
	}
	src := closeOnceReader(from)
	defer src.Close()

	to, err := s.local.Create(localPath, s.cfg.Overwrite)
	if err != nil {
		return false, err
	}
	dst := closeOnceWriter(to)
	defer dst.Close()

	if err := s.strategy.Copy(dst, src, s.cfg.TransferType); err != nil {
		// a partial file would block the retry when Overwrite is off
		_ = dst.Close()
		if rerr := s.local.Remove(localPath); rerr != nil {
			s.log.Warn().Err(rerr).Str("local", localPath).Msg("failed to remove partial download")
		}
		return false, err
	}
	return true, nil
}

// PutFile uploads localPath to remotePath using the current transfer type.
func (s *Session) PutFile(localPath, remotePath string) (bool, error) {
	if !s.IsConnected() {
		return false, nil
	}
	s.log.Debug().Str("local", localPath).Str("remote", remotePath).Stringer("type", s.cfg.TransferType).Msg("put file")

	from, err := s.local.Open(localPath)
	if err != nil {
		return false, err
	}
	src := closeOnceReader(from)
	defer src.Close()

	to, err := s.transport.OpenWrite(remotePath, s.cfg.TransferType)
	if err != nil {
		return false, wrapError(err)
	}
	dst := closeOnceWriter(to)
	defer dst.Close()

	if err := s.strategy.Copy(dst, src, s.cfg.TransferType); err != nil {
		return false, err
	}
	return true, nil
}

// OpenFile opens a remote file for streaming in one direction. Access must be
// Read or Write; anything else fails with ErrUnsupported even without a
// connection.
func (s *Session) OpenFile(remotePath string, access Access) (*RemoteFile, error) {
	if access != Read && access != Write {
		return nil, ErrUnsupported
	}
	if !s.IsConnected() {
		return nil, nil
	}

	if access == Read {
		r, err := s.transport.OpenRead(remotePath, s.cfg.TransferType)
		if err != nil {
			return nil, wrapError(err)
		}
		return &RemoteFile{path: remotePath, access: Read, r: closeOnceReader(r)}, nil
	}
	w, err := s.transport.OpenWrite(remotePath, s.cfg.TransferType)
	if err != nil {
		return nil, wrapError(err)
	}
	return &RemoteFile{path: remotePath, access: Write, w: closeOnceWriter(w)}, nil
}

func (s *Session) CreateDirectory(path string) (bool, error) {
	if !s.IsConnected() {
		return false, nil
	}
	if err := s.transport.MakeDir(path); err != nil {
		return false, wrapError(err)
	}
	return true, nil
}

func (s *Session) RemoveDirectory(path string) (bool, error) {
	if !s.IsConnected() {
		return false, nil
	}
	if err := s.transport.RemoveDir(path); err != nil {
		return false, wrapError(err)
	}
	return true, nil
}

func (s *Session) Rename(from, to string) (bool, error) {
	if !s.IsConnected() {
		return false, nil
	}
	if err := s.transport.Rename(from, to); err != nil {
		return false, wrapError(err)
	}
	return true, nil
}

func (s *Session) SetCurrentDirectory(path string) (bool, error) {
	if !s.IsConnected() {
		return false, nil
	}
	if err := s.transport.ChangeDir(path); err != nil {
		return false, wrapError(err)
	}
	return true, nil
}

func (s *Session) GetCurrentDirectory() (string, error) {
	if !s.IsConnected() {
		return "", nil
	}
	dir, err := s.transport.CurrentDir()
	if err != nil {
		return "", wrapError(err)
	}
	return dir, nil
}
