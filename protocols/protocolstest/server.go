// Package protocolstest provides an in-process file server for tests of
// code built on protocols.Transport.
package protocolstest

import (
	"bytes"
	"errors"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"ftpsession/protocols"
)

// Server is an in-process file server. Every Transport it hands out
// shares the same tree, so work done through one session is visible to the
// next. Text downloads are sent with CRLF line ends and text uploads are
// stored with LF, the way a Unix FTP server treats TYPE A.
type Server struct {
	mu       sync.Mutex
	files    map[string][]byte
	dirs     map[string]bool
	users    map[string]string
	connects int
	gen      int
}

func NewServer() *Server {
	return &Server{
		files: make(map[string][]byte),
		dirs:  map[string]bool{"/": true},
	}
}

// AddUser restricts logins to the registered users. With no users every
// login is accepted.
func (m *Server) AddUser(user, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users == nil {
		m.users = make(map[string]string)
	}
	m.users[user] = password
}

// WriteFile stores data at p, creating parent directories.
func (m *Server) WriteFile(p string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = path.Clean("/" + p)
	for dir := path.Dir(p); ; dir = path.Dir(dir) {
		m.dirs[dir] = true
		if dir == "/" {
			break
		}
	}
	m.files[p] = append([]byte(nil), data...)
}

func (m *Server) ReadFile(p string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path.Clean("/"+p)]
	return append([]byte(nil), data...), ok
}

func (m *Server) HasDir(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirs[path.Clean("/"+p)]
}

// Connects reports how many logins succeeded.
func (m *Server) Connects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connects
}

func (m *Server) Transport() *Transport {
	return &Transport{server: m}
}

// Factory returns a protocols.Factory that always serves from m.
func (m *Server) Factory() protocols.Factory {
	return func(protocols.Scheme, protocols.ConnMode) protocols.Transport {
		return m.Transport()
	}
}

// DropConnections closes every open control connection the way an idle
// timeout does: the next command on each answers 421 and the transport
// reports itself disconnected.
func (m *Server) DropConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
}

func (m *Server) generation() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

func (m *Server) login(cred protocols.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users != nil {
		if pass, ok := m.users[cred.User]; !ok || pass != cred.Password {
			return &protocols.ProtocolError{Code: 530, Message: "Login incorrect."}
		}
	}
	m.connects++
	return nil
}

func (m *Server) isEmptyDir(p string) bool {
	prefix := strings.TrimSuffix(p, "/") + "/"
	for f := range m.files {
		if strings.HasPrefix(f, prefix) {
			return false
		}
	}
	for d := range m.dirs {
		if strings.HasPrefix(d, prefix) {
			return false
		}
	}
	return true
}

var (
	errNoSuchFile  = &protocols.ProtocolError{Code: 550, Message: "No such file or directory."}
	errFileExists  = &protocols.ProtocolError{Code: 550, Message: "File exists."}
	errDirNotEmpty = &protocols.ProtocolError{Code: 550, Message: "Directory not empty."}
	errCannotStore = &protocols.ProtocolError{Code: 553, Message: "Could not create file."}
	errClosing     = &protocols.ProtocolError{Code: 421, Message: "Service not available, closing control connection."}
	errNotConnected = errors.New("not connected")
)

type Transport struct {
	server    *Server
	connected bool
	gen       int
	cwd       string
}

func (t *Transport) Connect(_ string, cred protocols.Credentials, _ protocols.ConnMode) error {
	if err := t.server.login(cred); err != nil {
		return err
	}
	t.connected = true
	t.gen = t.server.generation()
	t.cwd = "/"
	return nil
}

// alive fails every command once the server has dropped the connection.
func (t *Transport) alive() error {
	if !t.connected {
		return errNotConnected
	}
	if t.gen != t.server.generation() {
		t.connected = false
		return errClosing
	}
	return nil
}

func (t *Transport) Disconnect() error {
	t.connected = false
	return nil
}

func (t *Transport) IsConnected() bool {
	return t.connected
}

func (t *Transport) resolve(p string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(t.cwd, p)
}

func (t *Transport) OpenRead(p string, tt protocols.TransferType) (io.ReadCloser, error) {
	if err := t.alive(); err != nil {
		return nil, err
	}
	data, ok := t.server.ReadFile(t.resolve(p))
	if !ok {
		return nil, errNoSuchFile
	}
	if tt == protocols.ASCII {
		data = toNetASCII(data)
	}
	return &download{Reader: bytes.NewReader(data)}, nil
}

func (t *Transport) OpenWrite(p string, tt protocols.TransferType) (io.WriteCloser, error) {
	if err := t.alive(); err != nil {
		return nil, err
	}
	target := t.resolve(p)
	if !t.server.HasDir(path.Dir(target)) || t.server.HasDir(target) {
		return nil, errCannotStore
	}
	return &upload{server: t.server, path: target, ascii: tt == protocols.ASCII}, nil
}

func (t *Transport) NameList(p string) ([]string, error) {
	if err := t.alive(); err != nil {
		return nil, err
	}
	dir := t.resolve(p)
	m := t.server
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirs[dir] {
		if _, ok := m.files[dir]; ok {
			return []string{path.Base(dir)}, nil
		}
		return nil, errNoSuchFile
	}
	names := []string{}
	for f := range m.files {
		if f != dir && path.Dir(f) == dir {
			names = append(names, path.Base(f))
		}
	}
	for d := range m.dirs {
		if d != dir && path.Dir(d) == dir {
			names = append(names, path.Base(d))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (t *Transport) Delete(p string) error {
	if err := t.alive(); err != nil {
		return err
	}
	target := t.resolve(p)
	m := t.server
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[target]; !ok {
		return errNoSuchFile
	}
	delete(m.files, target)
	return nil
}

func (t *Transport) MakeDir(p string) error {
	if err := t.alive(); err != nil {
		return err
	}
	target := t.resolve(p)
	m := t.server
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[target]; ok || m.dirs[target] {
		return errFileExists
	}
	if !m.dirs[path.Dir(target)] {
		return errNoSuchFile
	}
	m.dirs[target] = true
	return nil
}

func (t *Transport) RemoveDir(p string) error {
	if err := t.alive(); err != nil {
		return err
	}
	target := t.resolve(p)
	m := t.server
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirs[target] || target == "/" {
		return errNoSuchFile
	}
	if !m.isEmptyDir(target) {
		return errDirNotEmpty
	}
	delete(m.dirs, target)
	return nil
}

// Rename moves a file or an empty directory.
func (t *Transport) Rename(from, to string) error {
	if err := t.alive(); err != nil {
		return err
	}
	src, dst := t.resolve(from), t.resolve(to)
	m := t.server
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dirs[path.Dir(dst)] {
		return errNoSuchFile
	}
	if data, ok := m.files[src]; ok {
		delete(m.files, src)
		m.files[dst] = data
		return nil
	}
	if m.dirs[src] && src != "/" && m.isEmptyDir(src) {
		delete(m.dirs, src)
		m.dirs[dst] = true
		return nil
	}
	return errNoSuchFile
}

func (t *Transport) CurrentDir() (string, error) {
	if err := t.alive(); err != nil {
		return "", err
	}
	return t.cwd, nil
}

func (t *Transport) ChangeDir(p string) error {
	if err := t.alive(); err != nil {
		return err
	}
	target := t.resolve(p)
	if !t.server.HasDir(target) {
		return errNoSuchFile
	}
	t.cwd = target
	return nil
}

// download reports its length up front like a SIZE reply.
type download struct {
	*bytes.Reader
}

func (d *download) Close() error { return nil }

type upload struct {
	bytes.Buffer
	server *Server
	path   string
	ascii  bool
	closed bool
}

func (u *upload) Close() error {
	if u.closed {
		return nil
	}
	u.closed = true
	data := u.Bytes()
	if u.ascii {
		data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	}
	u.server.WriteFile(u.path, data)
	return nil
}

func toNetASCII(data []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(data))
	for i, b := range data {
		if b == '\n' && (i == 0 || data[i-1] != '\r') {
			out.WriteByte('\r')
		}
		out.WriteByte(b)
	}
	return out.Bytes()
}
