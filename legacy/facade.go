// Package legacy exposes a session through the property and boolean-result
// interface of the classic ASP FTP component. No method returns an error;
// failures are recorded as a last-error code and description, read back
// with ErrorNum, ErrorDesc and ErrorString.
package legacy

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"ftpsession/protocols"
	"ftpsession/session"
)

var (
	ErrAccessType   = errors.New("only AccessTypeDirect is supported")
	ErrOutOfRange   = errors.New("value out of range")
	ErrNoFileOpen   = errors.New("no remote file is open")
	ErrFileOpen     = errors.New("a remote file is already open")
	ErrItemNotFound = errors.New("directory item out of range")
)

type Option func(*Facade)

func WithLogger(l zerolog.Logger) Option {
	return func(f *Facade) {
		f.log = l
	}
}

type Facade struct {
	session    *session.Session
	fileAccess int64
	lastError  int64
	lastDesc   string
	dirItems   []string
	file       *session.RemoteFile
	log        zerolog.Logger
}

// New wraps s, or a fresh session when s is nil, and applies the
// component defaults: overwrite on, passive mode, ASCII transfers, direct
// access and write file access.
func New(s *session.Session, opts ...Option) *Facade {
	if s == nil {
		s = session.New()
	}
	f := &Facade{
		session:    s,
		fileAccess: FileAccessWrite,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	s.SetOverwrite(true)
	_ = s.SetConnMode(protocols.Passive)
	_ = s.SetTransferType(protocols.ASCII)
	f.clearErrors()
	return f
}

func (f *Facade) Session() *session.Session { return f.session }

func (f *Facade) Overwrite() bool     { return f.session.Overwrite() }
func (f *Facade) SetOverwrite(v bool) { f.session.SetOverwrite(v) }

func (f *Facade) PassiveMode() bool {
	return f.session.ConnMode() == protocols.Passive
}

func (f *Facade) SetPassiveMode(v bool) {
	mode := protocols.Active
	if v {
		mode = protocols.Passive
	}
	_ = f.session.SetConnMode(mode)
}

func (f *Facade) ServerName() string     { return f.session.Server() }
func (f *Facade) SetServerName(v string) { f.session.SetServer(v) }
func (f *Facade) UserID() string         { return f.session.User() }
func (f *Facade) SetUserID(v string)     { f.session.SetUser(v) }
func (f *Facade) Password() string       { return f.session.Password() }
func (f *Facade) SetPassword(v string)   { f.session.SetPassword(v) }

func (f *Facade) AccessType() int64 { return AccessTypeDirect }

// SetAccessType accepts only AccessTypeDirect.
func (f *Facade) SetAccessType(v int64) error {
	if v != AccessTypeDirect {
		return ErrAccessType
	}
	return nil
}

func (f *Facade) FileAccess() int64 { return f.fileAccess }

func (f *Facade) SetFileAccess(v int64) error {
	if v != FileAccessWrite && v != FileAccessRead {
		return fmt.Errorf("file access %d: %w", v, ErrOutOfRange)
	}
	f.fileAccess = v
	return nil
}

func (f *Facade) TransferType() int64 {
	if f.session.TransferType() == protocols.Binary {
		return TransferTypeBinary
	}
	return TransferTypeASCII
}

func (f *Facade) SetTransferType(v int64) error {
	switch v {
	case TransferTypeASCII:
		return f.session.SetTransferType(protocols.ASCII)
	case TransferTypeBinary:
		return f.session.SetTransferType(protocols.Binary)
	}
	return fmt.Errorf("transfer type %d: %w", v, ErrOutOfRange)
}

func (f *Facade) ErrorNum() int64   { return f.lastError }
func (f *Facade) ErrorDesc() string { return f.lastDesc }

// ErrorString formats the last error as "code: description".
func (f *Facade) ErrorString() string {
	return fmt.Sprintf("%d: %s", f.lastError, f.lastDesc)
}

func (f *Facade) clearErrors() {
	f.lastError = 0
	f.lastDesc = ""
}

func (f *Facade) setLastError(code int64, desc string) {
	f.lastError = code
	f.lastDesc = desc
}

func (f *Facade) recordError(op string, err error) {
	f.setLastError(int64(session.Code(err)), err.Error())
	f.log.Debug().Str("op", op).Int64("code", f.lastError).Err(err).Msg("operation failed")
}

// Connect opens the connection unless one is already open.
func (f *Facade) Connect() bool {
	f.clearErrors()
	ok, err := f.session.Connect()
	if err != nil {
		f.recordError("connect", err)
	}
	return ok
}

func (f *Facade) Disconnect() bool {
	if f.file != nil {
		_ = f.file.Close()
		f.file = nil
	}
	if err := f.session.Disconnect(); err != nil {
		f.log.Debug().Err(err).Msg("disconnect")
	}
	return true
}

func (f *Facade) DeleteFile(file string) bool {
	if f.fileBusy() {
		return false
	}
	if !f.Connect() {
		f.setLastError(-1, msgNoConnection)
		return false
	}
	f.clearErrors()
	ok, err := f.session.DeleteFile(file)
	if err != nil {
		f.recordError("delete", err)
	}
	return ok
}

// GetDir loads the listing of dir for DirCount and DirName. An empty
// directory succeeds with the last error set to (0, "Empty Directory").
func (f *Facade) GetDir(dir string) bool {
	if f.fileBusy() {
		return false
	}
	if !f.Connect() {
		f.setLastError(-1, msgNoConnection)
		return false
	}
	f.clearErrors()
	items, ok := f.list("get dir", dir)
	if !ok {
		return false
	}
	f.dirItems = items
	return true
}

// ListDir returns the names in dir joined with ";". It returns "" both for
// an empty directory and on failure; the last error tells them apart.
func (f *Facade) ListDir(dir string) string {
	if f.fileBusy() {
		return ""
	}
	f.Connect()
	f.clearErrors()
	items, ok := f.list("list dir", dir)
	if !ok {
		return ""
	}
	f.dirItems = items
	return strings.Join(items, ";")
}

func (f *Facade) list(op, dir string) ([]string, bool) {
	items, err := f.session.EnumerateDirectory(dir)
	if err != nil {
		f.recordError(op, err)
		return nil, false
	}
	if items == nil {
		f.setLastError(-1, msgNoConnection)
		return nil, false
	}
	if len(items) == 0 {
		f.setLastError(0, msgEmptyDir)
	}
	return items, true
}

func (f *Facade) DirCount() int64 {
	return int64(len(f.dirItems))
}

// DirName returns the nth item, counting from 1, of the last listing.
func (f *Facade) DirName(n int) string {
	if n < 1 || n > len(f.dirItems) {
		f.setLastError(GenericError, fmt.Sprintf("item %d: %s", n, ErrItemNotFound))
		return ""
	}
	return f.dirItems[n-1]
}

func (f *Facade) DirItems() []string {
	return append([]string(nil), f.dirItems...)
}

func (f *Facade) GetFile(source, target string) bool {
	if f.fileBusy() {
		return false
	}
	if !f.Connect() {
		f.setLastError(-1, msgCannotReach)
		return false
	}
	f.clearErrors()
	ok, err := f.session.GetFile(source, target)
	if err != nil {
		f.recordError("get file", err)
	}
	return ok
}

func (f *Facade) PutFile(source, target string) bool {
	if f.fileBusy() {
		return false
	}
	if !f.Connect() {
		f.setLastError(-1, msgCannotReach)
		return false
	}
	f.clearErrors()
	ok, err := f.session.PutFile(source, target)
	if err != nil {
		f.recordError("put file", err)
	}
	return ok
}

func (f *Facade) MakeDir(dir string) bool {
	if f.fileBusy() {
		return false
	}
	if !f.Connect() {
		f.setLastError(-1, msgNoConnection)
		return false
	}
	ok, err := f.session.CreateDirectory(dir)
	if err != nil {
		f.recordError("make dir", err)
	}
	return ok
}

func (f *Facade) RemoveDir(dir string) bool {
	if f.fileBusy() {
		return false
	}
	if !f.Connect() {
		f.setLastError(-1, msgCannotReach)
		return false
	}
	f.clearErrors()
	ok, err := f.session.RemoveDirectory(dir)
	if err != nil {
		f.recordError("remove dir", err)
	}
	return ok
}

func (f *Facade) Rename(from, to string) bool {
	if f.fileBusy() {
		return false
	}
	if !f.Connect() {
		f.setLastError(-1, msgCannotReach+".")
		return false
	}
	ok, err := f.session.Rename(from, to)
	if err != nil {
		f.recordError("rename", err)
	}
	return ok
}

func (f *Facade) SetCurrentDir(dir string) bool {
	if f.fileBusy() {
		return false
	}
	if !f.Connect() {
		f.setLastError(-1, msgNoConnection)
		return false
	}
	ok, err := f.session.SetCurrentDirectory(dir)
	if err != nil {
		f.recordError("set current dir", err)
	}
	return ok
}

func (f *Facade) GetCurrentDir() string {
	if f.fileBusy() {
		return ""
	}
	if !f.Connect() {
		f.setLastError(-1, msgNoConnection)
		return ""
	}
	dir, err := f.session.GetCurrentDirectory()
	if err != nil {
		f.recordError("get current dir", err)
	}
	return dir
}

// fileBusy records ErrFileOpen while an open remote file holds the
// connection. Only ReadFile, WriteFile, CloseFile and Disconnect may run
// until the file is closed.
func (f *Facade) fileBusy() bool {
	if f.file == nil {
		return false
	}
	f.setLastError(GenericError, ErrFileOpen.Error())
	return true
}

// OpenFile opens name for reading or writing according to FileAccess. Only
// one file can be open at a time.
func (f *Facade) OpenFile(name string) bool {
	if f.fileBusy() {
		return false
	}
	if !f.Connect() {
		f.setLastError(-1, msgNoConnection)
		return false
	}
	f.clearErrors()
	access := session.Write
	if f.fileAccess == FileAccessRead {
		access = session.Read
	}
	file, err := f.session.OpenFile(name, access)
	if err != nil {
		f.recordError("open file", err)
		return false
	}
	if file == nil {
		f.setLastError(-1, msgNoConnection)
		return false
	}
	f.file = file
	return true
}

// ReadFile returns the whole remaining content of the open file.
func (f *Facade) ReadFile() string {
	if f.file == nil {
		f.setLastError(GenericError, ErrNoFileOpen.Error())
		return ""
	}
	f.clearErrors()
	data, err := io.ReadAll(f.file)
	if err != nil {
		f.recordError("read file", err)
	}
	return string(data)
}

func (f *Facade) WriteFile(data string) bool {
	if f.file == nil {
		f.setLastError(GenericError, ErrNoFileOpen.Error())
		return false
	}
	f.clearErrors()
	if _, err := io.WriteString(f.file, data); err != nil {
		f.recordError("write file", err)
		return false
	}
	return true
}

// CloseFile closes the open file. For a file opened for writing the
// result reflects whether the server accepted the upload.
func (f *Facade) CloseFile() bool {
	if f.file == nil {
		f.setLastError(GenericError, ErrNoFileOpen.Error())
		return false
	}
	f.clearErrors()
	err := f.file.Close()
	f.file = nil
	if err != nil {
		f.recordError("close file", err)
		return false
	}
	return true
}

// ConvertCrLf replaces every CRLF in data with an HTML line break.
func (f *Facade) ConvertCrLf(data string) string {
	return strings.ReplaceAll(data, "\r\n", "<br>")
}

func (f *Facade) quickConnect(server, user, password string) bool {
	if f.session.IsConnected() {
		f.Disconnect()
	}
	f.SetServerName(server)
	f.SetUserID(user)
	f.SetPassword(password)

	if !f.Connect() {
		f.setLastError(-1, msgCannotReach)
		return false
	}
	return true
}

func (f *Facade) quick(server, user, password string, op func() bool) bool {
	if f.fileBusy() {
		return false
	}
	if !f.quickConnect(server, user, password) {
		return false
	}
	defer f.Disconnect()
	return op()
}

func (f *Facade) setTransferTypeChecked(v int64) bool {
	if err := f.SetTransferType(v); err != nil {
		f.setLastError(GenericError, err.Error())
		return false
	}
	return true
}

func (f *Facade) QDeleteFile(server, user, password, file string) bool {
	return f.quick(server, user, password, func() bool {
		return f.DeleteFile(file)
	})
}

func (f *Facade) QGetFile(server, user, password, source, target string, transferType int64, overwrite bool) bool {
	return f.quick(server, user, password, func() bool {
		if !f.setTransferTypeChecked(transferType) {
			return false
		}
		f.SetOverwrite(overwrite)
		return f.GetFile(source, target)
	})
}

func (f *Facade) QPutFile(server, user, password, source, target string, transferType int64) bool {
	return f.quick(server, user, password, func() bool {
		if !f.setTransferTypeChecked(transferType) {
			return false
		}
		return f.PutFile(source, target)
	})
}

func (f *Facade) QMakeDir(server, user, password, dir string) bool {
	return f.quick(server, user, password, func() bool {
		return f.MakeDir(dir)
	})
}

func (f *Facade) QRemoveDir(server, user, password, dir string) bool {
	return f.quick(server, user, password, func() bool {
		return f.RemoveDir(dir)
	})
}

func (f *Facade) QRename(server, user, password, from, to string) bool {
	return f.quick(server, user, password, func() bool {
		return f.Rename(from, to)
	})
}
