package session

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/suite"

	"ftpsession/protocols"
	"ftpsession/protocols/mocks"
)

type SessionTestSuite struct {
	suite.Suite
	transport    *mocks.Transport
	factoryCalls int
	session      *Session
}

func (ts *SessionTestSuite) SetupTest() {
	ts.transport = mocks.NewTransport(ts.T())
	ts.factoryCalls = 0
	ts.session = New(
		WithTransportFactory(func(protocols.Scheme, protocols.ConnMode) protocols.Transport {
			ts.factoryCalls++
			return ts.transport
		}),
		WithResolver(func(string) ([]string, error) {
			return []string{"192.0.2.10"}, nil
		}),
	)
	ts.session.SetServer("ftp.example.com")
	ts.session.SetUser("user")
	ts.session.SetPassword("pass")
}

func (ts *SessionTestSuite) connect() {
	ts.transport.On("Connect", "ftp.example.com", protocols.Credentials{User: "user", Password: "pass"}, protocols.Active).
		Return(nil).Once()
	ts.transport.On("IsConnected").Return(true)

	ok, err := ts.session.Connect()
	ts.Require().NoError(err)
	ts.Require().True(ok)
}

func (ts *SessionTestSuite) TestDefaults() {
	s := New()
	ts.Equal(protocols.SchemeFTP, s.Scheme())
	ts.Equal(protocols.ASCII, s.TransferType())
	ts.Equal(protocols.Active, s.ConnMode())
	ts.False(s.Overwrite())
	ts.False(s.IsConnected())
}

func (ts *SessionTestSuite) TestNotConnected() {
	s := ts.session

	ok, err := s.DeleteFile("a.txt")
	ts.False(ok)
	ts.ErrorIs(err, ErrNotConnected)
	ts.Equal(CodeNotConnected, Code(err))
	ts.Equal("No available connection.", err.Error())

	names, err := s.EnumerateDirectory("/")
	ts.NoError(err)
	ts.Nil(names)

	ok, err = s.GetFile("a.txt", ts.T().TempDir()+"/a.txt")
	ts.NoError(err)
	ts.False(ok)

	ok, err = s.PutFile("missing-local.txt", "a.txt")
	ts.NoError(err)
	ts.False(ok)

	f, err := s.OpenFile("a.txt", Read)
	ts.NoError(err)
	ts.Nil(f)

	for name, op := range map[string]func() (bool, error){
		"create":  func() (bool, error) { return s.CreateDirectory("d") },
		"remove":  func() (bool, error) { return s.RemoveDirectory("d") },
		"rename":  func() (bool, error) { return s.Rename("a", "b") },
		"set cwd": func() (bool, error) { return s.SetCurrentDirectory("d") },
	} {
		ok, err := op()
		ts.NoError(err, name)
		ts.False(ok, name)
	}

	dir, err := s.GetCurrentDirectory()
	ts.NoError(err)
	ts.Empty(dir)

	ts.NoError(s.Disconnect())
	ts.Zero(ts.factoryCalls)
}

func (ts *SessionTestSuite) TestConnectOnce() {
	ts.connect()

	ok, err := ts.session.Connect()
	ts.NoError(err)
	ts.True(ok)
	ts.Equal(1, ts.factoryCalls)
	ts.True(ts.session.IsConnected())
}

func (ts *SessionTestSuite) TestConnectPassesModeAndScheme() {
	var gotScheme protocols.Scheme
	var gotMode protocols.ConnMode
	s := New(
		WithTransportFactory(func(scheme protocols.Scheme, mode protocols.ConnMode) protocols.Transport {
			gotScheme, gotMode = scheme, mode
			return ts.transport
		}),
		WithResolver(func(string) ([]string, error) { return []string{"192.0.2.10"}, nil }),
	)
	s.SetServer("sftp.example.com:2222")
	ts.Require().NoError(s.SetScheme(protocols.SchemeSFTP))
	ts.Require().NoError(s.SetConnMode(protocols.Passive))

	ts.transport.On("Connect", "sftp.example.com:2222", protocols.Credentials{}, protocols.Passive).Return(nil).Once()
	ts.transport.On("IsConnected").Return(true)

	ok, err := s.Connect()
	ts.NoError(err)
	ts.True(ok)
	ts.Equal(protocols.SchemeSFTP, gotScheme)
	ts.Equal(protocols.Passive, gotMode)
}

func (ts *SessionTestSuite) TestConnectServerRequired() {
	ts.session.SetServer("")

	ok, err := ts.session.Connect()
	ts.False(ok)
	var cfgErr *ConfigError
	ts.Require().ErrorAs(err, &cfgErr)
	ts.Equal("Server name required", cfgErr.Message)
	ts.Zero(ts.factoryCalls)
}

func (ts *SessionTestSuite) TestConnectUnresolvable() {
	tests := []struct {
		name     string
		resolver protocols.Resolver
	}{
		{
			name:     "no addresses",
			resolver: func(string) ([]string, error) { return nil, nil },
		},
		{
			name:     "lookup failure",
			resolver: func(string) ([]string, error) { return nil, errors.New("no such host") },
		},
	}

	for _, tt := range tests {
		ts.Run(tt.name, func() {
			WithResolver(tt.resolver)(ts.session)

			ok, err := ts.session.Connect()
			ts.False(ok)
			var cfgErr *ConfigError
			ts.ErrorAs(err, &cfgErr)
			ts.Zero(ts.factoryCalls)
		})
	}
}

func (ts *SessionTestSuite) TestConnectFailureReleasesTransport() {
	ts.transport.On("Connect", "ftp.example.com", protocols.Credentials{User: "user", Password: "pass"}, protocols.Active).
		Return(&protocols.ProtocolError{Code: 530, Message: "Login incorrect."}).Once()
	ts.transport.On("Disconnect").Return(nil).Once()

	ok, err := ts.session.Connect()
	ts.False(ok)
	ts.Equal(530, Code(err))
	ts.Equal("Login incorrect.", err.Error())
	ts.False(ts.session.IsConnected())
}

func (ts *SessionTestSuite) TestDeleteFile() {
	ts.connect()
	ts.transport.On("Delete", "report.csv").Return(nil).Once()
	ts.transport.On("Delete", "missing.csv").Return(&protocols.ProtocolError{Code: 550, Message: "No such file."}).Once()

	ok, err := ts.session.DeleteFile("report.csv")
	ts.NoError(err)
	ts.True(ok)

	ok, err = ts.session.DeleteFile("missing.csv")
	ts.False(ok)
	ts.Equal(550, Code(err))
	ts.Equal("No such file.", err.Error())

	var te *TransferError
	ts.Require().ErrorAs(err, &te)
	var pe *protocols.ProtocolError
	ts.ErrorAs(te, &pe)
}

func (ts *SessionTestSuite) TestEnumerateDirectory() {
	ts.connect()
	ts.transport.On("NameList", "/data").Return([]string{"a.txt", "b.txt"}, nil).Once()
	ts.transport.On("NameList", "/empty").Return(nil, nil).Once()
	ts.transport.On("NameList", "/missing").Return(nil, &protocols.ProtocolError{Code: 550, Message: "Not found."}).Once()

	names, err := ts.session.EnumerateDirectory("/data")
	ts.NoError(err)
	ts.Equal([]string{"a.txt", "b.txt"}, names)

	names, err = ts.session.EnumerateDirectory("/empty")
	ts.NoError(err)
	ts.NotNil(names)
	ts.Empty(names)

	names, err = ts.session.EnumerateDirectory("/missing")
	ts.Nil(names)
	ts.Equal(550, Code(err))
}

func (ts *SessionTestSuite) TestOpenFileAccess() {
	for _, access := range []Access{ReadWrite, Access(0), Access(8)} {
		f, err := ts.session.OpenFile("x", access)
		ts.Nil(f)
		ts.ErrorIs(err, ErrUnsupported)
		ts.Equal(CodeGeneric, Code(err))
	}
}

func (ts *SessionTestSuite) TestOpenFileRead() {
	ts.connect()
	ts.transport.On("OpenRead", "notes.txt", protocols.ASCII).
		Return(io.NopCloser(strings.NewReader("hello")), nil).Once()

	f, err := ts.session.OpenFile("notes.txt", Read)
	ts.Require().NoError(err)
	ts.Equal(Read, f.Access())

	data, err := io.ReadAll(f)
	ts.NoError(err)
	ts.Equal("hello", string(data))

	_, err = f.Write([]byte("x"))
	ts.ErrorIs(err, errReadOnly)

	ts.NoError(f.Close())
	ts.NoError(f.Close())
	_, err = f.Read(make([]byte, 1))
	ts.ErrorIs(err, errClosed)
}

func (ts *SessionTestSuite) TestOpenFileWriteRejected() {
	ts.connect()
	ts.transport.On("OpenWrite", "locked.txt", protocols.Binary).
		Return(nil, &protocols.ProtocolError{Code: 553, Message: "Could not create file."}).Once()
	ts.Require().NoError(ts.session.SetTransferType(protocols.Binary))

	f, err := ts.session.OpenFile("locked.txt", Write)
	ts.Nil(f)
	ts.Equal(553, Code(err))
}

func (ts *SessionTestSuite) TestDirectoryOperations() {
	ts.connect()
	ts.transport.On("MakeDir", "new").Return(nil).Once()
	ts.transport.On("RemoveDir", "old").Return(&protocols.ProtocolError{Code: 550, Message: "Directory not empty."}).Once()
	ts.transport.On("Rename", "a.txt", "b.txt").Return(nil).Once()
	ts.transport.On("ChangeDir", "new").Return(nil).Once()
	ts.transport.On("CurrentDir").Return("/home/user/new", nil).Once()

	ok, err := ts.session.CreateDirectory("new")
	ts.NoError(err)
	ts.True(ok)

	ok, err = ts.session.RemoveDirectory("old")
	ts.False(ok)
	ts.Equal("Directory not empty.", err.Error())

	ok, err = ts.session.Rename("a.txt", "b.txt")
	ts.NoError(err)
	ts.True(ok)

	ok, err = ts.session.SetCurrentDirectory("new")
	ts.NoError(err)
	ts.True(ok)

	dir, err := ts.session.GetCurrentDirectory()
	ts.NoError(err)
	ts.Equal("/home/user/new", dir)
}

func (ts *SessionTestSuite) TestDisconnect() {
	ts.connect()
	ts.transport.On("Disconnect").Return(nil).Once()

	ts.NoError(ts.session.Disconnect())
	ts.False(ts.session.IsConnected())
	ts.NoError(ts.session.Disconnect())

	ok, err := ts.session.DeleteFile("a.txt")
	ts.False(ok)
	ts.ErrorIs(err, ErrNotConnected)
}

func (ts *SessionTestSuite) TestSetterValidation() {
	var cfgErr *ConfigError

	ts.ErrorAs(ts.session.SetTransferType(protocols.TransferType(7)), &cfgErr)
	ts.ErrorAs(ts.session.SetConnMode(protocols.ConnMode(-1)), &cfgErr)
	ts.ErrorAs(ts.session.SetScheme("gopher"), &cfgErr)
	ts.ErrorAs(ts.session.Apply(Config{TransferType: protocols.TransferType(3)}), &cfgErr)

	ts.Equal(protocols.ASCII, ts.session.TransferType())
	ts.Equal(protocols.Active, ts.session.ConnMode())
	ts.Equal(protocols.SchemeFTP, ts.session.Scheme())
	ts.Equal("ftp.example.com", ts.session.Server())
}

func (ts *SessionTestSuite) TestGetFileFailedDownloadLeavesNoFile() {
	ts.connect()
	refused := &protocols.ProtocolError{Code: 550, Message: "No such file or directory."}
	ts.transport.On("OpenRead", "/gone.txt", protocols.ASCII).
		Return(io.NopCloser(iotest.ErrReader(refused)), nil).Times(3)

	local := filepath.Join(ts.T().TempDir(), "gone.txt")
	for i := 0; i < 2; i++ {
		ok, err := ts.session.GetFile("/gone.txt", local)
		ts.False(ok)
		ts.Equal(550, Code(err))
		ts.NoFileExists(local)
	}

	// an existing file that was not created by the download stays
	ts.Require().NoError(os.WriteFile(local, []byte("keep"), 0644))
	ok, err := ts.session.GetFile("/gone.txt", local)
	ts.False(ok)
	ts.ErrorIs(err, os.ErrExist)
	ts.FileExists(local)
}

func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}
