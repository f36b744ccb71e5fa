package protocols

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/gonzalop/ftp/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startFTPServer serves root over FTP on a loopback port with anonymous
// write access and returns the listen address.
func startFTPServer(t *testing.T, root string) string {
	t.Helper()

	driver, err := server.NewFSDriver(root, server.WithAnonWrite(true))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv, err := server.NewServer(ln.Addr().String(),
		server.WithDriver(driver),
		server.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, server.ErrServerClosed) {
			t.Logf("ftp server: %v", err)
		}
	}()
	t.Cleanup(func() { shutdownServer(srv) })
	return ln.Addr().String()
}

// shutdownServer copes with both Shutdown signatures the server package has
// shipped.
func shutdownServer(srv any) {
	switch s := srv.(type) {
	case interface{ Shutdown(context.Context) error }:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	case interface{ Shutdown() error }:
		_ = s.Shutdown()
	}
}

var anonymous = Credentials{User: "anonymous", Password: "ftpsession@example.com"}

func TestFTPTransports(t *testing.T) {
	tests := []struct {
		name      string
		transport func(Options) Transport
		mode      ConnMode
	}{
		{name: "passive", transport: func(o Options) Transport { return NewFTPTransport(o) }, mode: Passive},
		{name: "active", transport: func(o Options) Transport { return NewActiveFTPTransport(o) }, mode: Active},
		{name: "active client in passive mode", transport: func(o Options) Transport { return NewActiveFTPTransport(o) }, mode: Passive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(root, "hello.bin"), []byte{0, 1, 2, 3, 0xff}, 0644))
			addr := startFTPServer(t, root)

			opts := DefaultOptions()
			opts.DialTimeout = 5 * time.Second
			tr := tt.transport(opts)
			require.NoError(t, tr.Connect(addr, anonymous, tt.mode))
			defer tr.Disconnect()
			assert.True(t, tr.IsConnected())

			// download
			rc, err := tr.OpenRead("/hello.bin", Binary)
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			assert.Equal(t, []byte{0, 1, 2, 3, 0xff}, data)

			// upload
			require.NoError(t, tr.MakeDir("/inbound"))
			wc, err := tr.OpenWrite("/inbound/up.bin", Binary)
			require.NoError(t, err)
			_, err = wc.Write([]byte("payload"))
			require.NoError(t, err)
			require.NoError(t, wc.Close())
			onDisk, err := os.ReadFile(filepath.Join(root, "inbound", "up.bin"))
			require.NoError(t, err)
			assert.Equal(t, "payload", string(onDisk))

			names, err := tr.NameList("/inbound")
			require.NoError(t, err)
			require.Len(t, names, 1)
			assert.Equal(t, "up.bin", path.Base(names[0]))

			require.NoError(t, tr.ChangeDir("/inbound"))
			dir, err := tr.CurrentDir()
			require.NoError(t, err)
			assert.Equal(t, "/inbound", dir)
			require.NoError(t, tr.ChangeDir("/"))

			require.NoError(t, tr.Rename("/inbound/up.bin", "/inbound/done.bin"))
			assert.FileExists(t, filepath.Join(root, "inbound", "done.bin"))
			require.NoError(t, tr.Delete("/inbound/done.bin"))
			require.NoError(t, tr.RemoveDir("/inbound"))
			assert.NoDirExists(t, filepath.Join(root, "inbound"))

			// a missing file is reported with the server's reply code
			err = tr.Delete("/nope.txt")
			var pe *ProtocolError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, 550, pe.Code)

			// a refused download fails when opened, not on the first read
			rc, err = tr.OpenRead("/nope.bin", Binary)
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, 550, pe.Code)
			assert.Nil(t, rc)
			assert.True(t, tr.IsConnected())
			_, err = tr.CurrentDir()
			require.NoError(t, err)

			require.NoError(t, tr.Disconnect())
			assert.False(t, tr.IsConnected())
		})
	}
}

func TestFTPTransportASCIIUpload(t *testing.T) {
	root := t.TempDir()
	addr := startFTPServer(t, root)

	tr := NewFTPTransport(DefaultOptions())
	require.NoError(t, tr.Connect(addr, anonymous, Passive))
	defer tr.Disconnect()

	wc, err := tr.OpenWrite("/notes.txt", ASCII)
	require.NoError(t, err)
	_, err = wc.Write([]byte("one\r\ntwo\r\n"))
	require.NoError(t, err)
	require.NoError(t, wc.Close())

	rc, err := tr.OpenRead("/notes.txt", ASCII)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.True(t, bytes.Contains(data, []byte("one")))
	assert.True(t, bytes.Contains(data, []byte("two")))
}

func TestFTPTransportRejectsActiveMode(t *testing.T) {
	tr := NewFTPTransport(DefaultOptions())
	assert.Error(t, tr.Connect("127.0.0.1:1", anonymous, Active))
	assert.False(t, tr.IsConnected())
}

func TestFTPTransportRejectedLogin(t *testing.T) {
	addr := startFTPServer(t, t.TempDir())

	tr := NewActiveFTPTransport(DefaultOptions())
	err := tr.Connect(addr, Credentials{User: "root", Password: "toor"}, Passive)
	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 530, pe.Code)
	assert.False(t, tr.IsConnected())
}
