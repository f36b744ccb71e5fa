package protocols

import (
	"io"
	"net"
	"testing"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useInMemorySFTP points dialSFTP at an in-process request server for the
// duration of the test. The returned func closes the server end of the most
// recent connection.
func useInMemorySFTP(t *testing.T) (drop func()) {
	t.Helper()
	orig := dialSFTP
	t.Cleanup(func() { dialSFTP = orig })

	var srvConn net.Conn
	dialSFTP = func(string, Credentials, Options) (*sftp.Client, io.Closer, error) {
		var cliConn net.Conn
		srvConn, cliConn = net.Pipe()
		srv := sftp.NewRequestServer(srvConn, sftp.InMemHandler())
		go srv.Serve()
		t.Cleanup(func() { srv.Close() })

		client, err := sftp.NewClientPipe(cliConn, cliConn)
		if err != nil {
			return nil, nil, err
		}
		return client, cliConn, nil
	}
	return func() { srvConn.Close() }
}

func TestSFTPTransport(t *testing.T) {
	useInMemorySFTP(t)

	tr := NewSFTPTransport(DefaultOptions())
	require.NoError(t, tr.Connect("sftp.example.com", Credentials{User: "u", Password: "p"}, Active))
	defer tr.Disconnect()
	assert.True(t, tr.IsConnected())

	dir, err := tr.CurrentDir()
	require.NoError(t, err)
	assert.Equal(t, "/", dir)

	require.NoError(t, tr.MakeDir("data"))
	require.NoError(t, tr.ChangeDir("data"))
	dir, _ = tr.CurrentDir()
	assert.Equal(t, "/data", dir)

	// relative names resolve against the tracked directory
	wc, err := tr.OpenWrite("a.txt", ASCII)
	require.NoError(t, err)
	_, err = wc.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, wc.Close())

	rc, err := tr.OpenRead("/data/a.txt", ASCII)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "line\n", string(data))

	names, err := tr.NameList("")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, names)

	require.NoError(t, tr.Rename("a.txt", "b.txt"))
	_, err = tr.OpenRead("a.txt", Binary)
	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, sftpNoSuchFile, pe.Code)

	require.ErrorAs(t, tr.ChangeDir("b.txt"), &pe)
	assert.Equal(t, sftpFailure, pe.Code)

	require.NoError(t, tr.Delete("b.txt"))
	require.NoError(t, tr.ChangeDir("/"))
	require.NoError(t, tr.RemoveDir("data"))

	require.NoError(t, tr.Disconnect())
	assert.False(t, tr.IsConnected())
	_, err = tr.NameList("/")
	assert.Equal(t, transportClosed, err)
}

func TestSFTPTransportDroppedConnection(t *testing.T) {
	drop := useInMemorySFTP(t)

	tr := NewSFTPTransport(DefaultOptions())
	require.NoError(t, tr.Connect("sftp.example.com", Credentials{User: "u", Password: "p"}, Passive))
	_, err := tr.NameList("/")
	require.NoError(t, err)

	drop()
	_, err = tr.NameList("/")
	require.Error(t, err)
	assert.False(t, tr.IsConnected())
	assert.NoError(t, tr.Disconnect())

	// a fresh Connect dials again
	require.NoError(t, tr.Connect("sftp.example.com", Credentials{User: "u", Password: "p"}, Passive))
	assert.True(t, tr.IsConnected())
	require.NoError(t, tr.Disconnect())
}
