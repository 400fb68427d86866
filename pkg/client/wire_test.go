package client

import (
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedConn returns the chunks one by one, written bytes are discarded.
type chunkedConn struct {
	net.Conn
	chunks []string
}

func (c *chunkedConn) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks = c.chunks[1:]
	return n, nil
}

func (c *chunkedConn) Write(p []byte) (int, error) {
	return len(p), nil
}

func TestWireConn_Record(t *testing.T) {
	t.Parallel()

	conn := newWireConn(&chunkedConn{chunks: []string{
		"HTTP/1.1 103 Early Hints\r\nLink: </a.css>\r\n",
		"\r\nHTTP/1.1 200 OK\r\nETag: \"abc\"\r",
		"\n\r",
		"\nbody\r\n\r\n",
	}})

	// Nothing is recorded before the recording is enabled
	var blocks []string
	_, _ = conn.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	conn.record(func(block []byte) {
		blocks = append(blocks, string(block))
	})

	// The request write starts the block
	_, err := conn.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	content, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(content), "\nbody\r\n\r\n"))
	assert.Equal(t, []string{"HTTP/1.1 200 OK\r\nETag: \"abc\"\r\n\r\n"}, blocks)
}

func TestWireConn_RecordDisabled(t *testing.T) {
	t.Parallel()

	conn := newWireConn(&chunkedConn{chunks: []string{"HTTP/1.1 200 OK\r\n\r\n"}})
	called := false
	conn.record(func(block []byte) { called = true })
	conn.record(nil)
	_, _ = conn.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	_, _ = io.ReadAll(conn)
	assert.False(t, called)
}

func TestBlockEnd(t *testing.T) {
	t.Parallel()
	assert.Equal(t, -1, blockEnd([]byte("HTTP/1.1 200 OK\r\nA: b\r\n")))
	assert.Equal(t, 25, blockEnd([]byte("HTTP/1.1 200 OK\r\nA: b\r\n\r\nbody")))
	assert.Equal(t, 22, blockEnd([]byte("HTTP/1.1 200 OK\nA: b\n\nbody")))
}

func TestBlockStatusCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 200, blockStatusCode([]byte("HTTP/1.1 200 OK\r\n\r\n")))
	assert.Equal(t, 103, blockStatusCode([]byte("HTTP/1.1 103 Early Hints\r\n")))
	assert.Equal(t, 0, blockStatusCode([]byte("garbage")))
	assert.Equal(t, 0, blockStatusCode(nil))
}

func TestWireRecorder_Take(t *testing.T) {
	t.Parallel()

	conn := newWireConn(&chunkedConn{chunks: []string{"HTTP/1.1 404 Not Found\r\nX-Foo: bar\r\n\r\n"}})
	r := &wireRecorder{}
	r.attach(conn)
	_, _ = conn.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	_, _ = io.ReadAll(conn)

	// Status code must match
	assert.Nil(t, r.take(200))

	r.attach(conn)
	conn.Conn.(*chunkedConn).chunks = []string{"HTTP/1.1 404 Not Found\r\nX-Foo: bar\r\n\r\n"}
	_, _ = conn.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	_, _ = io.ReadAll(conn)
	assert.Equal(t, "HTTP/1.1 404 Not Found\r\nX-Foo: bar\r\n\r\n", string(r.take(404)))

	// Recording is stopped by take
	assert.Nil(t, r.take(404))

	// Other connections are ignored
	r.attach(&chunkedConn{})
	assert.Nil(t, r.take(200))
}
