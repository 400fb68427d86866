package client_test

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/go-multiclient/pkg/client"
)

// rawServer answers each connection with the fixed raw response and closes it.
func rawServer(t *testing.T, response string) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				if _, err := http.ReadRequest(bufio.NewReader(conn)); err != nil {
					return
				}
				_, _ = conn.Write([]byte(response))
			}()
		}
	}()

	return "http://" + listener.Addr().String()
}

func TestClient_ResponseHeaders_KeysAsSent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["ETag"] = []string{`"abc"`}
		w.Header()["x-lower"] = []string{"yes"}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx := context.Background()
	c := client.New(client.NewTestConfig().WithBaseURL(srv.URL))
	defer func() { assert.NoError(t, c.Close()) }()

	// The second request reuses the connection
	for range 2 {
		res, err := c.Get(ctx, "", nil)
		require.NoError(t, err)
		require.False(t, res.IsError(), res.ErrorMessage())
		assert.Equal(t, `"abc"`, res.Header("ETag", "<missing>"))
		assert.Equal(t, "yes", res.Header("x-lower", "<missing>"))
		assert.Equal(t, "<missing>", res.Header("Etag", "<missing>"))
		assert.Equal(t, "<missing>", res.Header("X-Lower", "<missing>"))
		assert.Equal(t, "ok", res.BodyString(""))
	}
}

func TestClient_ResponseHeaders_ReceivedOrder(t *testing.T) {
	t.Parallel()

	srvURL := rawServer(t, "HTTP/1.1 103 Early Hints\r\n"+
		"Link: </style.css>; rel=preload\r\n"+
		"\r\n"+
		"HTTP/1.1 200 OK\r\n"+
		"Zeta: 1\r\n"+
		"ETag: \"abc\"\r\n"+
		"x-lower: yes\r\n"+
		"Alpha: 2\r\n"+
		"Content-Length: 4\r\n"+
		"Connection: close\r\n"+
		"\r\n"+
		"body")

	ctx := context.Background()
	c := client.New(client.NewTestConfig())
	defer func() { assert.NoError(t, c.Close()) }()

	res, err := c.Get(ctx, srvURL, nil)
	require.NoError(t, err)
	require.False(t, res.IsError(), res.ErrorMessage())
	assert.Equal(t, http.StatusOK, res.StatusCode())
	assert.Equal(t, []string{"Zeta", "ETag", "x-lower", "Alpha", "Content-Length", "Connection"}, res.Headers().Keys())
	assert.Equal(t, "body", res.BodyString(""))
}
