package client

import (
	"bytes"
	"net"
	"strconv"
	"sync"
)

// maxHeaderBlockSize is the same as the default http.Transport.MaxResponseHeaderBytes.
const maxHeaderBlockSize = 1 << 20

// wireConn records raw header blocks of HTTP/1.x responses read from the connection.
// The net/http canonicalizes header keys, the recorded block keeps keys and their order as sent by the server.
//
// Recording is enabled by the transfer which got the connection, see record.
// A request write starts a new block, the block ends with the first empty line.
// Blocks of informational responses are skipped, except "101 Switching Protocols".
type wireConn struct {
	net.Conn
	lock      sync.Mutex
	onBlock   func(block []byte)
	capturing bool
	block     []byte
}

func newWireConn(conn net.Conn) *wireConn {
	return &wireConn{Conn: conn}
}

// record sets the callback called with each recorded block, nil disables recording.
func (c *wireConn) record(onBlock func(block []byte)) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.onBlock = onBlock
	c.capturing = false
	c.block = nil
}

func (c *wireConn) Write(p []byte) (int, error) {
	c.lock.Lock()
	if c.onBlock != nil && !c.capturing {
		c.capturing = true
		c.block = nil
	}
	c.lock.Unlock()
	return c.Conn.Write(p)
}

func (c *wireConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		if block, onBlock := c.observe(p[:n]); block != nil {
			onBlock(block)
		}
	}
	return n, err
}

// observe appends read bytes to the pending block and returns the block, if it is complete.
func (c *wireConn) observe(data []byte) ([]byte, func([]byte)) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for c.capturing && c.onBlock != nil && len(data) > 0 {
		start := max(0, len(c.block)-3)
		c.block = append(c.block, data...)
		end := blockEnd(c.block[start:])
		if end < 0 {
			if len(c.block) > maxHeaderBlockSize {
				c.capturing = false
				c.block = nil
			}
			return nil, nil
		}

		end += start
		block := bytes.Clone(c.block[:end])
		data = bytes.Clone(c.block[end:])
		c.block = nil

		if code := blockStatusCode(block); code >= 100 && code < 200 && code != 101 {
			// The final response follows
			continue
		}

		c.capturing = false
		return block, c.onBlock
	}
	return nil, nil
}

// blockEnd returns the position after the empty line which ends the header block, or -1.
func blockEnd(b []byte) int {
	for i := bytes.IndexByte(b, '\n'); i >= 0; {
		rest := b[i+1:]
		switch {
		case bytes.HasPrefix(rest, []byte("\r\n")):
			return i + 3
		case bytes.HasPrefix(rest, []byte("\n")):
			return i + 2
		}
		next := bytes.IndexByte(rest, '\n')
		if next < 0 {
			return -1
		}
		i += 1 + next
	}
	return -1
}

// blockStatusCode parses the status code from the status line, for example "HTTP/1.1 200 OK".
func blockStatusCode(block []byte) int {
	line, _, _ := bytes.Cut(block, []byte("\n"))
	fields := bytes.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	code, err := strconv.Atoi(string(fields[1]))
	if err != nil {
		return 0
	}
	return code
}

// wireRecorder collects the block of the current request of a transfer.
type wireRecorder struct {
	lock  sync.Mutex
	conn  *wireConn
	block []byte
}

// attach starts recording on the connection got for the next request, other connections are ignored.
func (r *wireRecorder) attach(conn net.Conn) {
	wc, ok := conn.(*wireConn)
	if !ok {
		return
	}

	r.lock.Lock()
	r.conn = wc
	r.block = nil
	r.lock.Unlock()

	wc.record(func(block []byte) {
		r.lock.Lock()
		defer r.lock.Unlock()
		r.block = block
	})
}

// take stops recording and returns the recorded block, if it belongs to the response with the statusCode.
func (r *wireRecorder) take(statusCode int) []byte {
	r.lock.Lock()
	conn, block := r.conn, r.block
	r.conn, r.block = nil, nil
	r.lock.Unlock()

	if conn != nil {
		conn.record(nil)
	}
	if block == nil || blockStatusCode(block) != statusCode {
		return nil
	}
	return block
}
