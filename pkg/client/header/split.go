package header

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const separator = ": "

// Split separates a raw response to headers and body.
//
// The first headerSize bytes are the header block, it is split to lines,
// each line containing ": " is split at the first occurrence and both parts are trimmed.
// Other lines, for example the status line and the empty line, are ignored.
// The rest of the raw bytes is the body.
func Split(raw []byte, headerSize int) (*Map, []byte) {
	headerSize = max(0, min(headerSize, len(raw)))
	headers := NewMap()
	for _, line := range strings.Split(string(raw[:headerSize]), "\n") {
		if !strings.Contains(line, separator) {
			continue
		}
		parts := strings.SplitN(line, separator, 2)
		headers.Set(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	}
	return headers, bytes.Clone(raw[headerSize:])
}

// Block renders the header block of a received response:
// the status line, header lines and the terminating empty line.
// Header lines are written in the sorted order of keys.
func Block(res *http.Response) []byte {
	var b bytes.Buffer

	// Status line, the same format as httputil.DumpResponse
	code := strconv.Itoa(res.StatusCode)
	text := res.Status
	if text == "" || text == code {
		text = http.StatusText(res.StatusCode)
	} else {
		text = strings.TrimPrefix(text, code+" ")
	}
	fmt.Fprintf(&b, "HTTP/%d.%d %03d %s\r\n", res.ProtoMajor, res.ProtoMinor, res.StatusCode, text)

	// Headers
	_ = res.Header.Write(&b)

	// End of the block
	b.WriteString("\r\n")
	return b.Bytes()
}
