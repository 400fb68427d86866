// Package decode decompresses response bodies according to the Content-Encoding header.
package decode

import (
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// Error is a failure of decompression, the body is not encoded as declared.
type Error struct {
	Encoding string
	err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cannot decode %s: %s", e.Encoding, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Decode wraps the body by a decoding reader. Unknown encodings and "identity" are returned as they are.
// Closing the returned reader closes the body.
func Decode(body io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))
	switch encoding {
	case "gzip", "x-gzip":
		if v, err := gzip.NewReader(body); err == nil {
			return &reader{encoding: encoding, decoder: v, body: body}, nil
		} else {
			return nil, &Error{Encoding: encoding, err: err}
		}
	case "deflate":
		// The "deflate" encoding is a zlib stream, some servers send raw deflate data
		if v, err := zlib.NewReader(body); err == nil {
			return &reader{encoding: encoding, decoder: v, body: body}, nil
		} else {
			return nil, &Error{Encoding: encoding, err: err}
		}
	case "br":
		return &reader{encoding: encoding, decoder: io.NopCloser(brotli.NewReader(body)), body: body}, nil
	default:
		return body, nil
	}
}

// reader marks read errors of the decoder, errors of the underlying body are returned as they are.
type reader struct {
	encoding string
	decoder  io.ReadCloser
	body     io.ReadCloser
}

func (r *reader) Read(p []byte) (int, error) {
	n, err := r.decoder.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && isDecodeError(err) {
		err = &Error{Encoding: r.encoding, err: err}
	}
	return n, err
}

func (r *reader) Close() error {
	decoderErr := r.decoder.Close()
	if err := r.body.Close(); err != nil {
		return err
	}
	return decoderErr
}

func isDecodeError(err error) bool {
	var corrupt flate.CorruptInputError
	return errors.As(err, &corrupt) ||
		errors.Is(err, gzip.ErrChecksum) || errors.Is(err, gzip.ErrHeader) ||
		errors.Is(err, zlib.ErrChecksum) || errors.Is(err, zlib.ErrHeader) ||
		strings.HasPrefix(err.Error(), "brotli:")
}
