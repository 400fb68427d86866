package counter_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/go-multiclient/pkg/client/counter"
)

// failingBody returns the errors after the content is read.
type failingBody struct {
	io.Reader
	readErr  error
	closeErr error
}

func (b *failingBody) Read(p []byte) (int, error) {
	n, err := b.Reader.Read(p)
	if err == nil && b.readErr != nil {
		err = b.readErr
	}
	return n, err
}

func (b *failingBody) Close() error {
	return b.closeErr
}

func TestBody(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		content  string
		readErr  error
		closeErr error
		statsErr string
	}{
		{name: "empty"},
		{name: "content", content: "foo bar"},
		{name: "read error", content: "foo bar", readErr: errors.New("connection reset"), statsErr: "connection reset"},
		{name: "close error", content: "foo bar", closeErr: errors.New("cannot close"), statsErr: "cannot close"},
		{name: "read error wins", content: "foo bar", readErr: errors.New("connection reset"), closeErr: errors.New("cannot close"), statsErr: "connection reset"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var calls []counter.Stats
			body := counter.New(&failingBody{Reader: strings.NewReader(tc.content), readErr: tc.readErr, closeErr: tc.closeErr}, func(s counter.Stats) {
				calls = append(calls, s)
			})

			content, err := io.ReadAll(body)
			assert.Equal(t, tc.content, string(content))
			if tc.readErr != nil {
				assert.ErrorIs(t, err, tc.readErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, int64(len(tc.content)), body.Stats().Bytes)
			assert.Equal(t, tc.content == "", body.Stats().FirstByteAt.IsZero())

			// The callback is called once
			assert.Equal(t, tc.closeErr, body.Close())
			assert.Equal(t, tc.closeErr, body.Close())
			require.Len(t, calls, 1)
			assert.Equal(t, int64(len(tc.content)), calls[0].Bytes)
			if tc.statsErr != "" {
				assert.EqualError(t, calls[0].Err, tc.statsErr)
			} else {
				assert.NoError(t, calls[0].Err)
			}
		})
	}
}

func TestBody_NoCallback(t *testing.T) {
	t.Parallel()
	body := counter.New(io.NopCloser(strings.NewReader("abc")), nil)
	n, err := body.Read(make([]byte, 2))
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(2), body.Stats().Bytes)
	assert.NoError(t, body.Close())
}
