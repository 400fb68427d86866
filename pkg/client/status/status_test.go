package status_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keboola/go-multiclient/pkg/client/status"
)

func TestClassOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code     int
		expected status.Class
	}{
		{0, status.Unknown},
		{99, status.Unknown},
		{100, status.Informational},
		{101, status.Informational},
		{199, status.Informational},
		{200, status.Successful},
		{204, status.Successful},
		{301, status.Redirection},
		{399, status.Redirection},
		{400, status.ClientError},
		{404, status.ClientError},
		{500, status.ServerError},
		{599, status.ServerError},
		{600, status.Unknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.expected, status.ClassOf(c.code), fmt.Sprintf("code %d", c.code))
	}
}

func TestExactlyOneBand(t *testing.T) {
	t.Parallel()

	for code := 0; code < 700; code++ {
		matches := 0
		for _, fn := range []func(int) bool{
			status.IsInformational,
			status.IsSuccessful,
			status.IsRedirection,
			status.IsClientError,
			status.IsServerError,
		} {
			if fn(code) {
				matches++
			}
		}
		if code >= 100 && code < 600 {
			assert.Equal(t, 1, matches, fmt.Sprintf("code %d", code))
		} else {
			assert.Equal(t, 0, matches, fmt.Sprintf("code %d", code))
		}
	}
}

func TestExactCodes(t *testing.T) {
	t.Parallel()

	assert.True(t, status.IsInformational(101))
	assert.False(t, status.IsSuccessful(101))

	assert.True(t, status.IsSuccessful(200))
	assert.True(t, status.IsOk(200))
	assert.False(t, status.IsOk(201))

	assert.True(t, status.IsRedirection(301))
	assert.False(t, status.IsClientError(301))

	assert.True(t, status.IsClientError(403))
	assert.True(t, status.IsForbidden(403))
	assert.False(t, status.IsForbidden(404))

	assert.True(t, status.IsClientError(404))
	assert.True(t, status.IsNotFound(404))

	assert.True(t, status.IsServerError(500))
	assert.False(t, status.IsClientError(500))
}

func TestClass_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "informational", status.Informational.String())
	assert.Equal(t, "successful", status.Successful.String())
	assert.Equal(t, "redirection", status.Redirection.String())
	assert.Equal(t, "client error", status.ClientError.String())
	assert.Equal(t, "server error", status.ServerError.String())
	assert.Equal(t, "unknown", status.Unknown.String())
}
