package client_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/keboola/go-multiclient/pkg/client"
)

func TestOption_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "header", client.OptHeader.String())
	assert.Equal(t, "max_redirs", client.OptMaxRedirs.String())
	assert.Equal(t, "Option(0)", client.Option(0).String())
}

func TestOptions_CloneMerge(t *testing.T) {
	t.Parallel()

	defaults := client.DefaultOptions()
	clone := defaults.Clone()
	clone.Merge(client.Options{client.OptTimeout: 5, client.OptEncoding: "gzip"})

	assert.Equal(t, 5, clone[client.OptTimeout])
	assert.Equal(t, "gzip", clone[client.OptEncoding])
	assert.Equal(t, client.DefaultTimeout, defaults[client.OptTimeout])
	assert.NotContains(t, defaults, client.OptEncoding)
}

func TestOptions_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, client.DefaultOptions().Validate())
	assert.NoError(t, client.Options{
		client.OptHeader:         "true",
		client.OptReturnTransfer: 0,
		client.OptConnectTimeout: "1.5",
		client.OptTimeout:        "500ms",
		client.OptFollowLocation: false,
		client.OptMaxRedirs:      "-1",
		client.OptUserAgent:      "agent",
		client.OptEncoding:       "",
	}.Validate())
	assert.NoError(t, client.Options{client.OptTimeout: 2 * time.Second}.Validate())

	err := client.Options{client.OptTimeout: "foo"}.Validate()
	assert.ErrorContains(t, err, `invalid options: option "timeout"`)

	err = client.Options{client.OptHeader: "maybe"}.Validate()
	assert.ErrorContains(t, err, `invalid options: option "header"`)

	err = client.Options{client.Option(99): true}.Validate()
	assert.EqualError(t, err, `invalid options: option "Option(99)": unknown option`)
}

func TestConfig_WithOptions_Invalid(t *testing.T) {
	t.Parallel()

	// Invalid default options are reported when the Config is built, not by the batch execution
	var err error
	func() {
		defer func() {
			err, _ = recover().(error)
		}()
		client.NewConfig().WithOptions(client.Options{client.OptTimeout: "bogus"})
	}()
	assert.ErrorContains(t, err, `invalid options: option "timeout": unable to cast "bogus"`)
	assert.NotPanics(t, func() {
		client.NewConfig().WithOptions(client.Options{client.OptTimeout: 5, client.OptMaxRedirs: "3"})
	})
}
