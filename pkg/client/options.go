package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Option is a transfer option of a handle.
type Option int

const (
	// OptHeader captures response headers, they are split from the body after the transfer. Bool.
	OptHeader Option = iota + 1
	// OptReturnTransfer keeps the response body. If it is false, the body is discarded. Bool.
	OptReturnTransfer
	// OptConnectTimeout limits the connection phase. time.Duration or number of seconds, 0 means the transport default.
	OptConnectTimeout
	// OptTimeout limits the whole transfer, including redirects and the body. time.Duration or number of seconds, 0 means no limit.
	OptTimeout
	// OptFollowLocation follows redirects. Bool.
	OptFollowLocation
	// OptMaxRedirs is the maximum number of followed redirects, -1 means no limit. Int.
	OptMaxRedirs
	// OptUserAgent is the User-Agent sent if the User-Agent header is not set. String.
	OptUserAgent
	// OptEncoding is the Accept-Encoding value, the response body is decoded.
	// An empty string means all supported encodings. String.
	OptEncoding
)

// SupportedEncodings are content encodings decoded by the client.
const SupportedEncodings = "gzip, deflate, br"

var optionNames = map[Option]string{ //nolint:gochecknoglobals
	OptHeader:         "header",
	OptReturnTransfer: "return_transfer",
	OptConnectTimeout: "connect_timeout",
	OptTimeout:        "timeout",
	OptFollowLocation: "follow_location",
	OptMaxRedirs:      "max_redirs",
	OptUserAgent:      "user_agent",
	OptEncoding:       "encoding",
}

func (o Option) String() string {
	if name, ok := optionNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Option(%d)", int(o))
}

// Options maps options to values, see the Option constants for value types.
type Options map[Option]any

// DefaultOptions are applied to each created handle and after each reset.
func DefaultOptions() Options {
	return Options{
		OptHeader:         true,
		OptReturnTransfer: true,
		OptConnectTimeout: DefaultConnectTimeout,
		OptTimeout:        DefaultTimeout,
		OptFollowLocation: true,
		OptMaxRedirs:      DefaultMaxRedirects,
		OptUserAgent:      DefaultUserAgent,
	}
}

func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Merge sets all values from the other options, the later value wins.
func (o Options) Merge(other Options) {
	for k, v := range other {
		o[k] = v
	}
}

// Validate checks that all options are known and their values can be converted to the expected type.
func (o Options) Validate() error {
	var errs []string
	for opt, v := range o {
		var err error
		switch opt {
		case OptHeader, OptReturnTransfer, OptFollowLocation:
			_, err = cast.ToBoolE(v)
		case OptConnectTimeout, OptTimeout:
			_, err = toDuration(v)
		case OptMaxRedirs:
			_, err = cast.ToIntE(v)
		case OptUserAgent, OptEncoding:
			_, err = cast.ToStringE(v)
		default:
			err = fmt.Errorf("unknown option")
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf(`option "%s": %s`, opt, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid options: %s", strings.Join(errs, ", "))
	}
	return nil
}

// transferOptions are resolved options of one transfer.
type transferOptions struct {
	header         bool
	returnTransfer bool
	connectTimeout time.Duration
	timeout        time.Duration
	followLocation bool
	maxRedirs      int
	userAgent      string
	encoding       string
}

func (o Options) resolve() (transferOptions, error) {
	if err := o.Validate(); err != nil {
		return transferOptions{}, err
	}
	out := transferOptions{
		header:         cast.ToBool(o[OptHeader]),
		returnTransfer: cast.ToBool(o[OptReturnTransfer]),
		followLocation: cast.ToBool(o[OptFollowLocation]),
		maxRedirs:      cast.ToInt(o[OptMaxRedirs]),
		userAgent:      cast.ToString(o[OptUserAgent]),
	}
	out.connectTimeout, _ = toDuration(o[OptConnectTimeout])
	out.timeout, _ = toDuration(o[OptTimeout])
	if v, ok := o[OptEncoding]; ok {
		out.encoding = cast.ToString(v)
		if out.encoding == "" {
			out.encoding = SupportedEncodings
		}
	}
	return out, nil
}

// toDuration converts time.Duration or a number of seconds to time.Duration.
func toDuration(v any) (time.Duration, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d, nil
		}
	}
	seconds, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
