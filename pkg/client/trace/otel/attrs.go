package otel

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/keboola/go-multiclient/pkg/client/trace"
)

const (
	maskedAttrValue     = "****"
	attrTransferID      = attribute.Key("transfer.id")
	attrTransferMethod  = attribute.Key("transfer.method")
	attrTransferURL     = attribute.Key("transfer.url")
	attrTransferBytes   = attribute.Key("transfer.body_bytes")
	attrTransferSuccess = attribute.Key("transfer.is_success")
	attrHTTPUserAgent   = attribute.Key("http.user_agent")
	attrHTTPSuccess     = attribute.Key("http.is_success")
	attrHTTPRedirection = attribute.Key("http.is_redirection")
	attrHTTPErrorType   = attribute.Key("http.error_type")
	attrURLScheme       = attribute.Key("http.url_details.scheme")
	attrURLPath         = attribute.Key("http.url_details.path")
	attrURLHost         = attribute.Key("http.url_details.host")
	attrURLHostPrefix   = attribute.Key("http.url_details.host_prefix")
	attrURLHostSuffix   = attribute.Key("http.url_details.host_suffix")
)

type attributes struct {
	config config
	// transfer attributes for span and metrics
	transfer []attribute.KeyValue
	// httpRequest attributes for span and metrics
	httpRequest []attribute.KeyValue
	// httpRequestExtra attributes for span only
	httpRequestExtra []attribute.KeyValue
	// httpResponse attributes for span and metrics
	httpResponse []attribute.KeyValue
	// httpResponseExtra attributes for span only
	httpResponseExtra []attribute.KeyValue
}

func newAttributes(cfg config, transfer trace.Transfer) *attributes {
	out := &attributes{config: cfg}
	out.transfer = []attribute.KeyValue{
		attrTransferID.String(transfer.ID),
		attrTransferMethod.String(transfer.Method),
		attrTransferURL.String(cfg.redactURL(transfer.URL)),
	}
	if u, err := url.Parse(transfer.URL); err == nil {
		out.transfer = append(out.transfer, urlAttributes(u)...)
	}
	return out
}

func (v *attributes) SetFromRequest(req *http.Request) {
	if req == nil {
		v.httpRequest = nil
		v.httpRequestExtra = nil
		return
	}

	// Base
	v.httpRequest = []attribute.KeyValue{
		semconv.HTTPMethodKey.String(req.Method),
		semconv.HTTPURLKey.String(v.config.redactURL(req.URL.String())),
		semconv.NetPeerNameKey.String(req.URL.Hostname()),
		attrHTTPUserAgent.String(req.Header.Get("User-Agent")),
	}
	v.httpRequest = append(v.httpRequest, urlAttributes(req.URL)...)

	// Extra
	v.httpRequestExtra = v.config.headerAttributes("http.header.", req.Header, "user-agent")
}

func (v *attributes) SetFromResponse(res *http.Response, err error) {
	v.httpResponse = nil
	v.httpResponseExtra = nil
	if res != nil {
		v.httpResponse = append(v.httpResponse, semconv.HTTPStatusCodeKey.Int(res.StatusCode))
		if isRedirection(res) {
			v.httpResponse = append(v.httpResponse, attrHTTPRedirection.Bool(true))
		}
		v.httpResponseExtra = v.config.headerAttributes("http.response.header.", res.Header)
	}
	v.httpResponse = append(v.httpResponse, attrHTTPSuccess.Bool(isSuccess(res, err)))
	if errType := errorType(res, err); errType != "" {
		v.httpResponse = append(v.httpResponse, attrHTTPErrorType.String(errType))
	}
}

func (c config) headerAttributes(prefix string, headers http.Header, skip ...string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for key, values := range headers {
		key = strings.ToLower(key)
		if contains(skip, key) {
			continue
		}
		value := strings.Join(values, ";")
		if _, found := c.redactedHeaders[key]; found {
			value = maskedAttrValue
		}
		attrs = append(attrs, attribute.String(prefix+key, value))
	}
	sort.SliceStable(attrs, func(i, j int) bool {
		return attrs[i].Key < attrs[j].Key
	})
	return attrs
}

// redactURL masks values of the sensitive query parameters.
func (c config) redactURL(in string) string {
	u, err := url.Parse(in)
	if err != nil || u.RawQuery == "" || len(c.redactedQueryParams) == 0 {
		return in
	}
	query := u.Query()
	for key := range query {
		if _, found := c.redactedQueryParams[strings.ToLower(key)]; found {
			query[key] = []string{maskedAttrValue}
		}
	}
	u.RawQuery = query.Encode()
	return u.String()
}

func urlAttributes(u *url.URL) []attribute.KeyValue {
	out := []attribute.KeyValue{
		attrURLScheme.String(u.Scheme),
		attrURLPath.String(u.Path),
		attrURLHost.String(u.Host),
	}
	// Host parts: to trace service name (host prefix) and domain (host suffix).
	if dotPos := strings.IndexByte(u.Host, '.'); dotPos > 0 {
		out = append(out,
			attrURLHostPrefix.String(u.Host[:dotPos]),
			attrURLHostSuffix.String(strings.TrimLeft(u.Host[dotPos:], ".")),
		)
	}
	return out
}

// isSuccess returns true if the transfer ended without an error and without a 4xx/5xx status.
func isSuccess(res *http.Response, err error) bool {
	return err == nil && res != nil && res.StatusCode < http.StatusBadRequest
}

func isRedirection(res *http.Response) bool {
	return res != nil && res.StatusCode >= http.StatusMultipleChoices && res.StatusCode < http.StatusBadRequest
}

func errorType(res *http.Response, err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case err != nil && netErr != nil:
		return "net"
	case err != nil:
		return "other"
	case res != nil && res.StatusCode >= http.StatusInternalServerError:
		return "http_5xx_code"
	case res != nil && res.StatusCode >= http.StatusBadRequest:
		return "http_4xx_code"
	default:
		return ""
	}
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
