package client

import (
	"mime"
	"strings"

	"github.com/umisama/go-regexpcache"
)

const (
	ContentTypeApplicationJSON       = "application/json"
	ContentTypeApplicationJSONRegexp = `^application/([a-zA-Z0-9\.\-]+\+)?json$`
	ContentTypeFormURLEncoded        = "application/x-www-form-urlencoded"
)

// IsJSONContentType returns true for "application/json" and "application/*+json" media types, parameters are ignored.
func IsJSONContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(contentType)
	}
	return regexpcache.MustCompile(ContentTypeApplicationJSONRegexp).MatchString(strings.ToLower(mediaType))
}
