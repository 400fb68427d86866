package client

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/spf13/cast"
)

// ResolveURL composes the request url from the base url and the path.
// Without a base url, the path is returned with leading slashes removed.
// Otherwise, the base url and the path are joined by exactly one slash.
// Surrounding whitespace is removed.
func ResolveURL(baseURL, path string) string {
	if baseURL == "" {
		return strings.TrimSpace(strings.TrimLeft(path, "/"))
	}
	return strings.TrimSpace(strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/"))
}

// EncodeQuery encodes data to the URL-encoded form, for the query string or the request body.
//
// Nested values are encoded with brackets: slices as "key[0]=a&key[1]=b", maps as "key[sub]=c".
// Bool values are encoded as "1" and "0", nil values are skipped.
// Keys are sorted.
func EncodeQuery(data map[string]any) (string, error) {
	values := make(url.Values)
	for k, v := range data {
		if err := encodeValue(values, k, v); err != nil {
			return "", err
		}
	}
	return values.Encode(), nil
}

func encodeValue(values url.Values, key string, value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case bool:
		if v {
			values.Add(key, "1")
		} else {
			values.Add(key, "0")
		}
		return nil
	case string:
		values.Add(key, v)
		return nil
	case []byte:
		values.Add(key, string(v))
		return nil
	case fmt.Stringer:
		values.Add(key, v.String())
		return nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return encodeValue(values, key, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := encodeValue(values, fmt.Sprintf("%s[%d]", key, i), rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			subKey, err := cast.ToStringE(iter.Key().Interface())
			if err != nil {
				return fmt.Errorf(`cannot encode key of "%s": %w`, key, err)
			}
			if err := encodeValue(values, key+"["+subKey+"]", iter.Value().Interface()); err != nil {
				return err
			}
		}
		return nil
	default:
		str, err := cast.ToStringE(value)
		if err != nil {
			return fmt.Errorf(`cannot encode value of "%s": %w`, key, err)
		}
		values.Add(key, str)
		return nil
	}
}
