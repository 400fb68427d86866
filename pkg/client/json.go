package client

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// json - replacement of the standard encoding/json library, it is faster for larger bodies.
var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

func encodeJSON(data any) ([]byte, error) {
	out, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("cannot encode JSON body: %w", err)
	}
	return out, nil
}

func decodeJSON(body []byte, target any) error {
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("cannot decode JSON body: %w", err)
	}
	return nil
}
