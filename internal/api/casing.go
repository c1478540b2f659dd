package api

import (
	"bytes"
	"encoding/json"

	"github.com/iancoleman/strcase"
)

// The backend speaks snake_case; everything in memory is camelCase. Keys
// below a metadata field are user data and keep their spelling.

const metadataKey = "metadata"

func camelizeKeys(v any) any {
	return transformKeys(v, strcase.ToLowerCamel)
}

func snakeKeys(v any) any {
	return transformKeys(v, strcase.ToSnake)
}

func transformKeys(v any, fn func(string) string) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			key := fn(k)
			if key == metadataKey {
				out[key] = val
				continue
			}
			out[key] = transformKeys(val, fn)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = transformKeys(val, fn)
		}
		return out
	default:
		return v
	}
}

// encodeWire marshals in and rewrites its keys to snake_case.
func encodeWire(in any) ([]byte, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	generic, err := decodeGeneric(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(snakeKeys(generic))
}

// decodeWire rewrites the keys of a wire body to camelCase and decodes the
// result into out.
func decodeWire(body []byte, out any) error {
	generic, err := decodeGeneric(body)
	if err != nil {
		return err
	}
	camel, err := json.Marshal(camelizeKeys(generic))
	if err != nil {
		return err
	}
	return json.Unmarshal(camel, out)
}

// decodeGeneric keeps numbers as json.Number so that identifiers beyond
// 2^53 survive the key rewrite.
func decodeGeneric(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return generic, nil
}
