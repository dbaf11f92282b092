package store

import (
	"bytes"
	"encoding/json"
)

func encodeJSON(v any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if indent {
		enc.SetIndent("", "  ")
	}
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSONAtomic writes v as indented JSON, replacing path atomically.
func WriteJSONAtomic(path string, v any) error {
	b, err := encodeJSON(v, true)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, b)
}
