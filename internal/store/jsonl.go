package store

import (
	"io"
	"os"
	"path/filepath"
)

// AppendJSONL appends v as one JSON line and syncs the file. Callers that
// share a path across goroutines serialize their calls.
func AppendJSONL(path string, v any) error {
	b, err := encodeJSON(v, false)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(b); err != nil {
		return err
	}
	return f.Sync()
}

// WriteJSONL writes v as one JSON line to w.
func WriteJSONL(w io.Writer, v any) error {
	b, err := encodeJSON(v, false)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
