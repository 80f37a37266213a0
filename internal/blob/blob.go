// Package blob stores raw uploaded files until the pipeline has processed them.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned when no object exists under the key.
var ErrNotFound = errors.New("blob not found")

// Store keeps raw document bytes under flat keys.
type Store interface {
	// Put writes r under key and returns the number of bytes stored.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Location describes where objects live, for status output.
	Location() string
}

// Key returns the storage key for a document: "{id}_{basename}".
// Client-supplied directories are dropped so keys never contain separators.
func Key(id, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		base = "upload"
	}
	return id + "_" + base
}

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, "/\\") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	return nil
}
