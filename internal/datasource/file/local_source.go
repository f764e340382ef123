// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local opens an input file from the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path. The file is not touched until Open.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open returns the file for reading. A context that is already done
// short-circuits before the filesystem is touched. Filesystem errors are
// wrapped with the path and keep errors.Is(err, os.ErrNotExist) working.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Location returns the configured path.
func (l *Local) Location() string { return l.path }
