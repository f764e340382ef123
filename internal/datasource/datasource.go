// Package datasource abstracts where an input table's bytes come from: a
// local file, an HTTP endpoint, or an upload already held in memory.
package datasource

import (
	"bytes"
	"context"
	"io"
)

// Source opens one input. Location names the input for logs and format
// detection (a path, URL or upload filename).
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Location() string
}

// Memory is a Source over bytes already read, such as a multipart upload.
type Memory struct {
	Name string
	Data []byte
}

func (m Memory) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(m.Data)), nil
}

func (m Memory) Location() string { return m.Name }
