package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Source is a datasource.Source that downloads one input table.
type Source struct {
	client *Client
	url    string
}

// NewSource binds url to client.
func NewSource(client *Client, url string) *Source {
	return &Source{client: client, url: url}
}

// Open issues the GET and returns the body. Any non-2xx response is an error;
// a 404 wraps os.ErrNotExist so a report not yet published counts as a
// missing input, like an absent local file.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.url, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: %w", s.url, os.ErrNotExist)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", s.url, resp.Status)
	}
	return resp.Body, nil
}

// Location returns the URL.
func (s *Source) Location() string { return s.url }
