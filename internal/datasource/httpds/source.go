package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Source adapts a Client to the datasource.Source interface for one URL.
type Source struct {
	client *Client
	url    string
}

// NewSource returns a Source that downloads url with the given client.
func NewSource(client *Client, url string) *Source {
	return &Source{client: client, url: url}
}

// Path returns the source URL for logs and error messages.
func (s *Source) Path() string { return s.url }

// Open issues a GET and returns the response body. A 404 or 410 is reported
// as os.ErrNotExist so callers can treat remote and local missing inputs the
// same way; any other non-2xx status is an error.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpds: get %s: %w", s.url, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("httpds: %s: %w", s.url, os.ErrNotExist)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("httpds: unexpected status %d from %s", resp.StatusCode, s.url)
	}
	return resp.Body, nil
}
