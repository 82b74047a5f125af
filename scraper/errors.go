package scraper

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-catalog-crawler/parser"
)

var (
	errNotHTML      = errors.New("response is not an HTML document")
	errNoImage      = errors.New("record has no image url")
	errBadImageCode = errors.New("record has no usable product code")
	errEmptyImage   = errors.New("empty image body")
)

// NetworkError reports a page that could not be fetched: a transport failure
// or a non-success status.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e NetworkError) Unwrap() error {
	return e.Err
}

// ImageDownloadError reports an image that could not be saved.
type ImageDownloadError struct {
	URL  string
	Path string
	Err  error
}

func (e ImageDownloadError) Error() string {
	return fmt.Sprintf("download image %s to %s: %v", e.URL, e.Path, e.Err)
}

func (e ImageDownloadError) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates a timeout while issuing a request.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrForbidden indicates a forbidden response (HTTP 403).
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string {
	return fmt.Errorf("forbidden: %w", e.Err).Error()
}

func (e ErrForbidden) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates a missing resource (HTTP 404).
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the target rate-limited the request.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return "forbidden"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var extraction parser.ExtractionError
	if errors.As(err, &extraction) {
		return "extraction"
	}
	var image ImageDownloadError
	if errors.As(err, &image) {
		return "image"
	}
	var network NetworkError
	if errors.As(err, &network) {
		return "network"
	}
	return "other"
}
