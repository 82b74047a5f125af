package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aluiziolira/go-catalog-crawler/models"
	"github.com/aluiziolira/go-catalog-crawler/parser"
)

// ImageFetcher streams record images to <dir>/<category>/<upc>.jpg.
type ImageFetcher struct {
	client    *http.Client
	dir       string
	userAgent string
	metrics   *Metrics
}

func newImageFetcher(transport http.RoundTripper, dir, userAgent string, timeout time.Duration, metrics *Metrics) *ImageFetcher {
	return &ImageFetcher{
		client:    &http.Client{Transport: transport, Timeout: timeout},
		dir:       dir,
		userAgent: userAgent,
		metrics:   metrics,
	}
}

// ImagePath returns where the image of a record in category is stored.
func (f *ImageFetcher) ImagePath(category, upc string) string {
	return filepath.Join(f.dir, parser.SanitizeName(category), upc+".jpg")
}

// Fetch downloads the record's image. A partially written file is removed.
func (f *ImageFetcher) Fetch(ctx context.Context, category string, record *models.Record) (string, error) {
	if record.ImageURL == "" {
		return "", ImageDownloadError{Err: errNoImage}
	}
	upc := strings.TrimSpace(record.UPC)
	if upc == "" || upc == "." || upc == ".." || strings.ContainsAny(upc, `/\`) {
		return "", ImageDownloadError{URL: record.ImageURL, Err: errBadImageCode}
	}

	path := f.ImagePath(category, upc)
	if err := f.download(ctx, record.ImageURL, path); err != nil {
		f.metrics.IncError(errorTypeLabel(err))
		return "", ImageDownloadError{URL: record.ImageURL, Path: path, Err: err}
	}
	f.metrics.IncImages()
	return path, nil
}

func (f *ImageFetcher) download(ctx context.Context, imageURL, path string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	f.metrics.IncRequest(phaseImage)
	start := time.Now()
	resp, err := f.client.Do(req)
	f.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		return classifyError(err, 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyError(nil, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close image file: %w", closeErr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	written, err := io.Copy(file, resp.Body)
	if err != nil {
		return classifyError(err, 0)
	}
	if written == 0 {
		return errEmptyImage
	}
	return nil
}
