package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// Request phases used as metric labels.
const (
	phaseRoot    = "root"
	phaseListing = "listing"
	phaseDetail  = "detail"
	phaseImage   = "image"
)

// Page is a fetched and parsed HTML document.
type Page struct {
	URL *url.URL
	DOM *goquery.Selection
}

// Fetcher issues one synchronous colly request at a time.
type Fetcher struct {
	collector *colly.Collector
	metrics   *Metrics
	requests  int
}

func newFetcher(collector *colly.Collector, metrics *Metrics) *Fetcher {
	return &Fetcher{collector: collector, metrics: metrics}
}

// Fetch downloads rawURL and returns its parsed document. Transport failures
// and non-2xx responses are reported as NetworkError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, phase string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := f.collector.Clone()

	var (
		page       *Page
		statusCode int
	)
	c.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
	})
	c.OnHTML("html", func(e *colly.HTMLElement) {
		if page == nil {
			page = &Page{URL: e.Request.URL, DOM: e.DOM}
		}
	})

	f.requests++
	f.metrics.IncRequest(phase)
	start := time.Now()
	err := c.Visit(rawURL)
	f.metrics.ObserveDuration(time.Since(start))

	if err != nil {
		netErr := NetworkError{URL: rawURL, StatusCode: statusCode, Err: classifyError(err, statusCode)}
		f.metrics.IncError(errorTypeLabel(netErr))
		return nil, netErr
	}
	if page == nil {
		netErr := NetworkError{URL: rawURL, StatusCode: statusCode, Err: errNotHTML}
		f.metrics.IncError(errorTypeLabel(netErr))
		return nil, netErr
	}
	return page, nil
}

// Requests returns the number of fetches issued so far.
func (f *Fetcher) Requests() int {
	return f.requests
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
	}

	if err == nil {
		return fmt.Errorf("http status %d", statusCode)
	}
	return err
}
