package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/go-catalog-crawler/config"
	"github.com/aluiziolira/go-catalog-crawler/models"
	"github.com/aluiziolira/go-catalog-crawler/parser"
	"github.com/aluiziolira/go-catalog-crawler/pipeline"
	"github.com/gocolly/colly/v2"
)

// Scraper crawls the catalog one request at a time: categories, their
// listing pages, then every detail page and its image.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	fetcher   *Fetcher
	images    *ImageFetcher
	Metrics   *Metrics

	sleep func(context.Context, time.Duration) error

	pageCount    int
	errorCount   int
	failedURLs   []string
	errorsByType map[string]int
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
	)
	collector.AllowURLRevisit = true
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.SetRequestTimeout(cfg.Timeout)

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	collector.WithTransport(transport)

	metrics := NewMetrics()
	return &Scraper{
		cfg:          cfg,
		collector:    collector,
		fetcher:      newFetcher(collector, metrics),
		images:       newImageFetcher(transport, cfg.ImagesDir, cfg.UserAgent, cfg.ImageTimeout, metrics),
		Metrics:      metrics,
		sleep:        sleepContext,
		errorsByType: make(map[string]int),
	}, nil
}

// WithTransport routes page and image requests through rt.
func (s *Scraper) WithTransport(rt http.RoundTripper) {
	s.collector.WithTransport(rt)
	s.images.client.Transport = rt
}

// Run crawls every selected category and flushes each one through p.
// Category discovery and pagination failures abort the run; failures on a
// single item are logged and the item is skipped.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.CrawlResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	result := &models.CrawlResult{StartTime: start}
	for _, category := range categories {
		if !s.cfg.WantsCategory(category.Name) {
			slog.Debug("category filtered out", slog.String("category", category.Name))
			continue
		}
		if len(result.Categories) > 0 {
			if err := s.sleep(ctx, s.cfg.PageDelay); err != nil {
				return nil, err
			}
		}

		categoryResult, err := s.CrawlCategory(ctx, category, p)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", category.Name, err)
		}
		result.Categories = append(result.Categories, categoryResult)
		result.TotalCount += categoryResult.RecordCount
	}
	if len(result.Categories) == 0 {
		slog.Warn("no categories selected", slog.Any("filter", s.cfg.Categories))
	}

	result.EndTime = time.Now()
	result.ErrorCount = s.errorCount
	result.FailedURLs = append([]string(nil), s.failedURLs...)
	result.ErrorsByType = s.snapshotErrors()
	result.RequestCount = s.fetcher.Requests()
	result.PageCount = s.pageCount
	return result, nil
}

// ListCategories fetches the root page and returns its categories in
// document order, without the root pseudo-category.
func (s *Scraper) ListCategories(ctx context.Context) ([]models.Category, error) {
	page, err := s.fetcher.Fetch(ctx, s.cfg.BaseURL, phaseRoot)
	if err != nil {
		s.noteError(s.cfg.BaseURL, err)
		return nil, fmt.Errorf("root page: %w", err)
	}
	categories, err := parser.ParseCategories(page.DOM, page.URL)
	if err != nil {
		s.noteError(s.cfg.BaseURL, err)
		return nil, fmt.Errorf("parse categories: %w", err)
	}
	slog.Info("categories discovered", slog.Int("count", len(categories)))
	return categories, nil
}

// CrawlCategory walks one category, extracts every item, downloads images
// and flushes the collected records.
func (s *Scraper) CrawlCategory(ctx context.Context, category models.Category, p *pipeline.Pipeline) (*models.CategoryResult, error) {
	result := &models.CategoryResult{Name: category.Name, URL: category.URL}

	walk, err := s.WalkCategory(ctx, category.URL)
	if err != nil {
		return nil, err
	}
	result.PageCount = len(walk.Pages)
	result.ItemCount = len(walk.ItemURLs)

	for i, itemURL := range walk.ItemURLs {
		if i > 0 {
			if err := s.sleep(ctx, s.cfg.ItemDelay); err != nil {
				return nil, err
			}
		}

		record, err := s.scrapeItem(ctx, itemURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.skipItem(result, itemURL, err)
			continue
		}
		if err := p.Process(record); err != nil {
			if errors.Is(err, pipeline.ErrPipelineClosed) {
				return nil, err
			}
			s.skipItem(result, itemURL, err)
			continue
		}
		result.RecordCount++
		s.Metrics.IncRecords()

		if s.cfg.SkipImages {
			continue
		}
		path, err := s.images.Fetch(ctx, category.Name, record)
		if err != nil {
			result.ImageErrors++
			s.noteError(record.ImageURL, err)
			slog.Error("image download failed",
				slog.String("category", category.Name),
				slog.String("url", itemURL),
				slog.Any("error", err),
			)
			continue
		}
		result.ImagesSaved++
		slog.Debug("image saved", slog.String("path", path))
	}

	files, err := p.Flush(category.Name)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	result.OutputFiles = files
	s.Metrics.IncCategories()

	slog.Info("category crawled",
		slog.String("category", category.Name),
		slog.Int("pages", result.PageCount),
		slog.Int("items", result.ItemCount),
		slog.Int("records", result.RecordCount),
		slog.Int("skipped", result.SkippedItems),
		slog.Int("images", result.ImagesSaved),
	)
	return result, nil
}

func (s *Scraper) scrapeItem(ctx context.Context, itemURL string) (*models.Record, error) {
	page, err := s.fetcher.Fetch(ctx, itemURL, phaseDetail)
	if err != nil {
		return nil, err
	}
	return parser.ExtractRecord(page.DOM, page.URL)
}

func (s *Scraper) skipItem(result *models.CategoryResult, itemURL string, err error) {
	result.SkippedItems++
	label := errorTypeLabel(err)
	s.Metrics.IncSkipped(label)
	s.noteError(itemURL, err)
	slog.Error("item skipped",
		slog.String("category", result.Name),
		slog.String("url", itemURL),
		slog.String("error_type", label),
		slog.Any("error", err),
	)
}

func (s *Scraper) noteError(url string, err error) {
	s.errorCount++
	s.errorsByType[errorTypeLabel(err)]++
	if url != "" {
		s.failedURLs = append(s.failedURLs, url)
	}
}

func (s *Scraper) snapshotErrors() map[string]int {
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

// sleepContext waits for d, returning early with the context error.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
