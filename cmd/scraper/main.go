package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-catalog-crawler/config"
	"github.com/aluiziolira/go-catalog-crawler/models"
	"github.com/aluiziolira/go-catalog-crawler/pipeline"
	"github.com/aluiziolira/go-catalog-crawler/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	defaultCfg := config.DefaultConfig()
	pagesDefault := defaultCfg.MaxPages
	if value, ok, err := config.EnvInt("SCRAPER_MAX_PAGES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_MAX_PAGES: %v\n", err)
		os.Exit(1)
	} else if ok {
		pagesDefault = value
	}
	outputDefault := defaultCfg.OutputDir
	if value, ok := config.EnvString("SCRAPER_OUTPUT_DIR"); ok {
		outputDefault = value
	}
	imagesDefault := defaultCfg.ImagesDir
	if value, ok := config.EnvString("SCRAPER_IMAGES_DIR"); ok {
		imagesDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	categoriesDefault, _ := config.EnvString("SCRAPER_CATEGORIES")

	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Catalog root URL")
	maxPages := flag.Int("pages", pagesDefault, "Maximum listing pages per category (0 = no limit)")
	pageDelayMs := flag.Int("page-delay", int(defaultCfg.PageDelay/time.Millisecond), "Delay between listing page fetches (milliseconds)")
	itemDelayMs := flag.Int("item-delay", int(defaultCfg.ItemDelay/time.Millisecond), "Delay between detail page fetches (milliseconds)")
	timeoutMs := flag.Int("timeout", int(defaultCfg.Timeout/time.Millisecond), "Page request timeout (milliseconds)")
	imageTimeoutMs := flag.Int("image-timeout", int(defaultCfg.ImageTimeout/time.Millisecond), "Image download timeout (milliseconds)")
	outputDir := flag.String("output", outputDefault, "Directory for per-category output files")
	imagesDir := flag.String("images", imagesDefault, "Directory for downloaded images")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, or dual")
	categories := flag.String("categories", categoriesDefault, "Comma separated category names to crawl (default all)")
	skipImages := flag.Bool("skip-images", false, "Do not download images")
	respectRobots := flag.Bool("respect-robots", false, "Respect robots.txt directives")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.BaseURL = *baseURL
	cfg.MaxPages = *maxPages
	cfg.PageDelay = time.Duration(*pageDelayMs) * time.Millisecond
	cfg.ItemDelay = time.Duration(*itemDelayMs) * time.Millisecond
	cfg.Timeout = time.Duration(*timeoutMs) * time.Millisecond
	cfg.ImageTimeout = time.Duration(*imageTimeoutMs) * time.Millisecond
	cfg.OutputDir = *outputDir
	cfg.ImagesDir = *imagesDir
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.Categories = config.SplitList(*categories)
	cfg.SkipImages = *skipImages
	cfg.RespectRobotsTxt = *respectRobots
	cfg.Verbose = *verbose
	cfg.MetricsAddr = *metricsAddr
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting crawl",
		slog.String("base_url", cfg.BaseURL),
		slog.String("output", cfg.OutputDir),
		slog.String("format", cfg.OutputFormat),
		slog.Any("categories", cfg.Categories),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, stopping after the current request")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	p := pipeline.NewPipeline(cfg.OutputDir, cfg.OutputFormat)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	startTime := time.Now()
	result, runErr := s.Run(ctx, p)
	if err := p.Close(); err != nil {
		slog.Error("pipeline shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if runErr != nil {
		slog.Error("crawl failed", slog.Any("error", runErr))
		os.Exit(1)
	}

	printSummary(result, time.Since(startTime), cfg, p.GetMetrics())
}

func printSummary(result *models.CrawlResult, duration time.Duration, cfg *config.Config, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Crawl complete")

	for _, category := range result.Categories {
		fmt.Printf("  %-24s records=%d skipped=%d images=%d pages=%d\n",
			category.Name, category.RecordCount, category.SkippedItems, category.ImagesSaved, category.PageCount)
	}

	itemsPerSec := 0.0
	if duration.Seconds() > 0 {
		itemsPerSec = float64(result.TotalCount) / duration.Seconds()
	}

	fmt.Printf("  Categories:    %d\n", len(result.Categories))
	fmt.Printf("  Total records: %d\n", result.TotalCount)
	fmt.Printf("  Requests:      %d\n", result.RequestCount)
	fmt.Printf("  Listing pages: %d\n", result.PageCount)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	fmt.Printf("  Failed URLs:   %d\n", len(result.FailedURLs))
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if files, ok := metrics["files_written"].(int64); ok {
		fmt.Printf("  Files written: %d\n", files)
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Items/sec:     %.2f\n", itemsPerSec)
	fmt.Printf("  Output dir:    %s\n", cfg.OutputDir)
	if !cfg.SkipImages {
		fmt.Printf("  Images dir:    %s\n", cfg.ImagesDir)
	}
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
