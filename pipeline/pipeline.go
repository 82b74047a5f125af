// Package pipeline buffers a category's records and exports them to files.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/aluiziolira/go-catalog-crawler/models"
	"github.com/aluiziolira/go-catalog-crawler/parser"
)

var (
	// ErrPipelineClosed is returned when Process or Flush is called after Close.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrUnflushed is returned by Close when buffered records were never exported.
	ErrUnflushed = errors.New("pipeline: records not flushed")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(records []*models.Record) error
	Close() error
	Validate() error
}

// Pipeline validates records and writes one output artifact per category.
type Pipeline struct {
	outputDir string
	format    string

	mu      sync.Mutex
	pending []*models.Record
	closed  bool

	metrics metrics

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline writing format files under outputDir.
func NewPipeline(outputDir, format string) *Pipeline {
	return &Pipeline{
		outputDir: outputDir,
		format:    format,
		metrics:   newMetrics(),
		shutdown:  make(chan struct{}),
	}
}

// Process buffers valid records until the next Flush. Invalid records are
// dropped and counted.
func (p *Pipeline) Process(records ...*models.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPipelineClosed
	}

	for _, record := range records {
		if err := parser.ValidateRecord(record); err != nil {
			p.metrics.addValidation("invalid_record")
			return fmt.Errorf("invalid record: %w", err)
		}
		p.pending = append(p.pending, record)
	}
	return nil
}

// Pending returns the number of buffered records.
func (p *Pipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Flush writes the buffered records to <outputDir>/<category> with the
// format's extension, replacing any existing file, and empties the buffer.
// Flushing an empty buffer writes nothing.
func (p *Pipeline) Flush(category string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPipelineClosed
	}
	if len(p.pending) == 0 {
		slog.Info("no records to export", slog.String("category", category))
		return nil, nil
	}

	name := parser.SanitizeName(category)
	if name == "" {
		return nil, fmt.Errorf("category name is empty")
	}

	files, err := p.write(filepath.Join(p.outputDir, name))
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", category, err)
	}

	p.metrics.addProcessed(int64(len(p.pending)))
	p.metrics.addFiles(int64(len(files)))
	slog.Info("category exported",
		slog.String("category", category),
		slog.Int("records", len(p.pending)),
		slog.Any("files", files),
	)
	p.pending = nil
	return files, nil
}

func (p *Pipeline) write(basePath string) (files []string, err error) {
	writer, files, err := NewWriter(p.format, basePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := writer.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close writer: %w", closeErr)
		}
	}()

	if err := writer.Write(p.pending); err != nil {
		return nil, err
	}
	if err := writer.Validate(); err != nil {
		return nil, err
	}
	return files, nil
}

// Close prevents further submissions. Records still buffered are reported
// as ErrUnflushed.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
	if n := len(p.pending); n > 0 {
		p.pending = nil
		return fmt.Errorf("%w: %d dropped", ErrUnflushed, n)
	}
	return nil
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs until Close.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m := p.GetMetrics()
				slog.Info("pipeline progress",
					slog.Int64("exported_records", m["exported_records"].(int64)),
					slog.Int64("files_written", m["files_written"].(int64)),
					slog.Int("pending", p.Pending()),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	files      int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) addProcessed(n int64) {
	m.mu.Lock()
	m.processed += n
	m.mu.Unlock()
}

func (m *metrics) addFiles(n int64) {
	m.mu.Lock()
	m.files += n
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"exported_records":  m.processed,
		"files_written":     m.files,
		"validation_errors": copyValidation,
	}
}
