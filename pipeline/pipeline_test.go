package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-catalog-crawler/models"
)

func TestPipelineFlushWritesCategoryFile(t *testing.T) {
	dir := t.TempDir()
	p := NewPipeline(dir, "csv")

	first := sampleRecord()
	second := sampleRecord()
	second.PageURL = "http://example.test/catalogue/book-2/index.html"
	second.UPC = "b00000000000002"

	if err := p.Process(first, second); err != nil {
		t.Fatalf("process: %v", err)
	}
	if got := p.Pending(); got != 2 {
		t.Fatalf("pending = %d, want 2", got)
	}

	files, err := p.Flush("Sequential Art")
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	want := filepath.Join(dir, "Sequential_Art.csv")
	if len(files) != 1 || files[0] != want {
		t.Fatalf("files = %v, want [%s]", files, want)
	}
	if got := len(readCSV(t, want)); got != 3 {
		t.Fatalf("csv rows = %d, want header + 2", got)
	}
	if got := p.Pending(); got != 0 {
		t.Fatalf("pending after flush = %d, want 0", got)
	}

	metrics := p.GetMetrics()
	if got := metrics["exported_records"].(int64); got != 2 {
		t.Fatalf("exported_records = %d, want 2", got)
	}
	if got := metrics["files_written"].(int64); got != 1 {
		t.Fatalf("files_written = %d, want 1", got)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestPipelineFlushEmptyIsNoop(t *testing.T) {
	dir := t.TempDir()
	p := NewPipeline(dir, "csv")

	files, err := p.Flush("Poetry")
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("files = %v, want none", files)
	}
	if _, err := os.Stat(filepath.Join(dir, "Poetry.csv")); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, stat err = %v", err)
	}
}

func TestPipelineFlushOverwrites(t *testing.T) {
	dir := t.TempDir()
	p := NewPipeline(dir, "csv")

	for i := 0; i < 2; i++ {
		if err := p.Process(sampleRecord()); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	if _, err := p.Flush("Poetry"); err != nil {
		t.Fatalf("first flush: %v", err)
	}

	if err := p.Process(sampleRecord()); err != nil {
		t.Fatalf("process: %v", err)
	}
	files, err := p.Flush("Poetry")
	if err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if got := len(readCSV(t, files[0])); got != 2 {
		t.Fatalf("csv rows = %d, want header + 1 after overwrite", got)
	}
}

func TestPipelineRejectsInvalidRecord(t *testing.T) {
	p := NewPipeline(t.TempDir(), "csv")

	err := p.Process(&models.Record{PageURL: "http://example.test/catalogue/x/index.html"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if p.Pending() != 0 {
		t.Fatalf("invalid record should not be buffered")
	}
	validation := p.GetMetrics()["validation_errors"].(map[string]int)
	if validation["invalid_record"] != 1 {
		t.Fatalf("invalid_record = %d, want 1", validation["invalid_record"])
	}
}

func TestPipelineClose(t *testing.T) {
	p := NewPipeline(t.TempDir(), "csv")
	if err := p.Process(sampleRecord()); err != nil {
		t.Fatalf("process: %v", err)
	}

	if err := p.Close(); !errors.Is(err, ErrUnflushed) {
		t.Fatalf("close error = %v, want ErrUnflushed", err)
	}
	if err := p.Process(sampleRecord()); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("process after close = %v, want ErrPipelineClosed", err)
	}
	if _, err := p.Flush("Poetry"); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("flush after close = %v, want ErrPipelineClosed", err)
	}
}
