package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"avalanche-scraper/models"
)

var ratingHeader = []string{
	"region", "date", "band",
	"current", "current_label",
	"plus1", "plus1_label",
	"plus2", "plus2_label",
	"reason", "scraped_at",
}

// CSVWriter writes rating rows to a CSV file, one row per date and
// elevation band. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, w, err := createCSV(path, ratingHeader)
	if err != nil {
		return nil, err
	}
	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends rating rows to the file. Null ratings (0) are written as
// empty cells so downstream tooling reads them as missing, not zero.
func (c *CSVWriter) Write(rows []*models.DailyRating) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range rows {
		scrapedAt := ""
		if !r.ScrapedAt.IsZero() {
			scrapedAt = r.ScrapedAt.Format(time.RFC3339)
		}
		row := []string{
			r.Region,
			r.Date.Format("2006-01-02"),
			string(r.Band),
			ratingCell(r.Current), r.CurrentLabel,
			ratingCell(r.Plus1), r.Plus1Label,
			ratingCell(r.Plus2), r.Plus2Label,
			r.Reason,
			scrapedAt,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

// ProblemCSVWriter writes forecaster problem text to its own CSV file.
type ProblemCSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewProblemCSVWriter creates (or truncates) the problems CSV file.
func NewProblemCSVWriter(path string) (*ProblemCSVWriter, error) {
	f, w, err := createCSV(path, []string{"region", "date", "problems"})
	if err != nil {
		return nil, err
	}
	return &ProblemCSVWriter{file: f, writer: w}, nil
}

// WriteProblems appends problem notes to the file.
func (p *ProblemCSVWriter) WriteProblems(problems []*models.ProblemNote) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, note := range problems {
		row := []string{note.Region, note.Date.Format("2006-01-02"), note.Text}
		if err := p.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write problem row: %w", err)
		}
	}

	p.writer.Flush()
	return p.writer.Error()
}

// Close flushes and closes the underlying file.
func (p *ProblemCSVWriter) Close() error {
	p.writer.Flush()
	return p.file.Close()
}

func createCSV(path string, header []string) (*os.File, *csv.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return f, w, nil
}

func ratingCell(code int) string {
	if code == models.NoRating {
		return ""
	}
	return strconv.Itoa(code)
}
