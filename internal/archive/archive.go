// Package archive exports expired probe results to Parquet files so
// the hard cutoff never destroys data that was not written out first.
// Files are grouped by the result's UTC day; each export batch writes
// one file per day touched.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/pulsewatch/pulsewatch/internal/logging"
	"github.com/pulsewatch/pulsewatch/internal/types"
)

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// ResultRow represents a probe result in Parquet format.
type ResultRow struct {
	ID             string `parquet:"id,zstd"`
	TargetID       string `parquet:"target_id,zstd"`
	TimestampMs    int64  `parquet:"timestamp_ms"`
	Success        bool   `parquet:"success"`
	ResponseTimeMs *int64 `parquet:"response_time_ms,optional"`
	StatusCode     *int32 `parquet:"status_code,optional"`
	Error          string `parquet:"error,optional,zstd"`
	Protocol       string `parquet:"protocol,zstd"`
}

// ResultToRow converts a ProbeResult to a ResultRow.
func ResultToRow(r *types.ProbeResult) ResultRow {
	row := ResultRow{
		ID:          r.ID,
		TargetID:    r.TargetID,
		TimestampMs: r.Timestamp.UnixMilli(),
		Success:     r.Success,
		Error:       r.Error,
		Protocol:    string(r.Protocol),
	}
	if r.ResponseTimeMs != nil {
		v := *r.ResponseTimeMs
		row.ResponseTimeMs = &v
	}
	if r.StatusCode != nil {
		v := int32(*r.StatusCode)
		row.StatusCode = &v
	}
	return row
}

// RowToResult converts a ResultRow to a ProbeResult.
func RowToResult(row *ResultRow) types.ProbeResult {
	r := types.ProbeResult{
		ID:        row.ID,
		TargetID:  row.TargetID,
		Timestamp: time.UnixMilli(row.TimestampMs).UTC(),
		Success:   row.Success,
		Error:     row.Error,
		Protocol:  types.Protocol(row.Protocol),
	}
	if row.ResponseTimeMs != nil {
		v := *row.ResponseTimeMs
		r.ResponseTimeMs = &v
	}
	if row.StatusCode != nil {
		v := int(*row.StatusCode)
		r.StatusCode = &v
	}
	return r
}

// Options configures the archive writer.
type Options struct {
	// Dir is the root directory for archive files.
	Dir string

	// Compression algorithm for new files.
	Compression CompressionType
}

// Writer exports probe results to day-partitioned Parquet files.
type Writer struct {
	dir         string
	compression CompressionType
	log         *slog.Logger
}

// NewWriter creates an archive writer rooted at opts.Dir.
func NewWriter(opts Options) (*Writer, error) {
	if opts.Dir == "" {
		return nil, errors.New("archive directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	return &Writer{
		dir:         opts.Dir,
		compression: opts.Compression,
		log:         logging.Component("archive"),
	}, nil
}

// Archive writes the given results out, one file per UTC day present
// in the batch. Files are named <day>-<batch unix ms>.parquet so
// successive exports of the same day never collide.
func (w *Writer) Archive(ctx context.Context, results []types.ProbeResult) error {
	if len(results) == 0 {
		return nil
	}

	byDay := make(map[string][]ResultRow)
	for i := range results {
		day := results[i].Timestamp.UTC().Format("2006-01-02")
		byDay[day] = append(byDay[day], ResultToRow(&results[i]))
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	batch := time.Now().UnixMilli()
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(w.dir, fmt.Sprintf("%s-%d.parquet", day, batch))
		if err := writeFile(path, byDay[day], w.compression); err != nil {
			return fmt.Errorf("archive day %s: %w", day, err)
		}
		w.log.Info("archived expired rows",
			"day", day,
			"rows", len(byDay[day]),
			"file", filepath.Base(path))
	}

	return nil
}

// writeFile writes rows to a new Parquet file, removing the partial
// file on failure.
func writeFile(path string, rows []ResultRow, ct CompressionType) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	pw := parquet.NewGenericWriter[ResultRow](f, parquet.Compression(getCompression(ct)))

	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("close writer: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close file: %w", err)
	}

	return nil
}

// ReadDay reads back every archived result for the given UTC day,
// across all batch files, ordered by timestamp.
func ReadDay(dir string, day time.Time) ([]types.ProbeResult, error) {
	pattern := filepath.Join(dir, day.UTC().Format("2006-01-02")+"-*.parquet")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob archive files: %w", err)
	}
	sort.Strings(paths)

	var out []types.ProbeResult
	for _, path := range paths {
		rows, err := readFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		for i := range rows {
			out = append(out, RowToResult(&rows[i]))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func readFile(path string) ([]ResultRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	pr := parquet.NewGenericReader[ResultRow](f)
	defer pr.Close()

	rows := make([]ResultRow, pr.NumRows())
	n, err := pr.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	return rows[:n], nil
}
