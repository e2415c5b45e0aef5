// Package source reads raw batch files (CSV, XLSX) and the YAML mapping
// specs that bind their columns to contact slots. Readers emit rows as
// header-keyed maps; all interpretation happens in the engine.
package source

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// RawRecord is one source row keyed by trimmed header name. Missing and
// short rows yield empty strings, never absent keys.
type RawRecord map[string]string

// ReadOptions configures a batch file read.
type ReadOptions struct {
	Sheet     string // XLSX only; empty means first sheet
	SkipRows  int    // extra rows to skip after the header
	Delimiter rune   // CSV only; default ','
	Limit     int    // stop after N records; 0 means all
}

// Read streams records from a batch file, dispatching on extension.
// The caller must drain the record channel; both channels close when
// the read completes or fails.
func Read(ctx context.Context, path string, opts ReadOptions) (<-chan RawRecord, <-chan error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return streamCSV(ctx, path, opts)
	case ".xlsx":
		return streamXLSX(ctx, path, opts)
	default:
		recCh := make(chan RawRecord)
		errCh := make(chan error, 1)
		errCh <- eris.Errorf("source: unsupported file type %q", filepath.Ext(path))
		close(recCh)
		close(errCh)
		return recCh, errCh
	}
}

// zipRecord pairs a row with its header. Rows shorter than the header
// are padded; extra cells are dropped.
func zipRecord(header, row []string) RawRecord {
	rec := make(RawRecord, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if i < len(row) {
			rec[h] = strings.TrimSpace(row[i])
		} else {
			rec[h] = ""
		}
	}
	return rec
}
