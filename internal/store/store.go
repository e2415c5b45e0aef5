// Package store persists the consolidated entity graph. The engine
// consumes it through a narrow table-level contract: natural-key batch
// upserts that return canonical IDs, full-table scans to seed ID caches,
// ordered inserts, and partial updates. Every mutating operation is safe
// to repeat with the same records.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Record is one row as a flat column → value map. Values that are maps
// or string slices are stored as JSON.
type Record map[string]any

// Store is the persistence contract the consolidation engine runs
// against. Implementations must make UpsertBatch idempotent: repeated
// calls with the same records create no duplicate rows, and columns not
// present in the records are preserved on existing rows.
//
// The engine is a single-writer batch process; implementations are not
// required to tolerate a second concurrent writer on the same tables.
type Store interface {
	// UpsertBatch writes records keyed by keyCols and returns the
	// canonical ID for every record's natural key. Map keys are built
	// with Key over the record's key column values, in keyCols order.
	UpsertBatch(ctx context.Context, table string, records []Record, keyCols []string) (map[string]int64, error)

	// UpsertIgnore inserts records absent by natural key and leaves
	// existing rows untouched (junction tables). Returns the number of
	// rows written.
	UpsertIgnore(ctx context.Context, table string, records []Record, keyCols []string) (int64, error)

	// FetchAll scans an entire table, paginating internally.
	FetchAll(ctx context.Context, table string, cols []string) ([]Record, error)

	// Insert appends records and returns assigned IDs in input order.
	Insert(ctx context.Context, table string, records []Record) ([]int64, error)

	// Update applies a partial record to one row by ID.
	Update(ctx context.Context, table string, id int64, patch Record) error

	Migrate(ctx context.Context) error
	Close() error
}

// keySep separates composite key parts. Unit separator never occurs in
// normalized field values.
const keySep = "\x1f"

// Key builds the cache map key for a natural key tuple.
func Key(vals ...any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, keySep)
}

// RecordKey builds the cache map key for a record using keyCols order.
func RecordKey(rec Record, keyCols []string) string {
	vals := make([]any, len(keyCols))
	for i, c := range keyCols {
		vals[i] = rec[c]
	}
	return Key(vals...)
}

// columnsOf derives the deterministic column order for a record set:
// the sorted union check is deliberately strict — every record in one
// batch call must share the same shape.
func columnsOf(records []Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	cols := make([]string, 0, len(records[0]))
	for c := range records[0] {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	for i, rec := range records {
		if len(rec) != len(cols) {
			return nil, fmt.Errorf("store: record %d has %d columns, want %d", i, len(rec), len(cols))
		}
		for _, c := range cols {
			if _, ok := rec[c]; !ok {
				return nil, fmt.Errorf("store: record %d missing column %q", i, c)
			}
		}
	}
	return cols, nil
}
