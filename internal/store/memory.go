package store

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
)

// MemoryStore is an in-process Store. The serve command uses it when no
// database is configured, and engine tests run against it.
type MemoryStore struct {
	mu        sync.Mutex
	tables    map[string]*memTable
	mutations int64
}

type memTable struct {
	rows   map[int64]Record
	byKey  map[string]int64 // natural key -> id, per keyCols used
	nextID int64
	order  []int64
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*memTable)}
}

func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }
func (s *MemoryStore) Close() error                      { return nil }

// Mutations returns the number of row writes since creation. Dry-run
// tests assert this stays zero.
func (s *MemoryStore) Mutations() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutations
}

func (s *MemoryStore) table(name string) *memTable {
	t, ok := s.tables[name]
	if !ok {
		t = &memTable{
			rows:   make(map[int64]Record),
			byKey:  make(map[string]int64),
			nextID: 1,
		}
		s.tables[name] = t
	}
	return t
}

func (s *MemoryStore) UpsertBatch(ctx context.Context, table string, records []Record, keyCols []string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := columnsOf(records); err != nil {
		return nil, eris.Wrapf(err, "memory: upsert %s", table)
	}

	t := s.table(table)
	idMap := make(map[string]int64, len(records))
	for _, rec := range records {
		key := RecordKey(rec, keyCols)
		id, exists := t.byKey[key]
		if exists {
			row := t.rows[id]
			for c, v := range rec {
				row[c] = v
			}
		} else {
			id = t.nextID
			t.nextID++
			row := make(Record, len(rec))
			for c, v := range rec {
				row[c] = v
			}
			row["id"] = id
			t.rows[id] = row
			t.byKey[key] = id
			t.order = append(t.order, id)
		}
		s.mutations++
		idMap[key] = id
	}
	return idMap, nil
}

func (s *MemoryStore) UpsertIgnore(ctx context.Context, table string, records []Record, keyCols []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := columnsOf(records); err != nil {
		return 0, eris.Wrapf(err, "memory: upsert ignore %s", table)
	}

	t := s.table(table)
	var written int64
	for _, rec := range records {
		key := RecordKey(rec, keyCols)
		if _, exists := t.byKey[key]; exists {
			continue
		}
		id := t.nextID
		t.nextID++
		row := make(Record, len(rec))
		for c, v := range rec {
			row[c] = v
		}
		row["id"] = id
		t.rows[id] = row
		t.byKey[key] = id
		t.order = append(t.order, id)
		s.mutations++
		written++
	}
	return written, nil
}

func (s *MemoryStore) FetchAll(ctx context.Context, table string, cols []string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(table)
	out := make([]Record, 0, len(t.order))
	for _, id := range t.order {
		row := t.rows[id]
		rec := make(Record, len(cols))
		for _, c := range cols {
			rec[c] = row[c]
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryStore) Insert(ctx context.Context, table string, records []Record) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := columnsOf(records); err != nil {
		return nil, eris.Wrapf(err, "memory: insert %s", table)
	}

	t := s.table(table)
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		id := t.nextID
		t.nextID++
		row := make(Record, len(rec))
		for c, v := range rec {
			row[c] = v
		}
		row["id"] = id
		t.rows[id] = row
		t.order = append(t.order, id)
		s.mutations++
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) Update(ctx context.Context, table string, id int64, patch Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(table)
	row, ok := t.rows[id]
	if !ok {
		return eris.Errorf("memory: update %s: no row with id %d", table, id)
	}
	for c, v := range patch {
		row[c] = v
	}
	s.mutations++
	return nil
}
