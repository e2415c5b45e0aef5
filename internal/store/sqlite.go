package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local
// and development runs; semantics match the Postgres backend.
type SQLiteStore struct {
	db        *sql.DB
	batchSize int
	pageSize  int
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, batchSize int) (*SQLiteStore, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Single writer; avoids table-lock races on :memory: databases too.
	sdb.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &SQLiteStore{db: sdb, batchSize: batchSize, pageSize: defaultPageSize}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertBatch(ctx context.Context, table string, records []Record, keyCols []string) (map[string]int64, error) {
	idMap := make(map[string]int64, len(records))
	if len(records) == 0 {
		return idMap, nil
	}

	cols, err := columnsOf(records)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert %s", table)
	}

	var updateCols []string
	keySet := make(map[string]bool, len(keyCols))
	for _, k := range keyCols {
		keySet[k] = true
	}
	for _, c := range cols {
		if !keySet[c] {
			updateCols = append(updateCols, c)
		}
	}

	var setClause string
	if len(updateCols) > 0 {
		parts := make([]string, len(updateCols))
		for i, c := range updateCols {
			parts[i] = fmt.Sprintf("%s = excluded.%s", quoteIdent(c), quoteIdent(c))
		}
		setClause = "DO UPDATE SET " + strings.Join(parts, ", ")
	} else {
		// Touch a key column so RETURNING still yields the row.
		k := quoteIdent(keyCols[0])
		setClause = fmt.Sprintf("DO UPDATE SET %s = excluded.%s", k, k)
	}

	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) %s RETURNING id",
		quoteIdent(table),
		joinIdents(cols),
		placeholders,
		joinIdents(keyCols),
		setClause,
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert %s: begin", table)
	}
	defer tx.Rollback()

	for _, rec := range records {
		args := make([]any, len(cols))
		for j, c := range cols {
			args[j] = sqliteValue(rec[c])
		}
		var id int64
		if err := tx.QueryRowContext(ctx, stmt, args...).Scan(&id); err != nil {
			return nil, eris.Wrapf(err, "sqlite: upsert %s", table)
		}
		idMap[RecordKey(rec, keyCols)] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert %s: commit", table)
	}
	return idMap, nil
}

func (s *SQLiteStore) UpsertIgnore(ctx context.Context, table string, records []Record, keyCols []string) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	cols, err := columnsOf(records)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert ignore %s", table)
	}

	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) DO NOTHING",
		quoteIdent(table),
		joinIdents(cols),
		placeholders,
		joinIdents(keyCols),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert ignore %s: begin", table)
	}
	defer tx.Rollback()

	var total int64
	for _, rec := range records {
		args := make([]any, len(cols))
		for j, c := range cols {
			args[j] = sqliteValue(rec[c])
		}
		res, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return total, eris.Wrapf(err, "sqlite: upsert ignore %s", table)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}

	if err := tx.Commit(); err != nil {
		return total, eris.Wrapf(err, "sqlite: upsert ignore %s: commit", table)
	}
	return total, nil
}

func (s *SQLiteStore) FetchAll(ctx context.Context, table string, cols []string) ([]Record, error) {
	var all []Record

	offset := 0
	for {
		stmt := fmt.Sprintf(
			"SELECT %s FROM %s ORDER BY id LIMIT %d OFFSET %d",
			joinIdents(cols),
			quoteIdent(table),
			s.pageSize, offset,
		)
		rs, err := s.db.QueryContext(ctx, stmt)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: fetch all %s", table)
		}

		page := 0
		for rs.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rs.Scan(ptrs...); err != nil {
				rs.Close()
				return nil, eris.Wrapf(err, "sqlite: fetch all %s: scan", table)
			}
			rec := make(Record, len(cols))
			for i, c := range cols {
				rec[c] = fromSQLiteValue(vals[i])
			}
			all = append(all, rec)
			page++
		}
		rs.Close()
		if err := rs.Err(); err != nil {
			return nil, eris.Wrapf(err, "sqlite: fetch all %s: rows", table)
		}

		if page < s.pageSize {
			break
		}
		offset += s.pageSize
	}

	return all, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, table string, records []Record) ([]int64, error) {
	if len(records) == 0 {
		return nil, nil
	}

	cols, err := columnsOf(records)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert %s", table)
	}

	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s RETURNING id",
		quoteIdent(table),
		joinIdents(cols),
		placeholders,
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert %s: begin", table)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		args := make([]any, len(cols))
		for j, c := range cols {
			args[j] = sqliteValue(rec[c])
		}
		var id int64
		if err := tx.QueryRowContext(ctx, stmt, args...).Scan(&id); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert %s", table)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert %s: commit", table)
	}
	return ids, nil
}

func (s *SQLiteStore) Update(ctx context.Context, table string, id int64, patch Record) error {
	if len(patch) == 0 {
		return nil
	}

	cols, err := columnsOf([]Record{patch})
	if err != nil {
		return eris.Wrapf(err, "sqlite: update %s", table)
	}

	setClauses := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		setClauses[i] = fmt.Sprintf("%s = ?", quoteIdent(c))
		args = append(args, sqliteValue(patch[c]))
	}
	args = append(args, id)

	stmt := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = ?",
		quoteIdent(table),
		strings.Join(setClauses, ", "),
	)

	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return eris.Wrapf(err, "sqlite: update %s id %d", table, id)
	}
	return nil
}

// sqliteValue serializes composite values to JSON text.
func sqliteValue(v any) any {
	switch v.(type) {
	case map[string]any, []string, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(b)
	default:
		return v
	}
}

// fromSQLiteValue decodes JSON text columns back into composite values
// so callers see the same shapes the Postgres backend returns.
func fromSQLiteValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return decoded
		}
	}
	return s
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func joinIdents(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}
