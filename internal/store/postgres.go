package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/contacts-cli/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool      db.Pool
	batchSize int
	pageSize  int
	closeFn   func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, batchSize int) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &PostgresStore{
		pool:      pool,
		batchSize: batchSize,
		pageSize:  defaultPageSize,
		closeFn:   pool.Close,
	}, nil
}

const (
	defaultBatchSize = 500
	defaultPageSize  = 1000
)

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// UpsertBatch writes records in chunks and maps each natural key to its
// canonical row ID via RETURNING.
func (s *PostgresStore) UpsertBatch(ctx context.Context, table string, records []Record, keyCols []string) (map[string]int64, error) {
	idMap := make(map[string]int64, len(records))
	if len(records) == 0 {
		return idMap, nil
	}

	cols, err := columnsOf(records)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert %s", table)
	}

	returning := append([]string{"id"}, keyCols...)

	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))
		chunk := records[start:end]

		rows := make([][]any, len(chunk))
		for i, rec := range chunk {
			row := make([]any, len(cols))
			for j, c := range cols {
				row[j] = pgValue(rec[c])
			}
			rows[i] = row
		}

		out, err := db.UpsertReturning(ctx, s.pool, db.UpsertConfig{
			Table:        table,
			Columns:      cols,
			ConflictKeys: keyCols,
		}, rows, returning)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: upsert %s", table)
		}

		for _, vals := range out {
			if len(vals) != len(returning) {
				return nil, eris.Errorf("postgres: upsert %s: returned %d values, want %d", table, len(vals), len(returning))
			}
			id, err := asID(vals[0])
			if err != nil {
				return nil, eris.Wrapf(err, "postgres: upsert %s", table)
			}
			idMap[Key(vals[1:]...)] = id
		}
	}

	return idMap, nil
}

// UpsertIgnore inserts records that are absent by natural key and leaves
// existing rows untouched. Junction tables use this path.
func (s *PostgresStore) UpsertIgnore(ctx context.Context, table string, records []Record, keyCols []string) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	cols, err := columnsOf(records)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert ignore %s", table)
	}

	var total int64
	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))
		chunk := records[start:end]

		rows := make([][]any, len(chunk))
		for i, rec := range chunk {
			row := make([]any, len(cols))
			for j, c := range cols {
				row[j] = pgValue(rec[c])
			}
			rows[i] = row
		}

		n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
			Table:        table,
			Columns:      cols,
			ConflictKeys: keyCols,
			DoNothing:    true,
		}, rows)
		if err != nil {
			return total, eris.Wrapf(err, "postgres: upsert ignore %s", table)
		}
		total += n
	}

	return total, nil
}

// FetchAll scans an entire table, paginating by pageSize.
func (s *PostgresStore) FetchAll(ctx context.Context, table string, cols []string) ([]Record, error) {
	var all []Record
	colList := make([]string, len(cols))
	for i, c := range cols {
		colList[i] = pgx.Identifier{c}.Sanitize()
	}

	offset := 0
	for {
		sql := fmt.Sprintf(
			"SELECT %s FROM %s ORDER BY id LIMIT %d OFFSET %d",
			strings.Join(colList, ", "),
			pgx.Identifier{table}.Sanitize(),
			s.pageSize, offset,
		)
		rs, err := s.pool.Query(ctx, sql)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: fetch all %s", table)
		}

		page := 0
		for rs.Next() {
			vals, err := rs.Values()
			if err != nil {
				rs.Close()
				return nil, eris.Wrapf(err, "postgres: fetch all %s: scan", table)
			}
			rec := make(Record, len(cols))
			for i, c := range cols {
				rec[c] = vals[i]
			}
			all = append(all, rec)
			page++
		}
		rs.Close()
		if err := rs.Err(); err != nil {
			return nil, eris.Wrapf(err, "postgres: fetch all %s: rows", table)
		}

		if page < s.pageSize {
			break
		}
		offset += s.pageSize
	}

	return all, nil
}

// Insert appends records in chunks, returning assigned IDs in input order.
func (s *PostgresStore) Insert(ctx context.Context, table string, records []Record) ([]int64, error) {
	if len(records) == 0 {
		return nil, nil
	}

	cols, err := columnsOf(records)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert %s", table)
	}

	colList := make([]string, len(cols))
	for i, c := range cols {
		colList[i] = pgx.Identifier{c}.Sanitize()
	}

	ids := make([]int64, 0, len(records))
	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))
		chunk := records[start:end]

		var values []string
		args := make([]any, 0, len(chunk)*len(cols))
		n := 1
		for _, rec := range chunk {
			ph := make([]string, len(cols))
			for j, c := range cols {
				ph[j] = fmt.Sprintf("$%d", n)
				args = append(args, pgValue(rec[c]))
				n++
			}
			values = append(values, "("+strings.Join(ph, ", ")+")")
		}

		sql := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES %s RETURNING id",
			pgx.Identifier{table}.Sanitize(),
			strings.Join(colList, ", "),
			strings.Join(values, ", "),
		)

		rs, err := s.pool.Query(ctx, sql, args...)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: insert %s", table)
		}
		for rs.Next() {
			var id int64
			if err := rs.Scan(&id); err != nil {
				rs.Close()
				return nil, eris.Wrapf(err, "postgres: insert %s: scan id", table)
			}
			ids = append(ids, id)
		}
		rs.Close()
		if err := rs.Err(); err != nil {
			return nil, eris.Wrapf(err, "postgres: insert %s: rows", table)
		}
	}

	if len(ids) != len(records) {
		return nil, eris.Errorf("postgres: insert %s: got %d ids for %d records", table, len(ids), len(records))
	}
	return ids, nil
}

// Update applies a partial record to one row by ID.
func (s *PostgresStore) Update(ctx context.Context, table string, id int64, patch Record) error {
	if len(patch) == 0 {
		return nil
	}

	cols, err := columnsOf([]Record{patch})
	if err != nil {
		return eris.Wrapf(err, "postgres: update %s", table)
	}

	setClauses := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		setClauses[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{c}.Sanitize(), i+1)
		args = append(args, pgValue(patch[c]))
	}
	args = append(args, id)

	sql := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = $%d",
		pgx.Identifier{table}.Sanitize(),
		strings.Join(setClauses, ", "),
		len(cols)+1,
	)

	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return eris.Wrapf(err, "postgres: update %s id %d", table, id)
	}
	return nil
}

// pgValue converts composite values to JSON for jsonb columns; scalars
// pass through.
func pgValue(v any) any {
	switch v.(type) {
	case map[string]any, []string, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return b
	default:
		return v
	}
}

func asID(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return 0, eris.Errorf("store: unexpected id type %T", v)
	}
}
