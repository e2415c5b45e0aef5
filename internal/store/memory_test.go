package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUpsertBatch_StableIDs(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	recs := []Record{
		{"name": "Acme Capital", "city": "Austin"},
		{"name": "Bluebird Partners", "city": "Denver"},
	}

	first, err := s.UpsertBatch(ctx, TableOrgs, recs, []string{"name"})
	require.NoError(t, err)
	second, err := s.UpsertBatch(ctx, TableOrgs, recs, []string{"name"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	rows, err := s.FetchAll(ctx, TableOrgs, []string{"name"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestMemoryUpsertIgnore_FirstWins(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	n, err := s.UpsertIgnore(ctx, TablePersonOrgs, []Record{
		{"person_id": int64(1), "organization_id": int64(2), "title": "Partner"},
	}, []string{"person_id", "organization_id"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.UpsertIgnore(ctx, TablePersonOrgs, []Record{
		{"person_id": int64(1), "organization_id": int64(2), "title": "Analyst"},
	}, []string{"person_id", "organization_id"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	rows, err := s.FetchAll(ctx, TablePersonOrgs, []string{"title"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Partner", rows[0]["title"])
}

func TestMemoryInsert_OrderedIDs(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	ids, err := s.Insert(ctx, TablePeople, []Record{
		{"first_name": "Ada"},
		{"first_name": "Alan"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Less(t, ids[0], ids[1])
}

func TestMemoryUpdate_MissingRow(t *testing.T) {
	s := NewMemory()
	err := s.Update(context.Background(), TablePeople, 99, Record{"first_name": "X"})
	require.Error(t, err)
}

func TestMemoryMutationsCounter(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	assert.Equal(t, int64(0), s.Mutations())

	_, err := s.Insert(ctx, TablePeople, []Record{{"first_name": "Ada"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Mutations())

	_, err = s.FetchAll(ctx, TablePeople, []string{"first_name"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Mutations())
}
