package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contacts-cli/internal/store"
)

func TestTableCounts(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()

	_, err := st.Insert(ctx, store.TablePeople, []store.Record{
		{"first_name": "Ada", "last_name": "Lovelace"},
		{"first_name": "Alan", "last_name": "Turing"},
	})
	require.NoError(t, err)
	_, err = st.UpsertBatch(ctx, store.TableOrgs, []store.Record{
		{"name": "Acme LLC"},
	}, []string{"name"})
	require.NoError(t, err)

	counts, err := tableCounts(ctx, st)
	require.NoError(t, err)

	assert.Equal(t, 2, counts[store.TablePeople])
	assert.Equal(t, 1, counts[store.TableOrgs])
	assert.Equal(t, 0, counts[store.TablePhones])
	assert.Len(t, counts, len(statusTables))
}
