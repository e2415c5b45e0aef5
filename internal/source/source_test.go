package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func drain(t *testing.T, recCh <-chan RawRecord, errCh <-chan error) []RawRecord {
	t.Helper()
	var recs []RawRecord
	for rec := range recCh {
		recs = append(recs, rec)
	}
	require.NoError(t, <-errCh)
	return recs
}

func TestReadCSV_HeaderKeyed(t *testing.T) {
	path := writeTempFile(t, "batch.csv",
		"Owner Name , Owner Email,Phone\n"+
			"Jane Roe,jane@roe.com,518-555-0100\n"+
			"John Doe,john@doe.com,\n")

	recCh, errCh := Read(context.Background(), path, ReadOptions{})
	recs := drain(t, recCh, errCh)

	require.Len(t, recs, 2)
	assert.Equal(t, "Jane Roe", recs[0]["Owner Name"])
	assert.Equal(t, "jane@roe.com", recs[0]["Owner Email"])
	assert.Equal(t, "", recs[1]["Phone"])
}

func TestReadCSV_ShortRowPadded(t *testing.T) {
	path := writeTempFile(t, "batch.csv",
		"Name,Email,Phone\nJane Roe,jane@roe.com\n")

	recCh, errCh := Read(context.Background(), path, ReadOptions{})
	recs := drain(t, recCh, errCh)

	require.Len(t, recs, 1)
	assert.Equal(t, "", recs[0]["Phone"])
}

func TestReadCSV_Limit(t *testing.T) {
	path := writeTempFile(t, "batch.csv",
		"Name\nA\nB\nC\n")

	recCh, errCh := Read(context.Background(), path, ReadOptions{Limit: 2})
	recs := drain(t, recCh, errCh)
	assert.Len(t, recs, 2)
}

func TestReadCSV_SkipRows(t *testing.T) {
	path := writeTempFile(t, "batch.csv",
		"Name\nsubtitle row\nA\n")

	recCh, errCh := Read(context.Background(), path, ReadOptions{SkipRows: 1})
	recs := drain(t, recCh, errCh)
	require.Len(t, recs, 1)
	assert.Equal(t, "A", recs[0]["Name"])
}

func TestRead_UnsupportedExtension(t *testing.T) {
	recCh, errCh := Read(context.Background(), "batch.parquet", ReadOptions{})
	for range recCh {
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestReadCSV_Cancelled(t *testing.T) {
	path := writeTempFile(t, "batch.csv", "Name\nA\nB\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recCh, errCh := Read(ctx, path, ReadOptions{})
	for range recCh {
	}
	err := <-errCh
	require.Error(t, err)
}
