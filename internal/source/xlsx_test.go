package source

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeTestXLSX(t *testing.T, sheetName string, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	require.NoError(t, err)
	for _, row := range rows {
		r := sheet.AddRow()
		for _, cell := range row {
			r.AddCell().SetString(cell)
		}
	}
	path := filepath.Join(t.TempDir(), "batch.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX_FirstSheet(t *testing.T) {
	path := writeTestXLSX(t, "Contacts", [][]string{
		{"Name", "Email"},
		{"Jane Roe", "jane@roe.com"},
		{"John Doe", "john@doe.com"},
	})

	recCh, errCh := Read(context.Background(), path, ReadOptions{})
	recs := drain(t, recCh, errCh)

	require.Len(t, recs, 2)
	assert.Equal(t, "jane@roe.com", recs[0]["Email"])
	assert.Equal(t, "John Doe", recs[1]["Name"])
}

func TestReadXLSX_NamedSheet(t *testing.T) {
	path := writeTestXLSX(t, "Roster", [][]string{
		{"Name"},
		{"Jane Roe"},
	})

	recCh, errCh := Read(context.Background(), path, ReadOptions{Sheet: "Roster"})
	recs := drain(t, recCh, errCh)
	require.Len(t, recs, 1)

	recCh, errCh = Read(context.Background(), path, ReadOptions{Sheet: "Missing"})
	for range recCh {
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadXLSX_Limit(t *testing.T) {
	path := writeTestXLSX(t, "Contacts", [][]string{
		{"Name"},
		{"A"}, {"B"}, {"C"},
	})

	recCh, errCh := Read(context.Background(), path, ReadOptions{Limit: 1})
	recs := drain(t, recCh, errCh)
	assert.Len(t, recs, 1)
}
