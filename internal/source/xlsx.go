package source

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

func streamXLSX(ctx context.Context, path string, opts ReadOptions) (<-chan RawRecord, <-chan error) {
	recCh := make(chan RawRecord, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		f, err := xlsx.OpenFile(path)
		if err != nil {
			errCh <- eris.Wrap(err, "source: open xlsx")
			return
		}

		sheet, err := pickSheet(f, opts.Sheet)
		if err != nil {
			errCh <- err
			return
		}
		if len(sheet.Rows) == 0 {
			return
		}

		header := rowToStrings(sheet.Rows[0])
		start := 1 + opts.SkipRows
		if start > len(sheet.Rows) {
			return
		}
		sent := 0
		for _, row := range sheet.Rows[start:] {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "source: xlsx cancelled")
				return
			}

			select {
			case recCh <- zipRecord(header, rowToStrings(row)):
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "source: xlsx cancelled")
				return
			}

			sent++
			if opts.Limit > 0 && sent >= opts.Limit {
				return
			}
		}
	}()

	return recCh, errCh
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("source: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("source: xlsx file has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
