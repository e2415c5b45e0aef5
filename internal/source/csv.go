package source

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

func streamCSV(ctx context.Context, path string, opts ReadOptions) (<-chan RawRecord, <-chan error) {
	recCh := make(chan RawRecord, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		f, err := os.Open(path)
		if err != nil {
			errCh <- eris.Wrap(err, "source: open csv")
			return
		}
		defer f.Close()

		reader := csv.NewReader(f)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1 // allow variable fields

		header, err := reader.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			errCh <- eris.Wrap(err, "source: read csv header")
			return
		}

		skipped := 0
		sent := 0
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "source: csv cancelled")
				return
			}

			row, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "source: read csv row")
				return
			}

			if skipped < opts.SkipRows {
				skipped++
				continue
			}

			select {
			case recCh <- zipRecord(header, row):
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "source: csv cancelled")
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
