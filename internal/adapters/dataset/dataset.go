// Package dataset reads and writes the CSV files the CLI works with: SPADL
// actions and probability estimates in, labels and values out.
package dataset

import (
	"encoding/csv"
	"errors"
	"io"
	"slices"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// decodeAll decodes every record of r into rows after checking that the
// header carries the required columns. Row numbers in errors are 1-based
// data rows.
func decodeAll[T any](r io.Reader, required []string, check func(row int, v *T) error) ([]T, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if errors.Is(err, io.EOF) {
		return nil, eris.Wrap(ErrEmpty, "csv: no header")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}

	header := dec.Header()
	for _, col := range required {
		if !slices.Contains(header, col) {
			return nil, eris.Wrapf(ErrMissingField, "csv: column %q", col)
		}
	}

	var out []T
	for row := 1; ; row++ {
		var v T
		if err := dec.Decode(&v); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "csv: row %d", row)
		}
		if err := check(row, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// encodeAll writes a header and one record per row.
func encodeAll[T any](w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(rows) == 0 {
		var zero T
		if err := enc.EncodeHeader(zero); err != nil {
			return eris.Wrap(err, "csv: write header")
		}
	}
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return eris.Wrapf(err, "csv: write row %d", i+1)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}
