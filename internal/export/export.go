// Package export renders a dataset's labeled samples as CSV.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/varity-app/lablr/internal/datastore"
	"github.com/varity-app/lablr/internal/errors"
	"github.com/varity-app/lablr/internal/labels"
)

// Write renders samples as CSV to w. The header row is "id" followed by the
// schema's label names in schema order. Only samples with a non-nil label
// assignment produce a row; unlabeled samples are skipped entirely. Label
// names missing from a sample's assignment render as empty cells.
func Write(w io.Writer, schema *labels.Schema, samples []datastore.Sample) error {
	writer := csv.NewWriter(w)

	names := schema.Names()
	header := append([]string{"id"}, names...)
	if err := writer.Write(header); err != nil {
		return exportError(err, "write-header")
	}

	for i := range samples {
		sample := &samples[i]
		if !sample.Labeled() {
			continue
		}

		row := make([]string, 0, len(header))
		row = append(row, sample.OriginalID)
		for _, name := range names {
			value, ok := sample.Labels[name]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(value, 'g', -1, 64))
		}

		if err := writer.Write(row); err != nil {
			return exportError(err, "write-row")
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return exportError(err, "flush")
	}
	return nil
}

func exportError(err error, operation string) error {
	return errors.New(err).
		Component("export").
		Category(errors.CategoryFileIO).
		Context("operation", operation).
		Build()
}
