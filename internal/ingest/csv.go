// Package ingest parses uploaded tabular files into sample records.
package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"unicode/utf8"

	"github.com/varity-app/lablr/internal/errors"
)

// Record is one data row pulled from an uploaded file.
type Record struct {
	OriginalID string // value of the id column, kept verbatim, uniqueness not enforced
	Text       string // value of the text column
}

// Read decodes r as UTF-8 CSV with a header row and extracts one Record per
// data row using the given id and text columns. Records are returned in file
// order, which becomes the samples' insertion and pagination order.
//
// A payload that is not valid UTF-8 fails with a malformed-data error before
// any parsing. A header missing either requested column fails with a
// validation error naming the missing field and the available columns.
func Read(r io.Reader, idColumn, textColumn string) ([]Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.New(err).
			Component("ingest").
			Category(errors.CategoryFileIO).
			Context("operation", "read-upload").
			Build()
	}

	if !utf8.Valid(raw) {
		return nil, errors.Newf("uploaded file is not valid UTF-8 text").
			Component("ingest").
			Category(errors.CategoryMalformedData).
			Build()
	}

	reader := csv.NewReader(bytes.NewReader(raw))

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.Newf("uploaded file is empty").
				Component("ingest").
				Category(errors.CategoryFileParsing).
				Build()
		}
		return nil, errors.New(err).
			Component("ingest").
			Category(errors.CategoryFileParsing).
			Context("operation", "read-header").
			Build()
	}

	// The id and text columns may name the same header field, so both
	// indices are resolved independently.
	idIdx, textIdx := -1, -1
	for i, name := range header {
		if name == idColumn {
			idIdx = i
		}
		if name == textColumn {
			textIdx = i
		}
	}

	// Report the first missing field, naming the available columns.
	for _, check := range []struct {
		field string
		idx   int
	}{
		{idColumn, idIdx},
		{textColumn, textIdx},
	} {
		if check.idx < 0 {
			return nil, errors.Newf("field `%s` not found in provided CSV, must be one of %v",
				check.field, header).
				Component("ingest").
				Category(errors.CategoryValidation).
				Context("field", check.field).
				Build()
		}
	}

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.New(err).
				Component("ingest").
				Category(errors.CategoryFileParsing).
				Context("operation", "read-row").
				Build()
		}

		records = append(records, Record{
			OriginalID: row[idIdx],
			Text:       row[textIdx],
		})
	}

	return records, nil
}
