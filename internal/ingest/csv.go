// Package ingest parses raw delimited text into untyped records and
// validates that the required column set is present. No anomaly logic lives
// here: this stage either yields the full record sequence or fails fast with
// a structured error.
package ingest

import (
	"encoding/csv"
	stderrors "errors"
	"io"
	"strings"

	"github.com/jlenoir/go-order-audit/internal/errors"
	"github.com/jlenoir/go-order-audit/internal/models"
)

// Parse reads delimited text with a header row and returns one RawRecord per
// data line. Header order does not matter and extra columns are carried
// through untouched. It returns a *errors.SchemaError when required columns
// are missing and a *errors.ParseError with the first tokenizer diagnostic
// when the text is malformed.
func Parse(r io.Reader) ([]models.RawRecord, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &errors.ParseError{Message: "empty input"}
	}
	if err != nil {
		return nil, toParseError(err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	}

	if missing := missingColumns(columns); len(missing) > 0 {
		return nil, &errors.SchemaError{Missing: missing}
	}

	var records []models.RawRecord
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, toParseError(err)
		}

		rec := make(models.RawRecord, len(columns))
		for i, name := range columns {
			rec[name] = fields[i]
		}
		records = append(records, rec)
	}

	return records, nil
}

// ParseString is a convenience wrapper over Parse for in-memory text.
func ParseString(text string) ([]models.RawRecord, error) {
	return Parse(strings.NewReader(text))
}

// missingColumns returns the required columns absent from the header, in
// required-column order.
func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}

	var missing []string
	for _, name := range models.RequiredColumns {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// toParseError converts an encoding/csv error into the pipeline taxonomy,
// preserving the offending line number when the tokenizer reports one.
func toParseError(err error) error {
	var csvErr *csv.ParseError
	if stderrors.As(err, &csvErr) {
		return &errors.ParseError{Line: csvErr.Line, Message: csvErr.Err.Error()}
	}
	return &errors.ParseError{Message: err.Error()}
}
