// Package errors defines the structured error taxonomy for the order audit
// pipeline. Only ingestion can fail a run: a SchemaError when required
// columns are missing, or a ParseError when the raw text cannot be
// tokenized. Field-level problems (non-finite numerics, absent dates,
// malformed emails, disallowed countries, whitespace pollution, arithmetic
// mismatches) are never errors — the rule engine converts them into reasons
// and score contributions, and every downstream stage is a total function.
package errors

import (
	"fmt"
	"strings"
)

// SchemaError reports that the input header is missing required columns.
// It is fatal to the run: no partial output is produced.
type SchemaError struct {
	Missing []string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// ParseError reports that the raw delimited text could not be tokenized
// (unbalanced quoting, inconsistent column counts). Only the first
// diagnostic is surfaced; the run aborts without partial recovery.
type ParseError struct {
	Line    int
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error on line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Wrap annotates err with the component and operation it originated from.
func Wrap(err error, component, operation string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %w", component, operation, err)
}
