// src/parsers/csv.go
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xdubnickas/trading212-tracker/src/logger"
)

// Row is one data row of a history export, keyed by column header.
type Row = map[string]string

// arityTolerance is how far a data row's field count may deviate from the
// header before the row is dropped. Some exports are missing a trailing
// field or two; those rows are padded with empty strings instead of lost.
const arityTolerance = 2

// ParseError indicates input that could not be interpreted as CSV at all.
// Individual malformed rows never produce a ParseError; they are skipped
// and counted in Result.SkippedRows.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("csv parse error: %s", e.Reason)
}

// Result holds the parsed rows plus diagnostics about dropped input.
type Result struct {
	Header      []string
	Rows        []Row
	SkippedRows int
}

// Parse reads CSV text into ordered rows keyed by the header line.
// The first non-blank line is the header; blank lines are ignored. Quoted
// fields may contain commas, and a doubled quote inside a quoted field is a
// literal quote. Rows whose field count deviates from the header by at most
// arityTolerance are accepted (missing trailing fields become empty
// strings); rows further off are skipped and counted. Empty and header-only
// input yields an empty result, not an error.
func Parse(text string) (*Result, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1 // Allow variable number of fields per record
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return &Result{}, nil
	}
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("unreadable header line: %v", err)}
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	result := &Result{Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed single row; skip it and keep going.
			result.SkippedRows++
			continue
		}
		if isBlankRecord(record) {
			continue
		}
		diff := len(record) - len(header)
		if diff > arityTolerance || diff < -arityTolerance {
			logger.L.Debug("Skipping CSV row with mismatched field count",
				"expected", len(header), "got", len(record))
			result.SkippedRows++
			continue
		}
		row := make(Row, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			} else {
				row[name] = "" // Missing trailing field
			}
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

// Serialize writes rows back out as CSV in the given column order, quoting
// values that need it. Columns absent from a row serialize as empty.
func Serialize(header []string, rows []Row) string {
	var sb strings.Builder
	writer := csv.NewWriter(&sb)
	writer.Write(header)
	record := make([]string, len(header))
	for _, row := range rows {
		for i, name := range header {
			record[i] = row[name]
		}
		writer.Write(record)
	}
	writer.Flush()
	return sb.String()
}

// isBlankRecord reports whether every field of a record is empty. The csv
// reader already drops truly empty lines; this catches lines of separators
// only (",,,").
func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
