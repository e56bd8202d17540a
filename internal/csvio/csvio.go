// Package csvio adapts buyer records to and from CSV text.
//
// Import is bounded: files with more than MaxImportRows data rows are
// rejected wholesale before any row is validated. Within the bound, rows
// are validated independently and failures are collected per row, so a
// partially valid file still yields its good rows. Export always writes
// the header and uses a fixed column order so that an exported file can
// be re-imported unchanged.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/propstack/leadbook/internal/buyer"
)

// MaxImportRows is the largest number of data rows a single import may
// carry. Larger files are rejected outright with no partial processing.
const MaxImportRows = 200

// Columns is the fixed export column order. Import matches headers
// case-insensitively against these names.
var Columns = []string{
	"fullName", "email", "phone", "city", "propertyType", "bhk",
	"purpose", "budgetMin", "budgetMax", "timeline", "source",
	"notes", "tags", "status",
}

// RowError describes one rejected row. Row numbers are 1-indexed over
// the data rows (the header is row 0 territory and never reported).
type RowError struct {
	Row     int               `json:"row"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

// ImportRow is one validated data row paired with its 1-indexed
// position in the file, so downstream failures can still name the row.
type ImportRow struct {
	Num   int
	Buyer buyer.Buyer
}

// ImportResult is the outcome of parsing an import file. Success is true
// only when every row validated; Rows always carries the rows that did.
type ImportResult struct {
	Success bool        `json:"success"`
	Rows    []ImportRow `json:"-"`
	Errors  []RowError  `json:"errors"`
}

// Import parses CSV text with a header row into validated buyer records.
func Import(r io.Reader) ImportResult {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return ImportResult{Errors: []RowError{{Row: 0, Message: "Invalid CSV format"}}}
	}
	if len(records) == 0 {
		return ImportResult{Errors: []RowError{{Row: 0, Message: "Invalid CSV format"}}}
	}

	header := headerIndex(records[0])
	rows := records[1:]
	if len(rows) > MaxImportRows {
		return ImportResult{Errors: []RowError{{Row: 0, Message: fmt.Sprintf("Maximum %d rows allowed", MaxImportRows)}}}
	}

	result := ImportResult{}
	for i, row := range rows {
		rec := recordMap(header, row)
		b, err := buyer.ParseCSVRow(rec)
		if err != nil {
			result.Errors = append(result.Errors, RowError{
				Row:     i + 1,
				Message: firstMessage(err),
				Data:    rec,
			})
			continue
		}
		result.Rows = append(result.Rows, ImportRow{Num: i + 1, Buyer: b})
	}

	result.Success = len(result.Errors) == 0
	return result
}

// Export serializes buyers to CSV with the fixed column order. Absent
// scalar fields render as empty strings; tags are joined with ", ".
func Export(w io.Writer, buyers []buyer.Buyer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, b := range buyers {
		if err := cw.Write(exportRow(b)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportRow(b buyer.Buyer) []string {
	return []string{
		b.FullName,
		b.Email,
		b.Phone,
		string(b.City),
		string(b.PropertyType),
		string(b.BHK),
		string(b.Purpose),
		intText(b.BudgetMin),
		intText(b.BudgetMax),
		string(b.Timeline),
		string(b.Source),
		b.Notes,
		strings.Join(b.Tags, ", "),
		string(b.Status),
	}
}

func intText(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

// headerIndex maps lowercased header names to their column position.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

// recordMap projects one raw row onto the known column names. Unknown
// columns are ignored; missing columns read as empty strings.
func recordMap(header map[string]int, row []string) map[string]string {
	rec := make(map[string]string, len(Columns))
	for _, col := range Columns {
		pos, ok := header[strings.ToLower(col)]
		if !ok || pos >= len(row) {
			continue
		}
		rec[col] = strings.TrimSpace(row[pos])
	}
	return rec
}

// firstMessage extracts the first field violation for the row-level
// error summary, mirroring what callers need to correct and resubmit.
func firstMessage(err error) string {
	var verrs buyer.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Error()
	}
	return err.Error()
}
