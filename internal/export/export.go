// Package export writes candidate records as JSON, CSV or an XLSX workbook.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/cv-parser/internal/record"
)

// Format is an output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet holding the records in XLSX output.
const SheetName = "Candidates"

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json, csv or xlsx)", s)
	}
}

// Binary reports whether the format must not be written to a terminal.
func (f Format) Binary() bool {
	return f == FormatXLSX
}

// Write dispatches to the writer of format.
func Write(w io.Writer, format Format, records []record.CandidateRecord) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, records)
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatXLSX:
		return WriteXLSX(w, records)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteJSON writes the records as an indented JSON array. A nil slice is
// written as an empty array.
func WriteJSON(w io.Writer, records []record.CandidateRecord) error {
	if records == nil {
		records = []record.CandidateRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteCSV writes a header row of display headers followed by one flattened
// row per record.
func WriteCSV(w io.Writer, records []record.CandidateRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(record.Headers()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(rec.Flatten()); err != nil {
			return fmt.Errorf("write csv row %d: %w", rec.CandidateID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

var columnWidths = map[string]float64{
	"candidate_id":         14,
	"file_name":            28,
	"institutions":         40,
	"degrees":              30,
	"skills":               40,
	"tools":                36,
	"internships":          48,
	"current_role":         36,
	"total_experience":     14,
	"experience_years":     12,
	"experience_months":    12,
	"raw_experience_lines": 60,
}

// WriteXLSX writes a workbook with a single Candidates sheet. Numeric
// columns are stored as numbers, everything else as flattened text.
func WriteXLSX(w io.Writer, records []record.CandidateRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range record.Headers() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("write header %q: %w", h, err)
		}
	}

	for r, rec := range records {
		row := r + 2
		flat := rec.Flatten()
		for i, col := range record.Columns {
			var v any = flat[i]
			switch col.Key {
			case "candidate_id":
				v = rec.CandidateID
			case "total_experience":
				v = rec.TotalExperience
			case "experience_years":
				v = rec.ExperienceYears
			case "experience_months":
				v = rec.ExperienceMonths
			}
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	for i, col := range record.Columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if width, ok := columnWidths[col.Key]; ok {
			_ = f.SetColWidth(SheetName, name, name, width)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
