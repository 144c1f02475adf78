// Package record assembles extracted fields into the canonical candidate
// record and flattens it for tabular export.
package record

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spigell/cv-parser/internal/duration"
	"github.com/spigell/cv-parser/internal/extract"
)

const (
	// AdHocID is the identifier given to a document processed on its own.
	AdHocID = 9999
	// DefaultBaseID is the first identifier of a batch run.
	DefaultBaseID = 1001
	// Placeholder stands in for empty values in flattened output.
	Placeholder = "-"

	listSeparator = "; "
)

// CandidateRecord is the structured result of one résumé.
type CandidateRecord struct {
	CandidateID        int      `json:"candidate_id"`
	FileName           string   `json:"file_name"`
	Institutions       []string `json:"institutions"`
	Degrees            []string `json:"degrees"`
	Skills             []string `json:"skills"`
	Tools              []string `json:"tools"`
	Internships        []string `json:"internships"`
	CurrentRole        *string  `json:"current_role"`
	TotalExperience    float64  `json:"total_experience"`
	ExperienceYears    int      `json:"experience_years"`
	ExperienceMonths   int      `json:"experience_months"`
	RawExperienceLines []string `json:"raw_experience_lines"`
}

// BatchID returns the identifier of the index-th document of a batch.
func BatchID(base, index int) int {
	return base + index
}

// Assemble builds a record from extracted fields. Set-like fields are sorted
// so that identical input always yields an identical record; internships and
// experience lines keep document order.
func Assemble(id int, fileName string, fields extract.Fields, asOf time.Time) CandidateRecord {
	total := duration.Accumulate(fields.Spans, asOf)
	years, months := total.YearsMonths()

	rec := CandidateRecord{
		CandidateID:        id,
		FileName:           fileName,
		Institutions:       sortedOrNil(fields.Institutions),
		Degrees:            sortedOrNil(fields.Degrees),
		Skills:             sortedOrNil(fields.Skills),
		Tools:              sortedOrNil(fields.Tools),
		Internships:        cloneOrNil(fields.Internships),
		TotalExperience:    total.Years(),
		ExperienceYears:    years,
		ExperienceMonths:   months,
		RawExperienceLines: cloneOrNil(fields.ExperienceLines),
	}

	if role := strings.TrimSpace(fields.CurrentRole); role != "" {
		rec.CurrentRole = &role
	}

	return rec
}

// Role returns the current role or an empty string.
func (r CandidateRecord) Role() string {
	if r.CurrentRole == nil {
		return ""
	}
	return *r.CurrentRole
}

// Label is a short human readable summary used by selectors and logs.
func (r CandidateRecord) Label() string {
	role := r.Role()
	if role == "" {
		role = Placeholder
	}
	name := r.FileName
	if name == "" {
		name = Placeholder
	}
	return fmt.Sprintf("%d / %s / %s / %.2fy", r.CandidateID, name, role, r.TotalExperience)
}

// JSON returns the indented structured form.
func (r CandidateRecord) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Column describes one flattened field.
type Column struct {
	Key    string
	Header string
}

// Columns is the fixed external column order for tabular output and sinks.
var Columns = []Column{
	{Key: "candidate_id", Header: "Candidate ID"},
	{Key: "file_name", Header: "File Name"},
	{Key: "institutions", Header: "University / Educational Institution"},
	{Key: "degrees", Header: "Qualifications / Degrees"},
	{Key: "skills", Header: "Skills"},
	{Key: "tools", Header: "Tools & Technologies"},
	{Key: "internships", Header: "Internships"},
	{Key: "current_role", Header: "Current Role"},
	{Key: "total_experience", Header: "Previous Experience (years)"},
	{Key: "experience_years", Header: "Experience Years"},
	{Key: "experience_months", Header: "Experience Months"},
	{Key: "raw_experience_lines", Header: "Experience Lines"},
}

// Headers returns the display headers of Columns.
func Headers() []string {
	headers := make([]string, 0, len(Columns))
	for _, c := range Columns {
		headers = append(headers, c.Header)
	}
	return headers
}

// Keys returns the machine keys of Columns.
func Keys() []string {
	keys := make([]string, 0, len(Columns))
	for _, c := range Columns {
		keys = append(keys, c.Key)
	}
	return keys
}

// Flatten renders the record as one row ordered like Columns. Empty lists and
// an empty role become Placeholder, numbers are never empty.
func (r CandidateRecord) Flatten() []string {
	return []string{
		fmt.Sprintf("%d", r.CandidateID),
		orPlaceholder(r.FileName),
		joinOrPlaceholder(r.Institutions),
		joinOrPlaceholder(r.Degrees),
		joinOrPlaceholder(r.Skills),
		joinOrPlaceholder(r.Tools),
		joinOrPlaceholder(trimAll(r.Internships)),
		orPlaceholder(r.Role()),
		fmt.Sprintf("%.2f", r.TotalExperience),
		fmt.Sprintf("%d", r.ExperienceYears),
		fmt.Sprintf("%d", r.ExperienceMonths),
		joinOrPlaceholder(r.RawExperienceLines),
	}
}

// Map returns the flattened record keyed by column key.
func (r CandidateRecord) Map() map[string]string {
	row := r.Flatten()
	out := make(map[string]string, len(Columns))
	for i, c := range Columns {
		out[c.Key] = row[i]
	}
	return out
}

func sortedOrNil(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := slices.Clone(items)
	slices.Sort(out)
	return slices.Compact(out)
}

func cloneOrNil(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	return slices.Clone(items)
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

func joinOrPlaceholder(items []string) string {
	if len(items) == 0 {
		return Placeholder
	}
	return strings.Join(items, listSeparator)
}
