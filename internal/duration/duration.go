// Package duration resolves résumé date tokens into calendar points and
// accumulates experience spans into a total duration.
//
// Every function here is total: a token that matches no known format is
// reported as unresolved and never produces an error or a panic.
package duration

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/cv-parser/internal/vocab"
)

var (
	reYearOnly  = regexp.MustCompile(`^(\d{4})$`)
	reMonthYear = regexp.MustCompile(`^([a-z]+)\.?,?\s+(\d{4})$`)
)

// Point is a calendar month.
type Point struct {
	Year  int
	Month time.Month
}

// At returns the calendar month containing t.
func At(t time.Time) Point {
	return Point{Year: t.Year(), Month: t.Month()}
}

// ParseDate resolves a MonthYear ("Jan 2020", "September, 2019"), YearOnly
// ("2020", resolved to January) or ongoing ("present", "current", "now",
// resolved to asOf) token. The second result is false when the token is
// unresolved.
func ParseDate(token string, asOf time.Time) (Point, bool) {
	tok := strings.ToLower(strings.Join(strings.Fields(token), " "))

	switch tok {
	case "present", "current", "now":
		return At(asOf), true
	}

	if m := reYearOnly.FindStringSubmatch(tok); m != nil {
		year, _ := strconv.Atoi(m[1])
		return Point{Year: year, Month: time.January}, true
	}

	if m := reMonthYear.FindStringSubmatch(tok); m != nil {
		month, ok := vocab.MonthOf(m[1])
		if !ok {
			return Point{}, false
		}
		year, _ := strconv.Atoi(m[2])
		return Point{Year: year, Month: month}, true
	}

	return Point{}, false
}

// SpanMonths is the signed whole-month difference between two points.
func SpanMonths(start, end Point) int {
	return (end.Year-start.Year)*12 + int(end.Month-start.Month)
}

// Span is a pair of raw date tokens found in the same context.
type Span struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Resolve parses both endpoints. ok is false when either is unresolved.
func (s Span) Resolve(asOf time.Time) (start, end Point, ok bool) {
	start, okStart := ParseDate(s.Start, asOf)
	end, okEnd := ParseDate(s.End, asOf)
	return start, end, okStart && okEnd
}

// Total is an accumulated experience duration.
type Total struct {
	Months int
}

// Years is the total in fractional years rounded to two decimals.
func (t Total) Years() float64 {
	return math.Round(float64(t.Months)/12*100) / 100
}

// YearsMonths splits the total into whole years and remaining months.
func (t Total) YearsMonths() (years, months int) {
	return t.Months / 12, t.Months % 12
}

// Accumulate sums the months of every resolvable span. Spans with an
// unresolved endpoint are skipped and spans ending before they start count as
// zero.
func Accumulate(spans []Span, asOf time.Time) Total {
	var total Total
	for _, span := range spans {
		start, end, ok := span.Resolve(asOf)
		if !ok {
			continue
		}
		if months := SpanMonths(start, end); months > 0 {
			total.Months += months
		}
	}
	return total
}

// FindRanges returns every date range in text, in order of appearance.
func FindRanges(text string, lib *vocab.Library) []Span {
	re := lib.DateRange()
	if re == nil {
		return nil
	}

	var spans []Span
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		spans = append(spans, Span{
			Start: strings.TrimSpace(m[1]),
			End:   strings.TrimSpace(m[2]),
		})
	}
	return spans
}
