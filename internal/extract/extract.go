// Package extract turns résumé plain text into categorized raw field matches
// using the recognition vocabulary from package vocab.
package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/spigell/cv-parser/internal/duration"
	"github.com/spigell/cv-parser/internal/vocab"
)

var (
	reHSpace     = regexp.MustCompile(`[ \t]+`)
	reTokenSplit = regexp.MustCompile(`[,\n;/]+`)
	reLabel      = regexp.MustCompile(`^[\p{L} &]{1,30}:\s*`)

	reUniversityOf     = regexp.MustCompile(`(?i)\bUniversity of(?:[ \t]+[\p{L}&'.-]+)+`)
	reNamedInstitution = regexp.MustCompile(`(?:\p{Lu}[\p{L}&'.-]*[ \t]+)+(?:University|Institute)\b[^\n]*`)

	reRoleShape = regexp.MustCompile(`(?i)([A-Za-z ]{2,40})[ \t]+(?:at|@)[ \t]+([A-Za-z ]{2,60}).*?\b(?:present|current)\b`)
	reOngoing   = regexp.MustCompile(`(?i)\b(?:present|current)\b`)
)

// Fields holds the raw matches found in one document.
type Fields struct {
	Institutions    []string
	Degrees         []string
	Skills          []string
	Tools           []string
	Internships     []string
	CurrentRole     string
	ExperienceLines []string
	Spans           []duration.Span
}

// IsEmpty reports whether nothing was found.
func (f Fields) IsEmpty() bool {
	return len(f.Institutions) == 0 && len(f.Degrees) == 0 && len(f.Skills) == 0 &&
		len(f.Tools) == 0 && len(f.Internships) == 0 && f.CurrentRole == "" &&
		len(f.ExperienceLines) == 0 && len(f.Spans) == 0
}

// Extractor is the keyword and regex based field extractor. It holds no
// mutable state and may be shared between goroutines.
type Extractor struct {
	lib  *vocab.Library
	opts Options
}

// New creates an Extractor. A nil library selects vocab.Default.
func New(lib *vocab.Library, opts Options) *Extractor {
	if lib == nil {
		lib = vocab.Default()
	}
	return &Extractor{lib: lib, opts: opts.WithDefaults()}
}

// Name identifies the extractor in logs.
func (e *Extractor) Name() string { return "regex" }

// Extract implements ai.StructuredExtractor. It never fails.
func (e *Extractor) Extract(_ context.Context, text string) (Fields, error) {
	return e.Fields(text), nil
}

// Fields runs every field extractor over text.
func (e *Extractor) Fields(text string) Fields {
	lines := splitLines(text)

	skills, tools := e.terms(text)
	expLines, spans := e.experience(lines)

	return Fields{
		Institutions:    e.institutions(text, lines),
		Degrees:         e.degrees(text),
		Skills:          skills,
		Tools:           tools,
		Internships:     e.internships(lines),
		CurrentRole:     e.currentRole(text, lines),
		ExperienceLines: expLines,
		Spans:           spans,
	}
}

func (e *Extractor) institutions(text string, lines []string) []string {
	found := newSet()

	if e.opts.Institutions != InstitutionsByPattern {
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" || !e.lib.IsInstitutionLine(line) {
				continue
			}
			found.add(normalizeSpaces(line))
		}
	}

	if e.opts.Institutions != InstitutionsByLine {
		for _, re := range []*regexp.Regexp{reUniversityOf, reNamedInstitution} {
			for _, m := range re.FindAllString(text, -1) {
				if m = normalizeSpaces(strings.TrimSpace(m)); m != "" {
					found.add(m)
				}
			}
		}
	}

	return found.items
}

func (e *Extractor) degrees(text string) []string {
	found := newSet()

	for _, re := range e.lib.DegreePatterns() {
		for _, m := range re.FindAllString(text, -1) {
			found.add(m)
		}
	}

	if clause := e.lib.DegreeClause(); clause != nil {
		for _, m := range clause.FindAllString(text, -1) {
			if m = normalizeSpaces(strings.TrimSpace(m)); m != "" {
				found.add(m)
			}
		}
	}

	return found.items
}

func (e *Extractor) terms(text string) (skills, tools []string) {
	skillSet, toolSet := newSet(), newSet()

	assign := func(surface string, c vocab.Category) {
		switch c {
		case vocab.Tool:
			toolSet.add(surface)
		case vocab.Skill, vocab.SoftSkill:
			skillSet.add(surface)
		}
	}

	if e.opts.Terms != TermsByText {
		for _, token := range reTokenSplit.Split(text, -1) {
			token = cleanToken(token)
			if token == "" {
				continue
			}
			if c, ok := e.lib.Lookup(token); ok {
				assign(token, c)
			}
		}
	}

	if e.opts.Terms != TermsByToken {
		for _, m := range e.lib.TermMatchers() {
			for _, surface := range m.FindAll(text) {
				assign(normalizeSpaces(surface), m.Category)
			}
		}
	}

	return skillSet.items, toolSet.items
}

func (e *Extractor) internships(lines []string) []string {
	var found []string
	for _, line := range lines {
		if e.lib.IsInternshipLine(line) {
			found = append(found, line)
		}
	}
	return found
}

func (e *Extractor) currentRole(text string, lines []string) string {
	titles := e.lib.RoleTitlePattern()

	if e.opts.Role == RoleByTitles {
		if titles == nil {
			return ""
		}
		found := newSet()
		for _, m := range titles.FindAllString(text, -1) {
			found.add(normalizeSpaces(m))
		}
		return strings.Join(found.items, ", ")
	}

	if m := reRoleShape.FindStringSubmatch(text); m != nil {
		title := strings.TrimSpace(m[1])
		employer := strings.TrimSpace(m[2])
		if title != "" && employer != "" {
			return normalizeSpaces(title + " at " + employer)
		}
	}

	if titles == nil {
		return ""
	}
	for _, line := range lines {
		if !reOngoing.MatchString(line) {
			continue
		}
		if m := titles.FindString(line); m != "" {
			return normalizeSpaces(m)
		}
	}
	return ""
}

func (e *Extractor) experience(lines []string) ([]string, []duration.Span) {
	var (
		found []string
		spans []duration.Span
	)
	for _, line := range lines {
		if !e.lib.HasRoleKeyword(line) {
			continue
		}
		ranges := duration.FindRanges(line, e.lib)
		if len(ranges) == 0 {
			continue
		}
		found = append(found, strings.TrimSpace(line))
		spans = append(spans, ranges...)
	}
	return found, spans
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}

func normalizeSpaces(s string) string {
	return reHSpace.ReplaceAllString(s, " ")
}

func cleanToken(token string) string {
	token = strings.TrimSpace(token)
	token = reLabel.ReplaceAllString(token, "")
	token = strings.TrimLeft(token, "-•*·▪ \t")
	token = strings.TrimRight(token, ". \t")
	return normalizeSpaces(token)
}

// set keeps first-seen order and compares surface forms case-sensitively.
type set struct {
	seen  map[string]struct{}
	items []string
}

func newSet() *set {
	return &set{seen: make(map[string]struct{})}
}

func (s *set) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
