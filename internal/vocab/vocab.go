// Package vocab holds the fixed recognition vocabulary used by the field
// extractor: degree patterns, institution hints, skill and tool literals, role
// titles, internship markers and month names.
//
// A Library is built once and never modified afterwards, so a single instance
// can be shared by any number of concurrent extractions.
package vocab

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Category is the semantic class a vocabulary entry belongs to.
type Category string

const (
	Degree           Category = "DEGREE"
	InstitutionHint  Category = "INSTITUTION_HINT"
	Skill            Category = "SKILL"
	Tool             Category = "TOOL"
	SoftSkill        Category = "SOFT_SKILL"
	RoleTitle        Category = "ROLE_TITLE"
	InternshipMarker Category = "INTERNSHIP_MARKER"
	MonthName        Category = "MONTH_NAME"
)

// Config is the declarative form of a Library. Degrees are regular
// expressions, every other entry is a case-insensitive literal.
type Config struct {
	Degrees           []string `mapstructure:"degrees" json:"degrees,omitempty"`
	DegreeKeywords    []string `mapstructure:"degree-keywords" json:"degree_keywords,omitempty"`
	InstitutionHints  []string `mapstructure:"institution-hints" json:"institution_hints,omitempty"`
	Skills            []string `mapstructure:"skills" json:"skills,omitempty"`
	Tools             []string `mapstructure:"tools" json:"tools,omitempty"`
	SoftSkills        []string `mapstructure:"soft-skills" json:"soft_skills,omitempty"`
	RoleTitles        []string `mapstructure:"role-titles" json:"role_titles,omitempty"`
	RoleKeywords      []string `mapstructure:"role-keywords" json:"role_keywords,omitempty"`
	InternshipMarkers []string `mapstructure:"internship-markers" json:"internship_markers,omitempty"`
}

// Merge returns a copy of c extended with the entries of extra. Duplicates
// (compared case-insensitively) are dropped.
func (c Config) Merge(extra Config) Config {
	return Config{
		Degrees:           union(c.Degrees, extra.Degrees),
		DegreeKeywords:    union(c.DegreeKeywords, extra.DegreeKeywords),
		InstitutionHints:  union(c.InstitutionHints, extra.InstitutionHints),
		Skills:            union(c.Skills, extra.Skills),
		Tools:             union(c.Tools, extra.Tools),
		SoftSkills:        union(c.SoftSkills, extra.SoftSkills),
		RoleTitles:        union(c.RoleTitles, extra.RoleTitles),
		RoleKeywords:      union(c.RoleKeywords, extra.RoleKeywords),
		InternshipMarkers: union(c.InternshipMarkers, extra.InternshipMarkers),
	}
}

// TermMatcher finds every occurrence of one skill, tool or soft-skill literal
// in free text, bounded so that "java" never matches inside "javascript".
type TermMatcher struct {
	Term     string
	Category Category
	re       *regexp.Regexp
}

// FindAll returns the matched surface forms in document order.
func (m TermMatcher) FindAll(text string) []string {
	var found []string
	for _, sub := range m.re.FindAllStringSubmatch(text, -1) {
		found = append(found, sub[1])
	}
	return found
}

// Library is the compiled, read-only form of a Config.
type Library struct {
	cfg Config

	degrees      []*regexp.Regexp
	degreeClause *regexp.Regexp
	hints        []string
	terms        map[string]Category
	matchers     []TermMatcher
	roleTitle    *regexp.Regexp
	roleKeyword  *regexp.Regexp
	internship   *regexp.Regexp
	dateRange    *regexp.Regexp
}

// New compiles cfg into a Library.
func New(cfg Config) (*Library, error) {
	lib := &Library{
		cfg:   cfg,
		terms: make(map[string]Category),
	}

	for _, pattern := range cfg.Degrees {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile degree pattern %q: %w", pattern, err)
		}
		lib.degrees = append(lib.degrees, re)
	}

	if alt := alternation(cfg.DegreeKeywords); alt != "" {
		lib.degreeClause = regexp.MustCompile(`(?i)\b(?:` + alt + `)(?:'s|s)?\b[^,;\n]*`)
	}

	for _, hint := range cfg.InstitutionHints {
		if hint = strings.ToLower(strings.TrimSpace(hint)); hint != "" {
			lib.hints = append(lib.hints, hint)
		}
	}

	// Earlier categories win when a literal is listed twice.
	for _, group := range []struct {
		category Category
		terms    []string
	}{
		{Skill, cfg.Skills},
		{Tool, cfg.Tools},
		{SoftSkill, cfg.SoftSkills},
	} {
		for _, term := range group.terms {
			key := normalizeTerm(term)
			if key == "" {
				continue
			}
			if _, exists := lib.terms[key]; exists {
				continue
			}
			lib.terms[key] = group.category
			if utf8.RuneCountInString(key) < 2 {
				continue
			}
			lib.matchers = append(lib.matchers, TermMatcher{
				Term:     key,
				Category: group.category,
				re:       termRegexp(key),
			})
		}
	}

	if alt := alternation(cfg.RoleTitles); alt != "" {
		lib.roleTitle = regexp.MustCompile(`(?i)\b(?:` + alt + `)\b`)
	}

	roleKeywords := slices.Concat(cfg.RoleKeywords, cfg.RoleTitles, cfg.InternshipMarkers)
	if alt := alternation(roleKeywords); alt != "" {
		lib.roleKeyword = regexp.MustCompile(`(?i)\b(?:` + alt + `)s?\b`)
	}

	if alt := alternation(cfg.InternshipMarkers); alt != "" {
		lib.internship = regexp.MustCompile(`(?i)\b(?:` + alt + `)s?\b`)
	}

	lib.dateRange = dateRangeRegexp()

	return lib, nil
}

// MustNew is like New but panics when a pattern does not compile.
func MustNew(cfg Config) *Library {
	lib, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return lib
}

var defaultLibrary = sync.OnceValue(func() *Library {
	return MustNew(DefaultConfig())
})

// Default returns the shared built-in Library.
func Default() *Library {
	return defaultLibrary()
}

// Config returns a copy of the configuration the library was built from.
func (l *Library) Config() Config {
	return l.cfg.Merge(Config{})
}

// DegreePatterns returns the compiled degree abbreviations.
func (l *Library) DegreePatterns() []*regexp.Regexp {
	return slices.Clone(l.degrees)
}

// DegreeClause matches a degree keyword followed by the rest of its clause.
// It is nil when no keywords are configured.
func (l *Library) DegreeClause() *regexp.Regexp {
	return l.degreeClause
}

// IsInstitutionLine reports whether line contains an institution hint.
func (l *Library) IsInstitutionLine(line string) bool {
	lower := strings.ToLower(line)
	for _, hint := range l.hints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// Lookup reports the category of a skill, tool or soft-skill token.
func (l *Library) Lookup(token string) (Category, bool) {
	c, ok := l.terms[normalizeTerm(token)]
	return c, ok
}

// TermMatchers returns the whole-text matchers for every literal of at
// least two characters.
func (l *Library) TermMatchers() []TermMatcher {
	return slices.Clone(l.matchers)
}

// RoleTitlePattern matches any configured role title. It is nil when no
// titles are configured.
func (l *Library) RoleTitlePattern() *regexp.Regexp {
	return l.roleTitle
}

// HasRoleKeyword reports whether line mentions a role or position as a
// whole word, so "Engineering" or "International" do not count.
func (l *Library) HasRoleKeyword(line string) bool {
	return l.roleKeyword != nil && l.roleKeyword.MatchString(line)
}

// IsInternshipLine reports whether line mentions an internship.
func (l *Library) IsInternshipLine(line string) bool {
	return l.internship != nil && l.internship.MatchString(line)
}

// DateRange matches "<date> <dash|to> <date|present|current>". The first
// submatch is the start token, the second the end token.
func (l *Library) DateRange() *regexp.Regexp {
	return l.dateRange
}

// MonthOf resolves a month name or abbreviation, case-insensitively. A
// trailing period or comma is ignored.
func MonthOf(name string) (time.Month, bool) {
	m, ok := monthNames[strings.ToLower(strings.Trim(name, " .,"))]
	return m, ok
}

func dateRangeRegexp() *regexp.Regexp {
	months := make([]string, 0, len(monthNames))
	for name := range monthNames {
		months = append(months, name)
	}
	year := `(?:19|20)\d{2}\b`
	token := `\b(?:` + alternation(months) + `)\.?,?\s+` + year + `|\b` + year
	ongoing := `\b(?:present|current|now)\b`
	return regexp.MustCompile(`(?i)(` + token + `)\s*(?:-|–|—|\bto\b)\s*(` + token + `|` + ongoing + `)`)
}

func normalizeTerm(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}

func termRegexp(term string) *regexp.Regexp {
	quoted := strings.ReplaceAll(regexp.QuoteMeta(term), " ", `[ \t]+`)
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}+#])(` + quoted + `)(?:[^\p{L}\p{N}+#]|$)`)
}

// alternation joins literals into a regexp alternation, longest first so that
// "software engineer" is preferred over "engineer".
func alternation(literals []string) string {
	seen := make(map[string]struct{}, len(literals))
	quoted := make([]string, 0, len(literals))
	for _, lit := range literals {
		lit = normalizeTerm(lit)
		if lit == "" {
			continue
		}
		if _, ok := seen[lit]; ok {
			continue
		}
		seen[lit] = struct{}{}
		quoted = append(quoted, strings.ReplaceAll(regexp.QuoteMeta(lit), " ", `[ \t]+`))
	}
	sort.SliceStable(quoted, func(i, j int) bool {
		if len(quoted[i]) != len(quoted[j]) {
			return len(quoted[i]) > len(quoted[j])
		}
		return quoted[i] < quoted[j]
	})
	return strings.Join(quoted, "|")
}

func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			key := strings.ToLower(strings.TrimSpace(v))
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
