package extract

import (
	"fmt"
	"strings"
)

// InstitutionStrategy selects how institution mentions are found.
type InstitutionStrategy string

const (
	// InstitutionsByLine captures every line containing an institution hint.
	InstitutionsByLine InstitutionStrategy = "line"
	// InstitutionsByPattern captures "University of X" and "X University|Institute" shapes.
	InstitutionsByPattern InstitutionStrategy = "pattern"
	// InstitutionsBoth unions both strategies.
	InstitutionsBoth InstitutionStrategy = "both"
)

// TermStrategy selects how skills and tools are found.
type TermStrategy string

const (
	// TermsByToken tests every comma, newline, semicolon or slash separated token.
	TermsByToken TermStrategy = "tokens"
	// TermsByText scans the whole text for every known literal.
	TermsByText TermStrategy = "text"
	// TermsBoth unions both strategies.
	TermsBoth TermStrategy = "both"
)

// RoleStrategy selects how the current role is populated.
type RoleStrategy string

const (
	// RoleByShape looks for "<title> at <employer> ... present" and falls back
	// to a known title on a line mentioning present or current.
	RoleByShape RoleStrategy = "shape"
	// RoleByTitles lists every known title found in the text.
	RoleByTitles RoleStrategy = "titles"
)

// Options configures the per-field strategies. Zero values select defaults.
type Options struct {
	Institutions InstitutionStrategy `mapstructure:"institutions"`
	Terms        TermStrategy        `mapstructure:"terms"`
	Role         RoleStrategy        `mapstructure:"role"`
}

// WithDefaults fills empty strategies.
func (o Options) WithDefaults() Options {
	o.Institutions = InstitutionStrategy(strings.ToLower(strings.TrimSpace(string(o.Institutions))))
	o.Terms = TermStrategy(strings.ToLower(strings.TrimSpace(string(o.Terms))))
	o.Role = RoleStrategy(strings.ToLower(strings.TrimSpace(string(o.Role))))

	if o.Institutions == "" {
		o.Institutions = InstitutionsByLine
	}
	if o.Terms == "" {
		o.Terms = TermsBoth
	}
	if o.Role == "" {
		o.Role = RoleByShape
	}
	return o
}

// Validate reports unknown strategy names.
func (o Options) Validate() error {
	o = o.WithDefaults()

	switch o.Institutions {
	case InstitutionsByLine, InstitutionsByPattern, InstitutionsBoth:
	default:
		return fmt.Errorf("unknown institution strategy %q", o.Institutions)
	}

	switch o.Terms {
	case TermsByToken, TermsByText, TermsBoth:
	default:
		return fmt.Errorf("unknown term strategy %q", o.Terms)
	}

	switch o.Role {
	case RoleByShape, RoleByTitles:
	default:
		return fmt.Errorf("unknown role strategy %q", o.Role)
	}

	return nil
}
