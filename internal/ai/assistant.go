// Package ai defines the contract shared by the structured field extractors.
package ai

import (
	"context"

	"github.com/spigell/cv-parser/internal/extract"
)

// StructuredExtractor turns résumé text into raw fields. The regex extractor
// and the Gemini extractor both satisfy it.
type StructuredExtractor interface {
	Name() string
	Extract(ctx context.Context, text string) (extract.Fields, error)
}

// Fallback selects what an LLM backed extractor returns when the call fails.
type Fallback string

const (
	// FallbackEmpty keeps the failed document as an empty record.
	FallbackEmpty Fallback = "empty"
	// FallbackRegex re-runs extraction with the regex extractor.
	FallbackRegex Fallback = "regex"
)
