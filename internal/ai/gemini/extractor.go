package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/spigell/cv-parser/internal/ai"
	"github.com/spigell/cv-parser/internal/duration"
	"github.com/spigell/cv-parser/internal/extract"
	"github.com/spigell/cv-parser/internal/utils"
	"github.com/spigell/cv-parser/internal/vocab"
)

//go:embed prompt.md
var promptTemplate string

//go:embed schema.json
var responseSchema string

const (
	defaultMaxLogLength = 200
	defaultTimeout      = 60 * time.Second

	systemInstruction = "You extract structured data from résumés and answer with a single JSON object."
)

// ErrMalformedResponse wraps every response that is not a JSON object of the
// expected shape.
var ErrMalformedResponse = errors.New("malformed gemini response")

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

// Options configures the Gemini extractor.
type Options struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	Fallback     ai.Fallback   `mapstructure:"fallback"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

// Extractor is an ai.StructuredExtractor backed by a Gemini model.
type Extractor struct {
	generator contentGenerator
	lib       *vocab.Library
	schema    *jsonschema.Schema
	regex     *extract.Extractor
	opts      Options
	logger    *zap.Logger
}

// NewExtractor creates a Gemini extractor. lib splits "Skills & Tools" into
// skills and tools and backs the regex fallback; nil selects vocab.Default.
func NewExtractor(generator contentGenerator, lib *vocab.Library, extractOpts extract.Options, opts Options, logger *zap.Logger) (*Extractor, error) {
	if generator == nil {
		return nil, errors.New("gemini generator is required")
	}
	if lib == nil {
		lib = vocab.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch opts.Fallback {
	case "":
		opts.Fallback = ai.FallbackEmpty
	case ai.FallbackEmpty, ai.FallbackRegex:
	default:
		return nil, fmt.Errorf("unknown fallback %q", opts.Fallback)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}

	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}

	return &Extractor{
		generator: generator,
		lib:       lib,
		schema:    schema,
		regex:     extract.New(lib, extractOpts),
		opts:      opts,
		logger:    logger,
	}, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(responseSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// Name identifies the extractor in logs.
func (e *Extractor) Name() string { return Provider }

// Extract asks the model for the fixed key schema. On any failure the
// returned Fields follow the fallback policy and the error is reported
// alongside them.
func (e *Extractor) Extract(ctx context.Context, text string) (extract.Fields, error) {
	if strings.TrimSpace(text) == "" {
		return extract.Fields{}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	prompt := buildPrompt(text)

	e.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.opts.MaxLogLength)),
	)

	raw, err := e.generator.GenerateContent(callCtx, systemInstruction, prompt)
	if err != nil {
		return e.fallback(text, err), err
	}

	e.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.opts.MaxLogLength)),
	)

	fields, err := e.parseResponse(raw)
	if err != nil {
		return e.fallback(text, err), err
	}

	return fields, nil
}

func (e *Extractor) fallback(text string, cause error) extract.Fields {
	e.logger.Warn("gemini extraction failed",
		zap.String("fallback", string(e.opts.Fallback)),
		zap.Error(cause),
	)
	if e.opts.Fallback == ai.FallbackRegex {
		return e.regex.Fields(text)
	}
	return extract.Fields{}
}

func buildPrompt(text string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Résumé:\n{{CV_TEXT}}\n\nJSON Response:"
	}
	return strings.ReplaceAll(template, "{{CV_TEXT}}", strings.TrimSpace(text))
}

type experienceEntry struct {
	Role      string `mapstructure:"role"`
	Company   string `mapstructure:"company"`
	StartDate string `mapstructure:"start_date"`
	EndDate   string `mapstructure:"end_date"`
}

type response struct {
	University  []string          `mapstructure:"University"`
	Degrees     []string          `mapstructure:"Degree/Course"`
	Internships []string          `mapstructure:"Previous Internships"`
	CurrentRole string            `mapstructure:"Current Role"`
	SkillsTools []string          `mapstructure:"Skills & Tools"`
	History     []experienceEntry `mapstructure:"Experience History"`
}

func (e *Extractor) parseResponse(raw string) (extract.Fields, error) {
	cleaned := extractJSON(raw)

	var data any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return extract.Fields{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if err := e.schema.Validate(data); err != nil {
		return extract.Fields{}, fmt.Errorf("%w: json does not match schema: %w", ErrMalformedResponse, err)
	}

	var resp response
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &resp,
	})
	if err != nil {
		return extract.Fields{}, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return extract.Fields{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return e.toFields(resp), nil
}

func (e *Extractor) toFields(resp response) extract.Fields {
	fields := extract.Fields{
		Institutions: compact(resp.University),
		Degrees:      compact(resp.Degrees),
		Internships:  compact(resp.Internships),
		CurrentRole:  coerceString(resp.CurrentRole),
	}

	for _, term := range compact(resp.SkillsTools) {
		if c, ok := e.lib.Lookup(term); ok && c == vocab.Tool {
			fields.Tools = appendUnique(fields.Tools, term)
			continue
		}
		fields.Skills = appendUnique(fields.Skills, term)
	}

	for _, entry := range resp.History {
		if line := entry.line(); line != "" {
			fields.ExperienceLines = append(fields.ExperienceLines, line)
		}
		if span, ok := entry.span(); ok {
			fields.Spans = append(fields.Spans, span)
		}
	}

	return fields
}

// span treats a missing end date of a dated position as ongoing.
func (x experienceEntry) span() (duration.Span, bool) {
	start := coerceString(x.StartDate)
	if start == "" {
		return duration.Span{}, false
	}
	end := coerceString(x.EndDate)
	if end == "" {
		end = "present"
	}
	return duration.Span{Start: start, End: end}, true
}

func (x experienceEntry) line() string {
	role := coerceString(x.Role)
	company := coerceString(x.Company)

	var b strings.Builder
	switch {
	case role != "" && company != "":
		b.WriteString(role + " at " + company)
	case role != "":
		b.WriteString(role)
	case company != "":
		b.WriteString(company)
	default:
		return ""
	}

	start, end := coerceString(x.StartDate), coerceString(x.EndDate)
	switch {
	case start != "" && end != "":
		fmt.Fprintf(&b, " (%s – %s)", start, end)
	case start != "":
		fmt.Fprintf(&b, " (%s – present)", start)
	}
	return b.String()
}

// extractJSON strips markdown fences and any prose around the outermost
// JSON object.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") {
		return raw
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func coerceString(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "null", "none", "n/a":
		return ""
	}
	return s
}

func compact(items []string) []string {
	var out []string
	for _, item := range items {
		if item = coerceString(item); item != "" {
			out = appendUnique(out, item)
		}
	}
	return out
}

func appendUnique(items []string, v string) []string {
	for _, existing := range items {
		if existing == v {
			return items
		}
	}
	return append(items, v)
}
