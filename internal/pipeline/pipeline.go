// Package pipeline runs a batch of résumé documents through the load, text,
// extract and sink stages.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/cv-parser/internal/ai"
	"github.com/spigell/cv-parser/internal/record"
	"github.com/spigell/cv-parser/internal/sink"
)

// ErrSinkFailed wraps every error returned by the sink stage.
var ErrSinkFailed = errors.New("sink failed")

// Stage represents a single processing step applied to the batch.
type Stage interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, b *Batch) (*Batch, Step, error)
}

// TextSource converts document bytes into text. textextract.Extractor
// implements it.
type TextSource interface {
	Extract(data []byte, formatHint string) string
}

// Deps aggregates dependencies shared across all stages.
type Deps struct {
	Logger    *zap.Logger
	Text      TextSource
	Extractor ai.StructuredExtractor
	Sink      sink.Sink
}

// Step describes the result of executing a stage. Degraded counts documents
// that fell back to defaults in this stage; they stay in the batch.
type Step struct {
	Initial  int
	Degraded int
	Left     int
}

// Config contains settings consumed by the stages.
type Config struct {
	BaseID  int
	Workers int
	AsOf    time.Time
}

func (c *Config) withDefaults() *Config {
	out := Config{BaseID: record.DefaultBaseID, Workers: 1}
	if c != nil {
		out = *c
	}
	if out.Workers <= 0 {
		out.Workers = 1
	}
	if out.AsOf.IsZero() {
		out.AsOf = time.Now()
	}
	return &out
}

// Status represents runtime information about a stage.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by stages that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// DisableByName marks a stage with the provided name as disabled while keeping it in the list.
func DisableByName(stages []Stage, name, reason string) {
	for _, stage := range stages {
		if stage.Name() == name {
			stage.Disable(reason)
		}
	}
}

// Default returns the standard stage list.
func Default() []Stage {
	return []Stage{NewLoad(), NewText(), NewExtract(), NewSink()}
}

// Run validates every enabled stage and then applies them in order. The
// batch is returned together with the error so that callers can still emit
// the records produced before a sink failure.
func Run(ctx context.Context, cfg *Config, deps Deps, stages []Stage, b *Batch) (*Batch, error) {
	cfg = cfg.withDefaults()
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	for _, stage := range stages {
		if !stage.IsEnabled() {
			continue
		}
		if err := stage.Validate(cfg); err != nil {
			return b, fmt.Errorf("%s: %w", stage.Name(), err)
		}
	}

	for _, stage := range stages {
		if !stage.IsEnabled() {
			deps.Logger.Debug("stage disabled", zap.String("name", stage.Name()))
			continue
		}

		next, info, err := stage.Apply(ctx, deps, b)
		if next != nil {
			b = next
		}
		if err != nil {
			return b, fmt.Errorf("%s: %w", stage.Name(), err)
		}

		deps.Logger.Info("pipeline step",
			zap.String("name", stage.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("degraded", info.Degraded),
			zap.Int("left", info.Left),
		)
	}

	return b, nil
}

// Describe returns status entries for the provided stages.
func Describe(stages []Stage) []Status {
	statuses := make([]Status, 0, len(stages))
	for _, stage := range stages {
		if reporter, ok := stage.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    stage.Name(),
			Enabled: stage.IsEnabled(),
		})
	}
	return statuses
}
