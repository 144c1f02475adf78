package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/cv-parser/internal/logger"
	"github.com/spigell/cv-parser/internal/record"
)

// forEach runs fn over the documents with at most workers in flight. The
// context is checked before each document is started, never inside one.
func forEach(ctx context.Context, workers int, docs []*Document, fn func(ctx context.Context, d *Document)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(gctx, d)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func documentLogger(log *zap.Logger, d *Document, cfg *Config) *zap.Logger {
	return logger.WithFields(log, logger.DocumentFields(d.Name, record.BatchID(cfg.BaseID, d.Index))...)
}

type loadStage struct {
	cfg *Config
}

// NewLoad creates the stage that reads document bytes from disk.
func NewLoad() Stage {
	return &loadStage{}
}

func (s *loadStage) Name() string { return "load" }

func (s *loadStage) Disable(string) {}

func (s *loadStage) IsEnabled() bool { return true }

func (s *loadStage) Validate(cfg *Config) error {
	s.cfg = cfg
	return nil
}

func (s *loadStage) Apply(ctx context.Context, deps Deps, b *Batch) (*Batch, Step, error) {
	var degraded atomic.Int64

	err := forEach(ctx, s.cfg.Workers, b.Documents, func(_ context.Context, d *Document) {
		if d.Data != nil || d.Path == "" {
			return
		}
		data, err := os.ReadFile(d.Path)
		if err != nil {
			degraded.Add(1)
			d.Warn("read file: %v", err)
			documentLogger(deps.Logger, d, s.cfg).Warn("reading document failed", zap.Error(err))
			return
		}
		d.Data = data
	})

	return b, Step{Initial: b.Len(), Degraded: int(degraded.Load()), Left: b.Len()}, err
}

type textStage struct {
	cfg *Config
}

// NewText creates the stage that converts document bytes into plain text.
func NewText() Stage {
	return &textStage{}
}

func (s *textStage) Name() string { return "text" }

func (s *textStage) Disable(string) {}

func (s *textStage) IsEnabled() bool { return true }

func (s *textStage) Validate(cfg *Config) error {
	s.cfg = cfg
	return nil
}

func (s *textStage) Apply(ctx context.Context, deps Deps, b *Batch) (*Batch, Step, error) {
	if deps.Text == nil {
		return b, Step{}, errors.New("text extractor is required")
	}

	var degraded atomic.Int64

	err := forEach(ctx, s.cfg.Workers, b.Documents, func(_ context.Context, d *Document) {
		name := d.Name
		if name == "" {
			name = d.Path
		}
		d.Text = deps.Text.Extract(d.Data, name)
		if strings.TrimSpace(d.Text) == "" {
			degraded.Add(1)
			d.Warn("no text extracted")
			documentLogger(deps.Logger, d, s.cfg).Warn("no text extracted, emitting placeholder record")
		}
	})

	return b, Step{Initial: b.Len(), Degraded: int(degraded.Load()), Left: b.Len()}, err
}

type extractStage struct {
	cfg *Config
}

// NewExtract creates the stage that extracts fields and assembles records.
func NewExtract() Stage {
	return &extractStage{}
}

func (s *extractStage) Name() string { return "extract" }

func (s *extractStage) Disable(string) {}

func (s *extractStage) IsEnabled() bool { return true }

func (s *extractStage) Validate(cfg *Config) error {
	if cfg.BaseID < 0 {
		return fmt.Errorf("base id must not be negative, got %d", cfg.BaseID)
	}
	s.cfg = cfg
	return nil
}

func (s *extractStage) Apply(ctx context.Context, deps Deps, b *Batch) (*Batch, Step, error) {
	if deps.Extractor == nil {
		return b, Step{}, errors.New("structured extractor is required")
	}

	var degraded atomic.Int64

	err := forEach(ctx, s.cfg.Workers, b.Documents, func(ctx context.Context, d *Document) {
		log := documentLogger(deps.Logger, d, s.cfg)

		fields, err := deps.Extractor.Extract(ctx, d.Text)
		if err != nil {
			degraded.Add(1)
			d.Warn("%s extraction: %v", deps.Extractor.Name(), err)
			log.Warn("structured extraction failed", zap.String("extractor", deps.Extractor.Name()), zap.Error(err))
		}

		d.Fields = fields
		rec := record.Assemble(record.BatchID(s.cfg.BaseID, d.Index), d.Name, fields, s.cfg.AsOf)
		d.Record = &rec

		log.Debug("record assembled",
			zap.Int("skills", len(rec.Skills)),
			zap.Int("tools", len(rec.Tools)),
			zap.Float64("total_experience", rec.TotalExperience),
		)
	})

	return b, Step{Initial: b.Len(), Degraded: int(degraded.Load()), Left: b.Len()}, err
}

func (s *extractStage) Status() Status {
	details := map[string]string{}
	if s.cfg != nil {
		details["base_id"] = strconv.Itoa(s.cfg.BaseID)
		details["workers"] = strconv.Itoa(s.cfg.Workers)
		details["as_of"] = s.cfg.AsOf.Format("2006-01-02")
	}
	return Status{Name: s.Name(), Enabled: true, Details: details}
}

type sinkStage struct {
	disabled bool
	reason   string
}

// NewSink creates the stage that appends flattened records to the sink.
func NewSink() Stage {
	return &sinkStage{}
}

func (s *sinkStage) Name() string { return "sink" }

func (s *sinkStage) Disable(reason string) {
	s.disabled = true
	s.reason = reason
}

func (s *sinkStage) IsEnabled() bool { return !s.disabled }

func (s *sinkStage) Validate(*Config) error { return nil }

// Apply writes rows sequentially in document order. A failing row does not
// stop the others; all failures are joined into the returned error.
func (s *sinkStage) Apply(ctx context.Context, deps Deps, b *Batch) (*Batch, Step, error) {
	if deps.Sink == nil {
		return b, Step{}, errors.New("sink is required when the sink stage is enabled")
	}

	var (
		errs   []error
		failed int
	)
	for _, d := range b.Documents {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if d.Record == nil {
			continue
		}
		if err := deps.Sink.AppendRow(ctx, d.Record.Flatten()); err != nil {
			failed++
			d.Warn("sink: %v", err)
			errs = append(errs, fmt.Errorf("document %s: %w", d.Name, err))
		}
	}

	step := Step{Initial: b.Len(), Degraded: failed, Left: b.Len()}
	if len(errs) > 0 {
		return b, step, fmt.Errorf("%w: %w", ErrSinkFailed, errors.Join(errs...))
	}
	return b, step, nil
}

func (s *sinkStage) Status() Status {
	return Status{Name: s.Name(), Enabled: s.IsEnabled(), Reason: s.reason}
}
