package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-parser/internal/ai"
	"github.com/spigell/cv-parser/internal/ai/gemini"
	"github.com/spigell/cv-parser/internal/extract"
	"github.com/spigell/cv-parser/internal/logger"
	"github.com/spigell/cv-parser/internal/pipeline"
	"github.com/spigell/cv-parser/internal/record"
	"github.com/spigell/cv-parser/internal/secrets"
	"github.com/spigell/cv-parser/internal/sink"
	"github.com/spigell/cv-parser/internal/textextract"
	"github.com/spigell/cv-parser/internal/vocab"
)

const asOfLayout = "2006-01-02"

// addProcessingFlags registers the flags shared by the commands that run the pipeline.
func addProcessingFlags(cmd *cobra.Command) {
	cmd.Flags().Int("base-id", 0, fmt.Sprintf("first candidate id (default %d for a batch, %d for a single file)", record.DefaultBaseID, record.AdHocID))
	cmd.Flags().IntP("workers", "w", 4, "documents processed in parallel")
	cmd.Flags().String("as-of", "", "reference date for ongoing positions, YYYY-MM-DD (default today)")
	cmd.Flags().String("sink", "", "sqlite database to append flattened rows to. Default is unset.")
	cmd.Flags().StringP("extractor", "x", "regex", "field extractor: regex or gemini")
}

func bindProcessingFlags(cmd *cobra.Command) {
	for _, name := range []string{"base-id", "workers", "as-of", "sink", "extractor"} {
		viper.BindPFlag(name, cmd.Flags().Lookup(name))
	}
}

// process runs the configured pipeline over args. Sink failures are returned
// together with the batch so the records can still be emitted.
func process(ctx context.Context, args []string) (*pipeline.Batch, *Config, *zap.Logger, error) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the cv-parser", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	paths, err := pipeline.ExpandPaths(args)
	if err != nil {
		logger.Fatal("collecting documents", zap.Error(err))
	}
	if len(paths) == 0 {
		logger.Fatal("no documents found", zap.Strings("args", args), zap.Strings("extensions", textextract.Extensions))
	}

	cfg, err := pipelineConfig(config, len(paths))
	if err != nil {
		logger.Fatal("invalid options", zap.Error(err))
	}

	extractor, err := newExtractor(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating the extractor", zap.Error(err))
	}

	deps := pipeline.Deps{
		Logger:    logger,
		Text:      textextract.New(logger),
		Extractor: extractor,
	}

	stages := pipeline.Default()
	if path := strings.TrimSpace(config.Sink); path != "" {
		db, err := sink.OpenSQLite(ctx, path)
		if err != nil {
			logger.Fatal("opening the sink", zap.Error(err))
		}
		defer db.Close()
		deps.Sink = db
		logger.Info("appending rows to sqlite", zap.String("path", path), zap.String("run_id", db.RunID()))
	} else {
		pipeline.DisableByName(stages, "sink", "no sink configured")
	}

	for _, status := range pipeline.Describe(stages) {
		logger.Debug("stage", zap.String("name", status.Name), zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason), zap.Any("details", status.Details))
	}

	logger.Info("processing documents",
		zap.Int("count", len(paths)),
		zap.String("extractor", extractor.Name()),
		zap.Int("base_id", cfg.BaseID),
		zap.Int("workers", cfg.Workers),
	)

	batch, err := pipeline.Run(ctx, cfg, deps, stages, pipeline.NewBatch(paths))
	if err != nil && !errors.Is(err, pipeline.ErrSinkFailed) {
		logger.Fatal("processing failed", zap.Error(err))
	}

	return batch, config, logger, err
}

func pipelineConfig(config *Config, documents int) (*pipeline.Config, error) {
	cfg := &pipeline.Config{
		BaseID:  config.BaseID,
		Workers: config.Workers,
		AsOf:    time.Now(),
	}

	if cfg.BaseID <= 0 {
		cfg.BaseID = record.DefaultBaseID
		if documents == 1 {
			cfg.BaseID = record.AdHocID
		}
	}

	if asOf := strings.TrimSpace(config.AsOf); asOf != "" {
		t, err := time.Parse(asOfLayout, asOf)
		if err != nil {
			return nil, fmt.Errorf("parse as-of %q: %w", asOf, err)
		}
		cfg.AsOf = t
	}

	if err := config.Extract.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newLibrary(config *Config) (*vocab.Library, error) {
	if config.Vocabulary == nil {
		return vocab.Default(), nil
	}
	lib, err := vocab.New(vocab.DefaultConfig().Merge(*config.Vocabulary))
	if err != nil {
		return nil, fmt.Errorf("build vocabulary: %w", err)
	}
	return lib, nil
}

func newExtractor(ctx context.Context, config *Config, log *zap.Logger) (ai.StructuredExtractor, error) {
	lib, err := newLibrary(config)
	if err != nil {
		return nil, err
	}

	switch name := strings.ToLower(strings.TrimSpace(config.Extractor)); name {
	case "", "regex":
		return extract.New(lib, config.Extract), nil
	case gemini.Provider:
		return newGeminiExtractor(ctx, config, lib, log)
	default:
		return nil, fmt.Errorf("unsupported extractor: %s", config.Extractor)
	}
}

func newGeminiExtractor(ctx context.Context, config *Config, lib *vocab.Library, log *zap.Logger) (ai.StructuredExtractor, error) {
	aiCfg := config.AI
	if aiCfg == nil {
		aiCfg = &AIConfig{}
	}
	gemCfg := aiCfg.Gemini
	if gemCfg == nil {
		gemCfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: gemCfg.APIKey,
		File:  gemCfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, gemini.GeneratorConfig{
		APIKey:            apiKey,
		Model:             gemCfg.Model,
		MaxRetries:        gemCfg.MaxRetries,
		RequestsPerMinute: gemCfg.RequestsPerMinute,
		Temperature:       gemCfg.Temperature,
	}, log)
	if err != nil {
		return nil, err
	}

	extractorLogger := logger.WithCommonFields(log, gemini.Provider, generator.Model())

	return gemini.NewExtractor(generator, lib, config.Extract, gemini.Options{
		Timeout:      aiCfg.Timeout,
		Fallback:     ai.Fallback(strings.ToLower(strings.TrimSpace(aiCfg.Fallback))),
		MaxLogLength: gemCfg.MaxLogLength,
	}, extractorLogger)
}

// redacted returns a copy of config that is safe to log.
func redacted(config *Config) *Config {
	if config == nil || config.AI == nil || config.AI.Gemini == nil || config.AI.Gemini.APIKey == "" {
		return config
	}
	out := *config
	aiCfg := *config.AI
	gem := *config.AI.Gemini
	gem.APIKey = "***"
	aiCfg.Gemini = &gem
	out.AI = &aiCfg
	return &out
}
