package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/cv-parser/internal/extract"
	"github.com/spigell/cv-parser/internal/vocab"
)

const (
	app       = "cv-parser"
	envPrefix = "CV_PARSER"
)

type Config struct {
	Extractor  string          `mapstructure:"extractor"`
	Format     string          `mapstructure:"format"`
	Output     string          `mapstructure:"output"`
	BaseID     int             `mapstructure:"base-id"`
	Workers    int             `mapstructure:"workers"`
	AsOf       string          `mapstructure:"as-of"`
	Sink       string          `mapstructure:"sink"`
	Extract    extract.Options `mapstructure:"extract"`
	Vocabulary *vocab.Config   `mapstructure:"vocabulary"`
	AI         *AIConfig       `mapstructure:"ai"`
}

type AIConfig struct {
	Fallback string        `mapstructure:"fallback"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey            string   `mapstructure:"api-key"`
	APIKeyFile        string   `mapstructure:"api-key-file"`
	Model             string   `mapstructure:"model"`
	MaxRetries        int      `mapstructure:"max-retries"`
	RequestsPerMinute int      `mapstructure:"requests-per-minute"`
	MaxLogLength      int      `mapstructure:"max-log-length"`
	Temperature       *float32 `mapstructure:"temperature"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-parser extracts structured candidate records from résumé files",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-parser.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetDefault("extractor", "regex")
	viper.SetDefault("format", "json")
	viper.SetDefault("workers", 4)
	viper.SetDefault("ai.fallback", "empty")
	viper.SetDefault("ai.timeout", 60*time.Second)
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 200)

	if err := viper.BindEnv("ai.gemini.api-key", envPrefix+"_AI_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", envPrefix+"_AI_GEMINI_API_KEY_FILE", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
}

func initConfig() {
	// A missing .env is the common case.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The default config file is optional, an explicit one is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}

	return config, nil
}
