package cmd

import (
	"context"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-parser/internal/export"
	"github.com/spigell/cv-parser/internal/record"
)

var parseCmd = &cobra.Command{
	Use:   "parse [files or directories...]",
	Short: "Extract candidate records and write them as json, csv or xlsx",
	Args:  cobra.MinimumNArgs(1),
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindProcessingFlags(cmd)
		viper.BindPFlag("format", cmd.Flags().Lookup("format"))
		viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	},
	Run: func(_ *cobra.Command, args []string) {
		parse(args)
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)

	addProcessingFlags(parseCmd)
	parseCmd.Flags().StringP("format", "f", "json", "output format: json, csv or xlsx")
	parseCmd.Flags().StringP("output", "o", "", "output file. Default is stdout (not allowed for xlsx).")
}

func parse(args []string) {
	ctx := context.Background()

	format, err := export.ParseFormat(viper.GetString("format"))
	if err != nil {
		log.Fatalf("invalid format: %s", err)
	}

	output := strings.TrimSpace(viper.GetString("output"))
	if output == "" && format.Binary() {
		log.Fatalf("an output file is required for the %s format", format)
	}

	batch, _, logger, runErr := process(ctx, args)
	records := batch.Records()

	if err := writeRecords(output, format, records); err != nil {
		logger.Fatal("writing output", zap.Error(err), zap.String("output", output))
	}

	logger.Info("records written",
		zap.Int("count", len(records)),
		zap.String("format", string(format)),
		zap.String("output", outputName(output)),
	)

	if runErr != nil {
		logger.Fatal("persisting rows failed", zap.Error(runErr))
	}
}

func writeRecords(output string, format export.Format, records []record.CandidateRecord) error {
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return export.Write(w, format, records)
}

func outputName(output string) string {
	if output == "" {
		return "stdout"
	}
	return output
}
