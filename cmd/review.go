package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-parser/internal/pipeline"
)

const PromptBack = "back"

var reviewCmd = &cobra.Command{
	Use:   "review [files or directories...]",
	Short: "Extract candidate records and browse them interactively",
	Args:  cobra.MinimumNArgs(1),
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindProcessingFlags(cmd)
	},
	Run: func(_ *cobra.Command, args []string) {
		review(args)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	addProcessingFlags(reviewCmd)
}

func review(args []string) {
	batch, _, logger, runErr := process(context.Background(), args)
	if runErr != nil {
		logger.Warn("persisting rows failed", zap.Error(runErr))
	}

	if err := browse(batch, logger); err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
}

func browse(batch *pipeline.Batch, logger *zap.Logger) error {
	records := batch.Records()
	if len(records) == 0 {
		logger.Info("exiting", zap.String("reason", "no records"))
		return nil
	}

	items := make([]string, 0, len(records)+1)
	for _, rec := range records {
		items = append(items, rec.Label())
	}
	items = append(items, PromptBack)

	for {
		recordPrompt := promptui.Select{
			Label: "Choose a candidate and press ENTER",
			Items: items,
			Size:  10,
		}

		idx, selected, err := recordPrompt.Run()
		if err != nil {
			return err
		}

		if selected == PromptBack {
			return nil
		}

		pretty, err := records[idx].JSON()
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(pretty))

		for _, d := range batch.Documents {
			if d.Record != nil && d.Record.CandidateID == records[idx].CandidateID {
				for _, w := range d.Warnings() {
					logger.Warn("document warning", zap.String("document", d.Name), zap.String("warning", w))
				}
			}
		}
	}
}
