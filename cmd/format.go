package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/kris-hansen/dialogen/utils/dataset"
	"github.com/kris-hansen/dialogen/utils/normalize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	taskGen  = "gen"
	taskEvol = "evol"
)

var (
	formatTask       string
	formatSrc        string
	formatOutput     string
	formatConversion string
)

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Convert generated data into ShareGPT JSONL with Traditional Chinese text",
	Long: `Format reads a dataset written by "generate" (--task gen) or a rewrite file
written by "rewrite" (--task evol) and writes one ShareGPT conversation per
line. Each line carries the original messages and an OpenCC converted copy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFormat(cmd.Context(), formatTask, formatSrc, formatOutput, formatConversion)
	},
}

// loadConversations reads src according to task.
func loadConversations(ctx context.Context, task, src string) ([]normalize.Conversation, error) {
	switch task {
	case taskGen:
		ds, err := dataset.NewJSONStore(src).Load(ctx)
		if err != nil {
			return nil, err
		}
		return normalize.FromDataset(ds), nil
	case taskEvol:
		recs, err := dataset.NewRewriteStore(src).Load()
		if err != nil {
			return nil, err
		}
		return normalize.FromRewrites(recs), nil
	}
	return nil, fmt.Errorf("unknown task %q (want %s or %s)", task, taskGen, taskEvol)
}

func runFormat(ctx context.Context, task, src, output, conversion string) error {
	log := newLogger()
	defer log.Sync()

	convs, err := loadConversations(ctx, task, src)
	if err != nil {
		return err
	}
	log.Info("Loaded conversations", zap.String("task", task), zap.Int("conversations", len(convs)))

	cc, err := normalize.NewOpenCC(conversion)
	if err != nil {
		return err
	}

	bar := pb.New(len(convs))
	bar.SetWriter(os.Stderr)
	bar.Start()
	err = normalize.Convert(cc, convs, func() { bar.Increment() })
	bar.Finish()
	if err != nil {
		return err
	}

	for _, bucket := range normalize.LengthHistogram(convs) {
		log.Info("Conversation length",
			zap.Int("messages", bucket.Messages),
			zap.Int("conversations", bucket.Conversations),
		)
	}

	if err := normalize.WriteJSONL(output, convs); err != nil {
		return err
	}
	log.Info("Wrote JSONL", zap.String("output", output), zap.Int("conversations", len(convs)))
	return nil
}

func init() {
	formatCmd.Flags().StringVar(&formatTask, "task", taskGen, "input kind: gen or evol")
	formatCmd.Flags().StringVar(&formatSrc, "src", "", "source JSON file (required)")
	formatCmd.Flags().StringVar(&formatOutput, "output", "", "destination JSONL file (required)")
	formatCmd.Flags().StringVar(&formatConversion, "conversion", normalize.DefaultConversion, "OpenCC conversion")
	formatCmd.MarkFlagRequired("src")
	formatCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(formatCmd)
}
