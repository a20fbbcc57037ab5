package cmd

import (
	"context"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/kris-hansen/dialogen/utils/dataset"
	"github.com/kris-hansen/dialogen/utils/evol"
	"github.com/kris-hansen/dialogen/utils/prompts"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	rewriteLLM     string
	rewriteModel   string
	rewriteLogs    string
	rewriteOutput  string
	rewriteEnvPath string
	rewriteMethod  string
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "Rewrite the user turns of conversation logs into harder instructions",
	Long: `Rewrite reads conversation logs (a JSON array, or JSONL when the file ends
in .jsonl, of {"messages": [{"from", "content"}]}) and rewrites each user
message with an evol-instruct prompt. A second pass answers the rewritten
instructions as one conversation. Both passes save after every record and
skip work already present in --output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRewrite(cmd.Context())
	},
}

func runRewrite(ctx context.Context) error {
	log := newLogger()
	defer log.Sync()

	method, err := prompts.ParseMethod(rewriteMethod)
	if err != nil {
		return err
	}
	logs, err := dataset.LoadLogs(rewriteLogs)
	if err != nil {
		return err
	}

	chat, err := newChatSetup(rewriteLLM, rewriteModel, rewriteEnvPath, log)
	if err != nil {
		return err
	}

	var bar *pb.ProgressBar
	progress := func(stage string, total int) func() {
		if bar != nil {
			bar.Finish()
		}
		b := pb.New(total)
		b.SetWriter(os.Stderr)
		b.Set("prefix", stage+" ")
		b.Start()
		bar = b
		return func() { b.Increment() }
	}
	defer func() {
		if bar != nil {
			bar.Finish()
		}
	}()

	rewriter, err := evol.NewRewriter(chat.session, method, evol.WithLogger(log), evol.WithProgress(progress))
	if err != nil {
		return err
	}

	recs, err := rewriter.Run(ctx, logs, dataset.NewRewriteStore(rewriteOutput))
	if err != nil {
		return err
	}

	answered := 0
	for _, rec := range recs {
		if rec.Answered() {
			answered++
		}
	}
	log.Info("Rewrite finished",
		zap.String("output", rewriteOutput),
		zap.Int("records", len(recs)),
		zap.Int("answered", answered),
	)
	return nil
}

func init() {
	flags := rewriteCmd.Flags()
	flags.StringVar(&rewriteLLM, "llm", "", "provider tag: anthropic (claude), openai, google (gemini); inferred from --model when empty")
	flags.StringVar(&rewriteModel, "model", "claude-3-opus-20240229", "model name")
	flags.StringVar(&rewriteLogs, "logs", "", "conversation log file (required)")
	flags.StringVar(&rewriteOutput, "output", "", "rewrite JSON file (required)")
	flags.StringVar(&rewriteEnvPath, "env", ".env", "dotenv file with API keys")
	flags.StringVar(&rewriteMethod, "method", string(prompts.DefaultMethod), "rewrite method: constraints, deepen, concretizing, reasoning, deepen-zh")
	rewriteCmd.MarkFlagRequired("logs")
	rewriteCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(rewriteCmd)
}
