package cmd

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/kris-hansen/dialogen/utils/database"
	"github.com/kris-hansen/dialogen/utils/dataset"
	"github.com/kris-hansen/dialogen/utils/generator"
	"github.com/kris-hansen/dialogen/utils/selector"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type generateFlags struct {
	llm             string
	model           string
	seeds           string
	output          string
	envPath         string
	policy          string
	nExamples       int
	nData           int
	warmup          int
	turns           int
	maxTurnAttempts int
	addToPool       bool
	realRatio       float64
	seed            uint64
}

var genFlags generateFlags

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate multi-turn dialogues until the dataset reaches --n-data records",
	Long: `Generate grows a dataset of multi-turn dialogues. Each dialogue starts from
an instruction modeled on examples drawn from the seed file and continues for
--turns turns. Every finished dialogue is saved before the next one starts, so
an interrupted run resumes where it stopped.

--output is a JSON file path or a postgres:// URL (an optional "table" query
parameter names the table). Without --output, DIALOGEN_DATABASE_URL is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd.Context(), genFlags)
	},
}

func (f generateFlags) config() (generator.Config, error) {
	policy, err := selector.ParsePolicy(f.policy)
	if err != nil {
		return generator.Config{}, err
	}

	cfg := generator.Config{
		Target:          f.nData,
		Turns:           f.turns,
		Examples:        f.nExamples,
		Warmup:          f.warmup,
		AddToPool:       f.addToPool,
		Policy:          policy,
		RealRatio:       f.realRatio,
		MaxTurnAttempts: f.maxTurnAttempts,
	}
	if err := cfg.Validate(); err != nil {
		return generator.Config{}, err
	}
	return cfg, nil
}

func (f generateFlags) rng() *rand.Rand {
	seed := f.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// storeFor opens the dataset store named by target.
func storeFor(ctx context.Context, target string, logger *zap.Logger) (dataset.Store, error) {
	if target == "" {
		return nil, fmt.Errorf("no output given: set --output or DIALOGEN_DATABASE_URL")
	}
	if database.IsTarget(target) {
		return database.Open(ctx, target, logger)
	}
	return dataset.NewJSONStore(target), nil
}

func runGenerate(ctx context.Context, f generateFlags) error {
	log := newLogger()
	defer log.Sync()

	cfg, err := f.config()
	if err != nil {
		return err
	}
	examples, err := dataset.LoadExamples(f.seeds)
	if err != nil {
		return err
	}

	chat, err := newChatSetup(f.llm, f.model, f.envPath, log)
	if err != nil {
		return err
	}

	target := f.output
	if target == "" {
		target = chat.app.DatabaseURL
	}
	store, err := storeFor(ctx, target, log)
	if err != nil {
		return err
	}
	defer store.Close()

	existing, err := store.Load(ctx)
	if err != nil {
		return err
	}

	bar := pb.New(max(cfg.Target, len(existing)))
	bar.SetWriter(os.Stderr)
	bar.SetCurrent(int64(len(existing)))
	bar.Start()
	defer bar.Finish()

	gen, err := generator.New(generator.NewLLMProducer(chat.session), store, examples, cfg,
		generator.WithLogger(log),
		generator.WithRand(f.rng()),
		generator.WithOnCommit(func(_ dataset.Record, total int) {
			bar.SetCurrent(int64(total))
		}),
	)
	if err != nil {
		return err
	}

	ds, err := gen.Run(ctx)
	if err != nil {
		return fmt.Errorf("generation stopped with %d records: %w", len(ds), err)
	}

	log.Info("Dataset saved", zap.String("output", target), zap.Int("records", len(ds)))
	return nil
}

func init() {
	flags := generateCmd.Flags()
	flags.StringVar(&genFlags.llm, "llm", "", "provider tag: anthropic (claude), openai, google (gemini); inferred from --model when empty")
	flags.StringVar(&genFlags.model, "model", "claude-3-sonnet-20240229", "model name")
	flags.StringVar(&genFlags.seeds, "seeds", "", "JSON file of seed examples (required)")
	flags.IntVar(&genFlags.nExamples, "n-examples", 6, "examples shown per first instruction")
	flags.IntVar(&genFlags.nData, "n-data", 1, "total number of dialogues the dataset should hold")
	flags.IntVar(&genFlags.warmup, "warmup", 10, "dialogues generated from seeds only before mixing in generated ones")
	flags.IntVar(&genFlags.turns, "turns", 3, "turns per dialogue")
	flags.StringVar(&genFlags.output, "output", "", "dataset JSON file or postgres:// URL")
	flags.StringVar(&genFlags.envPath, "env", ".env", "dotenv file with API keys")
	flags.BoolVar(&genFlags.addToPool, "add-to-pool", false, "mix generated first turns into example selection after warm-up")
	flags.StringVar(&genFlags.policy, "policy", string(selector.Uniform), "base selection policy: uniform, balanced, no-input")
	flags.Float64Var(&genFlags.realRatio, "real-ratio", selector.DefaultRealRatio, "share of seed examples in a mixed selection")
	flags.IntVar(&genFlags.maxTurnAttempts, "max-turn-attempts", 0, "abandon a dialogue after this many failures on one turn (0 retries forever)")
	flags.Uint64Var(&genFlags.seed, "seed", 0, "random seed for example selection (0 uses the clock)")
	generateCmd.MarkFlagRequired("seeds")

	rootCmd.AddCommand(generateCmd)
}
