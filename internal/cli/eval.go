package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/model"
	"github.com/ppiankov/panelgraph/internal/pipeline"
	"github.com/ppiankov/panelgraph/internal/truth"
	"github.com/ppiankov/panelgraph/internal/worker"
	"github.com/spf13/cobra"
)

var (
	predDir     string
	subject     string
	llmProvider string
	llmModel    string
	evalTimeout time.Duration
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Score prediction CSVs against ground truth",
	Long: `Eval scores the four tasks and writes evaluation.json and evaluation.md.

  Task 1 Action Retrieval      coverage of ground-truth verbs
  Task 2 Dialogue Trace        partial match (precision, recall, F1, Jaccard)
  Task 3 Character Appearance  coverage of ground-truth characters
  Task 4 Panel Timeline        coverage and pairwise ordering accuracy

With --llm-provider an optional narrative summary is written to
evaluation.llm.md. It is generated after scoring and never changes a score.

Example:
  panelgraph eval --truth truth/0 --pred pred/0 --out eval/0
  panelgraph eval --truth truth/0 --pred pred/0 --out eval/0 --llm-provider openai`,
	Args: cobra.NoArgs,
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVar(&truthDir, "truth", "", "ground-truth directory")
	evalCmd.Flags().StringVar(&predDir, "pred", "", "prediction directory")
	evalCmd.Flags().StringVar(&outPath, "out", "", "output directory")
	evalCmd.Flags().StringVar(&subject, "subject", "", "name of the evaluated book or corpus (default: prediction directory name)")
	evalCmd.Flags().DurationVar(&evalTimeout, "timeout", 2*time.Minute, "overall timeout, including the LLM summary")
	addLLMFlags(evalCmd)
	_ = evalCmd.MarkFlagRequired("truth")
	_ = evalCmd.MarkFlagRequired("pred")
	_ = evalCmd.MarkFlagRequired("out")
}

func addLLMFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider for the optional summary (openai, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

// applyLLMFlags overrides the configured provider and checks credentials
func applyLLMFlags(cfg *model.Config) error {
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" {
		return errors.WithHint(errors.New("openai provider needs an API key"), "export OPENAI_API_KEY=sk-...")
	}
	return nil
}

// newPipeline builds a pipeline whose summaries share one per-host limiter
func newPipeline(cfg *model.Config) *pipeline.Pipeline {
	limiter := worker.NewLimiter(cfg.LLM.RequestsPerSecond, 1)
	return pipeline.NewPipeline(cfg, pipeline.WithThrottle(limiter))
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyLLMFlags(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	gt, err := truth.Load(truthDir)
	if err != nil {
		return err
	}
	preds, err := pipeline.LoadPredictions(predDir)
	if err != nil {
		return err
	}
	name := subject
	if name == "" {
		name = filepath.Base(filepath.Clean(predDir))
	}

	rep, err := newPipeline(cfg).Score(ctx, gt, preds, name)
	if err != nil {
		return err
	}

	r := pipeline.NewRenderer(cfg.Output.Indent, cmd.OutOrStdout())
	if err := r.RenderEvaluation(rep, outPath); err != nil {
		return err
	}
	r.RenderSummary(rep)
	return nil
}
