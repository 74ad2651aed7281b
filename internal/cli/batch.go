package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/logger"
	"github.com/ppiankov/panelgraph/internal/pipeline"
	"github.com/ppiankov/panelgraph/internal/worker"
	"github.com/spf13/cobra"
)

var (
	booksFile    string
	concurrency  int
	batchTimeout time.Duration
	truthRoot    string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Build several books in parallel",
	Long: `Batch builds every book listed in a manifest, one tab-separated
"book<TAB>annotations_dir<TAB>table.csv" entry per line, and writes each
book's graphs to <out>/<book>/.

With --truth, each book is also evaluated against <truth>/<book>/; LLM
summaries (when configured) are rate-limited per endpoint across books.

Example:
  panelgraph batch --books books.tsv --out ./out
  panelgraph batch --books books.tsv --out ./out --concurrency 4 --truth ./truth`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&booksFile, "books", "", "book manifest (TSV)")
	batchCmd.Flags().StringVar(&outPath, "out", "", "output directory")
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "books built at once (default: concurrency.books)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for the batch")
	batchCmd.Flags().StringVar(&truthRoot, "truth", "", "ground-truth root; evaluates each book against <truth>/<book>")
	batchCmd.Flags().BoolVar(&noSequence, "no-sequence", false, "skip the reading-sequence graph")
	batchCmd.Flags().BoolVar(&strict, "strict", false, "fail a book on structural violations (overrides graph.strict)")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "do not reuse cached panel graphs")
	batchCmd.Flags().StringVar(&characterScope, "character-scope", "", "character identity scope: global or book")
	addLLMFlags(batchCmd)
	_ = batchCmd.MarkFlagRequired("books")
	_ = batchCmd.MarkFlagRequired("out")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyLLMFlags(cfg); err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.Books = concurrency
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  panelgraph batch\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Manifest:     %s\n", booksFile)
	fmt.Fprintf(stderr, "  Workers:      %d\n", cfg.Concurrency.Books)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", outPath)
	fmt.Fprintf(stderr, "  Timeout:      %v\n", batchTimeout)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(stderr, "\n")

	if err := os.MkdirAll(outPath, 0755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	p := newPipeline(cfg)
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Books)
	outcomes, err := processor.ProcessFile(ctx, booksFile)
	if err != nil {
		return err
	}

	r := pipeline.NewRenderer(cfg.Output.Indent, cmd.OutOrStdout())
	failures := 0
	for _, o := range outcomes {
		if err := writeBook(ctx, p, r, o); err != nil {
			failures++
			fmt.Fprintf(stderr, "✗ %s: %v\n", o.Input.Book, err)
			continue
		}
		fmt.Fprintf(stderr, "✓ %s (%d panels)\n", o.Input.Book, len(o.Result.Panels))
	}

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Total:     %d books\n", len(outcomes))
	fmt.Fprintf(stderr, "  Success:   %d\n", len(outcomes)-failures)
	fmt.Fprintf(stderr, "  Failures:  %d\n", failures)
	fmt.Fprintf(stderr, "\n")

	if failures > 0 {
		return errors.Newf("%d of %d books failed", failures, len(outcomes))
	}
	return nil
}

// writeBook writes a built book and, with --truth, its evaluation.
// Graphs of a book that failed strict validation are still written.
func writeBook(ctx context.Context, p *pipeline.Pipeline, r *pipeline.Renderer, o *worker.BookOutcome) error {
	if o.Result == nil {
		return o.Error
	}
	dir := filepath.Join(outPath, sanitizeFilename(o.Input.Book))
	if err := r.WriteGraphs(o.Result, dir); err != nil {
		return err
	}
	if o.Error != nil {
		return o.Error
	}
	if truthRoot == "" {
		return nil
	}

	res, err := p.EvaluateDir(ctx, o.Result.Integrated, filepath.Join(truthRoot, o.Input.Book), o.Input.Book)
	if err != nil {
		return err
	}
	if err := r.WritePredictions(res.Predictions, filepath.Join(dir, "predictions")); err != nil {
		return err
	}
	logger.Debugw("book evaluated", "book", o.Input.Book, "tasks", len(res.Report.Tasks))
	return r.RenderEvaluation(res.Report, dir)
}

// sanitizeFilename sanitizes a book ID for use as a directory name
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(s)
	if s == "" || s == "." || s == ".." {
		s = "_"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
