package cli

import (
	"context"
	"fmt"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/model"
	"github.com/ppiankov/panelgraph/internal/pipeline"
	"github.com/ppiankov/panelgraph/internal/plot"
	"github.com/ppiankov/panelgraph/internal/truth"
	"github.com/spf13/cobra"
)

var (
	tablePath      string
	outPath        string
	annotationsDir string
	bookID         string
	noSequence     bool
	strict         bool
	noCache        bool
	characterScope string
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Forward-fill plot labels and assign event and segment IDs",
	Long: `Assign forward-fills Plot_0, Plot_1 and Plot_2 and derives Plot_1_ID
(one ID per contiguous run of an event label) and Plot_2_ID (seg001, seg002, ...).

Example:
  panelgraph assign --table plot.csv --out plot_ids.csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := plot.LoadCSV(tablePath)
		if err != nil {
			return err
		}
		table.SortRows()
		table.AssignIDs()
		if err := table.SaveCSV(outPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Assigned IDs to %d rows: %s\n", len(table.Rows), outPath)
		return nil
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build and integrate the graphs of one book",
	Long: `Build reads a book's annotation pages and plot table, builds the
panel-content, event hierarchy and reading-sequence graphs, integrates them
and writes them as node-link JSON together with a join report.

With --strict a broken containment tree fails the command; the graphs are
still written so the report can be inspected.

Example:
  panelgraph build --annotations ./annotations --table plot.csv --book 0 --out ./out/0`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

var truthCmd = &cobra.Command{
	Use:   "truth",
	Short: "Generate ground-truth CSVs for the four reasoning tasks",
	Long: `Truth derives the expected answers of the four reasoning tasks directly
from the annotations and the plot table, without building any graph.

Example:
  panelgraph truth --annotations ./annotations --table plot.csv --book 0 --out ./truth/0`,
	Args: cobra.NoArgs,
	RunE: runTruth,
}

func init() {
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(truthCmd)

	assignCmd.Flags().StringVar(&tablePath, "table", "", "input metadata CSV")
	assignCmd.Flags().StringVar(&outPath, "out", "", "output CSV")
	_ = assignCmd.MarkFlagRequired("table")
	_ = assignCmd.MarkFlagRequired("out")

	for _, c := range []*cobra.Command{buildCmd, truthCmd} {
		c.Flags().StringVar(&annotationsDir, "annotations", "", "directory of <book>_<page>.json annotation pages")
		c.Flags().StringVar(&tablePath, "table", "", "plot metadata CSV")
		c.Flags().StringVar(&bookID, "book", "", "book ID (empty: every book)")
		c.Flags().StringVar(&outPath, "out", "", "output directory")
		_ = c.MarkFlagRequired("annotations")
		_ = c.MarkFlagRequired("table")
		_ = c.MarkFlagRequired("out")
	}

	buildCmd.Flags().BoolVar(&noSequence, "no-sequence", false, "skip the reading-sequence graph")
	buildCmd.Flags().BoolVar(&strict, "strict", false, "fail on structural violations (overrides graph.strict)")
	buildCmd.Flags().BoolVar(&noCache, "no-cache", false, "do not reuse cached panel graphs")
	buildCmd.Flags().StringVar(&characterScope, "character-scope", "", "character identity scope: global or book")
}

// buildConfig loads the configuration and applies the build flags
func buildConfig(cmd *cobra.Command) (*model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if noSequence {
		cfg.Graph.IncludeSequence = false
	}
	if cmd.Flags().Changed("strict") {
		cfg.Graph.Strict = strict
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if characterScope != "" {
		cfg.Graph.CharacterScope = characterScope
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Mark(err, errors.ErrMalformedInput)
	}
	return cfg, nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	p := pipeline.NewPipeline(cfg)

	res, buildErr := p.BuildBook(context.Background(), pipeline.BookInput{
		Book:           bookID,
		AnnotationsDir: annotationsDir,
		TablePath:      tablePath,
	})
	if res == nil {
		return buildErr
	}

	r := pipeline.NewRenderer(cfg.Output.Indent, cmd.OutOrStdout())
	if err := r.WriteGraphs(res, outPath); err != nil {
		return err
	}
	r.RenderBuildSummary(res)
	return buildErr
}

func runTruth(cmd *cobra.Command, args []string) error {
	table, err := plot.LoadCSV(tablePath)
	if err != nil {
		return err
	}
	if bookID != "" {
		table = table.Filter(func(r plot.Row) bool { return plot.BookOf(r.PanelID()) == bookID })
	}
	table.SortRows()
	table.EnsureIDs()

	annotations, err := pipeline.LoadAnnotations(annotationsDir, bookID)
	if err != nil {
		return err
	}
	if err := truth.NewGenerator(table, annotations).WriteAll(outPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote ground truth for %d panels: %s\n", len(annotations), outPath)
	return nil
}
