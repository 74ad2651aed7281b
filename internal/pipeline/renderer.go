package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/graph"
	"github.com/ppiankov/panelgraph/internal/llm"
	"github.com/ppiankov/panelgraph/internal/model"
	"github.com/ppiankov/panelgraph/internal/report"
)

// Output file names inside a book's output directory
const (
	HierarchyFile   = "hierarchy.json"
	SequenceFile    = "sequence.json"
	IntegratedFile  = "integrated.json"
	JoinReportFile  = "join_report.json"
	PanelsDir       = "panels"
	EvaluationJSON  = "evaluation.json"
	EvaluationMD    = "evaluation.md"
	EvaluationLLMMD = "evaluation.llm.md"
)

// maxFailuresShown bounds the failing items listed per task in Markdown
const maxFailuresShown = 10

// Renderer writes build and evaluation artifacts
type Renderer struct {
	indent bool
	out    io.Writer
}

// NewRenderer creates a renderer printing summaries to out (stdout when nil)
func NewRenderer(indent bool, out io.Writer) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	return &Renderer{indent: indent, out: out}
}

// WriteGraphs writes every graph of a book plus its join report under dir
func (r *Renderer) WriteGraphs(res *BookResult, dir string) error {
	ids := make([]string, 0, len(res.Panels))
	for id := range res.Panels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := graph.Save(res.Panels[id], filepath.Join(dir, PanelsDir, id+".json"), r.indent); err != nil {
			return err
		}
	}

	named := []struct {
		g    *graph.Graph
		file string
	}{
		{res.Hierarchy, HierarchyFile},
		{res.Sequence, SequenceFile},
		{res.Integrated, IntegratedFile},
	}
	for _, n := range named {
		if n.g == nil {
			continue
		}
		if err := graph.Save(n.g, filepath.Join(dir, n.file), r.indent); err != nil {
			return err
		}
	}
	return r.writeJSON(res.Join, filepath.Join(dir, JoinReportFile))
}

// WritePredictions writes one prediction CSV per task into dir
func (r *Renderer) WritePredictions(preds map[string]*report.ListTable, dir string) error {
	for _, task := range model.Tasks {
		t, ok := preds[task.ID]
		if !ok {
			continue
		}
		if err := t.SaveCSV(filepath.Join(dir, task.PredictionFile())); err != nil {
			return errors.Wrapf(err, "write %s predictions", task.ID)
		}
	}
	return nil
}

// RenderJSON writes the evaluation report as JSON
func (r *Renderer) RenderJSON(rep model.EvalReport, path string) error {
	return r.writeJSON(rep, path)
}

// RenderMarkdown writes a human-readable evaluation report
func (r *Renderer) RenderMarkdown(rep model.EvalReport, path string) error {
	return writeFile(path, []byte(Markdown(rep)))
}

// RenderLLMMarkdown writes the separate LLM summary file
func (r *Renderer) RenderLLMMarkdown(content, path string) error {
	return writeFile(path, []byte(content))
}

// RenderEvaluation writes evaluation.json, evaluation.md and, when a
// summary was generated, evaluation.llm.md into dir
func (r *Renderer) RenderEvaluation(rep model.EvalReport, dir string) error {
	if err := r.RenderJSON(rep, filepath.Join(dir, EvaluationJSON)); err != nil {
		return err
	}
	if err := r.RenderMarkdown(rep, filepath.Join(dir, EvaluationMD)); err != nil {
		return err
	}
	if rep.LLM != nil && rep.LLM.Enabled {
		return r.RenderLLMMarkdown(llm.RenderSeparateMarkdown(rep.LLM), filepath.Join(dir, EvaluationLLMMD))
	}
	return nil
}

// RenderSummary prints the headline metric of every task
func (r *Renderer) RenderSummary(rep model.EvalReport) {
	fmt.Fprintf(r.out, "Evaluation: %s\n", rep.Subject)
	for _, ts := range rep.Tasks {
		fmt.Fprintf(r.out, "  %-22s %-18s %.3f  (%d items, %d skipped)\n",
			ts.Task.Name, ts.Task.Metric, ts.Headline(), len(ts.Items), ts.Skipped)
	}
	if rep.LLM != nil {
		for _, w := range rep.LLM.Warnings {
			fmt.Fprintf(r.out, "  llm: %s\n", w)
		}
	}
}

// RenderBuildSummary prints what a book build produced
func (r *Renderer) RenderBuildSummary(res *BookResult) {
	fmt.Fprintf(r.out, "Book %s: %d panels (%d cached)\n", res.Book, len(res.Panels), res.CacheHits)
	if res.Integrated != nil {
		counts := res.Integrated.CountByType()
		types := make([]string, 0, len(counts))
		for t := range counts {
			types = append(types, string(t))
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(r.out, "  %-16s %d\n", t, counts[graph.NodeType(t)])
		}
		fmt.Fprintf(r.out, "  %-16s %d\n", "edges", res.Integrated.EdgeCount())
	}
	if n := len(res.Join.Orphans); n > 0 {
		fmt.Fprintf(r.out, "  orphan segments: %d\n", n)
	}
	if res.Join.Structure != nil && res.Join.Structure.HasViolations() {
		fmt.Fprintf(r.out, "  structural violations: %d\n", len(res.Join.Structure.Violations))
	}
}

// Markdown renders an evaluation report
func Markdown(rep model.EvalReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Evaluation: %s\n\n", rep.Subject)
	fmt.Fprintf(&b, "_Generated %s_\n\n", rep.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	b.WriteString("| Task | Metric | Value | Precision | Recall | F1 | Jaccard | Items | Skipped |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	for _, ts := range rep.Tasks {
		fmt.Fprintf(&b, "| %s | %s | %.3f | %.3f | %.3f | %.3f | %.3f | %d | %d |\n",
			ts.Task.Name, ts.Task.Metric, ts.Headline(),
			ts.AvgPrecision, ts.AvgRecall, ts.AvgF1, ts.AvgJaccard,
			len(ts.Items), ts.Skipped)
	}

	for _, ts := range rep.Tasks {
		fmt.Fprintf(&b, "\n## %s (%s)\n\n", ts.Task.Name, ts.Task.ID)
		if len(ts.Signals) > 0 {
			for _, s := range ts.Signals {
				fmt.Fprintf(&b, "- **%s** [%s]: %s\n", s.Type, s.Severity, s.Description)
			}
			b.WriteString("\n")
		}

		failures := ts.Failures()
		if len(failures) == 0 {
			b.WriteString("All items fully covered.\n")
			continue
		}
		fmt.Fprintf(&b, "| %s | Coverage | Missing | Extra |\n|---|---|---|---|\n", ts.Task.IDColumn)
		for i, item := range failures {
			if i == maxFailuresShown {
				fmt.Fprintf(&b, "\n_... and %d more_\n", len(failures)-maxFailuresShown)
				break
			}
			fmt.Fprintf(&b, "| `%s` | %.2f | %s | %s |\n", item.ID, item.Coverage, cell(item.Missing), cell(item.Extra))
		}
	}
	return b.String()
}

func cell(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.ReplaceAll(strings.Join(items, ", "), "|", "\\|")
}

func (r *Renderer) writeJSON(v interface{}, path string) error {
	var data []byte
	var err error
	if r.indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "create dir for %s", path)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
