package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/panelgraph/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plotCSV = `Index,Plot_0,Plot_1,Plot_2,Narrative_Time
0_0_0,macro_A,event,setup,1
0_0_1,,,talk,2
0_1_0,,next,fight,3
`

var annotationPages = map[string]string{
	"0_0.json": `{"panels": [
		{"characters": ["Tom"], "actions": ["Tom throws ball"], "textual": {"dialogues": ["Catch!"]}},
		{"characters": ["Ann"], "actions": ["Ann kicks Tom"], "textual": {"dialogues": ["Ouch"]}}
	]}`,
	"0_1.json": `{"panels": [{"characters": ["Tom"], "actions": ["Tom eats cake"]}]}`,
}

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	ann := filepath.Join(dir, "ann")
	require.NoError(t, os.MkdirAll(ann, 0755))
	for name, body := range annotationPages {
		require.NoError(t, os.WriteFile(filepath.Join(ann, name), []byte(body), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plot.csv"), []byte(plotCSV), 0644))
	return dir
}

func run(t *testing.T, dir string, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(dir, "absent.yaml")))
	require.NoError(t, rootCmd.Execute(), buf.String())
	return buf.String()
}

func TestCommands_EndToEnd(t *testing.T) {
	dir := fixtureDir(t)
	p := func(parts ...string) string { return filepath.Join(append([]string{dir}, parts...)...) }

	out := run(t, dir, "assign", "--table", p("plot.csv"), "--out", p("ids.csv"))
	assert.Contains(t, out, "Assigned IDs to 3 rows")
	data, err := os.ReadFile(p("ids.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Plot_1_ID")

	run(t, dir, "build", "--annotations", p("ann"), "--table", p("ids.csv"), "--book", "0", "--out", p("out"), "--no-cache")
	assert.FileExists(t, p("out", pipeline.IntegratedFile))
	assert.FileExists(t, p("out", pipeline.JoinReportFile))

	run(t, dir, "truth", "--annotations", p("ann"), "--table", p("plot.csv"), "--book", "0", "--out", p("truth"))
	assert.FileExists(t, p("truth", "ground_truth_task1_actions.csv"))

	run(t, dir, "reason", "--graph", p("out", pipeline.IntegratedFile), "--truth", p("truth"), "--out", p("pred"))
	assert.FileExists(t, p("pred", "reasoning_task4_panels.csv"))

	out = run(t, dir, "eval", "--truth", p("truth"), "--pred", p("pred"), "--out", p("eval"), "--subject", "0")
	assert.Contains(t, out, "Action Retrieval")
	assert.FileExists(t, p("eval", pipeline.EvaluationJSON))
	assert.FileExists(t, p("eval", pipeline.EvaluationMD))

	out = run(t, dir, "query", "actions", "--graph", p("out", pipeline.IntegratedFile), "macro_A")
	assert.Contains(t, out, "macro_A\teats | kicks | throws")
}

func TestBatchCommand(t *testing.T) {
	dir := fixtureDir(t)
	manifest := filepath.Join(dir, "books.tsv")
	require.NoError(t, os.WriteFile(manifest, []byte("# book\tannotations\ttable\n0\tann\tplot.csv\n"), 0644))

	run(t, dir, "truth", "--annotations", filepath.Join(dir, "ann"), "--table", filepath.Join(dir, "plot.csv"),
		"--book", "0", "--out", filepath.Join(dir, "truth", "0"))
	run(t, dir, "batch", "--books", manifest, "--out", filepath.Join(dir, "batch"), "--concurrency", "2",
		"--truth", filepath.Join(dir, "truth"), "--no-cache")

	assert.FileExists(t, filepath.Join(dir, "batch", "0", pipeline.IntegratedFile))
	assert.FileExists(t, filepath.Join(dir, "batch", "0", pipeline.EvaluationJSON))
	assert.FileExists(t, filepath.Join(dir, "batch", "0", "predictions", "reasoning_task1_actions.csv"))
}

func TestVersion(t *testing.T) {
	out := run(t, t.TempDir(), "version")
	assert.Contains(t, out, "panelgraph "+Version)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b-c", sanitizeFilename("a/b c"))
	assert.Equal(t, "_", sanitizeFilename(".."))
}
