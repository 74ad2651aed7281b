package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/panelgraph/internal/cache"
	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/graph"
	"github.com/ppiankov/panelgraph/internal/model"
	"github.com/ppiankov/panelgraph/internal/reason"
	"github.com/ppiankov/panelgraph/internal/truth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const table = `Index,Plot_0,Plot_1,Plot_2,Narrative_Time
0_0_0,macro_A,event,setup,1
0_0_1,,,talk,2
0_1_0,,next,fight,3
9_0_0,macro_Z,other,elsewhere,1
`

var pages = map[string]string{
	"0_0.json": `{"panels": [
		{"characters": ["Tom"], "actions": ["Tom throws ball"], "textual": {"dialogues": ["Catch!"]}},
		{"characters": [" Ann "], "actions": ["Ann kicks Tom"], "textual": {"dialogues": ["Ouch"]}}
	]}`,
	"0_1.json": `{"panels": [
		{"characters": ["Tom"], "actions": ["Tom eats cake"], "textual": {"dialogues": []}}
	]}`,
	"9_0.json":  `{"panels": [{"characters": ["Zed"]}]}`,
	"notes.txt": "ignored",
}

func writeFixture(t *testing.T) BookInput {
	t.Helper()
	dir := t.TempDir()
	annDir := filepath.Join(dir, "annotations")
	require.NoError(t, os.MkdirAll(annDir, 0755))
	for name, body := range pages {
		require.NoError(t, os.WriteFile(filepath.Join(annDir, name), []byte(body), 0644))
	}
	tablePath := filepath.Join(dir, "plot.csv")
	require.NoError(t, os.WriteFile(tablePath, []byte(table), 0644))
	return BookInput{Book: "0", AnnotationsDir: annDir, TablePath: tablePath}
}

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	return cfg
}

func TestBuildBook(t *testing.T) {
	in := writeFixture(t)
	p := NewPipeline(testConfig())

	res, err := p.BuildBook(context.Background(), in)
	require.NoError(t, err)

	assert.Len(t, res.Panels, 3)
	assert.Len(t, res.Table.Rows, 3, "rows of other books are filtered out")
	assert.NotNil(t, res.Sequence)
	assert.Empty(t, res.Join.Orphans)
	assert.False(t, res.Join.Structure.HasViolations())

	g := res.Integrated
	assert.True(t, g.HasEdge("0_0_0", "seg001", graph.RelInstantiates))
	assert.True(t, g.HasEdge("seg003", "next_1", graph.RelSubeventOf))
	assert.False(t, g.HasNode("9_0_0"))
	assert.Equal(t, graph.TypeCharacter, g.TypeOf("Ann"), "names are trimmed on load")
	assert.Equal(t, []string{"eats", "kicks", "throws"}, reason.ActionsUnder(g, "macro_A"))
}

func TestBuildBook_NoSequence(t *testing.T) {
	in := writeFixture(t)
	cfg := testConfig()
	cfg.Graph.IncludeSequence = false

	res, err := NewPipeline(cfg).BuildBook(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, res.Sequence)
	assert.NotNil(t, res.Integrated)
}

func TestBuildBook_CacheHits(t *testing.T) {
	in := writeFixture(t)
	shared := cache.NewMemoryCache(time.Hour, time.Minute)
	p := NewPipeline(testConfig(), WithCache(shared))

	first, err := p.BuildBook(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 0, first.CacheHits)

	second, err := p.BuildBook(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 3, second.CacheHits)
	assert.Equal(t, 3, first.Stats.Panels)
	assert.Equal(t, 3, second.Stats.Panels, "cached panels still count")
	assert.Equal(t, first.Integrated.NodeCount(), second.Integrated.NodeCount())
	assert.Equal(t, first.Integrated.EdgeCount(), second.Integrated.EdgeCount())
}

func TestBuildBook_UnsortedTable(t *testing.T) {
	in := writeFixture(t)
	shuffled := "Index,Plot_0,Plot_1,Plot_2,Narrative_Time\n" +
		"0_1_0,,next,fight,3\n" +
		"9_0_0,macro_Z,other,elsewhere,1\n" +
		"0_0_1,,,talk,2\n" +
		"0_0_0,macro_A,event,setup,1\n"
	require.NoError(t, os.WriteFile(in.TablePath, []byte(shuffled), 0644))

	res, err := NewPipeline(testConfig()).BuildBook(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, []string{"0_0_0", "0_0_1", "0_1_0"}, res.Table.PanelIDs())
	g := res.Integrated
	assert.True(t, g.HasEdge("0_0_0", "seg001", graph.RelInstantiates))
	assert.True(t, g.HasEdge("0_0_1", "seg002", graph.RelInstantiates))
	assert.True(t, g.HasEdge("seg003", "next_1", graph.RelSubeventOf))
	assert.True(t, g.HasEdge("next_1", "macro_A", graph.RelSubeventOf))
}

func TestBuildBook_MissingTable(t *testing.T) {
	in := writeFixture(t)
	in.TablePath = filepath.Join(t.TempDir(), "missing.csv")

	_, err := NewPipeline(testConfig()).BuildBook(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestBuildBook_Cancelled(t *testing.T) {
	in := writeFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(testConfig()).BuildBook(ctx, in)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluate_AgainstOwnGroundTruth(t *testing.T) {
	in := writeFixture(t)
	p := NewPipeline(testConfig())
	res, err := p.BuildBook(context.Background(), in)
	require.NoError(t, err)

	gt := truth.NewGenerator(res.Table, res.Annotations).All()
	out, err := p.Evaluate(context.Background(), res.Integrated, gt, "0")
	require.NoError(t, err)

	require.Len(t, out.Report.Tasks, 4)
	assert.Nil(t, out.Report.LLM)
	for _, ts := range out.Report.Tasks {
		if ts.Task.ID == model.TaskActions.ID {
			assert.Equal(t, 1.0, ts.Headline())
		}
		if ts.Task.ID == model.TaskPanels.ID {
			assert.Equal(t, 1.0, ts.Headline())
		}
	}
	assert.Len(t, out.Predictions, 4)
}

func TestEvaluate_RequiresGraph(t *testing.T) {
	_, err := NewPipeline(testConfig()).Evaluate(context.Background(), nil, nil, "x")
	assert.True(t, errors.IsMalformedInput(err))
}

func TestRoundTripThroughFiles(t *testing.T) {
	in := writeFixture(t)
	p := NewPipeline(testConfig())
	res, err := p.BuildBook(context.Background(), in)
	require.NoError(t, err)

	out := t.TempDir()
	var buf bytes.Buffer
	r := NewRenderer(true, &buf)
	require.NoError(t, r.WriteGraphs(res, out))
	for _, f := range []string{HierarchyFile, SequenceFile, IntegratedFile, JoinReportFile, filepath.Join(PanelsDir, "0_1_0.json")} {
		assert.FileExists(t, filepath.Join(out, f))
	}

	g, err := graph.Load(filepath.Join(out, IntegratedFile))
	require.NoError(t, err)
	assert.Equal(t, res.Integrated.EdgeCount(), g.EdgeCount())

	gtDir := filepath.Join(out, "truth")
	require.NoError(t, truth.NewGenerator(res.Table, res.Annotations).WriteAll(gtDir))
	evaluated, err := p.EvaluateDir(context.Background(), g, gtDir, "0")
	require.NoError(t, err)

	predDir := filepath.Join(out, "pred")
	require.NoError(t, r.WritePredictions(evaluated.Predictions, predDir))
	preds, err := LoadPredictions(predDir)
	require.NoError(t, err)
	assert.Len(t, preds, 4)

	gt, err := truth.Load(gtDir)
	require.NoError(t, err)
	rescored, err := p.Score(context.Background(), gt, preds, "0")
	require.NoError(t, err)
	require.Len(t, rescored.Tasks, 4)
	for i := range rescored.Tasks {
		assert.InDelta(t, evaluated.Report.Tasks[i].Headline(), rescored.Tasks[i].Headline(), 1e-9)
	}

	require.NoError(t, r.RenderEvaluation(rescored, out))
	assert.FileExists(t, filepath.Join(out, EvaluationJSON))
	assert.FileExists(t, filepath.Join(out, EvaluationMD))
	assert.NoFileExists(t, filepath.Join(out, EvaluationLLMMD))

	r.RenderSummary(rescored)
	assert.Contains(t, buf.String(), "Action Retrieval")
}

func TestLoadPredictions_MissingFilesSkipped(t *testing.T) {
	preds, err := LoadPredictions(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, preds)
}
