// Package pipeline orchestrates a book build and an evaluation run.
package pipeline

import (
	"context"
	"path/filepath"

	"github.com/ppiankov/panelgraph/internal/builder"
	"github.com/ppiankov/panelgraph/internal/cache"
	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/graph"
	"github.com/ppiankov/panelgraph/internal/integrate"
	"github.com/ppiankov/panelgraph/internal/llm"
	"github.com/ppiankov/panelgraph/internal/logger"
	"github.com/ppiankov/panelgraph/internal/model"
	"github.com/ppiankov/panelgraph/internal/plot"
	"github.com/ppiankov/panelgraph/internal/reason"
	"github.com/ppiankov/panelgraph/internal/report"
	"github.com/ppiankov/panelgraph/internal/score"
	"github.com/ppiankov/panelgraph/internal/truth"
	"go.uber.org/zap"
)

// Pipeline orchestrates the complete build and evaluation process
type Pipeline struct {
	config     *model.Config
	graphs     *cache.GraphCache
	scorer     *score.Scorer
	summarizer *llm.Summarizer // Optional LLM summarizer (nil if disabled)
	log        *zap.SugaredLogger
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithCache replaces the cache built from the configuration
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) {
		p.graphs = cache.NewGraphCache(c, p.config.Cache.DiskTTL)
	}
}

// WithThrottle rate-limits LLM summary requests
func WithThrottle(t llm.Throttle) Option {
	return func(p *Pipeline) {
		if p.summarizer != nil {
			p.summarizer.WithThrottle(t)
		}
	}
}

// WithSummarizer replaces the summarizer built from the configuration
func WithSummarizer(s *llm.Summarizer) Option {
	return func(p *Pipeline) {
		p.summarizer = s
	}
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		config: cfg,
		graphs: cache.NewGraphCache(cache.New(cfg.Cache), cfg.Cache.DiskTTL),
		scorer: score.NewScorer(),
		log:    logger.Named("pipeline"),
	}

	if cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			p.log.Warnw("LLM provider unavailable, summaries disabled", "provider", cfg.LLM.Provider, "error", err)
		} else {
			p.summarizer = s
		}
	}

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BookInput names the inputs of one book
type BookInput struct {
	Book           string `json:"book"`
	AnnotationsDir string `json:"annotations_dir"`
	TablePath      string `json:"table"`
}

// BookResult holds everything built for one book
type BookResult struct {
	Book        string
	Table       *plot.Table
	Annotations []model.PanelAnnotation
	Panels      map[string]*graph.Graph
	Hierarchy   *graph.Graph
	Sequence    *graph.Graph // nil when the sequence graph is disabled
	Integrated  *graph.Graph
	Join        integrate.JoinReport
	Stats       builder.Stats
	CacheHits   int
}

// BuildBook runs the whole build for one book. With strict integration a
// structural violation is returned together with the (complete) result.
func (p *Pipeline) BuildBook(ctx context.Context, in BookInput) (*BookResult, error) {
	log := p.log.With("book", in.Book)

	// 1. Load metadata, keep the book's rows
	table, err := plot.LoadCSV(in.TablePath)
	if err != nil {
		return nil, errors.Wrap(err, "load metadata")
	}
	if in.Book != "" {
		table = table.Filter(func(r plot.Row) bool { return plot.BookOf(r.PanelID()) == in.Book })
	}

	// 2. Reading order, then forward-fill and assign IDs
	table.SortRows()
	if table.EnsureIDs() {
		log.Debugw("assigned plot IDs", "rows", len(table.Rows))
	}
	orders, err := p.config.StoryOrders()
	if err != nil {
		return nil, errors.Wrap(err, "storytime overrides")
	}

	// 3. Load annotations
	annotations, err := LoadAnnotations(in.AnnotationsDir, in.Book)
	if err != nil {
		return nil, errors.Wrap(err, "load annotations")
	}

	result := &BookResult{
		Book:        in.Book,
		Table:       table,
		Annotations: annotations,
		Panels:      make(map[string]*graph.Graph, len(annotations)),
	}
	session := builder.NewSession(builder.Options{CharacterScope: p.config.Graph.CharacterScope})

	// 4. Panel-content graphs, memoized
	for _, pa := range annotations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		meta, _ := table.Lookup(pa.PanelID)
		key := cache.PanelKey(pa.PanelID, pa.Annotation, meta, session.Scope())
		if g, ok := p.graphs.Get(key); ok {
			result.Panels[pa.PanelID] = g
			result.CacheHits++
			continue
		}
		g, err := session.BuildPanel(pa.PanelID, pa.Annotation, meta)
		if err != nil {
			return nil, errors.Wrapf(err, "build panel %s", pa.PanelID)
		}
		if err := p.graphs.Put(key, g); err != nil {
			log.Warnw("failed to cache panel graph", "panel", pa.PanelID, "error", err)
		}
		result.Panels[pa.PanelID] = g
	}

	// 5. Event hierarchy
	result.Hierarchy, err = session.BuildHierarchy(table, orders)
	if err != nil {
		return nil, errors.Wrap(err, "build hierarchy")
	}

	// 6. Reading sequence
	if p.config.Graph.IncludeSequence {
		result.Sequence, err = session.BuildSequence(table)
		if err != nil {
			return nil, errors.Wrap(err, "build sequence")
		}
	}

	// 7. Integrate
	integrated, err := integrate.Integrate(ctx, integrate.Inputs{
		Hierarchy: result.Hierarchy,
		Panels:    result.Panels,
		Sequence:  result.Sequence,
		Strict:    p.config.Graph.Strict,
	})
	if integrated != nil {
		result.Integrated = integrated.Graph
		result.Join = integrated.Join
	}
	result.Stats = session.Stats()
	result.Stats.Panels += result.CacheHits

	log.Infow("book built",
		"panels", len(result.Panels),
		"cache_hits", result.CacheHits,
		"skipped_actions", result.Stats.SkippedActions,
		"skipped_rows", result.Stats.SkippedRows,
	)
	if err != nil {
		if integrated == nil {
			return nil, err
		}
		return result, err
	}
	return result, nil
}

// EvalResult is the outcome of one evaluation run
type EvalResult struct {
	Report      model.EvalReport
	Predictions map[string]*report.ListTable // keyed by task ID
}

// Evaluate runs the four tasks on g for the IDs in gt and scores the predictions
func (p *Pipeline) Evaluate(ctx context.Context, g *graph.Graph, gt map[string]*report.ListTable, subject string) (*EvalResult, error) {
	if g == nil {
		return nil, errors.Wrap(errors.ErrMalformedInput, "evaluate: graph is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	preds := reason.NewReasoner(g).RunAll(truth.IDs(gt))
	rep, err := p.Score(ctx, gt, preds, subject)
	if err != nil {
		return nil, err
	}
	return &EvalResult{Report: rep, Predictions: preds}, nil
}

// EvaluateDir is Evaluate with ground truth read from gtDir
func (p *Pipeline) EvaluateDir(ctx context.Context, g *graph.Graph, gtDir, subject string) (*EvalResult, error) {
	gt, err := truth.Load(gtDir)
	if err != nil {
		return nil, errors.Wrap(err, "load ground truth")
	}
	return p.Evaluate(ctx, g, gt, subject)
}

// Score scores existing predictions. The LLM summary, when enabled, is
// generated after scoring and never changes a score.
func (p *Pipeline) Score(ctx context.Context, gt, pred map[string]*report.ListTable, subject string) (model.EvalReport, error) {
	rep := p.scorer.EvaluateAll(subject, gt, pred)
	for _, ts := range rep.Tasks {
		p.log.Infow("task scored", "subject", subject, "task", ts.Task.ID, "metric", ts.Task.Metric, "value", ts.Headline(), "items", len(ts.Items))
	}

	if p.summarizer != nil && p.summarizer.IsEnabled() {
		summary, err := p.summarizer.GenerateSummary(ctx, rep)
		if err != nil {
			p.log.Warnw("LLM summary generation failed", "error", err)
		} else if summary != nil {
			rep.LLM = summary
		}
	}
	return rep, nil
}

// LoadPredictions reads the prediction CSVs in dir. A task without a file
// is left out, and scores as all-missing.
func LoadPredictions(dir string) (map[string]*report.ListTable, error) {
	out := make(map[string]*report.ListTable, len(model.Tasks))
	for _, task := range model.Tasks {
		path := filepath.Join(dir, task.PredictionFile())
		t, err := report.LoadListCSV(path, task.IDColumn, task.Label, report.Splitter(task.PipeOnly))
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				logger.Warnw("prediction file missing", "task", task.ID, "path", path)
				continue
			}
			return nil, err
		}
		out[task.ID] = t
	}
	return out, nil
}
