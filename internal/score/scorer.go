package score

import (
	"fmt"
	"sort"
	"time"

	"github.com/ppiankov/panelgraph/internal/model"
	"github.com/ppiankov/panelgraph/internal/report"
)

// Scorer compares prediction tables against ground truth and generates signals
type Scorer struct {
	now func() time.Time
}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{now: time.Now}
}

// EvaluateAll scores every task present in both gt and pred (keyed by task ID)
func (s *Scorer) EvaluateAll(subject string, gt, pred map[string]*report.ListTable) model.EvalReport {
	rep := model.EvalReport{Subject: subject, GeneratedAt: s.now().UTC()}
	for _, task := range model.Tasks {
		g, ok := gt[task.ID]
		if !ok {
			continue
		}
		p := pred[task.ID]
		if p == nil {
			p = report.NewListTable(task.IDColumn, task.PredictedColumn(), task.Ordered)
		}
		rep.Tasks = append(rep.Tasks, s.Evaluate(task, g, p))
	}
	return rep
}

// Evaluate scores one task. Every ground-truth ID is scored; a missing
// prediction row counts as an empty prediction.
func (s *Scorer) Evaluate(task model.Task, gt, pred *report.ListTable) model.TaskScore {
	result := model.TaskScore{Task: task}
	predicted := pred.Map()

	var missingRows []string
	var coverageSum, precisionSum, recallSum, f1Sum, jaccardSum float64
	var concordant, pairs int
	scored := 0

	for _, row := range gt.Rows {
		p, ok := predicted[row.ID]
		if !ok {
			missingRows = append(missingRows, row.ID)
		}

		item := s.scoreItem(row.ID, row.Items, p)
		if task.Ordered {
			c, n := orderedPairs(row.Items, p)
			concordant += c
			pairs += n
			item.Ordering = ratio(c, n)
		}
		result.Items = append(result.Items, item)
		coverageSum += item.Coverage

		if len(item.GT) == 0 && len(item.Pred) == 0 {
			result.Skipped++
			continue
		}
		scored++
		precisionSum += item.Precision
		recallSum += item.Recall
		f1Sum += item.F1
		jaccardSum += item.Jaccard
	}

	if n := len(result.Items); n > 0 {
		result.AvgScore = coverageSum / float64(n)
	}
	if scored > 0 {
		result.AvgPrecision = precisionSum / float64(scored)
		result.AvgRecall = recallSum / float64(scored)
		result.AvgF1 = f1Sum / float64(scored)
		result.AvgJaccard = jaccardSum / float64(scored)
	}

	result.Signals = append(result.Signals, s.coverageSignal(result))
	if task.Ordered {
		result.Ordering = ratio(concordant, pairs)
		result.Signals = append(result.Signals, s.orderingSignal(concordant, pairs))
	}
	if len(missingRows) > 0 {
		result.Signals = append(result.Signals, model.Signal{
			Type:        model.SignalMissingItems,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("%d ground-truth IDs have no prediction row", len(missingRows)),
			Data: map[string]interface{}{
				"count": len(missingRows),
				"ids":   missingRows,
			},
		})
	}
	if extra := unexpectedRows(gt, pred); len(extra) > 0 {
		result.Signals = append(result.Signals, model.Signal{
			Type:        model.SignalUnexpectedRows,
			Severity:    model.SeverityInfo,
			Description: fmt.Sprintf("%d prediction rows have no ground truth", len(extra)),
			Data: map[string]interface{}{
				"count": len(extra),
				"ids":   extra,
			},
		})
	}

	return result
}

// scoreItem computes coverage and partial-match metrics for one ID.
// Items compare as sets.
func (s *Scorer) scoreItem(id string, gt, pred []string) model.ItemScore {
	gtSet := toSet(gt)
	predSet := toSet(pred)

	item := model.ItemScore{ID: id, GT: report.Unique(gt), Pred: report.Unique(pred)}
	for v := range gtSet {
		if predSet[v] {
			item.Matched = append(item.Matched, v)
		} else {
			item.Missing = append(item.Missing, v)
		}
	}
	for v := range predSet {
		if !gtSet[v] {
			item.Extra = append(item.Extra, v)
		}
	}
	sort.Strings(item.Matched)
	sort.Strings(item.Missing)
	sort.Strings(item.Extra)

	matched := len(item.Matched)
	switch {
	case len(gtSet) > 0:
		item.Coverage = float64(matched) / float64(len(gtSet))
	case len(predSet) == 0:
		item.Coverage = 1.0
	}

	if len(predSet) > 0 {
		item.Precision = float64(matched) / float64(len(predSet))
	}
	if len(gtSet) > 0 {
		item.Recall = float64(matched) / float64(len(gtSet))
	}
	if item.Precision+item.Recall > 0 {
		item.F1 = 2 * item.Precision * item.Recall / (item.Precision + item.Recall)
	}
	if union := len(gtSet) + len(predSet) - matched; union > 0 {
		item.Jaccard = float64(matched) / float64(union)
	}
	return item
}

// coverageSignal reports mean coverage with its formula
func (s *Scorer) coverageSignal(ts model.TaskScore) model.Signal {
	severity := model.SeverityInfo
	if ts.AvgScore < 0.5 {
		severity = model.SeverityCritical
	} else if ts.AvgScore < 1.0 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalCoverage,
		Severity:    severity,
		Description: fmt.Sprintf("Coverage: %.2f over %d items (%d fully recovered)", ts.AvgScore, len(ts.Items), len(ts.Items)-len(ts.Failures())),
		Data: map[string]interface{}{
			"items":    len(ts.Items),
			"failures": len(ts.Failures()),
			"coverage": ts.AvgScore,
			"skipped":  ts.Skipped,
			"formula":  "mean(|gt ∩ pred| / |gt|), 1 when both are empty",
		},
	}
}

// orderingSignal reports pairwise order agreement with its formula
func (s *Scorer) orderingSignal(concordant, pairs int) model.Signal {
	accuracy := ratio(concordant, pairs)

	severity := model.SeverityInfo
	if accuracy < 0.5 {
		severity = model.SeverityCritical
	} else if accuracy < 1.0 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalOrdering,
		Severity:    severity,
		Description: fmt.Sprintf("Ordering accuracy: %d/%d ground-truth pairs in order", concordant, pairs),
		Data: map[string]interface{}{
			"concordant": concordant,
			"pairs":      pairs,
			"accuracy":   accuracy,
			"formula":    "pairs (a before b in gt) also ordered a before b in pred / all gt pairs",
		},
	}
}

// orderedPairs counts ground-truth pairs (i<j) whose order the prediction
// preserves. A pair with an element absent from pred counts as out of order.
func orderedPairs(gt, pred []string) (concordant, pairs int) {
	gt = report.Unique(gt)
	pos := make(map[string]int, len(pred))
	for i, v := range report.Unique(pred) {
		pos[v] = i
	}
	for i := 0; i < len(gt); i++ {
		for j := i + 1; j < len(gt); j++ {
			pairs++
			pi, okI := pos[gt[i]]
			pj, okJ := pos[gt[j]]
			if okI && okJ && pi < pj {
				concordant++
			}
		}
	}
	return concordant, pairs
}

// ratio is n/d, or 1 when there is nothing to compare
func ratio(n, d int) float64 {
	if d == 0 {
		return 1.0
	}
	return float64(n) / float64(d)
}

func unexpectedRows(gt, pred *report.ListTable) []string {
	known := toSet(gt.IDs())
	var extra []string
	for _, id := range pred.IDs() {
		if !known[id] {
			extra = append(extra, id)
		}
	}
	return extra
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = true
		}
	}
	return set
}
