package model

import (
	"strings"
	"time"
)

// Task describes one reasoning task and its CSV conventions
type Task struct {
	ID       string `json:"id"`        // task1..task4
	Name     string `json:"name"`      // Human-readable name
	IDColumn string `json:"id_column"` // Macro_event or Event
	Label    string `json:"label"`     // Actions, Dialogues, Characters, Panels
	Metric   string `json:"metric"`    // Name of the headline metric
	Ordered  bool   `json:"ordered"`   // List order is meaningful (panel timeline)
	PipeOnly bool   `json:"pipe_only"` // Items may contain ';' so only '|' separates them
}

// Reasoning tasks
var (
	TaskActions    = Task{ID: "task1", Name: "Action Retrieval", IDColumn: "Macro_event", Label: "Actions", Metric: "Coverage"}
	TaskDialogues  = Task{ID: "task2", Name: "Dialogue Trace", IDColumn: "Event", Label: "Dialogues", Metric: "Recall", PipeOnly: true}
	TaskCharacters = Task{ID: "task3", Name: "Character Appearance", IDColumn: "Event", Label: "Characters", Metric: "Coverage"}
	TaskPanels     = Task{ID: "task4", Name: "Panel Timeline", IDColumn: "Macro_event", Label: "Panels", Metric: "Ordering Accuracy", Ordered: true}
)

// Tasks lists every task in order
var Tasks = []Task{TaskActions, TaskDialogues, TaskCharacters, TaskPanels}

// TaskByID looks up a task
func TaskByID(id string) (Task, bool) {
	for _, t := range Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// PredictedColumn is the column name for system output
func (t Task) PredictedColumn() string {
	return "Predicted_" + t.Label
}

// GroundTruthFile is the conventional ground-truth CSV name
func (t Task) GroundTruthFile() string {
	return "ground_truth_" + t.ID + "_" + strings.ToLower(t.Label) + ".csv"
}

// PredictionFile is the conventional prediction CSV name
func (t Task) PredictionFile() string {
	return "reasoning_" + t.ID + "_" + strings.ToLower(t.Label) + ".csv"
}

// EvalReport aggregates task scores for one book or corpus
type EvalReport struct {
	Subject     string      `json:"subject"`      // Book or corpus name
	GeneratedAt time.Time   `json:"generated_at"` // When the evaluation ran
	Tasks       []TaskScore `json:"tasks"`

	LLM *LLMSummary `json:"llm,omitempty"` // Optional LLM summary (separate, never affects scores)
}

// TaskScore is the scored result of one task
type TaskScore struct {
	Task     Task        `json:"task"`
	Items    []ItemScore `json:"items"`
	Skipped  int         `json:"skipped"`   // Rows with both sides empty (partial match)
	AvgScore float64     `json:"avg_score"` // Mean coverage over ground-truth items

	AvgPrecision float64 `json:"avg_precision"`
	AvgRecall    float64 `json:"avg_recall"`
	AvgF1        float64 `json:"avg_f1"`
	AvgJaccard   float64 `json:"avg_jaccard"`
	Ordering     float64 `json:"ordering_accuracy,omitempty"` // Ordered tasks only

	Signals []Signal `json:"signals,omitempty"`
}

// ItemScore compares ground truth and prediction for one ID
type ItemScore struct {
	ID        string   `json:"id"`
	GT        []string `json:"gt"`
	Pred      []string `json:"pred"`
	Matched   []string `json:"matched,omitempty"`
	Missing   []string `json:"missing,omitempty"`
	Extra     []string `json:"extra,omitempty"`
	Coverage  float64  `json:"coverage"`
	Precision float64  `json:"precision"`
	Recall    float64  `json:"recall"`
	F1        float64  `json:"f1"`
	Jaccard   float64  `json:"jaccard"`
	Ordering  float64  `json:"ordering,omitempty"` // Pairwise order agreement, ordered tasks only
}

// Headline returns the value of the task's headline metric
func (t TaskScore) Headline() float64 {
	switch t.Task.Metric {
	case "Recall":
		return t.AvgRecall
	case "Ordering Accuracy":
		return t.Ordering
	}
	return t.AvgScore
}

// Failures returns items scoring below full coverage
func (t TaskScore) Failures() []ItemScore {
	var out []ItemScore
	for _, item := range t.Items {
		if item.Coverage < 1.0 {
			out = append(out, item)
		}
	}
	return out
}

// Signal is a diagnostic with transparent scoring data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Formula inputs
}

// SignalType classifies a signal
type SignalType string

const (
	SignalCoverage       SignalType = "coverage"        // Share of ground truth recovered
	SignalOrdering       SignalType = "ordering"        // Pairwise order agreement (timelines)
	SignalMissingItems   SignalType = "missing_items"   // Ground-truth IDs with no prediction row
	SignalUnexpectedRows SignalType = "unexpected_rows" // Prediction IDs absent from ground truth
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// LLMSummary contains an optional LLM-generated narrative of an evaluation.
// It never affects scores and is rendered separately.
type LLMSummary struct {
	Enabled        bool     `json:"enabled"`
	Provider       string   `json:"provider,omitempty"`
	Model          string   `json:"model,omitempty"`
	StrictEvidence bool     `json:"strict_evidence"`      // Whether citation enforcement was enabled
	SummaryMD      string   `json:"summary_md,omitempty"` // Markdown summary
	Warnings       []string `json:"warnings,omitempty"`   // Issues such as citation leaks
}
