package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/model"
)

// ErrCitationLeak marks a response citing an ID outside the allowlist
var ErrCitationLeak = errors.New("citation leak")

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize generates a summary of the evaluation with strict evidence mode
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	// Report is the evaluation to summarize
	Report model.EvalReport

	// AllowedIDs is the strict allowlist of item IDs the model may cite
	AllowedIDs []string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	Summary    string
	CitedIDs   []string // backticked IDs found in the summary
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", "" (disabled)
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI; not needed for a local ollama
	APIKey string

	// BaseURL overrides the API endpoint
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictEvidence rejects responses citing IDs outside the allowlist
	StrictEvidence bool

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings; empty falls back to the environment
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns the defaults: disabled, strict
func DefaultConfig() Config {
	return Config{
		Provider:       "",
		Timeout:        30,
		StrictEvidence: true,
		MaxTokens:      800,
	}
}

// maxPromptIDs bounds the allowlist shown to the model
const maxPromptIDs = 40

// BuildPrompt constructs the default prompt. The model may only cite IDs
// from allowed, each in backticks.
func BuildPrompt(report model.EvalReport, allowed []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are summarizing a panelgraph reasoning evaluation. Scores compare answers read off a comic-book knowledge graph against ground truth derived from the annotations. The scores are final; you only describe them.

CRITICAL RULES:
1. You MUST ONLY cite item IDs from this allowed list, each wrapped in backticks:
%s

2. DO NOT infer, speculate, or mention IDs, characters or events beyond this list.
3. Do not recompute or adjust any score.
4. If results are missing or empty, state that explicitly.

Evaluation Summary:
- Subject: %s
- Tasks evaluated: %d
`, joinIDs(allowed), report.Subject, len(report.Tasks))

	for _, ts := range report.Tasks {
		fmt.Fprintf(&b, "- %s (%s): %s %.2f over %d items, %d below full coverage\n",
			ts.Task.Name, ts.Task.ID, ts.Task.Metric, ts.Headline(), len(ts.Items), len(ts.Failures()))
	}

	b.WriteString("\nKey Signals:\n")
	shown := 0
	for _, ts := range report.Tasks {
		for _, s := range ts.Signals {
			if s.Severity == model.SeverityInfo || shown >= 6 {
				continue
			}
			fmt.Fprintf(&b, "- [%s] %s: %s\n", ts.Task.ID, s.Type, s.Description)
			shown++
		}
	}
	if shown == 0 {
		b.WriteString("- (none above info level)\n")
	}

	b.WriteString("\nProvide a 3-4 sentence summary of where graph reasoning falls short of the ground truth.")
	return b.String()
}

// AllowedIDs returns every evaluated item ID, sorted
func AllowedIDs(report model.EvalReport) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, ts := range report.Tasks {
		for _, item := range ts.Items {
			if !seen[item.ID] {
				seen[item.ID] = true
				ids = append(ids, item.ID)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// VerifyCitations returns an error marked ErrCitationLeak for the first
// cited ID not in allowed
func VerifyCitations(cited, allowed []string) error {
	ok := make(map[string]bool, len(allowed))
	for _, id := range allowed {
		ok[id] = true
	}
	for _, id := range cited {
		if !ok[id] {
			return errors.Wrapf(ErrCitationLeak, "model cited disallowed ID %q", id)
		}
	}
	return nil
}

func joinIDs(ids []string) string {
	if len(ids) == 0 {
		return "(No item IDs available)"
	}
	var b strings.Builder
	for i, id := range ids {
		if i >= maxPromptIDs {
			fmt.Fprintf(&b, "\n... and %d more IDs", len(ids)-maxPromptIDs)
			break
		}
		fmt.Fprintf(&b, "\n- `%s`", id)
	}
	return b.String()
}
