package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/model"
)

// Throttle delays a request to an endpoint; worker.Limiter satisfies it
type Throttle interface {
	Wait(ctx context.Context, endpoint string) error
}

// Summarizer adds an optional narrative to an evaluation. It runs after
// scoring and never changes a score; failures become warnings.
type Summarizer struct {
	provider Provider
	config   Config
	throttle Throttle
}

// NewSummarizer creates a summarizer; a disabled config yields a summarizer
// whose GenerateSummary returns nil
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// WithThrottle rate-limits provider calls through t
func (s *Summarizer) WithThrottle(t Throttle) *Summarizer {
	s.throttle = t
	return s
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s.provider != nil
}

// ProviderName returns the provider name, or "" when disabled
func (s *Summarizer) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary asks the provider for a summary of report. It returns
// nil when disabled and never returns an error: unavailability, provider
// failures and citation leaks are recorded in Warnings.
func (s *Summarizer) GenerateSummary(ctx context.Context, report model.EvalReport) (*model.LLMSummary, error) {
	if s.provider == nil {
		return nil, nil
	}

	summary := &model.LLMSummary{
		Enabled:        true,
		Provider:       s.provider.Name(),
		Model:          s.config.Model,
		StrictEvidence: s.config.StrictEvidence,
	}

	if s.throttle != nil {
		if err := s.throttle.Wait(ctx, s.endpoint()); err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("Summary skipped: rate limit wait failed: %v", err))
			return summary, nil
		}
	}

	if !s.provider.IsAvailable(ctx) {
		summary.Enabled = false
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Provider %s is not available (check API key or endpoint)", s.provider.Name()))
		return summary, nil
	}

	allowed := AllowedIDs(report)
	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:     report,
		AllowedIDs: allowed,
		Model:      s.config.Model,
		MaxTokens:  s.config.MaxTokens,
	})
	if err != nil {
		msg := fmt.Sprintf("Summary generation failed: %v", err)
		if errors.Is(err, ErrCitationLeak) {
			msg = fmt.Sprintf("Summary generation failed: CITATION LEAK, %v", err)
		}
		summary.Warnings = append(summary.Warnings, msg)
		return summary, nil
	}

	summary.SummaryMD = resp.Summary
	if resp.Model != "" {
		summary.Model = resp.Model
	}
	if resp.TokensUsed > 0 {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	}
	if s.config.StrictEvidence {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Verified %d citations against %d allowed IDs", len(resp.CitedIDs), len(allowed)))
	}
	return summary, nil
}

func (s *Summarizer) endpoint() string {
	if e, ok := s.provider.(interface{ Endpoint() string }); ok {
		return e.Endpoint()
	}
	return s.provider.Name()
}

// RenderSeparateMarkdown renders the summary as its own document, kept
// apart from the scored evaluation. Returns "" when there is nothing to render.
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# LLM Summary\n\n")
	b.WriteString("> **GENERATED CONTENT.** This text was written by a language model from the evaluation below.\n")
	b.WriteString("> All scores were determined independently of it and are not affected by it.\n\n")

	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Provider | %s |\n", summary.Provider)
	if summary.Model != "" {
		fmt.Fprintf(&b, "| Model | %s |\n", summary.Model)
	}
	fmt.Fprintf(&b, "| Strict Evidence Mode | %t |\n\n", summary.StrictEvidence)

	b.WriteString("## Summary\n\n")
	if summary.SummaryMD != "" {
		b.WriteString(summary.SummaryMD)
		b.WriteString("\n")
	} else {
		b.WriteString("_No summary generated._\n")
	}

	if len(summary.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
