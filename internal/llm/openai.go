package llm

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/logger"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/net/http/httpproxy"
)

// OpenAIProvider talks to the OpenAI Chat Completions API or any
// compatible endpoint (ollama)
type OpenAIProvider struct {
	client   *openai.Client
	config   Config
	endpoint string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, errors.WithHint(errors.New("OpenAI API key is required"),
			"set llm.api_key or PANELGRAPH_LLM_API_KEY")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient(config)

	return &OpenAIProvider{
		client:   openai.NewClientWithConfig(clientConfig),
		config:   config,
		endpoint: clientConfig.BaseURL,
	}, nil
}

// newHTTPClient builds the transport, honouring explicit proxy settings and
// falling back to the environment when none are set
func newHTTPClient(config Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy)
	return &http.Client{Transport: transport}
}

func proxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}
	resolve := (&httpproxy.Config{
		HTTPProxy:  httpProxy,
		HTTPSProxy: httpsProxy,
		NoProxy:    noProxy,
	}).ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return resolve(req.URL)
	}
}

// Name returns the configured provider name
func (p *OpenAIProvider) Name() string {
	if p.config.Provider != "" {
		return strings.ToLower(p.config.Provider)
	}
	return "openai"
}

// Endpoint returns the API base URL, used as the rate-limit key
func (p *OpenAIProvider) Endpoint() string {
	return p.endpoint
}

// IsAvailable lists models as a lightweight reachability and auth check
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	if _, err := p.client.ListModels(ctx); err != nil {
		logger.Warnw("LLM provider check failed", "provider", p.Name(), "error", err)
		return false
	}
	return true
}

// Summarize generates a summary through the Chat Completions API
func (p *OpenAIProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = BuildPrompt(req.Report, req.AllowedIDs)
	}

	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 800
	}

	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You summarize knowledge-graph reasoning evaluations and cite only the item IDs you are given.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s API error", p.Name())
	}
	if len(resp.Choices) == 0 {
		return nil, errors.Newf("no response from %s", p.Name())
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	cited := extractCitations(summary)

	if p.config.StrictEvidence {
		if err := VerifyCitations(cited, req.AllowedIDs); err != nil {
			return nil, err
		}
	}

	return &SummarizeResponse{
		Summary:    summary,
		CitedIDs:   cited,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

var citationPattern = regexp.MustCompile("`([^`\\s]+)`")

// extractCitations returns the distinct backticked tokens in text, in order
func extractCitations(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		if id := m[1]; !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
