package model

import (
	"os"
	"time"

	"github.com/ppiankov/panelgraph/internal/errors"
	"gopkg.in/yaml.v3"
)

// Character identity scopes
const (
	CharacterScopeGlobal = "global"
	CharacterScopeBook   = "book"
)

// Config is the complete panelgraph configuration
type Config struct {
	Graph       GraphConfig       `yaml:"graph" mapstructure:"graph"`
	Storytime   StorytimeConfig   `yaml:"storytime" mapstructure:"storytime"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
}

// GraphConfig controls graph construction and integration
type GraphConfig struct {
	CharacterScope  string `yaml:"character_scope" mapstructure:"character_scope"`   // global | book
	Strict          bool   `yaml:"strict" mapstructure:"strict"`                     // structural violations are errors
	IncludeSequence bool   `yaml:"include_sequence" mapstructure:"include_sequence"` // build and merge the sequence graph
}

// StorytimeConfig carries curated precedes_storytime pairs for one corpus
type StorytimeConfig struct {
	Overrides     []StoryOrder `yaml:"overrides" mapstructure:"overrides"`
	OverridesFile string       `yaml:"overrides_file,omitempty" mapstructure:"overrides_file"`
}

// StoryOrder says Before happens before After in story time (node IDs)
type StoryOrder struct {
	Before string `yaml:"before" mapstructure:"before"`
	After  string `yaml:"after" mapstructure:"after"`
}

// UnmarshalYAML accepts both {before: a, after: b} and the short [a, b] form
func (s *StoryOrder) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		if len(node.Content) != 2 {
			return errors.Newf("line %d: storytime pair needs exactly 2 entries, got %d", node.Line, len(node.Content))
		}
		s.Before = node.Content[0].Value
		s.After = node.Content[1].Value
		return nil
	}
	type plain StoryOrder
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = StoryOrder(p)
	return nil
}

// OutputConfig controls where and how artifacts are written
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Indent bool   `yaml:"indent" mapstructure:"indent"`
}

// CacheConfig controls memoization of panel-content graphs
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig bounds batch parallelism
type ConcurrencyConfig struct {
	Books int `yaml:"books" mapstructure:"books"`
}

// LLMConfig configures the optional evaluation summary
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // openai, ollama, "" (disabled)
	Model             string  `yaml:"model" mapstructure:"model"`
	APIKey            string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	StrictEvidence    bool    `yaml:"strict_evidence" mapstructure:"strict_evidence"`
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	HTTPProxy         string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string  `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Graph: GraphConfig{
			CharacterScope:  CharacterScopeGlobal,
			Strict:          true,
			IncludeSequence: true,
		},
		Storytime: StorytimeConfig{
			Overrides: []StoryOrder{},
		},
		Output: OutputConfig{
			Dir:    "./output",
			Indent: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultCacheDir(),
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Books: 2,
		},
		LLM: LLMConfig{
			Provider:          "",
			Timeout:           30,
			StrictEvidence:    true,
			MaxTokens:         800,
			RequestsPerSecond: 1,
		},
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + "/panelgraph"
	}
	return ".panelgraph-cache"
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	switch c.Graph.CharacterScope {
	case CharacterScopeGlobal, CharacterScopeBook:
	default:
		return errors.Newf("graph.character_scope must be %q or %q, got %q", CharacterScopeGlobal, CharacterScopeBook, c.Graph.CharacterScope)
	}
	if c.Concurrency.Books < 1 {
		return errors.Newf("concurrency.books must be >= 1, got %d", c.Concurrency.Books)
	}
	for i, o := range c.Storytime.Overrides {
		if o.Before == "" || o.After == "" {
			return errors.Newf("storytime.overrides[%d]: before and after are required", i)
		}
	}
	return nil
}

// StoryOrders returns inline overrides followed by those from OverridesFile
func (c *Config) StoryOrders() ([]StoryOrder, error) {
	orders := append([]StoryOrder(nil), c.Storytime.Overrides...)
	if c.Storytime.OverridesFile == "" {
		return orders, nil
	}
	fromFile, err := LoadStorytimeOverrides(c.Storytime.OverridesFile)
	if err != nil {
		return nil, err
	}
	return append(orders, fromFile...), nil
}

// LoadStorytimeOverrides reads a YAML file of the form
//
//	overrides:
//	  - before: Intro_1
//	    after: Get new rice_cooker_1
//	  - [Think of family_1, Message from family_1]
func LoadStorytimeOverrides(path string) ([]StoryOrder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read storytime overrides")
	}
	var doc struct {
		Overrides []StoryOrder `yaml:"overrides"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "parse storytime overrides %s", path), errors.ErrMalformedInput)
	}
	return doc.Overrides, nil
}
