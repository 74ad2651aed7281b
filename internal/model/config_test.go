package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, CharacterScopeGlobal, cfg.Graph.CharacterScope)
	assert.True(t, cfg.Graph.Strict)
	assert.True(t, cfg.LLM.StrictEvidence)
	assert.Empty(t, cfg.LLM.Provider, "LLM must be disabled by default")
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad scope", func(c *Config) { c.Graph.CharacterScope = "galaxy" }},
		{"zero workers", func(c *Config) { c.Concurrency.Books = 0 }},
		{"half pair", func(c *Config) { c.Storytime.Overrides = []StoryOrder{{Before: "a"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigYAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storytime.Overrides = []StoryOrder{{Before: "Intro_1", After: "Get new rice_cooker_1"}}

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "memory_ttl: 1h0m0s")

	var back Config
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, *cfg, back)
}

func TestLoadStorytimeOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.yaml")
	content := `overrides:
  - before: Intro_1
    after: Get new rice_cooker_1
  - [Think of family_1, Message from family_1]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	orders, err := LoadStorytimeOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, []StoryOrder{
		{Before: "Intro_1", After: "Get new rice_cooker_1"},
		{Before: "Think of family_1", After: "Message from family_1"},
	}, orders)

	cfg := DefaultConfig()
	cfg.Storytime.Overrides = []StoryOrder{{Before: "a_1", After: "b_1"}}
	cfg.Storytime.OverridesFile = path
	all, err := cfg.StoryOrders()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a_1", all[0].Before)
}

func TestLoadStorytimeOverrides_BadPair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "story.yaml")
	require.NoError(t, os.WriteFile(path, []byte("overrides:\n  - [only_one]\n"), 0644))
	_, err := LoadStorytimeOverrides(path)
	assert.Error(t, err)
}

func TestTaskFiles(t *testing.T) {
	assert.Equal(t, "ground_truth_task1_actions.csv", TaskActions.GroundTruthFile())
	assert.Equal(t, "reasoning_task4_panels.csv", TaskPanels.PredictionFile())
	assert.Equal(t, "Predicted_Dialogues", TaskDialogues.PredictedColumn())

	task, ok := TaskByID("task3")
	require.True(t, ok)
	assert.Equal(t, "Event", task.IDColumn)
	_, ok = TaskByID("task9")
	assert.False(t, ok)
}
