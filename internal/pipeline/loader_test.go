package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePages(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	return dir
}

func TestLoadAnnotations_NumericPageOrder(t *testing.T) {
	dir := writePages(t, map[string]string{
		"b_10.json": `{"panels": [{"caption": "ten"}]}`,
		"b_2.json":  `{"panels": [{"caption": "two-a"}, {"caption": " two-b "}]}`,
		"c_1.json":  `{"panels": [{"caption": "other book"}]}`,
	})

	anns, err := LoadAnnotations(dir, "b")
	require.NoError(t, err)
	require.Len(t, anns, 3)

	assert.Equal(t, "b_2_0", anns[0].PanelID)
	assert.Equal(t, "b_2_1", anns[1].PanelID)
	assert.Equal(t, "two-b", anns[1].Annotation.Caption)
	assert.Equal(t, "b_10_0", anns[2].PanelID)
	assert.Equal(t, "b", anns[2].Book)
}

func TestLoadAnnotations_AllBooks(t *testing.T) {
	dir := writePages(t, map[string]string{
		"my_book_1.json": `{"panels": [{}]}`,
		"a_1.json":       `{"panels": [{}]}`,
		"cover.json":     `{"panels": [{}]}`,
	})

	anns, err := LoadAnnotations(dir, "")
	require.NoError(t, err)
	require.Len(t, anns, 2)
	assert.Equal(t, "a_1_0", anns[0].PanelID)
	assert.Equal(t, "my_book_1_0", anns[1].PanelID)
	assert.Equal(t, "my_book", anns[1].Book)
}

func TestLoadAnnotations_Errors(t *testing.T) {
	_, err := LoadAnnotations(filepath.Join(t.TempDir(), "nope"), "b")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	dir := writePages(t, map[string]string{"b_1.json": `{"panels": [`})
	_, err = LoadAnnotations(dir, "b")
	assert.True(t, errors.IsMalformedInput(err))
}
