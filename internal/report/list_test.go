package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"throws | runs", []string{"throws", "runs"}},
		{"throws; runs;", []string{"throws", "runs"}},
		{"['throws', 'runs']", []string{"throws, runs"}},
		{"[\"a\" | \"b\"]", []string{"a", "b"}},
		{" | ; ", []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitList(tt.in), "input %q", tt.in)
	}
}

func TestSplitPipes_KeepsSemicolons(t *testing.T) {
	assert.Equal(t, []string{"Wait; what?", "Run"}, SplitPipes("Wait; what? | Run"))
	assert.Equal(t, []string{"Wait", "what?", "Run"}, Splitter(false)("Wait; what? | Run"))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a | b", JoinList([]string{"b", "a", "b", ""}))
	assert.Equal(t, "0_0_2 | 0_0_1", JoinOrdered([]string{"0_0_2", "0_0_1", "0_0_2"}))
	assert.Equal(t, "", JoinList(nil))
}

func TestListTable_RoundTrip(t *testing.T) {
	tbl := NewListTable("Macro_event", "Predicted_Panels", true)
	tbl.Add("macro_A", []string{"0_0_1", "0_0_0"})
	tbl.Add("macro_B", nil)

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))
	assert.Equal(t, "Macro_event,Predicted_Panels\nmacro_A,0_0_1 | 0_0_0\nmacro_B,\n", buf.String())

	back, err := ReadListCSV(&buf, "macro_event", "Panels", nil)
	require.NoError(t, err)
	assert.Equal(t, "Predicted_Panels", back.ValueColumn)
	assert.Equal(t, []string{"macro_A", "macro_B"}, back.IDs())

	items, ok := back.Get("macro_A")
	require.True(t, ok)
	assert.Equal(t, []string{"0_0_1", "0_0_0"}, items)

	items, ok = back.Get("macro_B")
	assert.True(t, ok)
	assert.Empty(t, items)
}

func TestReadListCSV_MissingColumn(t *testing.T) {
	_, err := ReadListCSV(strings.NewReader("Event,Other\ne1,x\n"), "Event", "Dialogues", nil)
	require.Error(t, err)
	assert.True(t, errors.IsMalformedInput(err))

	_, err = ReadListCSV(strings.NewReader(""), "Event", "Dialogues", nil)
	assert.True(t, errors.IsMalformedInput(err))
}

func TestLoadListCSV_NotFound(t *testing.T) {
	_, err := LoadListCSV(t.TempDir()+"/nope.csv", "Event", "Dialogues", nil)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
