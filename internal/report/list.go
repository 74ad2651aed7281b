// Package report reads and writes the two-column list CSVs exchanged by
// ground-truth generation, reasoning and scoring.
package report

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/panelgraph/internal/errors"
)

// Separator joins list items in a CSV cell
const Separator = " | "

// ListRow is one ID and its items
type ListRow struct {
	ID    string
	Items []string
}

// ListTable is an ID column plus one list-valued column
type ListTable struct {
	IDColumn    string
	ValueColumn string
	Ordered     bool // write items in the given order instead of sorted
	Rows        []ListRow
}

// NewListTable creates an empty table
func NewListTable(idColumn, valueColumn string, ordered bool) *ListTable {
	return &ListTable{IDColumn: idColumn, ValueColumn: valueColumn, Ordered: ordered}
}

// Add appends a row. Repeated IDs are kept; Get returns the first.
func (t *ListTable) Add(id string, items []string) {
	t.Rows = append(t.Rows, ListRow{ID: id, Items: items})
}

// Get returns the items of the first row with the given ID
func (t *ListTable) Get(id string) ([]string, bool) {
	for _, r := range t.Rows {
		if r.ID == id {
			return r.Items, true
		}
	}
	return nil, false
}

// IDs returns row IDs in table order, without duplicates
func (t *ListTable) IDs() []string {
	seen := make(map[string]bool, len(t.Rows))
	ids := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		ids = append(ids, r.ID)
	}
	return ids
}

// Map returns ID -> items, first row winning
func (t *ListTable) Map() map[string][]string {
	m := make(map[string][]string, len(t.Rows))
	for _, r := range t.Rows {
		if _, ok := m[r.ID]; !ok {
			m[r.ID] = r.Items
		}
	}
	return m
}

// SplitList parses a cell into items. Brackets and quotes are stripped,
// items are separated by '|' or ';', trimmed, and empties dropped.
func SplitList(s string) []string {
	return splitOn(s, "|;")
}

// SplitPipes is SplitList with '|' as the only separator
func SplitPipes(s string) []string {
	return splitOn(s, "|")
}

// Splitter returns SplitPipes when pipeOnly is set, SplitList otherwise
func Splitter(pipeOnly bool) func(string) []string {
	if pipeOnly {
		return SplitPipes
	}
	return SplitList
}

func splitOn(s, seps string) []string {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	s = strings.NewReplacer(`'`, "", `"`, "").Replace(s)
	parts := strings.FieldsFunc(s, func(r rune) bool { return strings.ContainsRune(seps, r) })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinList joins the sorted, de-duplicated, non-empty items
func JoinList(items []string) string {
	return strings.Join(SortedUnique(items), Separator)
}

// JoinOrdered joins non-empty items in order, keeping the first of any duplicates
func JoinOrdered(items []string) string {
	return strings.Join(Unique(items), Separator)
}

// SortedUnique returns the non-empty items, de-duplicated and sorted
func SortedUnique(items []string) []string {
	out := Unique(items)
	sort.Strings(out)
	return out
}

// Unique returns the non-empty items in first-seen order
func Unique(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

// WriteCSV writes the header and one row per entry
func (t *ListTable) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{t.IDColumn, t.ValueColumn}); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, r := range t.Rows {
		value := JoinList(r.Items)
		if t.Ordered {
			value = JoinOrdered(r.Items)
		}
		if err := writer.Write([]string{r.ID, value}); err != nil {
			return errors.Wrap(err, "write row")
		}
	}
	writer.Flush()
	return writer.Error()
}

// SaveCSV writes the table to path
func (t *ListTable) SaveCSV(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.Wrapf(closeErr, "close %s", path)
		}
	}()
	return t.WriteCSV(f)
}

// ReadListCSV parses a list CSV. Column names match case-insensitively:
// the ID column by name, the value column as the first other column whose
// name contains label ("Dialogues" matches "Predicted_Dialogues"). A nil
// split uses SplitList.
func ReadListCSV(r io.Reader, idColumn, label string, split func(string) []string) (*ListTable, error) {
	if split == nil {
		split = SplitList
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrMalformedInput, "empty list table")
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read header"), errors.ErrMalformedInput)
	}

	idIdx, valIdx := -1, -1
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		switch {
		case idIdx < 0 && col == strings.ToLower(idColumn):
			idIdx = i
		case valIdx < 0 && strings.Contains(col, strings.ToLower(label)):
			valIdx = i
		}
	}
	if idIdx < 0 || valIdx < 0 {
		return nil, errors.WithHint(
			errors.Wrapf(errors.ErrMalformedInput, "need columns %q and *%s*, have %v", idColumn, label, header),
			"ground-truth and prediction CSVs carry an ID column and one list column")
	}

	t := &ListTable{IDColumn: strings.TrimSpace(header[idIdx]), ValueColumn: strings.TrimSpace(header[valIdx])}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "read row"), errors.ErrMalformedInput)
		}
		if idIdx >= len(record) {
			continue
		}
		id := strings.TrimSpace(record[idIdx])
		if id == "" {
			continue
		}
		var items []string
		if valIdx < len(record) {
			items = split(record[valIdx])
		}
		t.Add(id, items)
	}
	return t, nil
}

// LoadListCSV reads a list CSV from path
func LoadListCSV(path, idColumn, label string, split func(string) []string) (*ListTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "list table %s", path)
		}
		return nil, errors.Wrapf(err, "open list table %s", path)
	}
	defer func() { _ = f.Close() }()

	t, err := ReadListCSV(f, idColumn, label, split)
	if err != nil {
		return nil, errors.Wrapf(err, "read list table %s", path)
	}
	return t, nil
}
