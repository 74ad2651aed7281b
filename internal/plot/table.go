// Package plot loads the per-panel plot metadata table and derives the
// event and segment identifiers the hierarchy is built from.
package plot

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/panelgraph/internal/errors"
)

// Well-known columns
const (
	ColIndex         = "Index"
	ColPlot0         = "Plot_0"
	ColPlot1         = "Plot_1"
	ColPlot2         = "Plot_2"
	ColPlot1ID       = "Plot_1_ID"
	ColPlot2ID       = "Plot_2_ID"
	ColNarrativeTime = "Narrative_Time"
	ColScene         = "Scene"
	ColShot          = "Shot"
)

// missing cell spellings produced by spreadsheet exports
var missingValues = map[string]bool{
	"":     true,
	"nan":  true,
	"NaN":  true,
	"None": true,
	"null": true,
	"NULL": true,
}

// Row is one panel's metadata. Absent columns read as "".
type Row map[string]string

// Get returns a column value, "" when missing
func (r Row) Get(col string) string {
	return r[col]
}

// PanelID returns the Index column
func (r Row) PanelID() string {
	return r[ColIndex]
}

// Table is the metadata spreadsheet in reading order
type Table struct {
	Columns []string
	Rows    []Row
	index   map[string]int
}

// NewTable builds a table from rows, dropping rows without an Index
func NewTable(columns []string, rows []Row) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	for _, r := range rows {
		if r.PanelID() == "" {
			continue
		}
		t.Rows = append(t.Rows, r)
	}
	t.reindex()
	return t
}

// LoadCSV reads a metadata table from a CSV file with a header row
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "metadata table %s", path)
		}
		return nil, errors.Wrapf(err, "open metadata table %s", path)
	}
	defer func() { _ = f.Close() }()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read metadata table %s", path)
	}
	return t, nil
}

// ReadCSV parses a metadata table. Index is the only required column.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrMalformedInput, "empty table")
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read header"), errors.ErrMalformedInput)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	if !contains(header, ColIndex) {
		return nil, errors.WithHint(
			errors.Wrapf(errors.ErrMalformedInput, "missing column %q", ColIndex),
			"the first row must be a header naming Index, Plot_0, Plot_1, Plot_2 ...")
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "read row"), errors.ErrMalformedInput)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i >= len(record) {
				break
			}
			v := strings.TrimSpace(record[i])
			if missingValues[v] {
				continue
			}
			row[col] = v
		}
		rows = append(rows, row)
	}

	return NewTable(header, rows), nil
}

// WriteCSV writes the table with its columns in order
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return errors.Wrap(err, "write header")
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			record[i] = row[col]
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, "write row")
		}
	}
	writer.Flush()
	return writer.Error()
}

// SaveCSV writes the table to path
func (t *Table) SaveCSV(path string) (err error) {
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

// Lookup returns the row for a panel. A miss returns an empty row, never an error.
func (t *Table) Lookup(panelID string) (Row, bool) {
	if i, ok := t.index[panelID]; ok {
		return t.Rows[i], true
	}
	return Row{}, false
}

// HasColumn reports whether col is present in the header
func (t *Table) HasColumn(col string) bool {
	return contains(t.Columns, col)
}

// PanelIDs returns panel IDs in table order
func (t *Table) PanelIDs() []string {
	ids := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		ids[i] = r.PanelID()
	}
	return ids
}

// Filter returns a new table holding only rows for which keep returns true
func (t *Table) Filter(keep func(Row) bool) *Table {
	var rows []Row
	for _, r := range t.Rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return NewTable(t.Columns, rows)
}

func (t *Table) ensureColumn(col string) {
	if !t.HasColumn(col) {
		t.Columns = append(t.Columns, col)
	}
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Rows))
	for i, r := range t.Rows {
		if _, dup := t.index[r.PanelID()]; !dup {
			t.index[r.PanelID()] = i
		}
	}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
