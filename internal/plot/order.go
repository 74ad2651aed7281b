package plot

import (
	"sort"
	"strconv"
	"strings"
)

// PanelRef is a parsed "<book>_<page>_<panel>" identifier
type PanelRef struct {
	Book  string
	Page  int
	Panel int
}

// ParsePanelID splits a panel ID. The book part may itself contain
// underscores; page and panel are the last two numeric fields.
func ParsePanelID(id string) (PanelRef, bool) {
	parts := strings.Split(id, "_")
	if len(parts) < 3 {
		return PanelRef{}, false
	}
	n := len(parts)
	page, err := strconv.Atoi(parts[n-2])
	if err != nil {
		return PanelRef{}, false
	}
	panel, err := strconv.Atoi(parts[n-1])
	if err != nil {
		return PanelRef{}, false
	}
	return PanelRef{Book: strings.Join(parts[:n-2], "_"), Page: page, Panel: panel}, true
}

// BookOf returns the book part of a panel ID, or "" if it does not parse
func BookOf(id string) string {
	ref, ok := ParsePanelID(id)
	if !ok {
		return ""
	}
	return ref.Book
}

// ComparePanelIDs orders panel IDs by reading order: book, then page, then
// panel numerically. IDs that do not parse sort after those that do, lexically.
func ComparePanelIDs(a, b string) int {
	ra, okA := ParsePanelID(a)
	rb, okB := ParsePanelID(b)
	switch {
	case okA && !okB:
		return -1
	case !okA && okB:
		return 1
	case !okA && !okB:
		return strings.Compare(a, b)
	}
	if c := compareBook(ra.Book, rb.Book); c != 0 {
		return c
	}
	if ra.Page != rb.Page {
		return cmpInt(ra.Page, rb.Page)
	}
	return cmpInt(ra.Panel, rb.Panel)
}

// SortByReadingOrder sorts panel IDs in place; equal IDs keep their order
func SortByReadingOrder(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return ComparePanelIDs(ids[i], ids[j]) < 0
	})
}

// SortRows stable-sorts the table rows by panel reading order
func (t *Table) SortRows() {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return ComparePanelIDs(t.Rows[i].PanelID(), t.Rows[j].PanelID()) < 0
	})
	t.reindex()
}

// compareBook compares numerically when both books are numbers
func compareBook(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return cmpInt(na, nb)
	}
	return strings.Compare(a, b)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
