package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/model"
)

// annotationPage is one <book>_<page>.json file
type annotationPage struct {
	path string
	book string
	page int
}

// LoadAnnotations reads every annotation page of book from dir, in page
// order, and numbers panels <book>_<page>_<index>. An empty book loads all
// books found in dir.
func LoadAnnotations(dir, book string) ([]model.PanelAnnotation, error) {
	pages, err := listPages(dir, book)
	if err != nil {
		return nil, err
	}

	var out []model.PanelAnnotation
	for _, p := range pages {
		data, err := os.ReadFile(p.path)
		if err != nil {
			return nil, errors.Wrapf(err, "read annotation page %s", p.path)
		}
		var doc model.AnnotationPage
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "decode annotation page %s", p.path), errors.ErrMalformedInput)
		}
		for i := range doc.Panels {
			ann := doc.Panels[i]
			ann.Normalize()
			out = append(out, model.PanelAnnotation{
				PanelID:    fmt.Sprintf("%s_%d_%d", p.book, p.page, i),
				Book:       p.book,
				Annotation: ann,
			})
		}
	}
	return out, nil
}

// listPages finds page files; names that do not end in _<number>.json are ignored
func listPages(dir, book string) ([]annotationPage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "annotation directory %s", dir)
		}
		return nil, errors.Wrapf(err, "read annotation directory %s", dir)
	}

	var pages []annotationPage
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		stem := strings.TrimSuffix(name, ".json")
		cut := strings.LastIndex(stem, "_")
		if cut <= 0 {
			continue
		}
		page, err := strconv.Atoi(stem[cut+1:])
		if err != nil {
			continue
		}
		pageBook := stem[:cut]
		if book != "" && pageBook != book {
			continue
		}
		pages = append(pages, annotationPage{path: filepath.Join(dir, name), book: pageBook, page: page})
	}

	sort.Slice(pages, func(i, j int) bool {
		if pages[i].book != pages[j].book {
			return pages[i].book < pages[j].book
		}
		return pages[i].page < pages[j].page
	})
	return pages, nil
}
