package worker

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/logger"
	"github.com/ppiankov/panelgraph/internal/pipeline"
)

// Builder builds one book
type Builder interface {
	BuildBook(ctx context.Context, in pipeline.BookInput) (*pipeline.BookResult, error)
}

// BookJob builds one book of a batch
type BookJob struct {
	Index   int
	Input   pipeline.BookInput
	Builder Builder
}

// Execute runs the build
func (j *BookJob) Execute(ctx context.Context) Result {
	result, err := j.Builder.BuildBook(ctx, j.Input)
	return &BookOutcome{Index: j.Index, Input: j.Input, Result: result, Error: err}
}

// BookOutcome is the result of one book build. Result may be set even when
// Error is, for a strict build that found structural violations.
type BookOutcome struct {
	Index  int
	Input  pipeline.BookInput
	Result *pipeline.BookResult
	Error  error
}

// GetError returns the build error
func (o *BookOutcome) GetError() error {
	return o.Error
}

// BatchProcessor builds several books concurrently
type BatchProcessor struct {
	builder     Builder
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(builder Builder, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		builder:     builder,
		concurrency: concurrency,
	}
}

// ProcessBooks builds every book and returns outcomes in input order.
// Books that were not built before ctx ended carry the context error.
func (b *BatchProcessor) ProcessBooks(ctx context.Context, books []pipeline.BookInput) []*BookOutcome {
	outcomes := make([]*BookOutcome, len(books))
	if len(books) == 0 {
		return outcomes
	}

	pool := NewPool(b.concurrency)
	pool.Start(ctx)

	for i, in := range books {
		job := &BookJob{Index: i, Input: in, Builder: b.builder}
		if err := pool.Submit(job); err != nil {
			outcomes[i] = &BookOutcome{Index: i, Input: in, Error: err}
		}
	}

	for _, r := range pool.Wait() {
		o := r.(*BookOutcome)
		outcomes[o.Index] = o
	}

	// a job still queued when ctx was cancelled never runs
	for i, o := range outcomes {
		if o != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		outcomes[i] = &BookOutcome{Index: i, Input: books[i], Error: err}
	}

	failed := 0
	for _, o := range outcomes {
		if o.Error != nil {
			failed++
		}
	}
	logger.Infow("batch finished", "books", len(books), "failed", failed, "concurrency", b.concurrency)
	return outcomes
}

// ProcessFile reads a book manifest and builds every book in it
func (b *BatchProcessor) ProcessFile(ctx context.Context, manifest string) ([]*BookOutcome, error) {
	books, err := ReadBookList(manifest)
	if err != nil {
		return nil, errors.Wrap(err, "read book list")
	}
	return b.ProcessBooks(ctx, books), nil
}

// ReadBookList reads a manifest with one tab-separated
// "book  annotations_dir  table.csv" entry per line. Blank lines and lines
// starting with # are skipped, repeated books are kept once, and relative
// paths resolve against the manifest's directory.
func ReadBookList(path string) ([]pipeline.BookInput, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "book list %s", path)
		}
		return nil, errors.Wrapf(err, "open book list %s", path)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(path)
	var books []pipeline.BookInput
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, errors.WithHint(
				errors.Mark(errors.Newf("%s:%d: expected 3 tab-separated fields, got %d", path, lineNo, len(fields)), errors.ErrMalformedInput),
				"each line is: book<TAB>annotations_dir<TAB>table.csv")
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if fields[0] == "" {
			return nil, errors.Mark(errors.Newf("%s:%d: empty book id", path, lineNo), errors.ErrMalformedInput)
		}

		if seen[fields[0]] {
			continue
		}
		seen[fields[0]] = true
		books = append(books, pipeline.BookInput{
			Book:           fields[0],
			AnnotationsDir: resolve(base, fields[1]),
			TablePath:      resolve(base, fields[2]),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan book list")
	}
	return books, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
