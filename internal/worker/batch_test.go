package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/pipeline"
)

// mockBuilder implements Builder
type mockBuilder struct {
	failBook string
	calls    atomic.Int32
}

func (m *mockBuilder) BuildBook(ctx context.Context, in pipeline.BookInput) (*pipeline.BookResult, error) {
	m.calls.Add(1)
	time.Sleep(10 * time.Millisecond) // Simulate work
	if in.Book == m.failBook {
		return nil, errors.New("build error")
	}
	return &pipeline.BookResult{Book: in.Book}, nil
}

func books(ids ...string) []pipeline.BookInput {
	out := make([]pipeline.BookInput, len(ids))
	for i, id := range ids {
		out[i] = pipeline.BookInput{Book: id}
	}
	return out
}

func TestBatchProcessor_ProcessBooks(t *testing.T) {
	builder := &mockBuilder{}
	processor := NewBatchProcessor(builder, 2)

	outcomes := processor.ProcessBooks(context.Background(), books("a", "b", "c", "d", "e"))

	if len(outcomes) != 5 {
		t.Fatalf("expected 5 outcomes, got %d", len(outcomes))
	}
	for i, want := range []string{"a", "b", "c", "d", "e"} {
		o := outcomes[i]
		if o.Error != nil {
			t.Errorf("unexpected error for %s: %v", o.Input.Book, o.Error)
			continue
		}
		if o.Result == nil || o.Result.Book != want {
			t.Errorf("outcome %d: expected book %s, got %+v", i, want, o.Result)
		}
	}
	if n := builder.calls.Load(); n != 5 {
		t.Errorf("expected 5 builds, got %d", n)
	}
}

func TestBatchProcessor_ProcessBooks_Error(t *testing.T) {
	processor := NewBatchProcessor(&mockBuilder{failBook: "b"}, 2)

	outcomes := processor.ProcessBooks(context.Background(), books("a", "b"))

	if outcomes[0].GetError() != nil {
		t.Errorf("expected book a to succeed, got %v", outcomes[0].GetError())
	}
	if outcomes[1].GetError() == nil {
		t.Error("expected error for book b, got nil")
	}
	if outcomes[1].Result != nil {
		t.Error("expected nil result on error")
	}
}

func TestBatchProcessor_ProcessBooks_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockBuilder{}, 2)

	outcomes := processor.ProcessBooks(context.Background(), nil)
	if len(outcomes) != 0 {
		t.Errorf("expected 0 outcomes, got %d", len(outcomes))
	}
}

func TestBatchProcessor_ProcessBooks_Cancelled(t *testing.T) {
	builder := &mockBuilder{}
	processor := NewBatchProcessor(builder, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := processor.ProcessBooks(ctx, books("a", "b", "c"))

	for i, o := range outcomes {
		if o == nil {
			t.Fatalf("outcome %d missing", i)
		}
		if !errors.Is(o.Error, context.Canceled) {
			t.Errorf("outcome %d: expected context.Canceled, got %v", i, o.Error)
		}
	}
	if n := builder.calls.Load(); n != 0 {
		t.Errorf("expected no builds, got %d", n)
	}
}

// cancellingBuilder cancels the batch while building one book
type cancellingBuilder struct {
	cancelOn string
	cancel   context.CancelFunc
}

func (c *cancellingBuilder) BuildBook(ctx context.Context, in pipeline.BookInput) (*pipeline.BookResult, error) {
	if in.Book == c.cancelOn {
		c.cancel()
	}
	return &pipeline.BookResult{Book: in.Book}, nil
}

func TestBatchProcessor_ProcessBooks_CancelledMidBatch(t *testing.T) {
	for run := 0; run < 50; run++ {
		ctx, cancel := context.WithCancel(context.Background())
		processor := NewBatchProcessor(&cancellingBuilder{cancelOn: "a", cancel: cancel}, 1)

		outcomes := processor.ProcessBooks(ctx, books("a", "b", "c"))
		cancel()

		if len(outcomes) != 3 {
			t.Fatalf("run %d: expected 3 outcomes, got %d", run, len(outcomes))
		}
		for i, o := range outcomes {
			if o == nil {
				t.Fatalf("run %d: outcome %d missing", run, i)
			}
			if o.Input.Book != []string{"a", "b", "c"}[i] {
				t.Errorf("run %d: outcome %d is for book %s", run, i, o.Input.Book)
			}
			if o.Error != nil && !errors.Is(o.Error, context.Canceled) {
				t.Errorf("run %d: outcome %d: expected context.Canceled, got %v", run, i, o.Error)
			}
			if o.Error == nil && o.Result == nil {
				t.Errorf("run %d: outcome %d has neither result nor error", run, i)
			}
		}
	}
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "books.tsv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadBookList(t *testing.T) {
	path := writeManifest(t, "# book\tannotations\ttable\n"+
		"0\tann/0\tplot.csv\n"+
		"\n"+
		"1\t/abs/ann\t/abs/plot.csv\n"+
		"0\tother\tother.csv\n")

	list, err := ReadBookList(path)
	if err != nil {
		t.Fatalf("ReadBookList failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 books, got %d", len(list))
	}

	base := filepath.Dir(path)
	if list[0].AnnotationsDir != filepath.Join(base, "ann/0") {
		t.Errorf("expected relative path resolved against manifest, got %s", list[0].AnnotationsDir)
	}
	if list[0].TablePath != filepath.Join(base, "plot.csv") {
		t.Errorf("unexpected table path %s", list[0].TablePath)
	}
	if list[1].Book != "1" || list[1].TablePath != "/abs/plot.csv" {
		t.Errorf("unexpected second entry %+v", list[1])
	}
}

func TestReadBookList_Malformed(t *testing.T) {
	path := writeManifest(t, "0\tann\tplot.csv\n1 ann plot.csv\n")

	_, err := ReadBookList(path)
	if !errors.IsMalformedInput(err) {
		t.Fatalf("expected malformed input, got %v", err)
	}
	if want := path + ":2:"; !strings.Contains(err.Error(), want) {
		t.Errorf("expected error to name %q, got %v", want, err)
	}
}

func TestReadBookList_NonExistent(t *testing.T) {
	_, err := ReadBookList("no_such_file.tsv")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeManifest(t, "a\tann\tplot.csv\nb\tann\tplot.csv\n")
	processor := NewBatchProcessor(&mockBuilder{}, 2)

	outcomes, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(outcomes) != 2 {
		t.Errorf("expected 2 outcomes, got %d", len(outcomes))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&mockBuilder{}, 2)

	_, err := processor.ProcessFile(context.Background(), "no_such_file.tsv")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}
