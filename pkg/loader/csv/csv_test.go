package csv

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/regtrace/lineage/pkg/loader"
)

func TestParseTable(t *testing.T) {
	content := []byte("KNUMBER,APPLICANT,PREDICATE1\nK100001,Acme,K100002\n\n , ,\nK100003,\"Globex, Inc.\",\n")

	table, err := ParseTable(content)
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}

	wantHeader := []string{"KNUMBER", "APPLICANT", "PREDICATE1"}
	if !reflect.DeepEqual(table.Header, wantHeader) {
		t.Errorf("header = %v, want %v", table.Header, wantHeader)
	}

	wantRows := [][]string{
		{"K100001", "Acme", "K100002"},
		{"K100003", "Globex, Inc.", ""},
	}
	if !reflect.DeepEqual(table.Rows, wantRows) {
		t.Errorf("rows = %v, want %v", table.Rows, wantRows)
	}
}

func TestParseTableRaggedRows(t *testing.T) {
	content := []byte("KNUMBER,APPLICANT\nK100001\nK100002,Acme,extra\n")

	table, err := ParseTable(content)
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	if len(table.Rows[0]) != 1 || len(table.Rows[1]) != 3 {
		t.Errorf("ragged row lengths not preserved: %v", table.Rows)
	}
}

func TestParseTableEmptyContent(t *testing.T) {
	if _, err := ParseTable(nil); err == nil {
		t.Fatal("expected error for empty content")
	}
}

type countingLoader struct {
	calls   atomic.Int64
	content []byte
	err     error
}

func (c *countingLoader) GetFileText(ctx context.Context, file loader.SourceFile) ([]byte, error) {
	c.calls.Add(1)
	return c.content, c.err
}

func TestTableLoaderCachesParsedTables(t *testing.T) {
	base := &countingLoader{content: []byte("KNUMBER\nK100001\n")}
	tl := NewTableLoader(base)
	file := loader.SourceFile{ID: "f1", Path: "metadata.csv", Loader: base}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tl.GetTable(context.Background(), file); err != nil {
				t.Errorf("GetTable: %v", err)
			}
		}()
	}
	wg.Wait()

	if _, err := tl.GetTable(context.Background(), file); err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if got := base.calls.Load(); got != 1 {
		t.Errorf("base loader called %d times, want 1", got)
	}
}

func TestTableLoaderPropagatesLoadErrors(t *testing.T) {
	want := errors.New("object not found")
	tl := NewTableLoader(&countingLoader{err: want})

	_, err := tl.GetTable(context.Background(), loader.SourceFile{ID: "f2", Path: "missing.csv"})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
