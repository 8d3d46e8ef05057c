package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/regtrace/lineage/pkg/loader"
)

// Table is a parsed CSV export: a header row plus data rows. Rows may be
// ragged when the export pads or truncates trailing columns.
type Table struct {
	Header []string
	Rows   [][]string
}

// TableLoader wraps a base SourceFileLoader and parses loaded content as
// CSV. Parsed tables are cached per file, and concurrent requests for the
// same file share one parse.
type TableLoader struct {
	loader loader.SourceFileLoader

	cache   map[string]Table
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewTableLoader creates a new TableLoader with the given base loader.
func NewTableLoader(base loader.SourceFileLoader) *TableLoader {
	return &TableLoader{
		loader: base,
		cache:  make(map[string]Table),
	}
}

// GetTable retrieves and parses the CSV content of the given file.
func (l *TableLoader) GetTable(ctx context.Context, file loader.SourceFile) (Table, error) {
	key := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[key]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		content, err := l.loader.GetFileText(ctx, file)
		if err != nil {
			return Table{}, err
		}

		table, err := ParseTable(content)
		if err != nil {
			return Table{}, err
		}

		l.cacheMu.Lock()
		l.cache[key] = table
		l.cacheMu.Unlock()

		return table, nil
	})
	if err != nil {
		return Table{}, err
	}

	return result.(Table), nil
}

// ParseTable parses CSV content into a header row and data rows. Rows that
// are entirely blank are skipped. Ragged rows are allowed; row length
// normalization is left to the consumer.
func ParseTable(content []byte) (Table, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var table Table
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, err
		}

		if isBlank(record) {
			continue
		}

		if table.Header == nil {
			table.Header = record
			continue
		}
		table.Rows = append(table.Rows, record)
	}

	if table.Header == nil {
		return Table{}, errors.New("csv content has no header row")
	}

	return table, nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
