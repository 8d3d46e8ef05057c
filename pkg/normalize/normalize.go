package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/regtrace/lineage/pkg/common"

	"github.com/araddon/dateparse"
)

// MalformedRowError marks a row that could not be normalized: a bad
// identifier or a missing required field. The row is skipped and counted;
// it never aborts the batch.
type MalformedRowError struct {
	Column string
	Reason string
}

func (e *MalformedRowError) Error() string {
	if e.Column == "" {
		return e.Reason
	}
	return fmt.Sprintf("column %s: %s", e.Column, e.Reason)
}

// RowError pairs a malformed row with its source, position and the original
// fields so error reports can show exactly what was rejected.
type RowError struct {
	Source common.SourceKind `json:"source"`
	Row    int               `json:"row"`
	Fields []string          `json:"fields"`
	Err    error             `json:"-"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s row %d: %v", e.Source, e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// SourceBatch is one already-materialized table from a named source: a
// header row and data rows. Loading and CSV parsing are the loader's job;
// the normalizer only sees in-memory rows.
type SourceBatch struct {
	Source common.SourceKind
	Header []string
	Rows   [][]string
}

// Result carries the normalized records of a batch together with the rows
// that were rejected.
type Result struct {
	Source  common.SourceKind
	Records []common.Record
	Errors  []RowError
}

// Column aliases per logical field, matched against lowercased headers with
// spaces and underscores stripped. Unknown and extra columns are ignored.
var fieldAliases = map[string][]string{
	"key":         {"knumber", "kno", "id", "submission", "submissionid", "number"},
	"applicant":   {"applicant", "applicantname", "company", "sponsor"},
	"devicename":  {"devicename", "device", "tradename"},
	"productcode": {"productcode", "code"},
	"doctype":     {"type", "doctype", "documenttype", "decisiontype"},
	"committee":   {"reviewadvisecomm", "advisorycommittee", "committee", "panel"},
	"decision":    {"decisiondate", "decision", "dateofdecision", "cleared"},
	"received":    {"datereceived", "received", "receiveddate"},
	"reviewdays":  {"reviewdays", "reviewtime", "daystodecision"},
	"thirdparty":  {"thirdparty", "thirdpartyflag"},
	"expedited":   {"expeditedreview", "expedited"},
	"summary":     {"statementorsummary", "summary"},
	"supplement":  {"supplement", "supplementnumber", "ssequence", "seq"},
	"predicates":  {"predicates", "predicatelist"},
}

var predicateSlot = regexp.MustCompile(`^predicate(\d+)$`)

type columnIndex struct {
	fields     map[string]int
	predicates []int // column positions, ordinal order
}

func indexColumns(header []string) columnIndex {
	idx := columnIndex{fields: make(map[string]int)}

	type slot struct {
		ordinal int
		col     int
	}
	var slots []slot

	for col, name := range header {
		cleaned := strings.ToLower(strings.TrimSpace(name))
		cleaned = strings.ReplaceAll(cleaned, " ", "")
		cleaned = strings.ReplaceAll(cleaned, "_", "")

		if m := predicateSlot.FindStringSubmatch(cleaned); m != nil {
			ordinal, _ := strconv.Atoi(m[1])
			slots = append(slots, slot{ordinal: ordinal, col: col})
			continue
		}

		for field, aliases := range fieldAliases {
			if _, taken := idx.fields[field]; taken {
				continue
			}
			for _, alias := range aliases {
				if cleaned == alias {
					idx.fields[field] = col
					break
				}
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].ordinal < slots[j].ordinal })
	for _, s := range slots {
		idx.predicates = append(idx.predicates, s.col)
	}
	return idx
}

// Rows normalizes a source batch. It returns zero or one record per row:
// rows with an unparsable canonical key or a missing required field are
// rejected with a RowError, all other rows produce a record. A batch-level
// error never occurs.
func Rows(batch SourceBatch) Result {
	res := Result{Source: batch.Source}
	idx := indexColumns(batch.Header)

	keyCol, hasKey := idx.fields["key"]
	if !hasKey {
		// Without an identifier column every row is malformed.
		for i, row := range batch.Rows {
			res.Errors = append(res.Errors, RowError{
				Source: batch.Source,
				Row:    i + 1,
				Fields: row,
				Err:    &MalformedRowError{Reason: "source has no identifier column"},
			})
		}
		return res
	}

	for i, row := range batch.Rows {
		rec, err := normalizeRow(batch.Source, idx, keyCol, row)
		if err != nil {
			res.Errors = append(res.Errors, RowError{
				Source: batch.Source,
				Row:    i + 1,
				Fields: row,
				Err:    err,
			})
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

func normalizeRow(source common.SourceKind, idx columnIndex, keyCol int, row []string) (common.Record, error) {
	raw := cell(row, keyCol)
	if strings.TrimSpace(raw) == "" {
		return common.Record{}, &MalformedRowError{Column: "key", Reason: "missing identifier"}
	}

	key, err := ParseKey(raw)
	if err != nil {
		return common.Record{}, &MalformedRowError{Column: "key", Reason: err.Error()}
	}

	rec := common.Record{Key: key, Source: source}

	if source == common.SourceSupplement {
		col, ok := idx.fields["supplement"]
		if !ok || strings.TrimSpace(cell(row, col)) == "" {
			return common.Record{}, &MalformedRowError{Column: "supplement", Reason: "missing supplement sequence"}
		}
		seq, err := ParseSupplementSeq(cell(row, col))
		if err != nil {
			return common.Record{}, &MalformedRowError{Column: "supplement", Reason: err.Error()}
		}
		rec.Key.Supplement = seq
	}

	rec.Applicant = textField(row, idx, "applicant")
	rec.DeviceName = textField(row, idx, "devicename")
	rec.ProductCode = strings.ToUpper(textField(row, idx, "productcode"))
	rec.DocType = textField(row, idx, "doctype")
	rec.Committee = strings.ToUpper(textField(row, idx, "committee"))

	rec.DecisionDate = dateField(row, idx, "decision")
	rec.DateReceived = dateField(row, idx, "received")
	rec.ThirdParty = boolField(row, idx, "thirdparty")
	rec.Expedited = boolField(row, idx, "expedited")
	rec.Summary = boolField(row, idx, "summary")

	if col, ok := idx.fields["reviewdays"]; ok {
		if days, err := strconv.Atoi(strings.TrimSpace(cell(row, col))); err == nil && days >= 0 {
			rec.ReviewDays = &days
		}
	}
	if rec.ReviewDays == nil && rec.DecisionDate != nil && rec.DateReceived != nil {
		days := int(rec.DecisionDate.Sub(*rec.DateReceived).Hours() / 24)
		if days >= 0 {
			rec.ReviewDays = &days
		}
	}

	rec.Predicates = predicateRefs(row, idx)
	return rec, nil
}

// predicateRefs collects ordered predicate references from PredicateN slot
// columns or from a single ";"-separated list column. References that do
// not parse as keys are dropped from the list; the row itself stays valid.
func predicateRefs(row []string, idx columnIndex) []common.Key {
	var refs []common.Key

	for _, col := range idx.predicates {
		raw := strings.TrimSpace(cell(row, col))
		if raw == "" {
			continue
		}
		if key, err := ParseKey(raw); err == nil {
			refs = append(refs, key)
		}
	}

	if col, ok := idx.fields["predicates"]; ok {
		for _, part := range strings.Split(cell(row, col), ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if key, err := ParseKey(part); err == nil {
				refs = append(refs, key)
			}
		}
	}
	return refs
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

func textField(row []string, idx columnIndex, field string) string {
	col, ok := idx.fields[field]
	if !ok {
		return ""
	}
	return strings.TrimSpace(cell(row, col))
}

func dateField(row []string, idx columnIndex, field string) *time.Time {
	col, ok := idx.fields[field]
	if !ok {
		return nil
	}
	raw := strings.TrimSpace(cell(row, col))
	if raw == "" {
		return nil
	}
	parsed, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil
	}
	day := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	return &day
}

func boolField(row []string, idx columnIndex, field string) *bool {
	col, ok := idx.fields[field]
	if !ok {
		return nil
	}
	raw := strings.ToLower(strings.TrimSpace(cell(row, col)))
	switch raw {
	case "y", "yes", "true", "1":
		v := true
		return &v
	case "n", "no", "false", "0":
		v := false
		return &v
	}
	return nil
}
