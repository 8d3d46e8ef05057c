package graph

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/regtrace/lineage/pkg/common"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func sampleRecords() []common.Record {
	key := common.Key{Base: "K101234"}
	return []common.Record{
		{
			Key:          key,
			Source:       common.SourceMetadata,
			Applicant:    "Acme Medical",
			DeviceName:   "WidgetScope",
			ProductCode:  "ABC",
			DecisionDate: datePtr(2024, 3, 1),
		},
		{
			Key:         key,
			Source:      common.SourceExtraction,
			ProductCode: "XYZ",
			Predicates:  []common.Key{{Base: "K100001"}},
		},
		{
			Key:         key,
			Source:      common.SourceDirectMap,
			ProductCode: "XYZ",
		},
		{
			Key:    key,
			Source: common.SourceSupplement,
		},
	}
}

func TestResolveMergePrecedence(t *testing.T) {
	res := Resolve(sampleRecords(), ResolverOptions{})
	if len(res.Entities) != 1 {
		t.Fatalf("got %d entities, want 1", len(res.Entities))
	}
	e := res.Entities[0]

	// directmap outranks extraction outranks metadata.
	if e.ProductCode != "XYZ" {
		t.Errorf("product code = %q, want XYZ", e.ProductCode)
	}
	// Fields only metadata reported survive the merge.
	if e.Applicant != "Acme Medical" || e.DeviceName != "WidgetScope" {
		t.Errorf("applicant/device = %q/%q", e.Applicant, e.DeviceName)
	}
	if e.DecisionDate == nil || !e.DecisionDate.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("decision date = %v", e.DecisionDate)
	}

	wantProv := []common.Provenance{
		{Source: common.SourceDirectMap, Records: 1},
		{Source: common.SourceExtraction, Records: 1},
		{Source: common.SourceMetadata, Records: 1},
		{Source: common.SourceSupplement, Records: 1},
	}
	if !reflect.DeepEqual(e.Provenance, wantProv) {
		t.Errorf("provenance = %v, want %v", e.Provenance, wantProv)
	}
}

func TestResolveMismatchRecorded(t *testing.T) {
	res := Resolve(sampleRecords(), ResolverOptions{})

	// metadata says ABC, extraction and directmap say XYZ: the metadata
	// value loses but the disagreement is reported, never dropped.
	var found bool
	for _, m := range res.Mismatches {
		if m.Field == "product_code" && m.DroppedSource == common.SourceMetadata {
			found = true
			if m.Kept != "XYZ" || m.Dropped != "ABC" {
				t.Errorf("mismatch kept=%q dropped=%q", m.Kept, m.Dropped)
			}
			if m.KeptSource != common.SourceDirectMap {
				t.Errorf("kept source = %s, want directmap", m.KeptSource)
			}
		}
	}
	if !found {
		t.Fatalf("no product_code mismatch against metadata recorded: %v", res.Mismatches)
	}

	// extraction agrees with directmap, so no mismatch between those two.
	for _, m := range res.Mismatches {
		if m.DroppedSource == common.SourceExtraction && m.Field == "product_code" {
			t.Errorf("unexpected mismatch for agreeing source: %v", m)
		}
	}
}

func TestResolvePermutationInvariance(t *testing.T) {
	records := sampleRecords()
	records = append(records, common.Record{
		Key:       common.Key{Base: "K101234"},
		Source:    common.SourceMetadata,
		Applicant: "Acme Medical Corp",
	})

	base := Resolve(records, ResolverOptions{})

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		shuffled := make([]common.Record, len(records))
		copy(shuffled, records)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got := Resolve(shuffled, ResolverOptions{})
		if !reflect.DeepEqual(got.Entities, base.Entities) {
			t.Fatalf("trial %d: entities differ under permutation:\ngot  %+v\nwant %+v", trial, got.Entities[0], base.Entities[0])
		}
		if !reflect.DeepEqual(got.Mismatches, base.Mismatches) {
			t.Fatalf("trial %d: mismatches differ under permutation", trial)
		}
	}
}

func TestResolveCustomPrecedence(t *testing.T) {
	// The authority order is an inferred default; callers may override it.
	opts := ResolverOptions{Precedence: []common.SourceKind{
		common.SourceMetadata,
		common.SourceDirectMap,
		common.SourceExtraction,
		common.SourceSupplement,
	}}

	res := Resolve(sampleRecords(), opts)
	if res.Entities[0].ProductCode != "ABC" {
		t.Errorf("product code = %q, want ABC under metadata-first precedence", res.Entities[0].ProductCode)
	}
}

func TestResolveDistinctSupplementsStaySeparate(t *testing.T) {
	records := []common.Record{
		{Key: common.Key{Base: "P950002"}, Source: common.SourceMetadata, Applicant: "Acme"},
		{Key: common.Key{Base: "P950002", Supplement: 4}, Source: common.SourceSupplement},
	}
	res := Resolve(records, ResolverOptions{})
	if len(res.Entities) != 2 {
		t.Fatalf("got %d entities, want 2: supplement is its own entity", len(res.Entities))
	}
	if res.Entities[0].Key.String() != "P950002" || res.Entities[1].Key.String() != "P950002/S004" {
		t.Errorf("keys = %v, %v", res.Entities[0].Key, res.Entities[1].Key)
	}
}
