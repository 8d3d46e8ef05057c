package graph

import (
	"context"
	"reflect"
	"testing"

	"github.com/regtrace/lineage/pkg/common"
	"github.com/regtrace/lineage/pkg/normalize"
)

func testBatches() []normalize.SourceBatch {
	return []normalize.SourceBatch{
		{
			Source: common.SourceMetadata,
			Header: []string{"KNUMBER", "APPLICANT", "DECISIONDATE", "PRODUCTCODE"},
			Rows: [][]string{
				{"K200001", "Acme Medical", "2024-03-01", "ABC"},
				{"K100001", "Globex", "2019-03-01", "ABC"},
			},
		},
		{
			Source: common.SourceExtraction,
			Header: []string{"KNUMBER", "PRODUCTCODE", "PREDICATE1", "PREDICATE2"},
			Rows: [][]string{
				{"K200001", "ABC", "K100001", "K100002"},
			},
		},
	}
}

func TestBuildCreatesStubsForDanglingTargets(t *testing.T) {
	client := NewClient(NewClientParams{ParallelSources: 2})
	res, err := client.Build(context.Background(), "test", testBatches())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// K100002 was cited but never observed: it must exist as a stub so
	// traversals never fail on a missing node.
	stub, ok := res.Graph.Entity(common.Key{Base: "K100002"})
	if !ok {
		t.Fatal("dangling target K100002 has no entity")
	}
	if !stub.Stub {
		t.Error("K100002 should be a stub")
	}
	if len(res.Dangling) != 1 || res.Dangling[0].String() != "K100002" {
		t.Errorf("dangling = %v, want [K100002]", res.Dangling)
	}

	// Every edge target resolves to some entity.
	for _, edge := range res.Graph.Edges() {
		if _, ok := res.Graph.Entity(edge.To); !ok {
			t.Errorf("edge target %s has no entity", edge.To)
		}
	}
}

func TestBuildEdgeOrdinalsPreserveSlotOrder(t *testing.T) {
	client := NewClient(NewClientParams{ParallelSources: 2})
	res, err := client.Build(context.Background(), "test", testBatches())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	out := res.Graph.Outbound(common.Key{Base: "K200001"})
	if len(out) != 2 {
		t.Fatalf("got %d outbound edges, want 2", len(out))
	}
	if out[0].To.String() != "K100001" || out[0].Ordinal != 1 {
		t.Errorf("first edge = %s ordinal %d", out[0].To, out[0].Ordinal)
	}
	if out[1].To.String() != "K100002" || out[1].Ordinal != 2 {
		t.Errorf("second edge = %s ordinal %d", out[1].To, out[1].Ordinal)
	}
	if out[0].Source != common.SourceExtraction {
		t.Errorf("edge source = %s, want extraction", out[0].Source)
	}
}

func TestBuildIdempotence(t *testing.T) {
	client := NewClient(NewClientParams{ParallelSources: 2})

	first, err := client.Build(context.Background(), "test", testBatches())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Same batches, reversed order: identical node and edge sets.
	batches := testBatches()
	batches[0], batches[1] = batches[1], batches[0]
	second, err := client.Build(context.Background(), "test", batches)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !reflect.DeepEqual(first.Graph.Keys(), second.Graph.Keys()) {
		t.Errorf("node sets differ:\n%v\n%v", first.Graph.Keys(), second.Graph.Keys())
	}
	if !reflect.DeepEqual(first.Graph.Edges(), second.Graph.Edges()) {
		t.Errorf("edge sets differ:\n%v\n%v", first.Graph.Edges(), second.Graph.Edges())
	}
	if !reflect.DeepEqual(first.Mismatches, second.Mismatches) {
		t.Errorf("mismatches differ")
	}
}

func TestBuildDuplicateDeclarationsDoNotDoubleEdges(t *testing.T) {
	batches := testBatches()
	// The extraction table reports the same row twice.
	batches[1].Rows = append(batches[1].Rows, batches[1].Rows[0])

	client := NewClient(NewClientParams{ParallelSources: 2})
	res, err := client.Build(context.Background(), "test", batches)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Graph.EdgeCount() != 2 {
		t.Errorf("edge count = %d, want 2", res.Graph.EdgeCount())
	}
}

func TestBuildSelfCitationFlagged(t *testing.T) {
	batches := []normalize.SourceBatch{
		{
			Source: common.SourceExtraction,
			Header: []string{"KNUMBER", "PREDICATE1"},
			Rows:   [][]string{{"K300001", "K300001"}},
		},
	}

	client := NewClient(NewClientParams{ParallelSources: 1})
	res, err := client.Build(context.Background(), "test", batches)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(res.SelfCitations) != 1 {
		t.Fatalf("self citations = %d, want 1", len(res.SelfCitations))
	}
	edges := res.Graph.Edges()
	if len(edges) != 1 || !edges[0].SelfCitation {
		t.Errorf("edge not flagged as self-citation: %+v", edges)
	}
}

func TestBuildPartialSources(t *testing.T) {
	// Extraction table only, no metadata: still a valid graph, entities
	// simply lack applicant and decision-date fields.
	batches := []normalize.SourceBatch{
		{
			Source: common.SourceExtraction,
			Header: []string{"KNUMBER", "PRODUCTCODE", "PREDICATE1"},
			Rows: [][]string{
				{"K200001", "ABC", "K100001"},
			},
		},
	}

	client := NewClient(NewClientParams{ParallelSources: 1})
	res, err := client.Build(context.Background(), "test", batches)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !reflect.DeepEqual(res.SourcesPresent, []common.SourceKind{common.SourceExtraction}) {
		t.Errorf("sources present = %v", res.SourcesPresent)
	}
	entity, ok := res.Graph.Entity(common.Key{Base: "K200001"})
	if !ok {
		t.Fatal("K200001 missing")
	}
	if entity.Applicant != "" || entity.DecisionDate != nil {
		t.Errorf("fields should be absent: %+v", entity)
	}
	if res.Graph.EdgeCount() != 1 {
		t.Errorf("edge count = %d, want 1", res.Graph.EdgeCount())
	}
}

func TestBuildRowErrorsCollected(t *testing.T) {
	batches := testBatches()
	batches[0].Rows = append(batches[0].Rows, []string{"NOTAKEY", "Bad Row", "2024-01-01", "ABC"})

	client := NewClient(NewClientParams{ParallelSources: 2})
	res, err := client.Build(context.Background(), "test", batches)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.RowErrors) != 1 {
		t.Fatalf("row errors = %d, want 1", len(res.RowErrors))
	}
	if res.RowErrors[0].Fields[0] != "NOTAKEY" {
		t.Errorf("original row not retained: %v", res.RowErrors[0].Fields)
	}
	if res.RecordCount != 3 {
		t.Errorf("record count = %d, want 3", res.RecordCount)
	}
}
