package analytics

import (
	"reflect"
	"testing"
	"time"

	"github.com/regtrace/lineage/pkg/common"
)

func key(s string) common.Key {
	return common.Key{Base: s}
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// cite adds an edge and makes sure both endpoints exist.
func cite(g *common.Graph, from, to string, ordinal int) {
	g.EnsureEntity(key(from))
	g.EnsureEntity(key(to))
	g.AddEdge(common.CitationEdge{From: key(from), To: key(to), Ordinal: ordinal, Source: common.SourceExtraction})
}

func TestHubRankingTieBreak(t *testing.T) {
	g := common.NewGraph("test")

	// In-degrees: K100001=5, K100002=5, K100003=3.
	citers := []string{"K900001", "K900002", "K900003", "K900004", "K900005"}
	for _, c := range citers {
		cite(g, c, "K100002", 1)
		cite(g, c, "K100001", 2)
	}
	for _, c := range citers[:3] {
		cite(g, c, "K100003", 3)
	}

	ranks := HubRanking(g, 3)
	var got []string
	for _, r := range ranks {
		got = append(got, r.Key.String())
	}
	want := []string{"K100001", "K100002", "K100003"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ranking = %v, want %v", got, want)
	}
	if ranks[0].InDegree != 5 || ranks[2].InDegree != 3 {
		t.Errorf("in-degrees = %d, %d", ranks[0].InDegree, ranks[2].InDegree)
	}
	if ranks[0].Rank != 1 || ranks[1].Rank != 2 || ranks[2].Rank != 3 {
		t.Errorf("rank numbers = %d, %d, %d", ranks[0].Rank, ranks[1].Rank, ranks[2].Rank)
	}
}

func TestHubRankingTopK(t *testing.T) {
	g := common.NewGraph("test")
	cite(g, "K900001", "K100001", 1)
	cite(g, "K900001", "K100002", 2)

	if got := len(HubRanking(g, 1)); got != 1 {
		t.Errorf("topK=1 returned %d rows", got)
	}
	if got := len(HubRanking(g, 0)); got != 2 {
		t.Errorf("topK=0 returned %d rows, want full table", got)
	}
}

func TestChainTraversalDepthAndOrder(t *testing.T) {
	g := common.NewGraph("test")
	g.AddEntity(&common.Entity{Key: key("K400001")})
	g.AddEntity(&common.Entity{Key: key("K300001")})
	cite(g, "K400001", "K300001", 1)
	cite(g, "K400001", "K300002", 2)
	cite(g, "K300001", "K200001", 1)

	res := Chain(g, key("K400001"), 10)
	want := []ChainStep{
		{Depth: 0, Key: key("K400001")},
		{Depth: 1, Key: key("K300001")},
		{Depth: 2, Key: key("K200001"), Stub: true},
		{Depth: 1, Key: key("K300002"), Stub: true},
	}
	if !reflect.DeepEqual(res.Steps, want) {
		t.Errorf("steps = %v, want %v", res.Steps, want)
	}
	if len(res.Cycles) != 0 {
		t.Errorf("unexpected cycles: %v", res.Cycles)
	}
}

func TestChainCycleSafety(t *testing.T) {
	// A->B->C->A must terminate and flag the revisit of A as a cycle.
	g := common.NewGraph("test")
	cite(g, "K100001", "K100002", 1)
	cite(g, "K100002", "K100003", 1)
	cite(g, "K100003", "K100001", 1)

	done := make(chan ChainResult, 1)
	go func() {
		done <- Chain(g, key("K100001"), 50)
	}()

	var res ChainResult
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("traversal did not terminate")
	}

	if len(res.Cycles) != 1 {
		t.Fatalf("cycles = %v, want exactly one", res.Cycles)
	}
	notice := res.Cycles[0]
	if notice.Repeat != key("K100001") {
		t.Errorf("cycle repeat = %s, want K100001", notice.Repeat)
	}
	wantPath := []common.Key{key("K100001"), key("K100002"), key("K100003")}
	if !reflect.DeepEqual(notice.Path, wantPath) {
		t.Errorf("cycle path = %v, want %v", notice.Path, wantPath)
	}
	// Exactly one visit per node: the cycle truncates the branch.
	if len(res.Steps) != 3 {
		t.Errorf("steps = %v, want 3 entries", res.Steps)
	}
}

func TestChainDepthBound(t *testing.T) {
	g := common.NewGraph("test")
	cite(g, "K100001", "K100002", 1)
	cite(g, "K100002", "K100003", 1)
	cite(g, "K100003", "K100004", 1)

	res := Chain(g, key("K100001"), 2)
	if len(res.Steps) != 3 {
		t.Errorf("steps = %v, want root plus two hops", res.Steps)
	}
	if !res.DepthHit {
		t.Error("DepthHit not set despite truncation")
	}
}

func TestChainUnknownRoot(t *testing.T) {
	g := common.NewGraph("test")
	res := Chain(g, key("K999999"), 5)
	if len(res.Steps) != 0 || len(res.Cycles) != 0 {
		t.Errorf("unknown root should yield an empty result: %+v", res)
	}
}

func TestCyclesDeduplicated(t *testing.T) {
	g := common.NewGraph("test")
	cite(g, "K100002", "K100003", 1)
	cite(g, "K100003", "K100001", 1)
	cite(g, "K100001", "K100002", 1)
	// Self-citation is a one-element cycle.
	cite(g, "K500001", "K500001", 1)

	cycles := Cycles(g, 10)
	if len(cycles) != 2 {
		t.Fatalf("cycles = %v, want 2 distinct", cycles)
	}
	// Canonical form starts at the smallest key.
	want := []common.Key{key("K100001"), key("K100002"), key("K100003")}
	if !reflect.DeepEqual(cycles[0].Keys, want) {
		t.Errorf("cycle 0 = %v, want %v", cycles[0].Keys, want)
	}
	if !reflect.DeepEqual(cycles[1].Keys, []common.Key{key("K500001")}) {
		t.Errorf("cycle 1 = %v, want [K500001]", cycles[1].Keys)
	}
}

func TestPredicateAgeCalendarDays(t *testing.T) {
	g := common.NewGraph("test")
	citing := &common.Entity{Key: key("K200001"), DecisionDate: datePtr(2024, 3, 1)}
	cited := &common.Entity{Key: key("K100001"), DecisionDate: datePtr(2019, 3, 1)}
	g.AddEntity(citing)
	g.AddEntity(cited)
	g.AddEdge(common.CitationEdge{From: citing.Key, To: cited.Key, Ordinal: 1, Source: common.SourceExtraction})

	// The expected value is derived by calendar arithmetic, not a fixed
	// constant (the span contains a leap day).
	wantDays := int(citing.DecisionDate.Sub(*cited.DecisionDate).Hours() / 24)

	days, known := PredicateAge(g, citing.Key, cited.Key)
	if !known {
		t.Fatal("age should be known")
	}
	if days != wantDays {
		t.Errorf("age = %d days, want %d", days, wantDays)
	}
	if days != 1827 {
		// 5 years * 365 + 2 leap days (2020, 2024): sanity anchor for the
		// calendar arithmetic above.
		t.Errorf("age = %d days, expected 1827 for 2019-03-01 -> 2024-03-01", days)
	}
}

func TestPredicateAgeUnknownNotZero(t *testing.T) {
	g := common.NewGraph("test")
	g.AddEntity(&common.Entity{Key: key("K200001"), DecisionDate: datePtr(2024, 3, 1)})
	g.EnsureEntity(key("K100001")) // stub, no dates

	_, known := PredicateAge(g, key("K200001"), key("K100001"))
	if known {
		t.Error("age against a dateless stub must be unknown")
	}

	ages := EdgeAges(g)
	for _, a := range ages {
		if !a.Known && a.Days != 0 {
			t.Errorf("unknown age leaked a value: %+v", a)
		}
	}
}

func TestReviewTimeCorrelation(t *testing.T) {
	g := common.NewGraph("test")
	// Perfectly correlated: review days = 30 * out-degree.
	for i, spec := range []struct {
		key  string
		outs []string
	}{
		{key: "K300001", outs: []string{"K100001"}},
		{key: "K300002", outs: []string{"K100001", "K100002"}},
		{key: "K300003", outs: []string{"K100001", "K100002", "K100003"}},
	} {
		days := 30 * (i + 1)
		g.AddEntity(&common.Entity{Key: key(spec.key), ReviewDays: &days})
		for j, to := range spec.outs {
			cite(g, spec.key, to, j+1)
		}
	}

	res := ReviewTimeCorrelation(g)
	if res.Insufficient {
		t.Fatalf("unexpected insufficient marker: %+v", res)
	}
	if res.Samples != 3 {
		t.Errorf("samples = %d, want 3", res.Samples)
	}
	// Stubs K100001..3 lack review days and are counted as excluded.
	if res.Excluded != 3 {
		t.Errorf("excluded = %d, want 3", res.Excluded)
	}
	if res.Coefficient < 0.999 {
		t.Errorf("coefficient = %f, want ~1", res.Coefficient)
	}
}

func TestReviewTimeCorrelationInsufficient(t *testing.T) {
	g := common.NewGraph("test")
	cite(g, "K300001", "K100001", 1)

	res := ReviewTimeCorrelation(g)
	if !res.Insufficient {
		t.Fatal("expected insufficient marker with no review durations")
	}
	if res.Coefficient != 0 || res.Reason == "" {
		t.Errorf("insufficient result should carry a reason: %+v", res)
	}

	// Zero variance in out-degree: marker, not a zero coefficient.
	g2 := common.NewGraph("test")
	for i, k := range []string{"K300001", "K300002", "K300003"} {
		days := 30 * (i + 1)
		g2.AddEntity(&common.Entity{Key: key(k), ReviewDays: &days})
		cite(g2, k, "K100001", 1)
	}
	res2 := ReviewTimeCorrelation(g2)
	if !res2.Insufficient {
		t.Errorf("zero variance must be insufficient, got %+v", res2)
	}
}

func TestValidateSourcesOrdering(t *testing.T) {
	g := common.NewGraph("test")
	e := &common.Entity{
		Key: key("K100001"),
		Provenance: []common.Provenance{
			{Source: common.SourceExtraction, Records: 1},
			{Source: common.SourceMetadata, Records: 1},
		},
	}
	g.AddEntity(e)
	single := &common.Entity{
		Key:        key("K100002"),
		Provenance: []common.Provenance{{Source: common.SourceMetadata, Records: 1}},
	}
	g.AddEntity(single)

	mismatches := []common.CrossSourceMismatch{
		{Key: key("K100001"), Field: "product_code", DroppedSource: common.SourceMetadata},
		{Key: key("K100001"), Field: "applicant", DroppedSource: common.SourceMetadata},
		{Key: key("K100002"), Field: "applicant", DroppedSource: common.SourceMetadata},
		{Key: key("K999999"), Field: "applicant", DroppedSource: common.SourceMetadata},
	}

	got := ValidateSources(g, mismatches)
	if len(got) != 2 {
		t.Fatalf("got %d findings, want 2 (single-source and unknown keys filtered)", len(got))
	}
	if got[0].Field != "applicant" || got[1].Field != "product_code" {
		t.Errorf("fields not sorted: %v, %v", got[0].Field, got[1].Field)
	}
}
