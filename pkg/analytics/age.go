package analytics

import (
	"github.com/regtrace/lineage/pkg/common"
)

// EdgeAge is the age of one citation: how many calendar days older the
// cited predicate's decision is than the citing submission's decision.
// Known is false when either side has no decision date; an unknown age is
// never coerced to zero.
type EdgeAge struct {
	Edge  common.CitationEdge `json:"edge"`
	Days  int                 `json:"days"`
	Known bool                `json:"known"`
}

// PredicateAge returns the difference in calendar days between the citing
// entity's decision date and the cited entity's decision date. The second
// return value is false when either entity is missing a date.
func PredicateAge(g *common.Graph, from, to common.Key) (int, bool) {
	citing, ok := g.Entity(from)
	if !ok || citing.DecisionDate == nil {
		return 0, false
	}
	cited, ok := g.Entity(to)
	if !ok || cited.DecisionDate == nil {
		return 0, false
	}

	// Decision dates are normalized to midnight UTC, so the hour quotient
	// is exact calendar days.
	days := int(citing.DecisionDate.Sub(*cited.DecisionDate).Hours() / 24)
	return days, true
}

// EdgeAges computes the predicate age of every edge in build order.
func EdgeAges(g *common.Graph) []EdgeAge {
	edges := g.Edges()
	ages := make([]EdgeAge, len(edges))
	for i, edge := range edges {
		days, known := PredicateAge(g, edge.From, edge.To)
		ages[i] = EdgeAge{Edge: edge, Days: days, Known: known}
	}
	return ages
}
