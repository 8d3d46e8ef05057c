package analytics

import (
	"sort"

	"github.com/regtrace/lineage/pkg/common"
)

// ValidateSources returns the cross-source mismatch table for the report:
// one row per disagreeing field pair, restricted to entities the graph
// still knows and ordered by key, field and dropped source. Mismatches are
// findings collected during resolution; validation never raises on partial
// data.
func ValidateSources(g *common.Graph, mismatches []common.CrossSourceMismatch) []common.CrossSourceMismatch {
	out := make([]common.CrossSourceMismatch, 0, len(mismatches))
	for _, m := range mismatches {
		entity, ok := g.Entity(m.Key)
		if !ok {
			continue
		}
		if len(entity.Provenance) < 2 {
			continue
		}
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key.String() < out[j].Key.String()
		}
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		return out[i].DroppedSource < out[j].DroppedSource
	})
	return out
}
