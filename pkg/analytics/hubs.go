package analytics

import (
	"sort"

	"github.com/regtrace/lineage/pkg/common"
)

// HubRank is one row of the hub ranking table: an entity and the number of
// citations it has received as a predicate.
type HubRank struct {
	Rank        int        `json:"rank"`
	Key         common.Key `json:"key"`
	InDegree    int        `json:"in_degree"`
	Applicant   string     `json:"applicant,omitempty"`
	DeviceName  string     `json:"device_name,omitempty"`
	ProductCode string     `json:"product_code,omitempty"`
	Stub        bool       `json:"stub,omitempty"`
}

// HubRanking ranks entities by in-degree, descending. Ties break by
// ascending canonical key so the ranking is deterministic. topK <= 0
// returns the full table; entities never cited are omitted.
func HubRanking(g *common.Graph, topK int) []HubRank {
	var ranks []HubRank

	for _, ks := range g.Keys() {
		entity, _ := g.EntityByString(ks)
		deg := g.InDegree(entity.Key)
		if deg == 0 {
			continue
		}
		ranks = append(ranks, HubRank{
			Key:         entity.Key,
			InDegree:    deg,
			Applicant:   entity.Applicant,
			DeviceName:  entity.DeviceName,
			ProductCode: entity.ProductCode,
			Stub:        entity.Stub,
		})
	}

	// Keys() already sorts ascending, so the slice is in tie-break order
	// and a stable sort on in-degree preserves it.
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].InDegree > ranks[j].InDegree
	})

	if topK > 0 && len(ranks) > topK {
		ranks = ranks[:topK]
	}
	for i := range ranks {
		ranks[i].Rank = i + 1
	}
	return ranks
}
