package profile

import (
	"strings"

	"github.com/regtrace/lineage/pkg/analytics"
	"github.com/regtrace/lineage/pkg/common"
	"github.com/regtrace/lineage/pkg/graph"
)

// Citation is one outbound predicate reference enriched with its age.
type Citation struct {
	Edge     common.CitationEdge `json:"edge"`
	AgeDays  int                 `json:"age_days"`
	AgeKnown bool                `json:"age_known"`
}

// Profile is the consolidated on-demand view of one entity: merged
// metadata, who cites it, what it cites (with ages), its hub rank when it
// has one, and every cross-source finding recorded against it.
type Profile struct {
	Entity     *common.Entity               `json:"entity"`
	Inbound    []common.CitationEdge        `json:"inbound,omitempty"`
	Outbound   []Citation                   `json:"outbound,omitempty"`
	InDegree   int                          `json:"in_degree"`
	HubRank    int                          `json:"hub_rank,omitempty"`
	Mismatches []common.CrossSourceMismatch `json:"mismatches,omitempty"`
}

// Aggregator answers targeted lookups against one built graph. It holds
// read-only views only; the graph is never mutated, so concurrent lookups
// are safe.
type Aggregator struct {
	g          *common.Graph
	mismatches map[string][]common.CrossSourceMismatch
	hubRank    map[string]int
}

// NewAggregator prepares an aggregator for the given build. Hub ranks and
// per-key mismatch views are indexed once up front.
func NewAggregator(build *graph.BuildResult) *Aggregator {
	return NewAggregatorFromGraph(build.Graph, build.Mismatches)
}

// NewAggregatorFromGraph prepares an aggregator for a graph that was
// reloaded from storage rather than freshly built.
func NewAggregatorFromGraph(g *common.Graph, mismatches []common.CrossSourceMismatch) *Aggregator {
	a := &Aggregator{
		g:          g,
		mismatches: make(map[string][]common.CrossSourceMismatch),
		hubRank:    make(map[string]int),
	}
	for _, m := range mismatches {
		ks := m.Key.String()
		a.mismatches[ks] = append(a.mismatches[ks], m)
	}
	for _, hub := range analytics.HubRanking(g, 0) {
		a.hubRank[hub.Key.String()] = hub.Rank
	}
	return a
}

// ByKey returns the profile for one canonical key, if the entity exists.
func (a *Aggregator) ByKey(key common.Key) (Profile, bool) {
	entity, ok := a.g.Entity(key)
	if !ok {
		return Profile{}, false
	}
	return a.assemble(entity), true
}

// ByProductCode returns the profiles of every entity carrying the given
// product code. Matching is exact and case-insensitive.
func (a *Aggregator) ByProductCode(code string) []Profile {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}

	var profiles []Profile
	for _, ks := range a.g.Keys() {
		entity, _ := a.g.EntityByString(ks)
		if strings.ToUpper(entity.ProductCode) == code {
			profiles = append(profiles, a.assemble(entity))
		}
	}
	return profiles
}

// ByName returns the profiles of every entity whose applicant or device
// name contains the fragment, case-insensitively. Zero, one or many matches
// are all valid outcomes; the aggregator never guesses a single best match.
func (a *Aggregator) ByName(fragment string) []Profile {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" {
		return nil
	}

	var profiles []Profile
	for _, ks := range a.g.Keys() {
		entity, _ := a.g.EntityByString(ks)
		if strings.Contains(strings.ToLower(entity.Applicant), fragment) ||
			strings.Contains(strings.ToLower(entity.DeviceName), fragment) {
			profiles = append(profiles, a.assemble(entity))
		}
	}
	return profiles
}

func (a *Aggregator) assemble(entity *common.Entity) Profile {
	p := Profile{
		Entity:     entity,
		Inbound:    a.g.Inbound(entity.Key),
		InDegree:   a.g.InDegree(entity.Key),
		HubRank:    a.hubRank[entity.Key.String()],
		Mismatches: a.mismatches[entity.Key.String()],
	}
	for _, edge := range a.g.Outbound(entity.Key) {
		days, known := analytics.PredicateAge(a.g, edge.From, edge.To)
		p.Outbound = append(p.Outbound, Citation{Edge: edge, AgeDays: days, AgeKnown: known})
	}
	return p
}
