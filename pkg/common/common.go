package common

import (
	"fmt"
	"sort"
	"time"
)

// SourceKind identifies which upstream table a record or citation came from.
type SourceKind string

const (
	SourceDirectMap  SourceKind = "directmap"
	SourceExtraction SourceKind = "extraction"
	SourceMetadata   SourceKind = "metadata"
	SourceSupplement SourceKind = "supplement"
)

// DefaultPrecedence is the authority order applied when sources disagree on
// a scalar field. Lower index wins. The order is configurable on the
// resolver; this is the documented default.
var DefaultPrecedence = []SourceKind{
	SourceDirectMap,
	SourceExtraction,
	SourceMetadata,
	SourceSupplement,
}

// Key is the canonical identifier of a submission: a base code plus an
// optional supplement sequence. Supplement 0 is the original submission.
type Key struct {
	Base       string `json:"base"`
	Supplement int    `json:"supplement"`
}

// String renders the key in canonical form, e.g. "K101234" or "K101234/S003".
func (k Key) String() string {
	if k.Supplement == 0 {
		return k.Base
	}
	return fmt.Sprintf("%s/S%03d", k.Base, k.Supplement)
}

// IsZero reports whether the key is unset.
func (k Key) IsZero() bool {
	return k.Base == ""
}

// Record is a single normalized observation of a submission from one
// source. Pointer fields distinguish "not reported by this source" from a
// zero value.
type Record struct {
	Key          Key
	Source       SourceKind
	Applicant    string
	DeviceName   string
	ProductCode  string
	DocType      string
	Committee    string
	DecisionDate *time.Time
	DateReceived *time.Time
	ReviewDays   *int
	ThirdParty   *bool
	Expedited    *bool
	Summary      *bool
	Predicates   []Key
}

// Provenance records one source's contribution to a merged entity.
type Provenance struct {
	Source  SourceKind `json:"source"`
	Records int        `json:"records"`
}

// Entity is the merged view of a submission across all sources that
// observed it. Exactly one entity exists per canonical key. A stub entity
// carries nothing but its key and exists only because something cited it.
type Entity struct {
	Key          Key          `json:"key"`
	Applicant    string       `json:"applicant,omitempty"`
	DeviceName   string       `json:"device_name,omitempty"`
	ProductCode  string       `json:"product_code,omitempty"`
	DocType      string       `json:"doc_type,omitempty"`
	Committee    string       `json:"committee,omitempty"`
	DecisionDate *time.Time   `json:"decision_date,omitempty"`
	DateReceived *time.Time   `json:"date_received,omitempty"`
	ReviewDays   *int         `json:"review_days,omitempty"`
	ThirdParty   *bool        `json:"third_party,omitempty"`
	Expedited    *bool        `json:"expedited,omitempty"`
	Summary      *bool        `json:"summary,omitempty"`
	Provenance   []Provenance `json:"provenance,omitempty"`
	Stub         bool         `json:"stub,omitempty"`
}

// ObservedBy reports whether the given source contributed to this entity.
func (e *Entity) ObservedBy(source SourceKind) bool {
	for _, p := range e.Provenance {
		if p.Source == source {
			return true
		}
	}
	return false
}

// CitationEdge is a directed "cites as predicate" edge. Ordinal preserves
// the slot order of the originating source (Predicate1 before Predicate2)
// because slot order approximates chronological precedence when decision
// dates are missing.
type CitationEdge struct {
	From         Key        `json:"from"`
	To           Key        `json:"to"`
	Ordinal      int        `json:"ordinal"`
	Source       SourceKind `json:"source"`
	SelfCitation bool       `json:"self_citation,omitempty"`
	StubTarget   bool       `json:"stub_target,omitempty"`
}

// CrossSourceMismatch is a reportable finding: two sources disagreed on a
// scalar field. The higher-precedence value was kept; nothing is dropped
// silently.
type CrossSourceMismatch struct {
	Key           Key        `json:"key"`
	Field         string     `json:"field"`
	Kept          string     `json:"kept"`
	KeptSource    SourceKind `json:"kept_source"`
	Dropped       string     `json:"dropped"`
	DroppedSource SourceKind `json:"dropped_source"`
}

// Graph is the reconciled citation graph: one entity per canonical key plus
// the ordered edge list. It is append-only while being built and must be
// treated as read-only once handed to analytics; rebuilding always
// recomputes from scratch.
type Graph struct {
	ID       string
	nodes    map[string]*Entity
	edges    []CitationEdge
	outbound map[string][]int
	inbound  map[string][]int
}

// NewGraph returns an empty graph with the given build identifier.
func NewGraph(id string) *Graph {
	return &Graph{
		ID:       id,
		nodes:    make(map[string]*Entity),
		outbound: make(map[string][]int),
		inbound:  make(map[string][]int),
	}
}

// AddEntity inserts the entity, replacing a stub of the same key if a
// dangling citation created one earlier.
func (g *Graph) AddEntity(e *Entity) {
	g.nodes[e.Key.String()] = e
}

// EnsureEntity returns the entity for key, creating a stub if the key has
// not been observed. Graph algorithms therefore never encounter a missing
// node.
func (g *Graph) EnsureEntity(key Key) *Entity {
	if e, ok := g.nodes[key.String()]; ok {
		return e
	}
	stub := &Entity{Key: key, Stub: true}
	g.nodes[key.String()] = stub
	return stub
}

// AddEdge appends a citation edge and indexes it for traversal.
func (g *Graph) AddEdge(edge CitationEdge) {
	idx := len(g.edges)
	g.edges = append(g.edges, edge)
	g.outbound[edge.From.String()] = append(g.outbound[edge.From.String()], idx)
	g.inbound[edge.To.String()] = append(g.inbound[edge.To.String()], idx)
}

// Entity returns the entity for the given key, if present.
func (g *Graph) Entity(key Key) (*Entity, bool) {
	e, ok := g.nodes[key.String()]
	return e, ok
}

// EntityByString looks an entity up by the string form of its key.
func (g *Graph) EntityByString(key string) (*Entity, bool) {
	e, ok := g.nodes[key]
	return e, ok
}

// Keys returns all entity keys in ascending canonical order. The ordering
// makes every downstream computation deterministic.
func (g *Graph) Keys() []string {
	keys := make([]string, 0, len(g.nodes))
	for k := range g.nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Edges returns the edge list in build order.
func (g *Graph) Edges() []CitationEdge {
	return g.edges
}

// Outbound returns the edges citing out of the given entity, in ordinal
// order as built.
func (g *Graph) Outbound(key Key) []CitationEdge {
	return g.edgesAt(g.outbound[key.String()])
}

// Inbound returns the edges citing the given entity as predicate.
func (g *Graph) Inbound(key Key) []CitationEdge {
	return g.edgesAt(g.inbound[key.String()])
}

// InDegree is the number of citations the entity has received.
func (g *Graph) InDegree(key Key) int {
	return len(g.inbound[key.String()])
}

// OutDegree is the number of predicates the entity cites.
func (g *Graph) OutDegree(key Key) int {
	return len(g.outbound[key.String()])
}

// NodeCount returns the number of entities, stubs included.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of citation edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

func (g *Graph) edgesAt(idxs []int) []CitationEdge {
	if len(idxs) == 0 {
		return nil
	}
	out := make([]CitationEdge, len(idxs))
	for i, idx := range idxs {
		out[i] = g.edges[idx]
	}
	return out
}
