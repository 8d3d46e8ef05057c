package analytics

import (
	"sort"
	"strings"

	"github.com/regtrace/lineage/pkg/common"
)

// DefaultMaxDepth bounds chain traversal when the caller does not give an
// explicit limit. Citation networks are dense enough that unbounded
// traversal can blow up combinatorially.
const DefaultMaxDepth = 8

// ChainStep is one node reached during lineage traversal, with the depth at
// which it was first reached on the current path.
type ChainStep struct {
	Depth int        `json:"depth"`
	Key   common.Key `json:"key"`
	Stub  bool       `json:"stub,omitempty"`
}

// CycleNotice reports that traversal revisited a node already on the
// current path. The branch is truncated at the repeat; a cycle is a
// finding, never a fatal error.
type CycleNotice struct {
	Path   []common.Key `json:"path"`
	Repeat common.Key   `json:"repeat"`
}

// ChainResult is the ordered outcome of a bounded depth-first lineage
// traversal from one root.
type ChainResult struct {
	Root     common.Key   `json:"root"`
	MaxDepth int          `json:"max_depth"`
	Steps    []ChainStep  `json:"steps"`
	Cycles   []CycleNotice `json:"cycles,omitempty"`
	DepthHit bool         `json:"depth_hit,omitempty"`
}

// Chain follows outgoing citation edges depth-first from root, up to
// maxDepth hops. Predicate slots are visited in ordinal order. A revisit of
// a node on the current path is reported as a cycle and that branch stops;
// traversal always terminates.
func Chain(g *common.Graph, root common.Key, maxDepth int) ChainResult {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	res := ChainResult{Root: root, MaxDepth: maxDepth}

	entity, ok := g.Entity(root)
	if !ok {
		return res
	}
	res.Steps = append(res.Steps, ChainStep{Depth: 0, Key: root, Stub: entity.Stub})

	onPath := map[string]bool{root.String(): true}
	path := []common.Key{root}
	walkChain(g, root, 1, maxDepth, onPath, &path, &res)
	return res
}

func walkChain(g *common.Graph, from common.Key, depth, maxDepth int, onPath map[string]bool, path *[]common.Key, res *ChainResult) {
	if depth > maxDepth {
		res.DepthHit = true
		return
	}

	for _, edge := range g.Outbound(from) {
		target := edge.To

		if onPath[target.String()] {
			cyclePath := make([]common.Key, len(*path))
			copy(cyclePath, *path)
			res.Cycles = append(res.Cycles, CycleNotice{Path: cyclePath, Repeat: target})
			continue
		}

		entity, _ := g.Entity(target)
		res.Steps = append(res.Steps, ChainStep{Depth: depth, Key: target, Stub: entity.Stub})

		onPath[target.String()] = true
		*path = append(*path, target)
		walkChain(g, target, depth+1, maxDepth, onPath, path, res)
		*path = (*path)[:len(*path)-1]
		delete(onPath, target.String())
	}
}

// Cycle is one distinct citation cycle, canonicalized to start at its
// smallest key so the same loop is reported once regardless of the entry
// point it was discovered from.
type Cycle struct {
	Keys []common.Key `json:"keys"`
}

// Cycles enumerates every distinct citation cycle reachable within maxDepth
// hops of any entity. Self-citations appear as single-element cycles.
func Cycles(g *common.Graph, maxDepth int) []Cycle {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	seen := make(map[string]bool)
	var cycles []Cycle

	for _, ks := range g.Keys() {
		entity, _ := g.EntityByString(ks)
		res := Chain(g, entity.Key, maxDepth)
		for _, notice := range res.Cycles {
			loop := extractLoop(notice)
			if loop == nil {
				continue
			}
			canon := canonicalizeCycle(loop)
			id := cycleID(canon)
			if seen[id] {
				continue
			}
			seen[id] = true
			cycles = append(cycles, Cycle{Keys: canon})
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycleID(cycles[i].Keys) < cycleID(cycles[j].Keys)
	})
	return cycles
}

// extractLoop trims the lead-in of a cycle notice path, keeping only the
// segment from the repeated key onward.
func extractLoop(notice CycleNotice) []common.Key {
	for i, k := range notice.Path {
		if k == notice.Repeat {
			loop := make([]common.Key, len(notice.Path)-i)
			copy(loop, notice.Path[i:])
			return loop
		}
	}
	return nil
}

func canonicalizeCycle(loop []common.Key) []common.Key {
	min := 0
	for i := range loop {
		if loop[i].String() < loop[min].String() {
			min = i
		}
	}
	canon := make([]common.Key, 0, len(loop))
	canon = append(canon, loop[min:]...)
	canon = append(canon, loop[:min]...)
	return canon
}

func cycleID(keys []common.Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, "->")
}
