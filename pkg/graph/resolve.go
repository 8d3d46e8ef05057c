package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/regtrace/lineage/pkg/common"
)

// ResolverOptions configures identity resolution. Precedence is the source
// authority order, highest first; nil means common.DefaultPrecedence. The
// order is an inferred default, not confirmed original intent, which is why
// it is configurable here rather than hard-coded.
type ResolverOptions struct {
	Precedence []common.SourceKind
}

func (o ResolverOptions) precedence() []common.SourceKind {
	if len(o.Precedence) > 0 {
		return o.Precedence
	}
	return common.DefaultPrecedence
}

func (o ResolverOptions) rank(source common.SourceKind) int {
	for i, s := range o.precedence() {
		if s == source {
			return i
		}
	}
	// Unknown sources rank below everything in the configured order.
	return len(o.precedence())
}

// ResolveResult carries the merged entities plus every cross-source
// disagreement encountered while merging. Mismatches are findings, not
// errors; they are surfaced by the analytics engine and never dropped.
type ResolveResult struct {
	Entities   []*common.Entity
	Mismatches []common.CrossSourceMismatch
}

// Fields compared across sources when more than one source observed the
// same entity.
var comparedFields = []string{"product_code", "applicant"}

// Resolve merges normalized records sharing a canonical key into one entity
// per key. Scalar fields resolve by source precedence, provenance is the
// union of contributing sources, and disagreements on compared fields are
// recorded as mismatches.
//
// Each per-key group is brought into a canonical order before folding, so
// the merge result is independent of the order records arrived in: merging
// A then B then C equals merging any permutation.
func Resolve(records []common.Record, opts ResolverOptions) ResolveResult {
	groups := make(map[string][]common.Record)
	for _, rec := range records {
		ks := rec.Key.String()
		groups[ks] = append(groups[ks], rec)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res := ResolveResult{}
	for _, k := range keys {
		entity, mismatches := mergeGroup(groups[k], opts)
		res.Entities = append(res.Entities, entity)
		res.Mismatches = append(res.Mismatches, mismatches...)
	}
	return res
}

// mergeGroup folds all records of one canonical key. Records are applied
// from weakest to strongest source so that later (more authoritative)
// non-empty values overwrite earlier ones.
func mergeGroup(group []common.Record, opts ResolverOptions) (*common.Entity, []common.CrossSourceMismatch) {
	sort.SliceStable(group, func(i, j int) bool {
		ri, rj := opts.rank(group[i].Source), opts.rank(group[j].Source)
		if ri != rj {
			return ri > rj // weakest first
		}
		if group[i].Source != group[j].Source {
			return group[i].Source > group[j].Source
		}
		return fingerprint(group[i]) > fingerprint(group[j])
	})

	entity := &common.Entity{Key: group[0].Key}
	provenance := make(map[common.SourceKind]int)

	for i := range group {
		rec := group[i]
		provenance[rec.Source]++

		if rec.Applicant != "" {
			entity.Applicant = rec.Applicant
		}
		if rec.DeviceName != "" {
			entity.DeviceName = rec.DeviceName
		}
		if rec.ProductCode != "" {
			entity.ProductCode = rec.ProductCode
		}
		if rec.DocType != "" {
			entity.DocType = rec.DocType
		}
		if rec.Committee != "" {
			entity.Committee = rec.Committee
		}
		if rec.DecisionDate != nil {
			entity.DecisionDate = rec.DecisionDate
		}
		if rec.DateReceived != nil {
			entity.DateReceived = rec.DateReceived
		}
		if rec.ReviewDays != nil {
			entity.ReviewDays = rec.ReviewDays
		}
		if rec.ThirdParty != nil {
			entity.ThirdParty = rec.ThirdParty
		}
		if rec.Expedited != nil {
			entity.Expedited = rec.Expedited
		}
		if rec.Summary != nil {
			entity.Summary = rec.Summary
		}
	}

	for _, source := range opts.precedence() {
		if n, ok := provenance[source]; ok {
			entity.Provenance = append(entity.Provenance, common.Provenance{Source: source, Records: n})
		}
	}

	return entity, compareSources(entity.Key, group, opts)
}

// compareSources emits one mismatch per compared field per source whose
// value disagrees with the kept (highest-precedence) value.
func compareSources(key common.Key, group []common.Record, opts ResolverOptions) []common.CrossSourceMismatch {
	var mismatches []common.CrossSourceMismatch

	for _, field := range comparedFields {
		type observation struct {
			source common.SourceKind
			value  string
		}
		seen := make(map[common.SourceKind]string)
		var obs []observation

		// group is sorted weakest-first; keep the strongest-ordered value
		// per source (later entries of the same source overwrite).
		for _, rec := range group {
			v := fieldValue(rec, field)
			if v == "" {
				continue
			}
			if _, ok := seen[rec.Source]; !ok {
				obs = append(obs, observation{source: rec.Source})
			}
			seen[rec.Source] = v
		}
		for i := range obs {
			obs[i].value = seen[obs[i].source]
		}
		if len(obs) < 2 {
			continue
		}

		sort.Slice(obs, func(i, j int) bool {
			return opts.rank(obs[i].source) < opts.rank(obs[j].source)
		})

		kept := obs[0]
		for _, other := range obs[1:] {
			if !strings.EqualFold(other.value, kept.value) {
				mismatches = append(mismatches, common.CrossSourceMismatch{
					Key:           key,
					Field:         field,
					Kept:          kept.value,
					KeptSource:    kept.source,
					Dropped:       other.value,
					DroppedSource: other.source,
				})
			}
		}
	}
	return mismatches
}

func fieldValue(rec common.Record, field string) string {
	switch field {
	case "product_code":
		return rec.ProductCode
	case "applicant":
		return rec.Applicant
	}
	return ""
}

// fingerprint gives equal-precedence records of the same source a stable
// relative order, keeping the fold deterministic under input permutation.
func fingerprint(rec common.Record) string {
	var b strings.Builder
	b.WriteString(rec.Applicant)
	b.WriteByte('|')
	b.WriteString(rec.DeviceName)
	b.WriteByte('|')
	b.WriteString(rec.ProductCode)
	b.WriteByte('|')
	b.WriteString(rec.DocType)
	b.WriteByte('|')
	b.WriteString(rec.Committee)
	b.WriteByte('|')
	if rec.DecisionDate != nil {
		b.WriteString(rec.DecisionDate.Format("2006-01-02"))
	}
	b.WriteByte('|')
	if rec.DateReceived != nil {
		b.WriteString(rec.DateReceived.Format("2006-01-02"))
	}
	b.WriteByte('|')
	if rec.ReviewDays != nil {
		fmt.Fprintf(&b, "%d", *rec.ReviewDays)
	}
	for _, p := range rec.Predicates {
		b.WriteByte('|')
		b.WriteString(p.String())
	}
	return b.String()
}
