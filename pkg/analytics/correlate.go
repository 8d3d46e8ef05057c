package analytics

import (
	"math"

	"github.com/regtrace/lineage/pkg/common"
)

// CorrelationResult is the outcome of the out-degree / review-time
// correlation. Insufficient distinguishes "could not be computed" from a
// coefficient that happens to be zero; the two are never collapsed.
type CorrelationResult struct {
	Coefficient  float64 `json:"coefficient"`
	Samples      int     `json:"samples"`
	Excluded     int     `json:"excluded"`
	Insufficient bool    `json:"insufficient"`
	Reason       string  `json:"reason,omitempty"`
}

// ReviewTimeCorrelation computes the Pearson correlation between citation
// out-degree and review duration across all entities carrying a review
// duration. Entities missing the field (stubs included) are excluded and
// counted, never coerced to zero.
func ReviewTimeCorrelation(g *common.Graph) CorrelationResult {
	var xs, ys []float64
	excluded := 0

	for _, ks := range g.Keys() {
		entity, _ := g.EntityByString(ks)
		if entity.ReviewDays == nil {
			excluded++
			continue
		}
		xs = append(xs, float64(g.OutDegree(entity.Key)))
		ys = append(ys, float64(*entity.ReviewDays))
	}

	res := CorrelationResult{Samples: len(xs), Excluded: excluded}
	if len(xs) < 3 {
		res.Insufficient = true
		res.Reason = "fewer than 3 entities have both predicate count and review duration"
		return res
	}

	coeff, ok := pearson(xs, ys)
	if !ok {
		res.Insufficient = true
		res.Reason = "zero variance in predicate count or review duration"
		return res
	}
	res.Coefficient = coeff
	return res
}

func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	return cov / math.Sqrt(varX*varY), true
}
