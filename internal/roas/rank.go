package roas

import (
	"sort"

	"roas/internal/domain"
)

// Defaults for the ranked views.
const (
	DefaultTopN             = 5
	DefaultLowROASThreshold = 1.0
)

// TopByRevenue returns the n influencers with the highest revenue. Ties keep
// aggregate order.
func TopByRevenue(aggs []domain.InfluencerAggregate, n int) []domain.InfluencerAggregate {
	out := append([]domain.InfluencerAggregate(nil), aggs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Revenue > out[j].Revenue })
	return head(out, n)
}

// LowROAS returns up to n influencers with ROAS strictly below threshold,
// lowest first. Ties keep aggregate order.
func LowROAS(aggs []domain.InfluencerAggregate, n int, threshold float64) []domain.InfluencerAggregate {
	var out []domain.InfluencerAggregate
	for _, a := range aggs {
		if a.ROAS < threshold {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ROAS < out[j].ROAS })
	return head(out, n)
}

func head(in []domain.InfluencerAggregate, n int) []domain.InfluencerAggregate {
	if n >= 0 && len(in) > n {
		return in[:n]
	}
	return in
}
