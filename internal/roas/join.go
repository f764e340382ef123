package roas

import "roas/internal/domain"

// JoinPayouts left-joins tracking events to payouts on influencer_id. Every
// tracking row yields exactly one joined row, in input order; rows without a
// payout carry zero payout fields. When payouts repeat an influencer_id the
// first one wins; the pipeline collapses duplicates before calling this.
func JoinPayouts(tracking []domain.Tracking, payouts []domain.Payout) []domain.Joined {
	byID := make(map[string]domain.Payout, len(payouts))
	for _, p := range payouts {
		if _, seen := byID[p.InfluencerID]; !seen {
			byID[p.InfluencerID] = p
		}
	}

	out := make([]domain.Joined, len(tracking))
	for i, t := range tracking {
		j := domain.Joined{Tracking: t}
		if p, ok := byID[t.InfluencerID]; ok && t.InfluencerID != "" {
			j.Basis = p.Basis
			j.Rate = p.Rate
			j.TotalPayout = p.TotalPayout
			j.Matched = true
		}
		out[i] = j
	}
	return out
}
