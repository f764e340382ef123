package roas

import (
	"sort"
	"strconv"

	"roas/internal/domain"
)

// AggregateByInfluencer groups ROAS rows by influencer_id and reduces them to
// summed orders and revenue, the influencer's total payout, and the mean of
// per-event ROAS. The mean is over events, not sum(revenue)/sum(payout).
// Every joined row repeats the same payout, so the payout is summed over the
// distinct payout records (one per influencer) rather than over events. Output is ordered by
// influencer_id (numeric ids numerically) so the result does not depend on
// input row order.
func AggregateByInfluencer(rows []domain.ROASRecord) []domain.InfluencerAggregate {
	idx := map[string]int{}
	var out []domain.InfluencerAggregate
	roasSum := map[string]float64{}
	paid := map[string]bool{}

	for _, r := range rows {
		id := r.InfluencerID
		i, ok := idx[id]
		if !ok {
			i = len(out)
			idx[id] = i
			out = append(out, domain.InfluencerAggregate{InfluencerID: id})
		}
		a := &out[i]
		a.Orders += r.Orders
		a.Revenue += r.Revenue
		if r.Matched && !paid[id] {
			paid[id] = true
			a.TotalPayout += r.TotalPayout
		}
		a.Events++
		roasSum[id] += r.ROAS
	}
	for i := range out {
		out[i].ROAS = roasSum[out[i].InfluencerID] / float64(out[i].Events)
	}

	sort.SliceStable(out, func(i, j int) bool { return lessID(out[i].InfluencerID, out[j].InfluencerID) })
	return out
}

// AggregateByCampaign sums orders and revenue per campaign over the raw
// tracking rows, independent of payout attribution. Ordered by campaign.
func AggregateByCampaign(tracking []domain.Tracking) []domain.CampaignAggregate {
	idx := map[string]int{}
	var out []domain.CampaignAggregate
	for _, t := range tracking {
		i, ok := idx[t.Campaign]
		if !ok {
			i = len(out)
			idx[t.Campaign] = i
			out = append(out, domain.CampaignAggregate{Campaign: t.Campaign})
		}
		out[i].Orders += t.Orders
		out[i].Revenue += t.Revenue
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Campaign < out[j].Campaign })
	return out
}

// CountPosts returns the number of posts per influencer_id.
func CountPosts(posts []domain.Post) map[string]int {
	out := make(map[string]int)
	for _, p := range posts {
		out[p.InfluencerID]++
	}
	return out
}

// AttachInfluencers copies roster attributes onto the aggregate. Aggregate
// rows whose influencer is not in roster are dropped: roster is the facet-
// filtered view. With includeUntracked, roster influencers that have no
// tracking rows are added with zero metrics. postCounts may be nil.
func AttachInfluencers(aggs []domain.InfluencerAggregate, roster []domain.Influencer, postCounts map[string]int, includeUntracked bool) []domain.InfluencerAggregate {
	byID := make(map[string]domain.Influencer, len(roster))
	var order []string
	for _, inf := range roster {
		if _, seen := byID[inf.ID]; !seen {
			byID[inf.ID] = inf
			order = append(order, inf.ID)
		}
	}

	out := make([]domain.InfluencerAggregate, 0, len(aggs))
	tracked := make(map[string]bool, len(aggs))
	for _, a := range aggs {
		inf, ok := byID[a.InfluencerID]
		if !ok {
			continue
		}
		tracked[a.InfluencerID] = true
		out = append(out, withInfluencer(a, inf, postCounts))
	}

	if includeUntracked {
		for _, id := range order {
			if tracked[id] {
				continue
			}
			out = append(out, withInfluencer(domain.InfluencerAggregate{InfluencerID: id}, byID[id], postCounts))
		}
		sort.SliceStable(out, func(i, j int) bool { return lessID(out[i].InfluencerID, out[j].InfluencerID) })
	}
	return out
}

func withInfluencer(a domain.InfluencerAggregate, inf domain.Influencer, postCounts map[string]int) domain.InfluencerAggregate {
	a.Name = inf.Name
	a.Category = inf.Category
	a.Gender = inf.Gender
	a.FollowerCount = inf.FollowerCount
	a.Platform = inf.Platform
	a.Posts = postCounts[a.InfluencerID]
	return a
}

// lessID orders numeric ids numerically, before any non-numeric id, and
// everything else lexically.
func lessID(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}
