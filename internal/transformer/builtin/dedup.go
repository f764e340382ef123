package builtin

import (
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"roas/pkg/records"
)

// DeDup collapses records sharing a business key and picks a winner by
// policy:
//
//   - "keep-first"    : the earliest occurrence wins (default)
//   - "keep-last"     : the latest occurrence wins
//   - "most-complete" : the record with the most non-empty fields wins; ties
//     go to the earlier record
//
// The pipeline runs it on payouts keyed by influencer_id so a tracking row
// can match at most one payout row. Keys are hashed with xxh3 over the
// joined key values; records missing a key field pass through unchanged after
// the winners.
type DeDup struct {
	// Keys are the field names that form the business key, e.g. ["influencer_id"].
	Keys []string

	// Policy selects the winner among duplicates.
	Policy string
}

// Policies accepted by DeDup.
const (
	PolicyKeepFirst    = "keep-first"
	PolicyKeepLast     = "keep-last"
	PolicyMostComplete = "most-complete"
)

// Apply returns the winning record for each key in order of the winner's
// input position, followed by unkeyed records in input order.
func (d DeDup) Apply(in []records.Record) []records.Record {
	if len(in) == 0 || len(d.Keys) == 0 {
		return in
	}

	policy := strings.ToLower(strings.TrimSpace(d.Policy))
	if policy == "" {
		policy = PolicyKeepFirst
	}

	type slot struct {
		index int
		score int
	}
	winners := make(map[uint64]slot, len(in))
	var unkeyed []int

	for i, r := range in {
		key, ok := d.keyOf(r)
		if !ok {
			unkeyed = append(unkeyed, i)
			continue
		}
		prev, exists := winners[key]
		switch policy {
		case PolicyKeepLast:
			winners[key] = slot{index: i}
		case PolicyMostComplete:
			s := slot{index: i, score: completeness(r)}
			if !exists || s.score > prev.score {
				winners[key] = s
			}
		default:
			if !exists {
				winners[key] = slot{index: i}
			}
		}
	}

	idx := make([]int, 0, len(winners))
	for _, s := range winners {
		idx = append(idx, s.index)
	}
	sort.Ints(idx)

	out := make([]records.Record, 0, len(idx)+len(unkeyed))
	for _, i := range idx {
		out = append(out, in[i])
	}
	for _, i := range unkeyed {
		out = append(out, in[i])
	}
	return out
}

// keyOf hashes the key fields. A record with any key field empty is unkeyed.
func (d DeDup) keyOf(r records.Record) (uint64, bool) {
	var b strings.Builder
	for i, k := range d.Keys {
		if r.Empty(k) {
			return 0, false
		}
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(r.String(k))
	}
	return xxh3.HashString(b.String()), true
}

func completeness(r records.Record) int {
	n := 0
	for k := range r {
		if !r.Empty(k) {
			n++
		}
	}
	return n
}
