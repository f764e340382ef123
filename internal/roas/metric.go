package roas

import (
	"math"

	"roas/internal/domain"
)

// ComputeROAS returns revenue/totalPayout when totalPayout is positive and 0
// otherwise. NaN inputs read as 0, so the result is always a finite number.
func ComputeROAS(revenue, totalPayout float64) float64 {
	if math.IsNaN(revenue) || math.IsInf(revenue, 0) {
		revenue = 0
	}
	if math.IsNaN(totalPayout) || math.IsInf(totalPayout, 0) {
		totalPayout = 0
	}
	if totalPayout > 0 {
		return revenue / totalPayout
	}
	return 0
}

// ApplyROAS derives ROAS for every joined row, one output row per input row.
func ApplyROAS(joined []domain.Joined) []domain.ROASRecord {
	out := make([]domain.ROASRecord, len(joined))
	for i, j := range joined {
		out[i] = domain.ROASRecord{Joined: j, ROAS: ComputeROAS(j.Revenue, j.TotalPayout)}
	}
	return out
}
