package export

import (
	"encoding/json"
	"io"

	"roas/internal/domain"
)

// Row is the JSON shape of one report row. Field names match Columns.
type Row struct {
	InfluencerID  string  `json:"influencer_id"`
	Orders        float64 `json:"orders"`
	Revenue       float64 `json:"revenue"`
	TotalPayout   float64 `json:"total_payout"`
	ROAS          float64 `json:"ROAS"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Gender        string  `json:"gender"`
	FollowerCount int64   `json:"follower_count"`
	Platform      string  `json:"platform"`
	Posts         int     `json:"posts"`
}

// Rows converts aggregates to their JSON shape.
func Rows(aggs []domain.InfluencerAggregate) []Row {
	out := make([]Row, len(aggs))
	for i, a := range aggs {
		out[i] = Row{
			InfluencerID:  a.InfluencerID,
			Orders:        a.Orders,
			Revenue:       a.Revenue,
			TotalPayout:   a.TotalPayout,
			ROAS:          a.ROAS,
			Name:          a.Name,
			Category:      a.Category,
			Gender:        a.Gender,
			FollowerCount: a.FollowerCount,
			Platform:      a.Platform,
			Posts:         a.Posts,
		}
	}
	return out
}

// WriteJSON writes the report as an indented JSON array.
func WriteJSON(w io.Writer, aggs []domain.InfluencerAggregate) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Rows(aggs))
}
