// Package domain holds the typed rows of the ROAS pipeline: the four inputs
// and every derived shape. Rows are plain values; stages build new slices
// instead of changing rows they were given.
package domain

// Influencer is one roster entry.
type Influencer struct {
	ID            string
	Name          string
	Category      string
	Gender        string
	FollowerCount int64
	Platform      string
}

// Post is reference data; it only feeds the informational post count.
type Post struct {
	InfluencerID string
	Platform     string
	Date         string
	URL          string
	Caption      string
	Reach        float64
	Likes        float64
	Comments     float64
}

// Tracking is one conversion event attributable to an influencer.
type Tracking struct {
	Source       string
	Campaign     string
	InfluencerID string
	UserID       string
	Product      string
	Date         string
	Revenue      float64
	Orders       float64
}

// Payout is what one influencer was paid.
type Payout struct {
	InfluencerID string
	Basis        string
	Rate         string
	TotalPayout  float64
}

// Joined is a tracking event with the matched payout fields. Payout fields
// are zero when no payout matched.
type Joined struct {
	Tracking
	Basis       string
	Rate        string
	TotalPayout float64
	Matched     bool
}

// ROASRecord is a joined row with its per-event ROAS.
type ROASRecord struct {
	Joined
	ROAS float64
}

// InfluencerAggregate is one row per influencer: sums over its events, the
// mean of per-event ROAS, and roster attributes.
type InfluencerAggregate struct {
	InfluencerID  string
	Orders        float64
	Revenue       float64
	TotalPayout   float64
	ROAS          float64
	Events        int
	Name          string
	Category      string
	Gender        string
	FollowerCount int64
	Platform      string
	Posts         int
}

// CampaignAggregate is one row per campaign.
type CampaignAggregate struct {
	Campaign string
	Orders   float64
	Revenue  float64
}
