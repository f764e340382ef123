package domain

import (
	"fmt"
	"time"

	"roas/pkg/records"
)

// RowError locates a value that could not be decoded. Line is 1-based and
// counts the header as line 1; rows dropped by earlier stages are not counted.
type RowError struct {
	Table string
	Line  int
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.Table, e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

func rowErr(table string, i int, err error) error {
	return &RowError{Table: table, Line: i + 2, Err: err}
}

// text renders a cell as a string; dates coerced upstream print as ISO.
func text(r records.Record, key string) string {
	if t, ok := r[key].(time.Time); ok {
		return t.Format("2006-01-02")
	}
	return r.String(key)
}

// DecodeInfluencers converts roster rows.
func DecodeInfluencers(rows []records.Record) ([]Influencer, error) {
	out := make([]Influencer, 0, len(rows))
	for i, r := range rows {
		fc, err := r.Int("follower_count", 0)
		if err != nil {
			return nil, rowErr("influencers", i, err)
		}
		if fc < 0 {
			return nil, rowErr("influencers", i, fmt.Errorf("column follower_count: %d is negative", fc))
		}
		out = append(out, Influencer{
			ID:            text(r, "id"),
			Name:          text(r, "name"),
			Category:      text(r, "category"),
			Gender:        text(r, "gender"),
			FollowerCount: fc,
			Platform:      text(r, "platform"),
		})
	}
	return out, nil
}

// DecodePosts converts post rows. Posts carry no amounts the report depends
// on, so an engagement count that does not parse (for example "1.2k") reads as
// 0 and is returned as a warning instead of failing the run.
func DecodePosts(rows []records.Record) ([]Post, []error) {
	out := make([]Post, 0, len(rows))
	var warns []error
	count := func(i int, r records.Record, key string) float64 {
		v, err := r.Float(key, 0)
		if err != nil {
			warns = append(warns, rowErr("posts", i, err))
			return 0
		}
		return v
	}
	for i, r := range rows {
		out = append(out, Post{
			InfluencerID: text(r, "influencer_id"),
			Platform:     text(r, "platform"),
			Date:         text(r, "date"),
			URL:          text(r, "url"),
			Caption:      text(r, "caption"),
			Reach:        count(i, r, "reach"),
			Likes:        count(i, r, "likes"),
			Comments:     count(i, r, "comments"),
		})
	}
	return out, warns
}

// DecodeTracking converts tracking rows. Empty revenue and orders read as 0.
func DecodeTracking(rows []records.Record) ([]Tracking, error) {
	out := make([]Tracking, 0, len(rows))
	for i, r := range rows {
		revenue, err := r.Float("revenue", 0)
		if err != nil {
			return nil, rowErr("tracking_data", i, err)
		}
		orders, err := r.Float("orders", 0)
		if err != nil {
			return nil, rowErr("tracking_data", i, err)
		}
		out = append(out, Tracking{
			Source:       text(r, "source"),
			Campaign:     text(r, "campaign"),
			InfluencerID: text(r, "influencer_id"),
			UserID:       text(r, "user_id"),
			Product:      text(r, "product"),
			Date:         text(r, "date"),
			Revenue:      revenue,
			Orders:       orders,
		})
	}
	return out, nil
}

// DecodePayouts converts payout rows. Empty total_payout reads as 0.
func DecodePayouts(rows []records.Record) ([]Payout, error) {
	out := make([]Payout, 0, len(rows))
	for i, r := range rows {
		total, err := r.Float("total_payout", 0)
		if err != nil {
			return nil, rowErr("payouts", i, err)
		}
		out = append(out, Payout{
			InfluencerID: text(r, "influencer_id"),
			Basis:        text(r, "basis"),
			Rate:         text(r, "rate"),
			TotalPayout:  total,
		})
	}
	return out, nil
}
