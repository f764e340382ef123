package roas

import (
	"strings"

	"roas/internal/domain"
	"roas/internal/schema"
	"roas/internal/table"
	"roas/pkg/records"
)

// csvTable builds a table from a comma-separated header and rows. Empty
// cells become nil, as the parser produces them.
func csvTable(name, header string, rows ...string) *table.Table {
	cols := strings.Split(header, ",")
	recs := make([]records.Record, 0, len(rows))
	for _, line := range rows {
		cells := strings.Split(line, ",")
		r := records.Record{}
		for i, c := range cols {
			if i < len(cells) && cells[i] != "" {
				r[c] = cells[i]
			} else {
				r[c] = nil
			}
		}
		recs = append(recs, r)
	}
	t := table.New(name, cols, recs)
	return &t
}

const (
	influencerHeader = "id,name,category,gender,follower_count,platform"
	postHeader       = "influencer_id,platform,date,url,caption,reach,likes,comments"
	trackingHeader   = "source,campaign,influencer_id,user_id,product,date,revenue,orders"
	payoutHeader     = "influencer_id,basis,rate,total_payout"
)

// sampleInputs is a small, complete data set:
//
//	A: two events (100, 50), payout 30
//	B: one event (40), no payout
//	C: one event (500), payout 100
func sampleInputs() Inputs {
	return Inputs{
		Influencers: csvTable(schema.TableInfluencers, influencerHeader,
			"A,Alice,Beauty,F,1200,Instagram",
			"B,Bob,Fitness,M,800,YouTube",
			"C,Cara,Beauty,F,5000,YouTube",
		),
		Posts: csvTable(schema.TablePosts, postHeader,
			"A,Instagram,2024-05-01,https://x/1,hi,100,10,1",
			"A,Instagram,2024-05-02,https://x/2,hi,100,10,1",
			"C,YouTube,2024-05-03,https://x/3,hi,100,10,1",
		),
		Tracking: csvTable(schema.TableTracking, trackingHeader,
			"ig,spring,A,u1,serum,2024-05-01,100,1",
			"ig,spring,A,u2,serum,2024-05-02,50,2",
			"yt,summer,B,u3,shake,2024-05-03,40,1",
			"yt,,C,u4,serum,2024-05-04,500,5",
		),
		Payouts: csvTable(schema.TablePayouts, payoutHeader,
			"A,post,30,30",
			"C,post,100,100",
		),
	}
}

func aggByID(aggs []domain.InfluencerAggregate) map[string]domain.InfluencerAggregate {
	out := make(map[string]domain.InfluencerAggregate, len(aggs))
	for _, a := range aggs {
		out[a.InfluencerID] = a
	}
	return out
}
