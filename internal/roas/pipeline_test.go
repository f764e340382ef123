package roas

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"roas/internal/domain"
	"roas/internal/metrics"
	"roas/internal/schema"
	"roas/internal/table"
)

type stepRecorder struct {
	mu    sync.Mutex
	steps []string
	runs  []string
}

func (r *stepRecorder) IncCounter(name string, _ float64, l metrics.Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch name {
	case metrics.StepTotal:
		r.steps = append(r.steps, l["step"]+":"+l["status"])
	case metrics.RunsTotal:
		r.runs = append(r.runs, l["state"])
	}
}
func (r *stepRecorder) ObserveHistogram(string, float64, metrics.Labels) {}
func (r *stepRecorder) Flush() error                                    { return nil }

func recordSteps(t *testing.T) *stepRecorder {
	t.Helper()
	rec := &stepRecorder{}
	metrics.SetBackend(rec)
	t.Cleanup(func() { metrics.SetBackend(&stepRecorder{}) })
	return rec
}

func TestRun_SampleInputs(t *testing.T) {
	rec := recordSteps(t)
	id := uuid.New()

	res, err := Run(context.Background(), sampleInputs(), Options{TopN: 2, RunID: id})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RunID != id {
		t.Errorf("RunID = %v, want %v", res.RunID, id)
	}

	byID := aggByID(res.Influencers)
	a := byID["A"]
	if a.Revenue != 150 || a.TotalPayout != 30 || a.Name != "Alice" || a.Posts != 2 || a.FollowerCount != 1200 {
		t.Errorf("A = %+v", a)
	}
	if diff := cmp.Diff(2.5, a.ROAS, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("A ROAS (-want +got):\n%s", diff)
	}
	if b := byID["B"]; b.ROAS != 0 || b.TotalPayout != 0 || b.Revenue != 40 {
		t.Errorf("B = %+v", b)
	}

	var top, low []string
	for _, x := range res.Top {
		top = append(top, x.InfluencerID)
	}
	for _, x := range res.Low {
		low = append(low, x.InfluencerID)
	}
	if diff := cmp.Diff([]string{"C", "A"}, top); diff != "" {
		t.Errorf("top (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"B"}, low); diff != "" {
		t.Errorf("low (-want +got):\n%s", diff)
	}

	wantCampaigns := []domain.CampaignAggregate{
		{Campaign: "spring", Orders: 3, Revenue: 150},
		{Campaign: "summer", Orders: 1, Revenue: 40},
		{Campaign: schema.UnattributedCampaign, Orders: 5, Revenue: 500},
	}
	if diff := cmp.Diff(wantCampaigns, res.Campaigns); diff != "" {
		t.Errorf("campaigns (-want +got):\n%s", diff)
	}

	if res.Stats.Joined != 4 || res.Stats.Unmatched != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if diff := cmp.Diff([]string{"Instagram", "YouTube"}, res.ObservedPlatforms); diff != "" {
		t.Errorf("platforms (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"validate:success", "normalize:success", "join:success", "aggregate:success", "rank:success"}, rec.steps); diff != "" {
		t.Errorf("steps (-want +got):\n%s", diff)
	}
}

func TestRun_OrdersColumnOmitted(t *testing.T) {
	in := sampleInputs()
	in.Tracking = csvTable(schema.TableTracking, "source,campaign,influencer_id,user_id,product,date,revenue",
		"ig,spring,A,u1,serum,2024-05-01,100",
		"yt,summer,B,u3,shake,2024-05-03,40",
	)
	res, err := Run(context.Background(), in, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, c := range res.Campaigns {
		if c.Orders != 0 {
			t.Errorf("campaign %s orders = %v, want 0", c.Campaign, c.Orders)
		}
	}
	for _, a := range res.Influencers {
		if a.Orders != 0 {
			t.Errorf("influencer %s orders = %v, want 0", a.InfluencerID, a.Orders)
		}
	}
}

func TestRun_MissingCategory(t *testing.T) {
	rec := recordSteps(t)
	in := sampleInputs()
	in.Influencers = csvTable(schema.TableInfluencers, "id,name,gender,follower_count,platform",
		"A,Alice,F,1200,Instagram",
	)

	res, err := Run(context.Background(), in, Options{})
	if res != nil {
		t.Fatalf("partial result returned: %+v", res)
	}
	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *schema.ValidationError", err)
	}
	if diff := cmp.Diff([]string{"category"}, verr.MissingFor(schema.TableInfluencers)); diff != "" {
		t.Errorf("missing (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"validate:failure"}, rec.steps); diff != "" {
		t.Errorf("later stages ran (-want +got):\n%s", diff)
	}
}

func TestRun_MissingInputs(t *testing.T) {
	in := sampleInputs()
	in.Payouts = nil
	in.Posts = nil

	_, err := Run(context.Background(), in, Options{})
	var missing *MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want *MissingInputError", err)
	}
	if diff := cmp.Diff([]string{schema.TablePosts, schema.TablePayouts}, missing.Tables); diff != "" {
		t.Errorf("tables (-want +got):\n%s", diff)
	}
	if errors.Is(err, ErrNoInputs) {
		t.Error("partial inputs should not match ErrNoInputs")
	}

	if _, err := Run(context.Background(), Inputs{}, Options{}); !errors.Is(err, ErrNoInputs) {
		t.Errorf("empty inputs err = %v, want ErrNoInputs", err)
	}
}

func TestRun_BadNumberIsComputationError(t *testing.T) {
	in := sampleInputs()
	in.Payouts = csvTable(schema.TablePayouts, payoutHeader, "A,post,30,thirty")

	_, err := Run(context.Background(), in, Options{})
	var cerr *ComputationError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want *ComputationError", err)
	}
	if cerr.Stage != "normalize" {
		t.Errorf("stage = %q, want normalize", cerr.Stage)
	}
	var rowErr *domain.RowError
	if !errors.As(err, &rowErr) || rowErr.Table != schema.TablePayouts || rowErr.Line != 2 {
		t.Errorf("row error = %+v", rowErr)
	}
}

func TestRun_NonFiniteAmountIsComputationError(t *testing.T) {
	for _, v := range []string{"Inf", "-Infinity", "+inf", "1e400"} {
		t.Run(v, func(t *testing.T) {
			in := sampleInputs()
			in.Tracking = csvTable(schema.TableTracking, trackingHeader,
				"ig,spring,A,u1,serum,2024-05-01,"+v+",1",
				"yt,summer,B,u3,shake,2024-05-03,40,1",
			)

			res, err := Run(context.Background(), in, Options{})
			if res != nil {
				t.Fatalf("partial result returned: %+v", res)
			}
			var cerr *ComputationError
			if !errors.As(err, &cerr) {
				t.Fatalf("err = %v, want *ComputationError", err)
			}
			if out := Evaluate(context.Background(), in, Options{}); out.State != Failed || out.Message != MsgComputeFailed {
				t.Errorf("outcome = %v %q", out.State, out.Message)
			}
		})
	}
}

func TestRun_UnparsedPostEngagementStillReady(t *testing.T) {
	in := sampleInputs()
	in.Posts = csvTable(schema.TablePosts, postHeader,
		"A,Instagram,2024-05-01,https://x/1,hi,1.2k,10,1",
		"C,YouTube,2024-05-03,https://x/3,hi,100,lots,1",
	)

	out := Evaluate(context.Background(), in, Options{})
	if out.State != Ready {
		t.Fatalf("state = %v, message %q, err %v", out.State, out.Message, out.Err)
	}
	if out.Result.Stats.PostsUnparsed != 2 {
		t.Errorf("PostsUnparsed = %d, want 2", out.Result.Stats.PostsUnparsed)
	}
	if a := aggByID(out.Result.Influencers)["A"]; a.Posts != 1 || a.Revenue != 150 {
		t.Errorf("A = %+v", a)
	}
}

func TestRun_ShortTrackingRowJoined(t *testing.T) {
	in := sampleInputs()
	// The last row ends before its orders cell; the parser pads it with nil.
	in.Tracking = csvTable(schema.TableTracking, trackingHeader,
		"ig,spring,A,u1,serum,2024-05-01,100,1",
		"ig,spring,A,u2,serum,2024-05-02,50",
	)

	res, err := Run(context.Background(), in, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stats.Joined != in.Tracking.Len() {
		t.Fatalf("joined = %d, want %d", res.Stats.Joined, in.Tracking.Len())
	}
	if a := aggByID(res.Influencers)["A"]; a.Revenue != 150 || a.Orders != 1 {
		t.Errorf("A = %+v", a)
	}
}

func TestRun_DuplicatePayoutsKeepRowCount(t *testing.T) {
	in := sampleInputs()
	in.Payouts = csvTable(schema.TablePayouts, payoutHeader,
		"A,post,30,30",
		"A,post,99,99",
		"C,post,100,100",
	)
	res, err := Run(context.Background(), in, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stats.Joined != in.Tracking.Len() || res.Stats.PayoutsCollapsed != 1 {
		t.Fatalf("stats = %+v", res.Stats)
	}
	if a := aggByID(res.Influencers)["A"]; a.TotalPayout != 30 {
		t.Fatalf("A payout = %v, want first payout 30", a.TotalPayout)
	}

	res, err = Run(context.Background(), in, Options{PayoutDedupPolicy: "keep-last"})
	if err != nil {
		t.Fatalf("Run keep-last: %v", err)
	}
	if a := aggByID(res.Influencers)["A"]; a.TotalPayout != 99 {
		t.Fatalf("A payout = %v, want last payout 99", a.TotalPayout)
	}
}

func TestRun_Facets(t *testing.T) {
	f := Facets{Platforms: Only("YouTube"), Categories: Only("Beauty")}
	res, err := Run(context.Background(), sampleInputs(), Options{Facets: &f})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Influencers) != 1 || res.Influencers[0].InfluencerID != "C" {
		t.Fatalf("influencers = %+v, want only C", res.Influencers)
	}
	// Facets narrow the influencer views, not the campaign summary.
	if len(res.Campaigns) != 3 {
		t.Fatalf("campaigns = %+v", res.Campaigns)
	}
	if len(res.ObservedPlatforms) != 2 {
		t.Fatalf("observed platforms = %v", res.ObservedPlatforms)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, sampleInputs(), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestFingerprint_StableAcrossColumnOrder(t *testing.T) {
	a := csvTable("t", "x,y", "1,2", "3,4")
	b := csvTable("t", "y,x", "2,1", "4,3")
	if Fingerprint(map[string]table.Table{"t": *a}) != Fingerprint(map[string]table.Table{"t": *b}) {
		t.Fatal("column order changed the fingerprint")
	}
	c := csvTable("t", "x,y", "1,2", "3,5")
	if Fingerprint(map[string]table.Table{"t": *a}) == Fingerprint(map[string]table.Table{"t": *c}) {
		t.Fatal("different values share a fingerprint")
	}
}
