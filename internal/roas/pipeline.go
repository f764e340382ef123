package roas

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"roas/internal/domain"
	"roas/internal/metrics"
	"roas/internal/schema"
	"roas/internal/table"
	"roas/internal/transformer"
	"roas/internal/transformer/builtin"
)

var allTables = schema.TableNames

// warnLogLimit caps per-row warnings logged for one table.
const warnLogLimit = 20

// Inputs holds the four raw tables. A nil table has not been supplied.
type Inputs struct {
	Influencers *table.Table
	Posts       *table.Table
	Tracking    *table.Table
	Payouts     *table.Table
}

// byName returns the supplied tables keyed by table name and the names of
// the ones still missing, in reporting order.
func (in Inputs) byName() (map[string]table.Table, []string) {
	got := map[string]table.Table{}
	var missing []string
	for name, t := range map[string]*table.Table{
		schema.TableInfluencers: in.Influencers,
		schema.TablePosts:       in.Posts,
		schema.TableTracking:    in.Tracking,
		schema.TablePayouts:     in.Payouts,
	} {
		if t != nil {
			got[name] = *t
		}
	}
	for _, name := range allTables {
		if _, ok := got[name]; !ok {
			missing = append(missing, name)
		}
	}
	return got, missing
}

// Options tunes a run. The zero value selects every facet and the default
// views.
type Options struct {
	Job               string
	Facets            *Facets
	TopN              int
	LowROASThreshold  *float64
	PayoutDedupPolicy string
	IncludeUntracked  bool
	DateLayout        string
	Logger            *zap.Logger
	RunID             uuid.UUID
}

func (o Options) withDefaults() Options {
	if o.Job == "" {
		o.Job = "roas"
	}
	if o.Facets == nil {
		f := AllFacets()
		o.Facets = &f
	}
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.LowROASThreshold == nil {
		th := DefaultLowROASThreshold
		o.LowROASThreshold = &th
	}
	if o.PayoutDedupPolicy == "" {
		o.PayoutDedupPolicy = builtin.PolicyKeepFirst
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.RunID == uuid.Nil {
		o.RunID = uuid.New()
	}
	return o
}

// Stats counts rows through the run.
type Stats struct {
	InputRows        map[string]int `json:"input_rows"`
	PayoutsCollapsed int            `json:"payouts_collapsed"`
	Joined           int            `json:"joined"`
	Unmatched        int            `json:"unmatched"`
	PostsUnparsed    int            `json:"posts_unparsed"`
	Influencers      int            `json:"influencers"`
	Filtered         int            `json:"filtered"`
}

// Result is everything a successful run produces.
type Result struct {
	RunID       uuid.UUID
	Fingerprint uint64

	Influencers []domain.InfluencerAggregate
	Campaigns   []domain.CampaignAggregate
	Top         []domain.InfluencerAggregate
	Low         []domain.InfluencerAggregate

	ObservedPlatforms  []string
	ObservedCategories []string

	Stats Stats
}

// Run validates the inputs and computes the report. It returns a
// *MissingInputError while any table is absent, a *schema.ValidationError
// when required columns are missing, and a *ComputationError for anything
// that fails after validation. No partial result is returned.
func Run(ctx context.Context, in Inputs, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	log := opts.Logger.With(zap.String("job", opts.Job), zap.Stringer("run_id", opts.RunID))

	tables, missing := in.byName()
	if len(missing) > 0 {
		log.Debug("roas: waiting for inputs", zap.Strings("missing", missing))
		return nil, &MissingInputError{Tables: missing}
	}

	res := &Result{RunID: opts.RunID, Stats: Stats{InputRows: map[string]int{}}}
	for _, name := range allTables {
		n := tables[name].Len()
		res.Stats.InputRows[name] = n
		metrics.RecordRows(opts.Job, name, n)
	}
	res.Fingerprint = Fingerprint(tables)

	r := runner{ctx: ctx, job: opts.Job, log: log}

	if err := r.step("validate", func() error {
		if verr := schema.ValidateAll(tables); verr != nil {
			return verr
		}
		return nil
	}); err != nil {
		return nil, err
	}

	var (
		roster   []domain.Influencer
		posts    []domain.Post
		tracking []domain.Tracking
		payouts  []domain.Payout
	)
	if err := r.step("normalize", func() error {
		var err error
		for name, t := range tables {
			tables[name] = normalizeChain(name, opts).ApplyTable(t, addedColumns(name)...)
		}
		before := tables[schema.TablePayouts].Len()
		payoutRows := builtin.DeDup{
			Keys:   []string{"influencer_id"},
			Policy: opts.PayoutDedupPolicy,
		}.Apply(tables[schema.TablePayouts].Rows)
		tables[schema.TablePayouts] = tables[schema.TablePayouts].WithRows(payoutRows)
		res.Stats.PayoutsCollapsed = before - len(payoutRows)
		metrics.RecordRows(opts.Job, "payout_duplicates", res.Stats.PayoutsCollapsed)
		if res.Stats.PayoutsCollapsed > 0 {
			log.Info("roas: collapsed duplicate payouts",
				zap.Int("collapsed", res.Stats.PayoutsCollapsed),
				zap.String("policy", opts.PayoutDedupPolicy))
		}

		if roster, err = domain.DecodeInfluencers(tables[schema.TableInfluencers].Rows); err != nil {
			return err
		}
		var warns []error
		posts, warns = domain.DecodePosts(tables[schema.TablePosts].Rows)
		res.Stats.PostsUnparsed = len(warns)
		for i, w := range warns {
			if i == warnLogLimit {
				log.Warn("roas: further post engagement values read as 0", zap.Int("remaining", len(warns)-i))
				break
			}
			log.Warn("roas: post engagement read as 0", zap.Error(w))
		}
		if tracking, err = domain.DecodeTracking(tables[schema.TableTracking].Rows); err != nil {
			return err
		}
		payouts, err = domain.DecodePayouts(tables[schema.TablePayouts].Rows)
		return err
	}); err != nil {
		return nil, err
	}

	var rows []domain.ROASRecord
	if err := r.step("join", func() error {
		joined := JoinPayouts(tracking, payouts)
		if len(joined) != len(tracking) {
			return fmt.Errorf("join produced %d rows from %d tracking rows", len(joined), len(tracking))
		}
		for _, j := range joined {
			if !j.Matched {
				res.Stats.Unmatched++
			}
		}
		res.Stats.Joined = len(joined)
		metrics.RecordRows(opts.Job, "joined", len(joined))
		rows = ApplyROAS(joined)
		for _, row := range rows {
			if math.IsNaN(row.ROAS) || math.IsInf(row.ROAS, 0) {
				return fmt.Errorf("non-finite ROAS for influencer %q", row.InfluencerID)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := r.step("aggregate", func() error {
		filtered := FilterInfluencers(roster, *opts.Facets)
		res.Stats.Filtered = len(filtered)
		res.ObservedPlatforms, res.ObservedCategories = ObservedFacets(roster)

		res.Influencers = AttachInfluencers(AggregateByInfluencer(rows), filtered, CountPosts(posts), opts.IncludeUntracked)
		res.Campaigns = AggregateByCampaign(tracking)
		res.Stats.Influencers = len(res.Influencers)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := r.step("rank", func() error {
		res.Top = TopByRevenue(res.Influencers, opts.TopN)
		res.Low = LowROAS(res.Influencers, opts.TopN, *opts.LowROASThreshold)
		return nil
	}); err != nil {
		return nil, err
	}

	log.Info("roas: report ready",
		zap.Int("influencers", len(res.Influencers)),
		zap.Int("campaigns", len(res.Campaigns)),
		zap.Int("unmatched_events", res.Stats.Unmatched),
		zap.String("fingerprint", strconv.FormatUint(res.Fingerprint, 16)))
	return res, nil
}

// normalizeChain is the per-table cleanup run after validation.
func normalizeChain(name string, opts Options) transformer.Chain {
	c, _ := schema.ContractFor(name)
	chain := transformer.Chain{
		builtin.Normalize{},
		builtin.Defaults{Values: c.Defaults(), FillEmpty: true},
		builtin.Coerce{Types: c.Types(), Layout: opts.DateLayout},
	}
	switch name {
	case schema.TableInfluencers:
		chain = append(chain, builtin.Require{Fields: []string{"id"}})
	case schema.TablePayouts:
		chain = append(chain, builtin.Require{Fields: []string{"influencer_id"}})
	}
	return chain
}

// addedColumns lists the defaulted columns that become part of the header.
func addedColumns(name string) []string {
	c, _ := schema.ContractFor(name)
	return builtin.Defaults{Values: c.Defaults()}.Columns()
}

// runner executes named stages with timing, metrics and error mapping.
type runner struct {
	ctx context.Context
	job string
	log *zap.Logger
}

func (r runner) step(name string, fn func() error) error {
	if err := r.ctx.Err(); err != nil {
		return &ComputationError{Stage: name, Err: err}
	}
	start := time.Now()
	err := fn()
	d := time.Since(start)
	metrics.RecordStep(r.job, name, err, d)

	if err == nil {
		r.log.Debug("roas: step done", zap.String("step", name), zap.Duration("took", d))
		return nil
	}
	if verr, ok := err.(*schema.ValidationError); ok {
		r.log.Warn("roas: schema validation failed", zap.String("step", name), zap.Error(verr))
		return verr
	}
	r.log.Error("roas: step failed", zap.String("step", name), zap.Error(err))
	return &ComputationError{Stage: name, Err: err}
}

// Fingerprint hashes the raw tables, independent of map order and column
// order, so two runs over the same files can be matched.
func Fingerprint(tables map[string]table.Table) uint64 {
	h := xxh3.New()
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := tables[name]
		cols := append([]string(nil), t.Columns...)
		sort.Strings(cols)
		_, _ = h.WriteString(name)
		_, _ = h.Write([]byte{0})
		for _, c := range cols {
			_, _ = h.WriteString(c)
			_, _ = h.Write([]byte{0x1f})
		}
		for _, row := range t.Rows {
			_, _ = h.Write([]byte{0x1e})
			for _, c := range cols {
				_, _ = h.WriteString(row.String(c))
				_, _ = h.Write([]byte{0x1f})
			}
		}
	}
	return h.Sum64()
}
