package export

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"roas/internal/domain"
	"roas/internal/storage"
)

// RunIDColumn tags every stored row with the run that produced it.
const RunIDColumn = "run_id"

// DefaultBatchSize is used when SinkOptions.BatchSize is not positive.
const DefaultBatchSize = 500

// ReportTable describes the destination table for the report. Rows are keyed
// by run and influencer so successive runs append.
func ReportTable(name string) storage.TableDef {
	return storage.TableDef{
		Name: name,
		Columns: []storage.Column{
			{Name: RunIDColumn, Type: storage.TypeText, PrimaryKey: true},
			{Name: "influencer_id", Type: storage.TypeText, PrimaryKey: true},
			{Name: "orders", Type: storage.TypeReal},
			{Name: "revenue", Type: storage.TypeReal},
			{Name: "total_payout", Type: storage.TypeReal},
			{Name: "ROAS", Type: storage.TypeReal},
			{Name: "name", Type: storage.TypeText, Nullable: true},
			{Name: "category", Type: storage.TypeText, Nullable: true},
			{Name: "gender", Type: storage.TypeText, Nullable: true},
			{Name: "follower_count", Type: storage.TypeInteger},
			{Name: "platform", Type: storage.TypeText, Nullable: true},
			{Name: "posts", Type: storage.TypeInteger},
		},
	}
}

// SinkOptions configures ToRepository.
type SinkOptions struct {
	// Kind is the storage kind; it selects the DDL dialect when
	// AutoCreateTable is set.
	Kind            string
	Table           string
	AutoCreateTable bool
	BatchSize       int
	RunID           uuid.UUID
	Logger          *zap.Logger
}

// ToRepository stores aggs in repo, one row per influencer tagged with the
// run id. It returns the number of rows written.
func ToRepository(ctx context.Context, repo storage.Repository, aggs []domain.InfluencerAggregate, opt SinkOptions) (int64, error) {
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	if opt.BatchSize <= 0 {
		opt.BatchSize = DefaultBatchSize
	}
	if opt.RunID == uuid.Nil {
		return 0, fmt.Errorf("export: run id is required")
	}
	def := ReportTable(opt.Table)

	if opt.AutoCreateTable {
		if err := storage.EnsureTable(ctx, opt.Kind, repo, def); err != nil {
			return 0, fmt.Errorf("export: ensure table %s: %w", opt.Table, err)
		}
	}

	runID := opt.RunID.String()
	rows := make([][]any, len(aggs))
	for i, a := range aggs {
		rows[i] = append([]any{runID}, valueRow(a)...)
	}

	n, err := storage.LoadRows(ctx, opt.Logger, repo, def.ColumnNames(), rows, opt.BatchSize)
	if err != nil {
		return n, fmt.Errorf("export: store report: %w", err)
	}
	opt.Logger.Info("export: report stored", zap.String("table", opt.Table), zap.Int64("rows", n))
	return n, nil
}
