package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"roas/internal/domain"
	"roas/internal/parser"
	csvparser "roas/internal/parser/csv"
	"roas/pkg/records"
)

// WriteCSV writes a header row and one row per aggregate, in input order.
func WriteCSV(w io.Writer, aggs []domain.InfluencerAggregate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, a := range aggs {
		if err := cw.Write(textRow(a)); err != nil {
			return fmt.Errorf("export: write row %s: %w", a.InfluencerID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a report written by WriteCSV. Column lookup is by header,
// so reordered columns still read correctly.
func ReadCSV(r io.Reader) ([]domain.InfluencerAggregate, error) {
	// The header is matched case-insensitively; "ROAS" normalizes to "roas".
	t, short, err := csvparser.NewParser(csvparser.Options{TrimSpace: true}).Parse("report", r)
	if err != nil {
		return nil, fmt.Errorf("export: read report: %w", err)
	}
	if short > 0 {
		return nil, fmt.Errorf("export: read report: %d short rows", short)
	}
	for _, c := range Columns {
		if !t.Has(normalized(c)) {
			return nil, fmt.Errorf("export: read report: missing column %s", c)
		}
	}

	out := make([]domain.InfluencerAggregate, 0, t.Len())
	for i, rec := range t.Rows {
		a, err := decodeRow(rec)
		if err != nil {
			return nil, fmt.Errorf("export: read report line %d: %w", i+2, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func decodeRow(r records.Record) (domain.InfluencerAggregate, error) {
	a := domain.InfluencerAggregate{
		InfluencerID: r.String("influencer_id"),
		Name:         r.String("name"),
		Category:     r.String("category"),
		Gender:       r.String("gender"),
		Platform:     r.String("platform"),
	}
	var err error
	if a.Orders, err = r.Float("orders", 0); err != nil {
		return a, err
	}
	if a.Revenue, err = r.Float("revenue", 0); err != nil {
		return a, err
	}
	if a.TotalPayout, err = r.Float("total_payout", 0); err != nil {
		return a, err
	}
	if a.ROAS, err = r.Float("roas", 0); err != nil {
		return a, err
	}
	if a.FollowerCount, err = r.Int("follower_count", 0); err != nil {
		return a, err
	}
	posts, err := r.Int("posts", 0)
	if err != nil {
		return a, err
	}
	a.Posts = int(posts)
	return a, nil
}

func normalized(col string) string {
	return parser.NormalizeHeaders([]string{col}, nil)[0]
}
