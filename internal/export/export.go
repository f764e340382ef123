// Package export writes the per-influencer aggregate in the downloadable
// report formats (csv, xlsx, json) and into a storage.Repository.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"roas/internal/domain"
)

// Formats accepted by Write.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

// Columns is the report column order shared by every format.
var Columns = []string{
	"influencer_id",
	"orders",
	"revenue",
	"total_payout",
	"ROAS",
	"name",
	"category",
	"gender",
	"follower_count",
	"platform",
	"posts",
}

// DefaultFilename is the download name used by the web UI.
const DefaultFilename = "roas_report.csv"

// Write renders aggs to w in the given format. An empty format means csv.
func Write(w io.Writer, format string, aggs []domain.InfluencerAggregate) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		return WriteCSV(w, aggs)
	case FormatXLSX:
		return WriteXLSX(w, aggs)
	case FormatJSON:
		return WriteJSON(w, aggs)
	default:
		return fmt.Errorf("export: unsupported format %q", format)
	}
}

// FormatFor guesses the format from a file name's extension, defaulting to
// csv.
func FormatFor(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		return FormatXLSX
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON
	default:
		return FormatCSV
	}
}

// formatFloat renders f with the fewest digits that parse back exactly.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// textRow renders one aggregate in Columns order.
func textRow(a domain.InfluencerAggregate) []string {
	return []string{
		a.InfluencerID,
		formatFloat(a.Orders),
		formatFloat(a.Revenue),
		formatFloat(a.TotalPayout),
		formatFloat(a.ROAS),
		a.Name,
		a.Category,
		a.Gender,
		strconv.FormatInt(a.FollowerCount, 10),
		a.Platform,
		strconv.Itoa(a.Posts),
	}
}

// valueRow renders one aggregate in Columns order with typed values.
func valueRow(a domain.InfluencerAggregate) []any {
	return []any{
		a.InfluencerID,
		a.Orders,
		a.Revenue,
		a.TotalPayout,
		a.ROAS,
		a.Name,
		a.Category,
		a.Gender,
		a.FollowerCount,
		a.Platform,
		int64(a.Posts),
	}
}
