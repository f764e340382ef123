// Package render draws the report views for a terminal: the campaign summary,
// the ROAS-by-influencer bar chart and the top and low influencer tables.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"roas/internal/domain"
	"roas/internal/roas"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 80

// palette colors bars by platform, in first-seen order.
var palette = []lipgloss.Color{
	lipgloss.Color("#e57373"),
	lipgloss.Color("#4db6ac"),
	lipgloss.Color("#2196F3"),
	lipgloss.Color("#ffd54f"),
	lipgloss.Color("#8BC34A"),
	lipgloss.Color("#ff8a65"),
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

// Outcome writes either the full report or the outcome's message.
func Outcome(w io.Writer, out roas.Outcome, width int) error {
	if out.State != roas.Ready || out.Result == nil {
		_, err := fmt.Fprintln(w, out.Message)
		return err
	}
	return Report(w, out.Result, width)
}

// Report writes every view of res. width <= 0 selects DefaultWidth.
func Report(w io.Writer, res *roas.Result, width int) error {
	if width <= 0 {
		width = DefaultWidth
	}
	sections := []string{
		section("Campaign summary", CampaignTable(res.Campaigns)),
		section("ROAS by influencer", BarChart(res.Influencers, width)),
		section("Top influencers by revenue", TopTable(res.Top)),
		section("Low ROAS influencers", LowTable(res.Low)),
	}
	_, err := io.WriteString(w, strings.Join(sections, "\n")+"\n")
	return err
}

func section(title, body string) string {
	if body == "" {
		body = mutedStyle.Render("(no rows)")
	}
	return titleStyle.Render(title) + "\n" + body + "\n"
}

// CampaignTable lists orders and revenue per campaign.
func CampaignTable(cs []domain.CampaignAggregate) string {
	rows := make([][]string, len(cs))
	for i, c := range cs {
		rows[i] = []string{c.Campaign, num(c.Orders), money(c.Revenue)}
	}
	return grid([]string{"campaign", "orders", "revenue"}, rows, 1)
}

// TopTable shows name, revenue and ROAS.
func TopTable(aggs []domain.InfluencerAggregate) string {
	rows := make([][]string, len(aggs))
	for i, a := range aggs {
		rows[i] = []string{label(a), money(a.Revenue), ratio(a.ROAS)}
	}
	return grid([]string{"name", "revenue", "ROAS"}, rows, 1)
}

// LowTable shows name, revenue, total payout and ROAS.
func LowTable(aggs []domain.InfluencerAggregate) string {
	rows := make([][]string, len(aggs))
	for i, a := range aggs {
		rows[i] = []string{label(a), money(a.Revenue), money(a.TotalPayout), ratio(a.ROAS)}
	}
	return grid([]string{"name", "revenue", "total_payout", "ROAS"}, rows, 1)
}

// grid renders a bordered table. Columns from firstNumeric on are
// right-aligned.
func grid(headers []string, rows [][]string, firstNumeric int) string {
	if len(rows) == 0 {
		return ""
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col >= firstNumeric:
				return numberStyle
			default:
				return cellStyle
			}
		})
	return t.Render()
}

// BarChart draws one horizontal bar per influencer, length proportional to
// ROAS and colored by platform, followed by a platform legend.
func BarChart(aggs []domain.InfluencerAggregate, width int) string {
	if len(aggs) == 0 {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}

	const maxLabel = 20
	labelW := 0
	maxROAS := 0.0
	for _, a := range aggs {
		labelW = max(labelW, lipgloss.Width(label(a)))
		maxROAS = math.Max(maxROAS, a.ROAS)
	}
	labelW = min(labelW, maxLabel)
	// label, space, bar, space, value
	barW := max(width-labelW-10, 10)

	colors := platformColors(aggs)
	var sb strings.Builder
	for _, a := range aggs {
		n := 0
		if maxROAS > 0 {
			n = int(math.Round(a.ROAS / maxROAS * float64(barW)))
		}
		bar := lipgloss.NewStyle().Foreground(colors[a.Platform]).Render(strings.Repeat("█", n))
		fmt.Fprintf(&sb, "%s %s %s\n", pad(truncate(label(a), labelW), labelW), bar, ratio(a.ROAS))
	}

	legend := make([]string, 0, len(colors))
	for _, p := range platforms(aggs) {
		name := p
		if name == "" {
			name = "(unknown)"
		}
		legend = append(legend, lipgloss.NewStyle().Foreground(colors[p]).Render("█")+" "+name)
	}
	sb.WriteString(mutedStyle.Render("platform: ") + strings.Join(legend, "  "))
	return sb.String()
}

func platformColors(aggs []domain.InfluencerAggregate) map[string]lipgloss.Color {
	out := map[string]lipgloss.Color{}
	for i, p := range platforms(aggs) {
		out[p] = palette[i%len(palette)]
	}
	return out
}

func platforms(aggs []domain.InfluencerAggregate) []string {
	seen := map[string]bool{}
	var out []string
	for _, a := range aggs {
		if !seen[a.Platform] {
			seen[a.Platform] = true
			out = append(out, a.Platform)
		}
	}
	return out
}

// label is the display name, falling back to the id.
func label(a domain.InfluencerAggregate) string {
	if a.Name != "" {
		return a.Name
	}
	return a.InfluencerID
}

func truncate(s string, w int) string {
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w <= 1 {
		return string(r[:w])
	}
	return string(r[:w-1]) + "…"
}

func pad(s string, w int) string {
	if d := w - lipgloss.Width(s); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}

func money(f float64) string { return fmt.Sprintf("%.2f", f) }
func ratio(f float64) string { return fmt.Sprintf("%.2f", f) }

func num(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%.2f", f)
}
