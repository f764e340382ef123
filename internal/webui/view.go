package webui

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strconv"

	"roas/internal/domain"
	"roas/internal/export"
	"roas/internal/roas"
	"roas/internal/schema"
)

// platformColors colors the chart bars by platform, in first-seen order.
var platformColors = []template.CSS{"#e57373", "#4db6ac", "#2196F3", "#ffd54f", "#8BC34A", "#ff8a65"}

var funcs = template.FuncMap{
	"money": func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) },
	"label": func(a domain.InfluencerAggregate) string {
		if a.Name != "" {
			return a.Name
		}
		return a.InfluencerID
	},
}

type facetOption struct {
	Value   string
	Checked bool
}

type bar struct {
	Label   string
	ROAS    float64
	Percent float64
	Color   template.CSS
}

type legendItem struct {
	Platform string
	Color    template.CSS
}

// page is the template model.
type page struct {
	Tables  []string
	State   string
	Message string
	Ready   bool

	Platforms  []facetOption
	Categories []facetOption

	Campaigns []domain.CampaignAggregate
	Bars      []bar
	Legend    []legendItem
	Top       []domain.InfluencerAggregate
	Low       []domain.InfluencerAggregate

	Download template.URL
	Filename string
}

func pageFor(out roas.Outcome, sel *selection) page {
	p := page{
		Tables:   schema.TableNames,
		State:    out.State.String(),
		Message:  out.Message,
		Ready:    out.State == roas.Ready && out.Result != nil,
		Filename: export.DefaultFilename,
	}
	if !p.Ready {
		return p
	}
	res := out.Result

	var platforms, categories []string
	if sel != nil {
		platforms, categories = sel.Platforms, sel.Categories
	}
	p.Platforms = options(res.ObservedPlatforms, platforms)
	p.Categories = options(res.ObservedCategories, categories)
	p.Campaigns = res.Campaigns
	p.Top = res.Top
	p.Low = res.Low
	p.Bars, p.Legend = chart(res.Influencers)

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, res.Influencers); err == nil {
		p.Download = template.URL("data:text/csv;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()))
	}
	return p
}

// options lists observed facet values; with no explicit choice all are
// checked.
func options(observed, chosen []string) []facetOption {
	set := map[string]bool{}
	for _, c := range chosen {
		set[c] = true
	}
	out := make([]facetOption, len(observed))
	for i, v := range observed {
		out[i] = facetOption{Value: v, Checked: chosen == nil || set[v]}
	}
	return out
}

func chart(aggs []domain.InfluencerAggregate) ([]bar, []legendItem) {
	maxROAS := 0.0
	for _, a := range aggs {
		maxROAS = math.Max(maxROAS, a.ROAS)
	}
	colors := map[string]template.CSS{}
	var legend []legendItem
	bars := make([]bar, len(aggs))
	for i, a := range aggs {
		c, ok := colors[a.Platform]
		if !ok {
			c = platformColors[len(colors)%len(platformColors)]
			colors[a.Platform] = c
			legend = append(legend, legendItem{Platform: a.Platform, Color: c})
		}
		pct := 0.0
		if maxROAS > 0 {
			pct = math.Round(a.ROAS/maxROAS*1000) / 10
		}
		label := a.Name
		if label == "" {
			label = a.InfluencerID
		}
		bars[i] = bar{Label: label, ROAS: a.ROAS, Percent: pct, Color: c}
	}
	return bars, legend
}

// apiResponse is the JSON body of /api/report.
type apiResponse struct {
	State              string        `json:"state"`
	Message            string        `json:"message,omitempty"`
	RunID              string        `json:"run_id,omitempty"`
	Fingerprint        string        `json:"fingerprint,omitempty"`
	Influencers        []export.Row  `json:"influencers,omitempty"`
	Campaigns          []campaignRow `json:"campaigns,omitempty"`
	Top                []export.Row  `json:"top,omitempty"`
	Low                []export.Row  `json:"low,omitempty"`
	ObservedPlatforms  []string      `json:"observed_platforms,omitempty"`
	ObservedCategories []string      `json:"observed_categories,omitempty"`
	Stats              *roas.Stats   `json:"stats,omitempty"`
}

type campaignRow struct {
	Campaign string  `json:"campaign"`
	Orders   float64 `json:"orders"`
	Revenue  float64 `json:"revenue"`
}

type apiError struct {
	Error string `json:"error"`
}

func responseFor(out roas.Outcome) apiResponse {
	resp := apiResponse{State: out.State.String(), Message: out.Message}
	res := out.Result
	if out.State != roas.Ready || res == nil {
		return resp
	}
	resp.RunID = res.RunID.String()
	resp.Fingerprint = fmt.Sprintf("%016x", res.Fingerprint)
	resp.Influencers = export.Rows(res.Influencers)
	resp.Top = export.Rows(res.Top)
	resp.Low = export.Rows(res.Low)
	resp.Campaigns = make([]campaignRow, len(res.Campaigns))
	for i, c := range res.Campaigns {
		resp.Campaigns[i] = campaignRow{Campaign: c.Campaign, Orders: c.Orders, Revenue: c.Revenue}
	}
	resp.ObservedPlatforms = res.ObservedPlatforms
	resp.ObservedCategories = res.ObservedCategories
	resp.Stats = &res.Stats
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
