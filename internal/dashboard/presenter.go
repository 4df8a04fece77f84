// Package dashboard derives the county risk dashboard from a
// CountyRiskRecord and tracks the per-hazard "Learn More" state of each page
// view.
package dashboard

import (
	"math"

	"verdant/internal/types"
)

// ChartRow is one horizontal bar. Value is on a 0-100 percentile axis.
type ChartRow struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Width is the bar length as a percentage of the axis, clamped to [0, 100].
func (r ChartRow) Width() float64 {
	return math.Max(0, math.Min(100, r.Value))
}

// OverviewRow is a named rating label.
type OverviewRow struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HazardRow is one entry of the hazard type list.
type HazardRow struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Rating string `json:"rating"`
	// Score is "Score: x.x", or empty when the score is absent or zero.
	Score string `json:"score,omitempty"`
}

// Header summarizes the composite index.
type Header struct {
	Rating string `json:"rating"`
	// Score is the composite score with two decimals, empty when absent.
	Score string `json:"score"`
}

// View is everything the dashboard renders for one county.
type View struct {
	CountyName string        `json:"countyName"`
	StateName  string        `json:"stateName"`
	StateAbbr  string        `json:"stateAbbr"`
	Header     Header        `json:"header"`
	Chart      []ChartRow    `json:"chart"`
	Overview   []OverviewRow `json:"overview"`
	Hazards    []HazardRow   `json:"hazards"`
}

// BuildView derives the dashboard from rec. It never fails: missing numbers
// become 0 and missing labels stay empty.
func BuildView(rec *types.CountyRiskRecord) View {
	if rec == nil {
		rec = &types.CountyRiskRecord{}
	}

	v := View{
		CountyName: rec.CountyName,
		StateName:  rec.StateName,
		StateAbbr:  rec.StateNameAbbreviation,
		Header: Header{
			Rating: rec.NationalRiskIndexRatingComposite,
			Score:  formatScore(rec.NationalRiskIndexScoreComposite, 2),
		},
		Chart: []ChartRow{
			{Name: "National Percentile", Value: round2(rec.NationalRiskIndexScoreComposite)},
			{Name: "Percentile Within " + rec.StateName, Value: round2(rec.NationalRiskIndexStatePercentileComposite)},
		},
		Overview: []OverviewRow{
			{Name: "Expected Annual Loss", Value: rec.ExpectedAnnualLossRatingComposite},
			{Name: "Social Vulnerability", Value: rec.SocialVulnerabilityRating},
			{Name: "Community Resilience", Value: rec.CommunityResilienceRating},
		},
		Hazards: make([]HazardRow, 0, len(types.HazardTypes)),
	}

	for _, hz := range types.HazardTypes {
		risk := rec.Hazard(hz.Key)
		row := HazardRow{Key: hz.Key, Name: hz.Name, Rating: risk.Rating}
		if s := risk.Score; s != nil && *s != 0 && !math.IsNaN(*s) {
			row.Score = "Score: " + toFixed(*s, 1)
		}
		v.Hazards = append(v.Hazards, row)
	}
	return v
}

// Theme holds the chart colors for one color scheme.
type Theme struct {
	Name    string
	Bar     string // bar fill and axis tick labels
	Tooltip string // cursor highlight and tooltip background
}

var (
	DarkTheme  = Theme{Name: "dark", Bar: "#ffffff", Tooltip: "#3b3b3b"}
	LightTheme = Theme{Name: "light", Bar: "#000000", Tooltip: "#dadada"}
)

// ThemeFor returns DarkTheme for "dark" and LightTheme for anything else.
func ThemeFor(name string) Theme {
	if name == DarkTheme.Name {
		return DarkTheme
	}
	return LightTheme
}
