package dashboard

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verdant/internal/types"
)

func f64(v float64) *float64 { return &v }

func sampleRecord() *types.CountyRiskRecord {
	return &types.CountyRiskRecord{
		CountyName:                                "Harris",
		StateName:                                 "Texas",
		StateNameAbbreviation:                     "TX",
		NationalRiskIndexScoreComposite:           f64(42.567),
		NationalRiskIndexRatingComposite:          "Relatively High",
		NationalRiskIndexStatePercentileComposite: f64(88.004),
		ExpectedAnnualLossRatingComposite:         "Very High",
		SocialVulnerabilityRating:                 "Relatively Moderate",
		CommunityResilienceRating:                 "Relatively Low",
		Hazards: map[string]types.HazardRisk{
			"hurricane":       {Score: f64(98.25), Rating: "Very High"},
			"avalanche":       {Score: f64(0), Rating: "Not Applicable"},
			"coastalFlooding": {Score: nil, Rating: "No Rating"},
		},
	}
}

func TestBuildView_ChartRoundsToTwoDecimals(t *testing.T) {
	v := BuildView(sampleRecord())

	require.Len(t, v.Chart, 2)
	assert.Equal(t, "National Percentile", v.Chart[0].Name)
	assert.Equal(t, 42.57, v.Chart[0].Value)
	assert.Equal(t, "Percentile Within Texas", v.Chart[1].Name)
	assert.Equal(t, 88.0, v.Chart[1].Value)
}

func TestBuildView_MissingNumbersDefaultToZero(t *testing.T) {
	rec := &types.CountyRiskRecord{StateName: "Ohio", NationalRiskIndexStatePercentileComposite: f64(math.NaN())}
	v := BuildView(rec)

	assert.Equal(t, 0.0, v.Chart[0].Value)
	assert.Equal(t, 0.0, v.Chart[1].Value)
	assert.Equal(t, "", v.Header.Score)
	assert.Len(t, v.Hazards, len(types.HazardTypes))
}

func TestBuildView_NilRecord(t *testing.T) {
	v := BuildView(nil)
	assert.Equal(t, "Percentile Within ", v.Chart[1].Name)
	assert.Len(t, v.Overview, 3)
}

func TestBuildView_HeaderAndOverview(t *testing.T) {
	v := BuildView(sampleRecord())

	assert.Equal(t, Header{Rating: "Relatively High", Score: "42.57"}, v.Header)
	assert.Equal(t, []OverviewRow{
		{Name: "Expected Annual Loss", Value: "Very High"},
		{Name: "Social Vulnerability", Value: "Relatively Moderate"},
		{Name: "Community Resilience", Value: "Relatively Low"},
	}, v.Overview)
}

func TestBuildView_HazardRows(t *testing.T) {
	v := BuildView(sampleRecord())

	byKey := map[string]HazardRow{}
	for i, row := range v.Hazards {
		assert.Equal(t, types.HazardTypes[i].Name, row.Name, "catalogue order")
		byKey[row.Key] = row
	}

	assert.Equal(t, "Score: 98.3", byKey["hurricane"].Score)
	assert.Equal(t, "Very High", byKey["hurricane"].Rating)
	assert.Empty(t, byKey["avalanche"].Score, "zero score is treated as absent")
	assert.Equal(t, "Not Applicable", byKey["avalanche"].Rating)
	assert.Empty(t, byKey["coastalFlooding"].Score)
	assert.Empty(t, byKey["tornado"].Rating)
}

func TestToFixed(t *testing.T) {
	tests := []struct {
		x      float64
		digits int
		want   string
	}{
		{42.567, 2, "42.57"},
		{12.25, 1, "12.3"},
		{0.125, 2, "0.13"},
		{1.005, 2, "1.00"},
		{99.99, 1, "100.0"},
		{0.04, 1, "0.0"},
		{0.5, 0, "1"},
		{7, 2, "7.00"},
		{-2.345, 1, "-2.3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toFixed(tt.x, tt.digits), "toFixed(%v, %d)", tt.x, tt.digits)
	}
}

func TestChartRowWidth(t *testing.T) {
	assert.Equal(t, 100.0, ChartRow{Value: 140}.Width())
	assert.Equal(t, 0.0, ChartRow{Value: -3}.Width())
	assert.Equal(t, 42.57, ChartRow{Value: 42.57}.Width())
}

func TestThemeFor(t *testing.T) {
	assert.Equal(t, Theme{Name: "dark", Bar: "#ffffff", Tooltip: "#3b3b3b"}, ThemeFor("dark"))
	assert.Equal(t, Theme{Name: "light", Bar: "#000000", Tooltip: "#dadada"}, ThemeFor("light"))
	assert.Equal(t, LightTheme, ThemeFor(""))
	assert.Equal(t, LightTheme, ThemeFor("system"))
}
