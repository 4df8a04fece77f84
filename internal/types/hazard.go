package types

import "strings"

// HazardType is one entry of the National Risk Index hazard catalogue.
// Key is stable and used in URLs and JSON; Column is the snake_case prefix of
// the hazard's columns in the hazard table.
type HazardType struct {
	Key    string
	Name   string
	Column string
}

// ScoreColumn returns the column holding the expected annual loss score.
func (h HazardType) ScoreColumn() string {
	return h.Column + "_expected_annual_loss_score"
}

// RatingColumn returns the column holding the expected annual loss rating.
func (h HazardType) RatingColumn() string {
	return h.Column + "_expected_annual_loss_rating"
}

// HazardTypes is the fixed, ordered hazard catalogue. Display order on the
// dashboard follows this slice.
var HazardTypes = []HazardType{
	{Key: "avalanche", Name: "Avalanche", Column: "avalanche"},
	{Key: "coastalFlooding", Name: "Coastal Flooding", Column: "coastal_flooding"},
	{Key: "coldWave", Name: "Cold Wave", Column: "cold_wave"},
	{Key: "drought", Name: "Drought", Column: "drought"},
	{Key: "earthquake", Name: "Earthquake", Column: "earthquake"},
	{Key: "hail", Name: "Hail", Column: "hail"},
	{Key: "heatWave", Name: "Heat Wave", Column: "heat_wave"},
	{Key: "hurricane", Name: "Hurricane", Column: "hurricane"},
	{Key: "iceStorm", Name: "Ice Storm", Column: "ice_storm"},
	{Key: "landslide", Name: "Landslide", Column: "landslide"},
	{Key: "lightning", Name: "Lightning", Column: "lightning"},
	{Key: "riverineFlooding", Name: "Riverine Flooding", Column: "riverine_flooding"},
	{Key: "strongWind", Name: "Strong Wind", Column: "strong_wind"},
	{Key: "tornado", Name: "Tornado", Column: "tornado"},
	{Key: "tsunami", Name: "Tsunami", Column: "tsunami"},
	{Key: "volcanicActivity", Name: "Volcanic Activity", Column: "volcanic_activity"},
	{Key: "wildfire", Name: "Wildfire", Column: "wildfire"},
	{Key: "winterWeather", Name: "Winter Weather", Column: "winter_weather"},
}

// LookupHazard finds a catalogue entry by key or by display name
// (case-insensitive).
func LookupHazard(s string) (HazardType, bool) {
	for _, h := range HazardTypes {
		if h.Key == s || strings.EqualFold(h.Name, s) {
			return h, true
		}
	}
	return HazardType{}, false
}

// HazardInfoRequest is the body of POST /api/hazard-info. Fields are passed
// through to the prompt verbatim.
type HazardInfoRequest struct {
	CountyName string `json:"countyName"`
	StateAbbr  string `json:"stateAbbr"`
	Hazard     string `json:"hazard"`
}

// HazardInfoResponse is the success body of POST /api/hazard-info.
type HazardInfoResponse struct {
	Text string `json:"text"`
}

// HazardInfoError is the failure body of POST /api/hazard-info.
type HazardInfoError struct {
	Error string `json:"error"`
}
