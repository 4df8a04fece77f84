package types

// HazardRisk is the per-hazard projection of a county row. Both fields are
// nullable in the database; a nil Score means no estimate was published.
type HazardRisk struct {
	Score  *float64 `json:"expectedAnnualLossScore"`
	Rating string   `json:"expectedAnnualLossRating"`
}

// CountyRiskRecord is a read-only projection of one row of the hazard table.
// It is immutable once loaded; presenters copy what they need out of it.
type CountyRiskRecord struct {
	CountyFIPS            string `json:"countyFips"`
	CountyName            string `json:"countyName"`
	StateName             string `json:"stateName"`
	StateNameAbbreviation string `json:"stateNameAbbreviation"`

	NationalRiskIndexScoreComposite           *float64 `json:"nationalRiskIndexScoreComposite"`
	NationalRiskIndexRatingComposite          string   `json:"nationalRiskIndexRatingComposite"`
	NationalRiskIndexStatePercentileComposite *float64 `json:"nationalRiskIndexStatePercentileComposite"`
	ExpectedAnnualLossRatingComposite         string   `json:"expectedAnnualLossRatingComposite"`
	SocialVulnerabilityRating                 string   `json:"socialVulnerabilityRating"`
	CommunityResilienceRating                 string   `json:"communityResilienceRating"`

	// Hazards is keyed by HazardType.Key. Missing keys behave like rows
	// whose hazard columns are all NULL.
	Hazards map[string]HazardRisk `json:"hazards"`
}

// Hazard returns the risk entry for the given hazard key, or the zero value.
func (r *CountyRiskRecord) Hazard(key string) HazardRisk {
	if r == nil || r.Hazards == nil {
		return HazardRisk{}
	}
	return r.Hazards[key]
}
