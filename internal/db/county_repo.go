package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"verdant/internal/types"
)

// CountyRiskRepository reads National Risk Index rows from the hazard table.
// The table is owned and migrated elsewhere; this repository only selects.
type CountyRiskRepository struct {
	db DBTX
}

func NewCountyRiskRepository(db DBTX) *CountyRiskRepository {
	return &CountyRiskRepository{db: db}
}

// Fixed columns, in scan order, followed by score/rating pairs for every
// entry of types.HazardTypes.
var countyColumns = func() string {
	cols := []string{
		"h.county_fips",
		"h.county_name",
		"h.state_name",
		"h.state_name_abbreviation",
		"h.national_risk_index_score_composite",
		"h.national_risk_index_rating_composite",
		"h.national_risk_index_state_percentile_composite",
		"h.expected_annual_loss_rating_composite",
		"h.social_vulnerability_rating",
		"h.community_resilience_rating",
	}
	for _, hz := range types.HazardTypes {
		cols = append(cols, "h."+hz.ScoreColumn(), "h."+hz.RatingColumn())
	}
	return strings.Join(cols, ", ")
}()

func scanCounty(row pgx.Row) (*types.CountyRiskRecord, error) {
	var (
		rec                            types.CountyRiskRecord
		fips, stateName                *string
		ratingComposite, ealRating     *string
		socialRating, resilienceRating *string
	)

	scores := make([]*float64, len(types.HazardTypes))
	ratings := make([]*string, len(types.HazardTypes))

	dest := []any{
		&fips,
		&rec.CountyName,
		&stateName,
		&rec.StateNameAbbreviation,
		&rec.NationalRiskIndexScoreComposite,
		&ratingComposite,
		&rec.NationalRiskIndexStatePercentileComposite,
		&ealRating,
		&socialRating,
		&resilienceRating,
	}
	for i := range types.HazardTypes {
		dest = append(dest, &scores[i], &ratings[i])
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	rec.CountyFIPS = deref(fips)
	rec.StateName = deref(stateName)
	rec.NationalRiskIndexRatingComposite = deref(ratingComposite)
	rec.ExpectedAnnualLossRatingComposite = deref(ealRating)
	rec.SocialVulnerabilityRating = deref(socialRating)
	rec.CommunityResilienceRating = deref(resilienceRating)

	rec.Hazards = make(map[string]types.HazardRisk, len(types.HazardTypes))
	for i, hz := range types.HazardTypes {
		rec.Hazards[hz.Key] = types.HazardRisk{Score: scores[i], Rating: deref(ratings[i])}
	}
	return &rec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetByCounty looks a county up by state abbreviation and county name, both
// case-insensitive. A trailing " County" in the name is ignored.
func (r *CountyRiskRepository) GetByCounty(ctx context.Context, stateAbbr, countyName string) (*types.CountyRiskRecord, error) {
	name := strings.TrimSpace(countyName)
	if trimmed, ok := strings.CutSuffix(strings.ToLower(name), " county"); ok {
		name = name[:len(trimmed)]
	}

	row := r.db.QueryRow(ctx,
		`SELECT `+countyColumns+`
		 FROM hazard h
		 WHERE upper(h.state_name_abbreviation) = upper($1)
		   AND lower(h.county_name) = lower($2)
		 LIMIT 1`,
		strings.TrimSpace(stateAbbr),
		name,
	)
	return r.scanOne(row)
}

// GetByFIPS looks a county up by its five-digit FIPS code.
func (r *CountyRiskRepository) GetByFIPS(ctx context.Context, fips string) (*types.CountyRiskRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+countyColumns+`
		 FROM hazard h
		 WHERE h.county_fips = $1`,
		fips,
	)
	return r.scanOne(row)
}

func (r *CountyRiskRepository) scanOne(row pgx.Row) (*types.CountyRiskRecord, error) {
	rec, err := scanCounty(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundCounty, "county not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve county", err)
	}
	return rec, nil
}

var _ types.CountyRiskReader = (*CountyRiskRepository)(nil)
