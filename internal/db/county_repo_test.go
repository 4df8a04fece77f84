package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"verdant/internal/types"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

func ptr[T any](v T) *T { return &v }

// harrisRow fills dest the way pgx would for a Harris County, TX row where
// only hurricane and riverine flooding carry scores.
func harrisRow(dest ...any) error {
	*dest[0].(**string) = ptr("48201")
	*dest[1].(*string) = "Harris"
	*dest[2].(**string) = ptr("Texas")
	*dest[3].(*string) = "TX"
	*dest[4].(**float64) = ptr(99.87)
	*dest[5].(**string) = ptr("Very High")
	*dest[6].(**float64) = ptr(100.0)
	*dest[7].(**string) = ptr("Very High")
	*dest[8].(**string) = ptr("Relatively High")
	*dest[9].(**string) = nil

	for i, hz := range types.HazardTypes {
		score := dest[10+2*i].(**float64)
		rating := dest[11+2*i].(**string)
		switch hz.Key {
		case "hurricane":
			*score = ptr(98.2)
			*rating = ptr("Very High")
		case "riverineFlooding":
			*score = ptr(97.1)
			*rating = ptr("Relatively High")
		default:
			*rating = ptr("Not Applicable")
		}
	}
	return nil
}

func TestCountyRiskRepository_GetByCounty_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewCountyRiskRepository(db)

	db.On("QueryRow", mock.Anything,
		mock.MatchedBy(func(sql string) bool {
			return strings.Contains(sql, "FROM hazard h") &&
				strings.Contains(sql, "h.winter_weather_expected_annual_loss_rating")
		}),
		[]any{"TX", "Harris"},
	).Return(&mockRow{scanFn: harrisRow})

	rec, err := repo.GetByCounty(context.Background(), " TX ", "Harris County")
	require.NoError(t, err)

	assert.Equal(t, "48201", rec.CountyFIPS)
	assert.Equal(t, "Harris", rec.CountyName)
	assert.Equal(t, "Texas", rec.StateName)
	assert.Equal(t, 99.87, *rec.NationalRiskIndexScoreComposite)
	assert.Equal(t, "Very High", rec.NationalRiskIndexRatingComposite)
	assert.Equal(t, "", rec.CommunityResilienceRating)
	assert.Len(t, rec.Hazards, len(types.HazardTypes))
	assert.Equal(t, 98.2, *rec.Hazard("hurricane").Score)
	assert.Nil(t, rec.Hazard("avalanche").Score)
	assert.Equal(t, "Not Applicable", rec.Hazard("avalanche").Rating)
	db.AssertExpectations(t)
}

func TestCountyRiskRepository_GetByCounty_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewCountyRiskRepository(db)
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(&mockRow{scanErr: pgx.ErrNoRows})

	_, err := repo.GetByCounty(context.Background(), "ZZ", "Nowhere")

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundCounty, appErr.Code)
}

func TestCountyRiskRepository_GetByFIPS_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewCountyRiskRepository(db)
	db.On("QueryRow", mock.Anything, mock.Anything, []any{"48201"}).Return(&mockRow{scanErr: errors.New("conn reset")})

	_, err := repo.GetByFIPS(context.Background(), "48201")

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
	assert.ErrorContains(t, err, "failed to retrieve county")
}

func TestCountyColumns_Order(t *testing.T) {
	cols := strings.Split(countyColumns, ", ")
	require.Len(t, cols, 10+2*len(types.HazardTypes))
	assert.Equal(t, "h.avalanche_expected_annual_loss_score", cols[10])
	assert.Equal(t, "h.avalanche_expected_annual_loss_rating", cols[11])
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthProbe(t *testing.T) {
	p := NewHealthProbe(fakePinger{})
	assert.Equal(t, "database", p.Name())
	assert.NoError(t, p.Check(context.Background()))

	p = NewHealthProbe(fakePinger{err: errors.New("refused")})
	assert.ErrorContains(t, p.Check(context.Background()), "refused")
}
