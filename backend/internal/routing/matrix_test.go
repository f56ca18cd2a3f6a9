package routing_test

import (
	"testing"

	"github.com/katalvlaran/lvlath/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/fieldroute/backend/internal/domain"
	"github.com/pageza/fieldroute/backend/internal/routing"
)

func threeByThree(t *testing.T) (*matrix.Dense, *matrix.Dense) {
	t.Helper()
	km, err := matrix.NewDense(3, 3)
	require.NoError(t, err)
	seconds, err := matrix.NewDense(3, 3)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j {
				continue
			}
			require.NoError(t, km.Set(i, j, float64(i+j+1)))
			require.NoError(t, seconds.Set(i, j, float64((i+j+1)*60)))
		}
	}
	return km, seconds
}

func threeLocations() []domain.Coordinate {
	return []domain.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 1},
		{Latitude: 1, Longitude: 0},
	}
}

func TestNewDistanceMatrix_ValidatesSizes(t *testing.T) {
	km, seconds := threeByThree(t)

	m, err := routing.NewDistanceMatrix(threeLocations(), km, seconds)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Size())
	assert.Equal(t, 2.0, m.Distance(0, 1))
	assert.Equal(t, 120.0, m.Duration(0, 1))

	shortLocations := threeLocations()[:2]
	_, err = routing.NewDistanceMatrix(shortLocations, km, seconds)
	assert.ErrorIs(t, err, routing.ErrMismatchedSize)
}

func TestNewDistanceMatrix_RejectsNegativeEntries(t *testing.T) {
	km, seconds := threeByThree(t)
	require.NoError(t, km.Set(0, 1, -5))

	_, err := routing.NewDistanceMatrix(threeLocations(), km, seconds)
	assert.ErrorIs(t, err, routing.ErrNegativeEntry)
}

func TestDistanceMatrix_Locations_IsDefensiveCopy(t *testing.T) {
	km, seconds := threeByThree(t)
	locs := threeLocations()

	m, err := routing.NewDistanceMatrix(locs, km, seconds)
	require.NoError(t, err)

	out := m.Locations()
	out[0] = domain.Coordinate{Latitude: 99, Longitude: 99}

	assert.Equal(t, 0.0, m.Locations()[0].Latitude)
}

func TestCacheKey_StableAcrossRounding(t *testing.T) {
	a := []domain.Coordinate{{Latitude: 40.7128001, Longitude: -74.0060009}}
	b := []domain.Coordinate{{Latitude: 40.7128002, Longitude: -74.0060008}}

	assert.Equal(t, routing.CacheKey(a, "road"), routing.CacheKey(b, "road"))
	assert.NotEqual(t, routing.CacheKey(a, "road"), routing.CacheKey(a, "geodesic"))
}
