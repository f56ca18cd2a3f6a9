// Package routing builds and serves the distance/time matrices the
// optimization core routes against, and adapts an external turn-by-turn
// routing provider when one is configured.
package routing

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/lvlath/matrix"

	"github.com/pageza/fieldroute/backend/internal/domain"
)

// ErrNonSquareMatrix is returned when D and T are not both n×n.
var ErrNonSquareMatrix = errors.New("routing: matrix is not square")

// ErrMismatchedSize is returned when D and T disagree on size, or on the
// location list length.
var ErrMismatchedSize = errors.New("routing: mismatched matrix dimensions")

// ErrNegativeEntry is returned when a distance or duration entry is negative.
var ErrNegativeEntry = errors.New("routing: negative matrix entry")

// DistanceMatrix is an immutable, square pair of km/seconds matrices keyed by
// an ordered location list (spec §3, §4.1). Built once per optimization call.
type DistanceMatrix struct {
	locations []domain.Coordinate
	km        *matrix.Dense
	seconds   *matrix.Dense
}

// NewDistanceMatrix validates and constructs a DistanceMatrix from dense km
// and seconds matrices over the given ordered locations.
func NewDistanceMatrix(locations []domain.Coordinate, km, seconds *matrix.Dense) (*DistanceMatrix, error) {
	n := len(locations)
	if km.Rows() != km.Cols() || seconds.Rows() != seconds.Cols() {
		return nil, ErrNonSquareMatrix
	}
	if km.Rows() != n || km.Cols() != n || seconds.Rows() != n || seconds.Cols() != n {
		return nil, fmt.Errorf("%w: want %dx%d", ErrMismatchedSize, n, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dv, err := km.At(i, j)
			if err != nil {
				return nil, err
			}
			tv, err := seconds.At(i, j)
			if err != nil {
				return nil, err
			}
			if dv < 0 || tv < 0 {
				return nil, fmt.Errorf("%w: at (%d,%d)", ErrNegativeEntry, i, j)
			}
		}
	}

	locs := make([]domain.Coordinate, n)
	copy(locs, locations)

	return &DistanceMatrix{locations: locs, km: km, seconds: seconds}, nil
}

// Size returns the number of locations (N) in the matrix.
func (m *DistanceMatrix) Size() int {
	return len(m.locations)
}

// Distance returns D[i,j] in kilometers.
func (m *DistanceMatrix) Distance(i, j int) float64 {
	v, _ := m.km.At(i, j)
	return v
}

// Duration returns T[i,j] in seconds.
func (m *DistanceMatrix) Duration(i, j int) float64 {
	v, _ := m.seconds.At(i, j)
	return v
}

// Locations returns the ordered location list the matrix was built over.
// The returned slice is a copy; mutating it does not affect the matrix.
func (m *DistanceMatrix) Locations() []domain.Coordinate {
	out := make([]domain.Coordinate, len(m.locations))
	copy(out, m.locations)
	return out
}

// newZeroDense allocates an n×n matrix.Dense with every entry implicitly
// zero, the starting point for a geodesic build that fills in i != j.
func newZeroDense(n int) (*matrix.Dense, error) {
	return matrix.NewDense(n, n)
}

// denseFromRows rebuilds a DistanceMatrix from plain [][]float64 rows, used
// to decode a cached matrix read back from Redis.
func denseFromRows(locations []domain.Coordinate, kmRows, secRows [][]float64) (*DistanceMatrix, error) {
	n := len(locations)
	km, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, err
	}
	seconds, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if err := km.Set(i, j, kmRows[i][j]); err != nil {
				return nil, err
			}
			if err := seconds.Set(i, j, secRows[i][j]); err != nil {
				return nil, err
			}
		}
	}
	return NewDistanceMatrix(locations, km, seconds)
}

// CacheKey canonicalizes the ordered coordinate list (rounded to 6 decimal
// places) into a stable string suitable for provider-level caching (spec §3,
// §4.3: "cache by rounded-coord-list").
func CacheKey(locations []domain.Coordinate, quality string) string {
	key := quality
	for _, c := range locations {
		r := c.Rounded()
		key += fmt.Sprintf("|%.6f,%.6f", r.Latitude, r.Longitude)
	}
	return key
}
