package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/katalvlaran/lvlath/matrix"

	"github.com/pageza/fieldroute/backend/internal/domain"
)

// ErrRoutingUnavailable is returned when the external routing provider fails
// (non-2xx response, decode error, or timeout). See spec §4.2, §7.
var ErrRoutingUnavailable = errors.New("routing: provider unavailable")

// adapterTimeout is the per-request wall-clock deadline applied to every
// call against the routing provider (spec §4.2).
const adapterTimeout = 30 * time.Second

// maxPointsPerCall is the largest coordinate list accepted in a single
// table/route request (spec §4.2).
const maxPointsPerCall = 100

// NavigationStep is one turn-by-turn instruction of a navigation route.
type NavigationStep struct {
	Instruction string
	Location    domain.Coordinate
}

// NavigationRoute is a polyline plus turn-by-turn steps between two points.
// Used only by the route-execution surface, never by the optimizer itself
// (spec §4.2).
type NavigationRoute struct {
	DistanceKm float64
	Duration   time.Duration
	Polyline   []domain.Coordinate
	Steps      []NavigationStep
}

// Adapter is the external routing provider contract (spec §4.2, §6): an
// OSRM-compatible HTTP service for driving-mode distance/duration tables and
// turn-by-turn navigation.
type Adapter interface {
	// Table returns the (km, seconds) distance/duration matrices for the
	// given ordered coordinates, driving mode.
	Table(ctx context.Context, points []domain.Coordinate) (km, seconds *matrix.Dense, err error)

	// NavigationRoute returns a polyline and step instructions from start
	// to end.
	NavigationRoute(ctx context.Context, start, end domain.Coordinate) (NavigationRoute, error)
}

// OSRMAdapter calls an OSRM-compatible HTTP routing service.
type OSRMAdapter struct {
	baseURL string
	client  *http.Client
}

// NewOSRMAdapter constructs an adapter against baseURL (e.g.
// "https://router.project-osrm.org"), using a client with the spec-mandated
// 30s per-request timeout.
func NewOSRMAdapter(baseURL string) *OSRMAdapter {
	return &OSRMAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: adapterTimeout},
	}
}

type osrmTableResponse struct {
	Code      string      `json:"code"`
	Distances [][]float64 `json:"distances"`
	Durations [][]float64 `json:"durations"`
}

// Table implements Adapter.Table against OSRM's /table/v1/driving endpoint.
func (a *OSRMAdapter) Table(ctx context.Context, points []domain.Coordinate) (*matrix.Dense, *matrix.Dense, error) {
	if len(points) == 0 {
		return nil, nil, fmt.Errorf("%w: empty point list", ErrRoutingUnavailable)
	}
	if len(points) > maxPointsPerCall {
		return nil, nil, fmt.Errorf("%w: %d points exceeds max %d", ErrRoutingUnavailable, len(points), maxPointsPerCall)
	}

	ctx, cancel := context.WithTimeout(ctx, adapterTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/table/v1/driving/%s?annotations=distance,duration", a.baseURL, coordsPath(points))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrRoutingUnavailable, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrRoutingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, fmt.Errorf("%w: http %d", ErrRoutingUnavailable, resp.StatusCode)
	}

	var body osrmTableResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, nil, fmt.Errorf("%w: decode: %s", ErrRoutingUnavailable, err)
	}
	if body.Code != "Ok" {
		return nil, nil, fmt.Errorf("%w: code %q", ErrRoutingUnavailable, body.Code)
	}

	n := len(points)
	km, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrRoutingUnavailable, err)
	}
	seconds, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrRoutingUnavailable, err)
	}

	for i := 0; i < n; i++ {
		if len(body.Distances) <= i || len(body.Durations) <= i {
			return nil, nil, fmt.Errorf("%w: short response row %d", ErrRoutingUnavailable, i)
		}
		for j := 0; j < n; j++ {
			if len(body.Distances[i]) <= j || len(body.Durations[i]) <= j {
				return nil, nil, fmt.Errorf("%w: short response col (%d,%d)", ErrRoutingUnavailable, i, j)
			}
			_ = km.Set(i, j, body.Distances[i][j]/1000.0) // meters -> km
			_ = seconds.Set(i, j, body.Durations[i][j])
		}
	}

	return km, seconds, nil
}

type osrmRouteResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Legs []struct {
			Steps []struct {
				Maneuver struct {
					Instruction string     `json:"instruction"`
					Location    [2]float64 `json:"location"`
				} `json:"maneuver"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

// NavigationRoute implements Adapter.NavigationRoute against OSRM's
// /route/v1/driving endpoint.
func (a *OSRMAdapter) NavigationRoute(ctx context.Context, start, end domain.Coordinate) (NavigationRoute, error) {
	ctx, cancel := context.WithTimeout(ctx, adapterTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/route/v1/driving/%s?geometries=geojson&steps=true", a.baseURL, coordsPath([]domain.Coordinate{start, end}))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NavigationRoute{}, fmt.Errorf("%w: %s", ErrRoutingUnavailable, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return NavigationRoute{}, fmt.Errorf("%w: %s", ErrRoutingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return NavigationRoute{}, fmt.Errorf("%w: http %d", ErrRoutingUnavailable, resp.StatusCode)
	}

	var body osrmRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return NavigationRoute{}, fmt.Errorf("%w: decode: %s", ErrRoutingUnavailable, err)
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return NavigationRoute{}, fmt.Errorf("%w: code %q", ErrRoutingUnavailable, body.Code)
	}

	route := body.Routes[0]
	nav := NavigationRoute{
		DistanceKm: route.Distance / 1000.0,
		Duration:   time.Duration(route.Duration * float64(time.Second)),
	}
	for _, c := range route.Geometry.Coordinates {
		nav.Polyline = append(nav.Polyline, domain.Coordinate{Longitude: c[0], Latitude: c[1]})
	}
	for _, leg := range route.Legs {
		for _, step := range leg.Steps {
			nav.Steps = append(nav.Steps, NavigationStep{
				Instruction: step.Maneuver.Instruction,
				Location:    domain.Coordinate{Longitude: step.Maneuver.Location[0], Latitude: step.Maneuver.Location[1]},
			})
		}
	}

	return nav, nil
}

// coordsPath renders points as OSRM's "lon,lat;lon,lat;..." path segment.
// Never mutates the caller's slice (spec §4.2).
func coordsPath(points []domain.Coordinate) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("%f,%f", p.Longitude, p.Latitude)
	}
	return strings.Join(parts, ";")
}
