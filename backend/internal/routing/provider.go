package routing

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/redis/go-redis/v9"

	"github.com/pageza/fieldroute/backend/internal/domain"
)

// MatrixQuality selects the distance model a DistanceMatrixProvider should
// build (spec §4.3): Road asks the configured routing adapter for real
// driving distances/durations, Geodesic always uses Haversine and an
// average-speed estimate.
type MatrixQuality string

const (
	QualityRoad     MatrixQuality = "road"
	QualityGeodesic MatrixQuality = "geodesic"
)

// CacheStats counts lookups served against a provider's matrix cache, for
// operational visibility (spec §4.3, supplemented).
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// cacheEntry is an immutable, already-built matrix plus the quality it was
// served at. Only Road matrices are stored; Geodesic fallbacks are never
// cached.
type cacheEntry struct {
	matrix *DistanceMatrix
	source MatrixQuality
}

// DistanceMatrixProvider builds DistanceMatrix values for a set of locations,
// preferring a live routing adapter and falling back to geodesic (Haversine)
// distances when the adapter is unavailable or the caller asked for
// Geodesic directly (spec §4.3, C4).
//
// Safe for concurrent use: reads share an RWMutex-free Redis-backed cache
// plus an in-process map guarded by a single mutex, matching the one-writer
// / many-readers discipline the teacher applies to its session cache
// (backend/internal/repository/session_repository.go).
type DistanceMatrixProvider struct {
	adapter        Adapter
	redisClient    *redis.Client
	averageSpeedKmh float64
	cacheTTL       time.Duration
	retryAttempts  uint
	retryDelay     time.Duration
	logger         *log.Logger

	mu    sync.Mutex
	local map[string]cacheEntry
	stats CacheStats
}

// ProviderOption configures a DistanceMatrixProvider at construction.
type ProviderOption func(*DistanceMatrixProvider)

// WithRedisCache enables a shared Redis-backed cache tier behind the
// in-process map (consulted only on an in-process miss), keyed by
// routing.CacheKey (spec §4.3: "shared matrix cache"). TTL is the expiry of
// the Redis entries; the in-process map has no expiry.
func WithRedisCache(client *redis.Client, ttl time.Duration) ProviderOption {
	return func(p *DistanceMatrixProvider) {
		p.redisClient = client
		p.cacheTTL = ttl
	}
}

// WithRetry overrides the bounded-retry policy applied to a single Road
// lookup before falling back to Geodesic (spec §4.3: "one bounded retry on
// transient failure").
func WithRetry(attempts uint, delay time.Duration) ProviderOption {
	return func(p *DistanceMatrixProvider) {
		p.retryAttempts = attempts
		p.retryDelay = delay
	}
}

// WithLogger overrides the default logger, which writes to log.Writer()
// with a "routing: " prefix.
func WithLogger(logger *log.Logger) ProviderOption {
	return func(p *DistanceMatrixProvider) {
		p.logger = logger
	}
}

// NewDistanceMatrixProvider builds a provider around adapter (may be nil,
// in which case every lookup is Geodesic) and averageSpeedKmh (used to turn
// a Haversine distance into a duration estimate for Geodesic matrices).
func NewDistanceMatrixProvider(adapter Adapter, averageSpeedKmh float64, opts ...ProviderOption) *DistanceMatrixProvider {
	p := &DistanceMatrixProvider{
		adapter:         adapter,
		averageSpeedKmh: averageSpeedKmh,
		cacheTTL:        10 * time.Minute,
		retryAttempts:   1,
		retryDelay:      200 * time.Millisecond,
		logger:          log.New(log.Writer(), "routing: ", log.LstdFlags),
		local:           make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stats returns a snapshot of the provider's cache hit/miss/eviction
// counters.
func (p *DistanceMatrixProvider) Stats() CacheStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Build returns a DistanceMatrix over locations, honoring quality (spec
// §4.3):
//
//   - QualityGeodesic always computes Haversine distances and a
//     speed-derived duration estimate; never touches the adapter or cache.
//   - QualityRoad asks the adapter for a real table, retrying once on
//     transient failure; if that still fails (or no adapter is configured)
//     it falls back to Geodesic and reports that in the returned source.
//
// Results for Road lookups are cached (an in-process tier, then the Redis
// tier if configured) keyed by routing.CacheKey(locations, "road").
func (p *DistanceMatrixProvider) Build(ctx context.Context, locations []domain.Coordinate, quality MatrixQuality) (*DistanceMatrix, MatrixQuality, error) {
	if quality == QualityGeodesic || p.adapter == nil {
		m, err := p.buildGeodesic(locations)
		return m, QualityGeodesic, err
	}

	key := CacheKey(locations, string(QualityRoad))
	if m, ok := p.lookupCache(ctx, key); ok {
		return m, QualityRoad, nil
	}

	m, err := p.buildRoadWithRetry(ctx, locations)
	if err != nil {
		p.logger.Printf("road matrix build failed, falling back to geodesic: %s", err)
		geo, geoErr := p.buildGeodesic(locations)
		return geo, QualityGeodesic, geoErr
	}

	p.storeCache(ctx, key, m)
	return m, QualityRoad, nil
}

func (p *DistanceMatrixProvider) buildRoadWithRetry(ctx context.Context, locations []domain.Coordinate) (*DistanceMatrix, error) {
	var built *DistanceMatrix
	err := retry.Do(
		func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			kmMat, secMat, err := p.adapter.Table(ctx, locations)
			if err != nil {
				return err
			}
			dm, err := NewDistanceMatrix(locations, kmMat, secMat)
			if err != nil {
				return err
			}
			built = dm
			return nil
		},
		retry.Attempts(p.retryAttempts+1),
		retry.Delay(p.retryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return built, nil
}

func (p *DistanceMatrixProvider) buildGeodesic(locations []domain.Coordinate) (*DistanceMatrix, error) {
	n := len(locations)
	kmMat, err := newZeroDense(n)
	if err != nil {
		return nil, err
	}
	secMat, err := newZeroDense(n)
	if err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := domain.HaversineKm(locations[i], locations[j])
			_ = kmMat.Set(i, j, d)
			speed := p.averageSpeedKmh
			if speed <= 0 {
				speed = 40
			}
			_ = secMat.Set(i, j, (d/speed)*3600)
		}
	}

	return NewDistanceMatrix(locations, kmMat, secMat)
}

// cachedMatrix is the JSON-serializable form stored in Redis, since
// *matrix.Dense does not implement its own codec.
type cachedMatrix struct {
	Locations []domain.Coordinate `json:"locations"`
	Km        [][]float64         `json:"km"`
	Seconds   [][]float64         `json:"seconds"`
}

func (p *DistanceMatrixProvider) lookupCache(ctx context.Context, key string) (*DistanceMatrix, bool) {
	p.mu.Lock()
	if entry, ok := p.local[key]; ok {
		p.stats.Hits++
		p.mu.Unlock()
		return entry.matrix, true
	}
	p.mu.Unlock()

	if p.redisClient == nil {
		p.mu.Lock()
		p.stats.Misses++
		p.mu.Unlock()
		return nil, false
	}

	raw, err := p.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		p.mu.Lock()
		p.stats.Misses++
		p.mu.Unlock()
		return nil, false
	}

	var cm cachedMatrix
	if err := json.Unmarshal(raw, &cm); err != nil {
		p.mu.Lock()
		p.stats.Misses++
		p.mu.Unlock()
		return nil, false
	}

	m, err := denseFromRows(cm.Locations, cm.Km, cm.Seconds)
	if err != nil {
		p.mu.Lock()
		p.stats.Misses++
		p.mu.Unlock()
		return nil, false
	}

	p.mu.Lock()
	p.local[key] = cacheEntry{matrix: m, source: QualityRoad}
	p.stats.Hits++
	p.mu.Unlock()
	return m, true
}

func (p *DistanceMatrixProvider) storeCache(ctx context.Context, key string, m *DistanceMatrix) {
	p.mu.Lock()
	if _, evicting := p.local[key]; !evicting && len(p.local) >= maxLocalCacheEntries {
		p.evictOneLocked()
	}
	p.local[key] = cacheEntry{matrix: m, source: QualityRoad}
	p.mu.Unlock()

	if p.redisClient == nil {
		return
	}

	n := m.Size()
	kmRows := make([][]float64, n)
	secRows := make([][]float64, n)
	for i := 0; i < n; i++ {
		kmRows[i] = make([]float64, n)
		secRows[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			kmRows[i][j] = m.Distance(i, j)
			secRows[i][j] = m.Duration(i, j)
		}
	}

	payload, err := json.Marshal(cachedMatrix{Locations: m.Locations(), Km: kmRows, Seconds: secRows})
	if err != nil {
		p.logger.Printf("matrix cache marshal failed: %s", err)
		return
	}
	if err := p.redisClient.Set(ctx, key, payload, p.cacheTTL).Err(); err != nil {
		p.logger.Printf("matrix cache write failed: %s", err)
	}
}

// maxLocalCacheEntries bounds the in-process tier. When it is full, storing
// a new key evicts whichever entry map iteration yields first, an arbitrary
// one: neither age nor recency of use is tracked, so this is not an LRU.
// This matches the teacher's simple rate-limit cache eviction in
// backend/internal/ai/ratelimit.go.
const maxLocalCacheEntries = 256

func (p *DistanceMatrixProvider) evictOneLocked() {
	for k := range p.local {
		delete(p.local, k)
		p.stats.Evictions++
		return
	}
}
