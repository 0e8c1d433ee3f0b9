package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/samirrijal/geoplane/internal/core/domain"
	"github.com/samirrijal/geoplane/internal/core/ports"
)

// spatialCacheTTL is the cache lifetime for spatial query results, in
// seconds. Short on purpose: record writes do not invalidate these entries.
const spatialCacheTTL = 60

// SpatialService answers containment and proximity queries. Query geometry
// is validated by the codec up front; the actual geometric work (coverage
// tests, distance filtering, ordering) is done by the database.
type SpatialService struct {
	points   ports.PointRepository
	polygons ports.PolygonRepository
	cache    ports.CacheService
}

// NewSpatialService creates a new SpatialService. cache may be nil.
func NewSpatialService(points ports.PointRepository, polygons ports.PolygonRepository, cache ports.CacheService) *SpatialService {
	return &SpatialService{points: points, polygons: polygons, cache: cache}
}

// PointsWithinPolygon returns all points covered by the given polygon,
// boundary inclusive. Fails with domain.ErrMalformedGeometry on bad input.
func (s *SpatialService) PointsWithinPolygon(ctx context.Context, polygonGeoJSON []byte) ([]domain.Point, error) {
	polygon, err := domain.DecodeGeometry(polygonGeoJSON, domain.GeometryPolygon)
	if err != nil {
		return nil, err
	}

	cacheKey := spatialKey("points:within", polygonGeoJSON, 0)
	if hit, ok := cacheGet[[]domain.Point](ctx, s.cache, cacheKey); ok {
		return hit, nil
	}

	points, err := s.points.WithinPolygon(ctx, polygon)
	if err != nil {
		return nil, err
	}
	cacheSet(ctx, s.cache, cacheKey, points)
	return points, nil
}

// PolygonsContainingPoint returns all polygons whose boundary covers the
// given point.
func (s *SpatialService) PolygonsContainingPoint(ctx context.Context, pointGeoJSON []byte) ([]domain.Polygon, error) {
	point, err := domain.DecodeGeometry(pointGeoJSON, domain.GeometryPoint)
	if err != nil {
		return nil, err
	}

	cacheKey := spatialKey("polygons:containing", pointGeoJSON, 0)
	if hit, ok := cacheGet[[]domain.Polygon](ctx, s.cache, cacheKey); ok {
		return hit, nil
	}

	polygons, err := s.polygons.ContainingPoint(ctx, point)
	if err != nil {
		return nil, err
	}
	cacheSet(ctx, s.cache, cacheKey, polygons)
	return polygons, nil
}

// PointsNearby returns all points within radiusMeters of center, ordered by
// distance ascending.
func (s *SpatialService) PointsNearby(ctx context.Context, centerGeoJSON []byte, radiusMeters float64) ([]domain.Point, error) {
	if radiusMeters <= 0 {
		return nil, fmt.Errorf("%w: radius must be positive, got %g", domain.ErrInvalidInput, radiusMeters)
	}
	center, err := domain.DecodeGeometry(centerGeoJSON, domain.GeometryPoint)
	if err != nil {
		return nil, err
	}

	cacheKey := spatialKey("points:nearby", centerGeoJSON, radiusMeters)
	if hit, ok := cacheGet[[]domain.Point](ctx, s.cache, cacheKey); ok {
		return hit, nil
	}

	points, err := s.points.Nearby(ctx, center, radiusMeters)
	if err != nil {
		return nil, err
	}
	cacheSet(ctx, s.cache, cacheKey, points)
	return points, nil
}

// spatialKey builds a cache key from the raw query geometry. Keys hash the
// request bytes, so semantically equal queries with different formatting miss
// the cache; acceptable for a 60s TTL. The radius goes in at full precision:
// distinct radii must never share a key.
func spatialKey(kind string, geometry []byte, radius float64) string {
	h := sha256.Sum256(geometry)
	return fmt.Sprintf("spatial:%s:%s:%s", kind, hex.EncodeToString(h[:8]),
		strconv.FormatFloat(radius, 'g', -1, 64))
}

func cacheGet[T any](ctx context.Context, cache ports.CacheService, key string) (T, bool) {
	var zero T
	if cache == nil {
		return zero, false
	}
	data, err := cache.Get(ctx, key)
	if err != nil {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, false
	}
	return out, true
}

func cacheSet[T any](ctx context.Context, cache ports.CacheService, key string, value T) {
	if cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = cache.Set(ctx, key, data, spatialCacheTTL)
}
