package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/samirrijal/geoplane/internal/core/domain"
	"github.com/samirrijal/geoplane/internal/core/usecases"
)

// --- Mock PolygonRepository ---

type mockPolygonRepo struct {
	createFn     func(ctx context.Context, name, description string, boundary *domain.Geometry) (*domain.Polygon, error)
	getByIDFn    func(ctx context.Context, id int64) (*domain.Polygon, error)
	listFn       func(ctx context.Context, offset, limit int) ([]domain.Polygon, int, error)
	updateFn     func(ctx context.Context, id int64, upd domain.PolygonUpdate) (*domain.Polygon, error)
	deleteFn     func(ctx context.Context, id int64) error
	containingFn func(ctx context.Context, point *domain.Geometry) ([]domain.Polygon, error)
}

func (m *mockPolygonRepo) Create(ctx context.Context, name, description string, boundary *domain.Geometry) (*domain.Polygon, error) {
	if m.createFn != nil {
		return m.createFn(ctx, name, description, boundary)
	}
	return &domain.Polygon{ID: 1, Name: name, Description: description, Boundary: boundary}, nil
}

func (m *mockPolygonRepo) GetByID(ctx context.Context, id int64) (*domain.Polygon, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPolygonRepo) List(ctx context.Context, offset, limit int) ([]domain.Polygon, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockPolygonRepo) Update(ctx context.Context, id int64, upd domain.PolygonUpdate) (*domain.Polygon, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, upd)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPolygonRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return domain.ErrNotFound
}

func (m *mockPolygonRepo) ContainingPoint(ctx context.Context, point *domain.Geometry) ([]domain.Polygon, error) {
	if m.containingFn != nil {
		return m.containingFn(ctx, point)
	}
	return nil, nil
}

// memCache is a trivial in-process ports.CacheService for tests.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("cache miss")
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// --- Tests ---

const queryPolygonJSON = `{"type":"Polygon","coordinates":[[[77.0,38.9],[77.1,38.9],[77.1,39.0],[77.0,39.0],[77.0,38.9]]]}`

func TestSpatialService_PointsWithinPolygon(t *testing.T) {
	points := &mockPointRepo{
		withinFn: func(ctx context.Context, polygon *domain.Geometry) ([]domain.Point, error) {
			if polygon.Type != domain.GeometryPolygon {
				t.Errorf("expected Polygon geometry, got %s", polygon.Type)
			}
			return []domain.Point{{ID: 1, Name: "inside", Location: &domain.Geometry{
				Type: domain.GeometryPoint, Coordinates: []float64{77.0365, 38.8977},
			}}}, nil
		},
	}
	svc := usecases.NewSpatialService(points, &mockPolygonRepo{}, nil)

	got, err := svc.PointsWithinPolygon(context.Background(), []byte(queryPolygonJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "inside" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestSpatialService_PointsWithinPolygon_Malformed(t *testing.T) {
	called := false
	points := &mockPointRepo{
		withinFn: func(ctx context.Context, polygon *domain.Geometry) ([]domain.Point, error) {
			called = true
			return nil, nil
		},
	}
	svc := usecases.NewSpatialService(points, &mockPolygonRepo{}, nil)

	unclosed := `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1]]]}`
	_, err := svc.PointsWithinPolygon(context.Background(), []byte(unclosed))
	if !errors.Is(err, domain.ErrMalformedGeometry) {
		t.Errorf("expected ErrMalformedGeometry, got %v", err)
	}
	if called {
		t.Error("repository must not be called for malformed geometry")
	}
}

func TestSpatialService_PolygonsContainingPoint(t *testing.T) {
	polygons := &mockPolygonRepo{
		containingFn: func(ctx context.Context, point *domain.Geometry) ([]domain.Polygon, error) {
			return []domain.Polygon{{ID: 5, Name: "district"}}, nil
		},
	}
	svc := usecases.NewSpatialService(&mockPointRepo{}, polygons, nil)

	got, err := svc.PolygonsContainingPoint(context.Background(), []byte(validPointJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 5 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestSpatialService_PointsNearby_RadiusValidation(t *testing.T) {
	svc := usecases.NewSpatialService(&mockPointRepo{}, &mockPolygonRepo{}, nil)

	for _, radius := range []float64{0, -10} {
		_, err := svc.PointsNearby(context.Background(), []byte(validPointJSON), radius)
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for radius %g, got %v", radius, err)
		}
	}
}

func TestSpatialService_PointsNearby_FractionalRadiiAreDistinctQueries(t *testing.T) {
	calls := 0
	points := &mockPointRepo{
		nearbyFn: func(ctx context.Context, center *domain.Geometry, radiusMeters float64) ([]domain.Point, error) {
			calls++
			result := []domain.Point{{ID: 1, Name: "close"}}
			if radiusMeters > 500.3 {
				result = append(result, domain.Point{ID: 2, Name: "farther"})
			}
			return result, nil
		},
	}
	svc := usecases.NewSpatialService(points, &mockPolygonRepo{}, newMemCache())
	ctx := context.Background()

	narrow, err := svc.PointsNearby(ctx, []byte(validPointJSON), 500.2)
	if err != nil {
		t.Fatal(err)
	}
	wide, err := svc.PointsNearby(ctx, []byte(validPointJSON), 500.4)
	if err != nil {
		t.Fatal(err)
	}

	if calls != 2 {
		t.Errorf("expected one repository call per radius, got %d", calls)
	}
	if len(narrow) != 1 {
		t.Errorf("expected 1 point within 500.2m, got %d", len(narrow))
	}
	if len(wide) != 2 {
		t.Errorf("expected 2 points within 500.4m, got %d", len(wide))
	}
}

func TestSpatialService_PointsNearby_CachesResult(t *testing.T) {
	calls := 0
	points := &mockPointRepo{
		nearbyFn: func(ctx context.Context, center *domain.Geometry, radiusMeters float64) ([]domain.Point, error) {
			calls++
			return []domain.Point{{ID: 9, Name: "near", Location: &domain.Geometry{
				Type: domain.GeometryPoint, Coordinates: []float64{1, 2},
			}}}, nil
		},
	}
	svc := usecases.NewSpatialService(points, &mockPolygonRepo{}, newMemCache())
	ctx := context.Background()

	first, err := svc.PointsNearby(ctx, []byte(validPointJSON), 500)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.PointsNearby(ctx, []byte(validPointJSON), 500)
	if err != nil {
		t.Fatal(err)
	}

	if calls != 1 {
		t.Errorf("expected single repository call, got %d", calls)
	}
	if len(first) != 1 || len(second) != 1 || second[0].ID != first[0].ID {
		t.Errorf("cached result differs: %+v vs %+v", first, second)
	}

	// A different radius is a different query.
	if _, err := svc.PointsNearby(ctx, []byte(validPointJSON), 1000); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("expected second repository call for new radius, got %d", calls)
	}
}
