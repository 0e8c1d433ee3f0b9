package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/geoplane/internal/core/domain"
	"github.com/samirrijal/geoplane/internal/core/usecases"
)

// --- Mock PointRepository ---

type mockPointRepo struct {
	createFn  func(ctx context.Context, name, description string, location *domain.Geometry) (*domain.Point, error)
	getByIDFn func(ctx context.Context, id int64) (*domain.Point, error)
	listFn    func(ctx context.Context, offset, limit int) ([]domain.Point, int, error)
	updateFn  func(ctx context.Context, id int64, upd domain.PointUpdate) (*domain.Point, error)
	deleteFn  func(ctx context.Context, id int64) error
	withinFn  func(ctx context.Context, polygon *domain.Geometry) ([]domain.Point, error)
	nearbyFn  func(ctx context.Context, center *domain.Geometry, radiusMeters float64) ([]domain.Point, error)
}

func (m *mockPointRepo) Create(ctx context.Context, name, description string, location *domain.Geometry) (*domain.Point, error) {
	if m.createFn != nil {
		return m.createFn(ctx, name, description, location)
	}
	return &domain.Point{ID: 1, Name: name, Description: description, Location: location}, nil
}

func (m *mockPointRepo) GetByID(ctx context.Context, id int64) (*domain.Point, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPointRepo) List(ctx context.Context, offset, limit int) ([]domain.Point, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockPointRepo) Update(ctx context.Context, id int64, upd domain.PointUpdate) (*domain.Point, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, upd)
	}
	return nil, domain.ErrNotFound
}

func (m *mockPointRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return domain.ErrNotFound
}

func (m *mockPointRepo) WithinPolygon(ctx context.Context, polygon *domain.Geometry) ([]domain.Point, error) {
	if m.withinFn != nil {
		return m.withinFn(ctx, polygon)
	}
	return nil, nil
}

func (m *mockPointRepo) Nearby(ctx context.Context, center *domain.Geometry, radiusMeters float64) ([]domain.Point, error) {
	if m.nearbyFn != nil {
		return m.nearbyFn(ctx, center, radiusMeters)
	}
	return nil, nil
}

// --- Tests ---

const validPointJSON = `{"type":"Point","coordinates":[77.0365,38.8977]}`

func TestPointService_Create(t *testing.T) {
	var gotLocation *domain.Geometry
	repo := &mockPointRepo{
		createFn: func(ctx context.Context, name, description string, location *domain.Geometry) (*domain.Point, error) {
			gotLocation = location
			return &domain.Point{ID: 42, Name: name, Description: description, Location: location}, nil
		},
	}
	svc := usecases.NewPointService(repo, nil)

	p, err := svc.Create(context.Background(), "White House", "residence", []byte(validPointJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != 42 {
		t.Errorf("expected id 42, got %d", p.ID)
	}
	if gotLocation == nil || gotLocation.Coordinates[0] != 77.0365 {
		t.Errorf("repository received wrong geometry: %+v", gotLocation)
	}
}

func TestPointService_Create_MalformedGeometry(t *testing.T) {
	called := false
	repo := &mockPointRepo{
		createFn: func(ctx context.Context, name, description string, location *domain.Geometry) (*domain.Point, error) {
			called = true
			return nil, nil
		},
	}
	svc := usecases.NewPointService(repo, nil)

	// Polygon payload on a point create must fail before persistence.
	polygon := `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`
	_, err := svc.Create(context.Background(), "bad", "", []byte(polygon))
	if !errors.Is(err, domain.ErrMalformedGeometry) {
		t.Errorf("expected ErrMalformedGeometry, got %v", err)
	}
	if called {
		t.Error("repository must not be called for malformed geometry")
	}
}

func TestPointService_Create_EmptyName(t *testing.T) {
	svc := usecases.NewPointService(&mockPointRepo{}, nil)
	_, err := svc.Create(context.Background(), "", "", []byte(validPointJSON))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty name, got %v", err)
	}
}

func TestPointService_List_ClampsLimit(t *testing.T) {
	repo := &mockPointRepo{
		listFn: func(ctx context.Context, offset, limit int) ([]domain.Point, int, error) {
			if limit != 100 {
				t.Errorf("expected limit clamped to 100, got %d", limit)
			}
			if offset != 0 {
				t.Errorf("expected negative offset clamped to 0, got %d", offset)
			}
			return nil, 0, nil
		},
	}
	svc := usecases.NewPointService(repo, nil)
	_, _, _ = svc.List(context.Background(), -5, 9999)
}

func TestPointService_Update_Partial(t *testing.T) {
	repo := &mockPointRepo{
		updateFn: func(ctx context.Context, id int64, upd domain.PointUpdate) (*domain.Point, error) {
			if upd.Name == nil || *upd.Name != "renamed" {
				t.Errorf("expected name update, got %+v", upd.Name)
			}
			if upd.Description != nil {
				t.Error("expected description to stay nil")
			}
			if upd.Location != nil {
				t.Error("expected location to stay nil")
			}
			return &domain.Point{ID: id, Name: *upd.Name}, nil
		},
	}
	svc := usecases.NewPointService(repo, nil)

	name := "renamed"
	if _, err := svc.Update(context.Background(), 3, &name, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPointService_Update_MalformedGeometry(t *testing.T) {
	called := false
	repo := &mockPointRepo{
		updateFn: func(ctx context.Context, id int64, upd domain.PointUpdate) (*domain.Point, error) {
			called = true
			return nil, nil
		},
	}
	svc := usecases.NewPointService(repo, nil)

	_, err := svc.Update(context.Background(), 3, nil, nil, []byte(`{"type":"Point","coordinates":[1]}`))
	if !errors.Is(err, domain.ErrMalformedGeometry) {
		t.Errorf("expected ErrMalformedGeometry, got %v", err)
	}
	if called {
		t.Error("repository must not be called for malformed geometry")
	}
}

func TestPointService_Delete_NotFound(t *testing.T) {
	svc := usecases.NewPointService(&mockPointRepo{}, nil)

	if err := svc.Delete(context.Background(), 404); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	// Deleting again must also report not found.
	if err := svc.Delete(context.Background(), 404); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on repeated delete, got %v", err)
	}
}

// --- Event publishing ---

type mockPublisher struct {
	events []*domain.RecordEvent
	err    error
}

func (m *mockPublisher) PublishRecordEvent(ctx context.Context, ev *domain.RecordEvent) error {
	m.events = append(m.events, ev)
	return m.err
}

func TestPointService_PublishesEvents(t *testing.T) {
	pub := &mockPublisher{}
	repo := &mockPointRepo{
		deleteFn: func(ctx context.Context, id int64) error { return nil },
	}
	svc := usecases.NewPointService(repo, pub)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "a", "", []byte(validPointJSON)); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, 1); err != nil {
		t.Fatal(err)
	}

	if len(pub.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.events))
	}
	if pub.events[0].Action != "created" || pub.events[1].Action != "deleted" {
		t.Errorf("unexpected actions: %s, %s", pub.events[0].Action, pub.events[1].Action)
	}
	if pub.events[0].Kind != "point" {
		t.Errorf("expected kind point, got %s", pub.events[0].Kind)
	}
}

func TestPointService_PublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker down")}
	svc := usecases.NewPointService(&mockPointRepo{}, pub)

	if _, err := svc.Create(context.Background(), "a", "", []byte(validPointJSON)); err != nil {
		t.Errorf("publish failure must not fail the request: %v", err)
	}
}
