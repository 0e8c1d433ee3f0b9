package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/geoplane/internal/core/domain"
	"github.com/samirrijal/geoplane/internal/core/ports"
)

// PolygonService handles polygon record CRUD.
type PolygonService struct {
	polygons ports.PolygonRepository
	events   ports.EventPublisher
}

// NewPolygonService creates a new PolygonService. events may be nil.
func NewPolygonService(polygons ports.PolygonRepository, events ports.EventPublisher) *PolygonService {
	return &PolygonService{polygons: polygons, events: events}
}

// Create validates the GeoJSON boundary and persists a new polygon.
func (s *PolygonService) Create(ctx context.Context, name, description string, boundaryGeoJSON []byte) (*domain.Polygon, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	boundary, err := domain.DecodeGeometry(boundaryGeoJSON, domain.GeometryPolygon)
	if err != nil {
		return nil, err
	}

	p, err := s.polygons.Create(ctx, name, description, boundary)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "created", p.ID, p.Name)
	return p, nil
}

// Get returns a polygon by id.
func (s *PolygonService) Get(ctx context.Context, id int64) (*domain.Polygon, error) {
	return s.polygons.GetByID(ctx, id)
}

// List returns a page of polygons and the total count. Ordering is by id.
func (s *PolygonService) List(ctx context.Context, offset, limit int) ([]domain.Polygon, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.polygons.List(ctx, offset, limit)
}

// Update applies a partial update; nil fields keep their stored values.
func (s *PolygonService) Update(ctx context.Context, id int64, name, description *string, boundaryGeoJSON []byte) (*domain.Polygon, error) {
	upd := domain.PolygonUpdate{Name: name, Description: description}
	if len(boundaryGeoJSON) > 0 {
		boundary, err := domain.DecodeGeometry(boundaryGeoJSON, domain.GeometryPolygon)
		if err != nil {
			return nil, err
		}
		upd.Boundary = boundary
	}

	p, err := s.polygons.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "updated", p.ID, p.Name)
	return p, nil
}

// Delete removes a polygon. An absent id fails with domain.ErrNotFound.
func (s *PolygonService) Delete(ctx context.Context, id int64) error {
	if err := s.polygons.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, "deleted", id, "")
	return nil
}

func (s *PolygonService) publish(ctx context.Context, action string, id int64, name string) {
	if s.events == nil {
		return
	}
	ev := &domain.RecordEvent{
		Kind:   "polygon",
		Action: action,
		ID:     id,
		Name:   name,
		Time:   time.Now().UTC(),
	}
	if err := s.events.PublishRecordEvent(ctx, ev); err != nil {
		slog.Warn("publish record event", "kind", "polygon", "action", action, "id", id, "error", err)
	}
}
