package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/geoplane/internal/core/domain"
	"github.com/samirrijal/geoplane/internal/core/ports"
)

// PointService handles point record CRUD. Geometry payloads are validated by
// the codec before any persistence call; the repository never sees raw input.
type PointService struct {
	points ports.PointRepository
	events ports.EventPublisher
}

// NewPointService creates a new PointService. events may be nil.
func NewPointService(points ports.PointRepository, events ports.EventPublisher) *PointService {
	return &PointService{points: points, events: events}
}

// Create validates the GeoJSON location and persists a new point.
func (s *PointService) Create(ctx context.Context, name, description string, locationGeoJSON []byte) (*domain.Point, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	location, err := domain.DecodeGeometry(locationGeoJSON, domain.GeometryPoint)
	if err != nil {
		return nil, err
	}

	p, err := s.points.Create(ctx, name, description, location)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "created", p.ID, p.Name)
	return p, nil
}

// Get returns a point by id.
func (s *PointService) Get(ctx context.Context, id int64) (*domain.Point, error) {
	return s.points.GetByID(ctx, id)
}

// List returns a page of points and the total count. Ordering is by id.
func (s *PointService) List(ctx context.Context, offset, limit int) ([]domain.Point, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.points.List(ctx, offset, limit)
}

// Update applies a partial update; nil fields keep their stored values.
// A non-nil locationGeoJSON is validated before the repository is touched.
func (s *PointService) Update(ctx context.Context, id int64, name, description *string, locationGeoJSON []byte) (*domain.Point, error) {
	upd := domain.PointUpdate{Name: name, Description: description}
	if len(locationGeoJSON) > 0 {
		location, err := domain.DecodeGeometry(locationGeoJSON, domain.GeometryPoint)
		if err != nil {
			return nil, err
		}
		upd.Location = location
	}

	p, err := s.points.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "updated", p.ID, p.Name)
	return p, nil
}

// Delete removes a point. An absent id fails with domain.ErrNotFound, also
// on repeated deletes.
func (s *PointService) Delete(ctx context.Context, id int64) error {
	if err := s.points.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, "deleted", id, "")
	return nil
}

// publish emits a record-change event. Publish failures are logged and never
// fail the request; the row change has already committed.
func (s *PointService) publish(ctx context.Context, action string, id int64, name string) {
	if s.events == nil {
		return
	}
	ev := &domain.RecordEvent{
		Kind:   "point",
		Action: action,
		ID:     id,
		Name:   name,
		Time:   time.Now().UTC(),
	}
	if err := s.events.PublishRecordEvent(ctx, ev); err != nil {
		slog.Warn("publish record event", "kind", "point", "action", action, "id", id, "error", err)
	}
}
