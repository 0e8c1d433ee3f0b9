package ports

import (
	"context"

	"github.com/samirrijal/geoplane/internal/core/domain"
)

// UserRepository persists account credentials.
type UserRepository interface {
	// Create inserts a new user; a duplicate username fails with
	// domain.ErrDuplicateUsername and leaves no partial state behind.
	Create(ctx context.Context, username, passwordHash string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// PointRepository persists point records and answers point-side spatial
// queries. All geometry parameters are pre-validated by the codec.
type PointRepository interface {
	Create(ctx context.Context, name, description string, location *domain.Geometry) (*domain.Point, error)
	GetByID(ctx context.Context, id int64) (*domain.Point, error)
	List(ctx context.Context, offset, limit int) ([]domain.Point, int, error)
	Update(ctx context.Context, id int64, upd domain.PointUpdate) (*domain.Point, error)
	Delete(ctx context.Context, id int64) error

	// WithinPolygon returns points covered by the polygon, boundary inclusive.
	WithinPolygon(ctx context.Context, polygon *domain.Geometry) ([]domain.Point, error)
	// Nearby returns points within radiusMeters of center, nearest first.
	Nearby(ctx context.Context, center *domain.Geometry, radiusMeters float64) ([]domain.Point, error)
}

// PolygonRepository persists polygon records.
type PolygonRepository interface {
	Create(ctx context.Context, name, description string, boundary *domain.Geometry) (*domain.Polygon, error)
	GetByID(ctx context.Context, id int64) (*domain.Polygon, error)
	List(ctx context.Context, offset, limit int) ([]domain.Polygon, int, error)
	Update(ctx context.Context, id int64, upd domain.PolygonUpdate) (*domain.Polygon, error)
	Delete(ctx context.Context, id int64) error

	// ContainingPoint returns polygons whose boundary covers the point,
	// boundary inclusive.
	ContainingPoint(ctx context.Context, point *domain.Geometry) ([]domain.Polygon, error)
}
