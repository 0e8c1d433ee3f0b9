package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/geoplane/internal/core/domain"
)

// PointRepo implements ports.PointRepository with pgx. Geometry travels as
// GeoJSON text in both directions: ST_GeomFromGeoJSON on the way in,
// ST_AsGeoJSON on the way out. All spatial predicates run in the database.
type PointRepo struct {
	db *DB
}

// NewPointRepo creates a new PointRepo.
func NewPointRepo(db *DB) *PointRepo {
	return &PointRepo{db: db}
}

const pointColumns = `id, name, COALESCE(description, ''), ST_AsGeoJSON(location), created_at`

// Create persists a new point row.
func (r *PointRepo) Create(ctx context.Context, name, description string, location *domain.Geometry) (*domain.Point, error) {
	geojson, err := json.Marshal(location)
	if err != nil {
		return nil, fmt.Errorf("encode location: %w", err)
	}

	p := domain.Point{Name: name, Description: description, Location: location}
	err = r.db.Pool.QueryRow(ctx, `
		INSERT INTO points (name, description, location)
		VALUES ($1, $2, ST_SetSRID(ST_GeomFromGeoJSON($3), 4326))
		RETURNING id, created_at
	`, name, description, string(geojson)).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert point: %w", err)
	}
	return &p, nil
}

// GetByID returns a point by id.
func (r *PointRepo) GetByID(ctx context.Context, id int64) (*domain.Point, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT `+pointColumns+`
		FROM points
		WHERE id = $1
	`, id)

	p, err := scanPoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return p, err
}

// List returns a page of points ordered by id, plus the total row count.
func (r *PointRepo) List(ctx context.Context, offset, limit int) ([]domain.Point, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM points`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+pointColumns+`
		FROM points
		ORDER BY id
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	points, err := collectPoints(rows, false)
	return points, total, err
}

// Update applies a partial update. ST_GeomFromGeoJSON(NULL) yields NULL, so
// COALESCE keeps the stored geometry when none is supplied.
func (r *PointRepo) Update(ctx context.Context, id int64, upd domain.PointUpdate) (*domain.Point, error) {
	var geojson *string
	if upd.Location != nil {
		b, err := json.Marshal(upd.Location)
		if err != nil {
			return nil, fmt.Errorf("encode location: %w", err)
		}
		s := string(b)
		geojson = &s
	}

	row := r.db.Pool.QueryRow(ctx, `
		UPDATE points
		SET name        = COALESCE($2, name),
		    description = COALESCE($3, description),
		    location    = COALESCE(ST_SetSRID(ST_GeomFromGeoJSON($4), 4326), location)
		WHERE id = $1
		RETURNING `+pointColumns+`
	`, id, upd.Name, upd.Description, geojson)

	p, err := scanPoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return p, err
}

// Delete removes a point row. An absent id fails with domain.ErrNotFound.
func (r *PointRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM points WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// WithinPolygon returns points covered by the polygon. ST_Covers includes
// points lying exactly on the boundary.
func (r *PointRepo) WithinPolygon(ctx context.Context, polygon *domain.Geometry) ([]domain.Point, error) {
	geojson, err := json.Marshal(polygon)
	if err != nil {
		return nil, fmt.Errorf("encode polygon: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+pointColumns+`
		FROM points
		WHERE ST_Covers(ST_SetSRID(ST_GeomFromGeoJSON($1), 4326), location)
		ORDER BY id
	`, string(geojson))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPoints(rows, false)
}

// Nearby returns points within radiusMeters of center, nearest first. The
// geography cast makes ST_DWithin and ST_Distance operate in meters.
func (r *PointRepo) Nearby(ctx context.Context, center *domain.Geometry, radiusMeters float64) ([]domain.Point, error) {
	geojson, err := json.Marshal(center)
	if err != nil {
		return nil, fmt.Errorf("encode center: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+pointColumns+`,
		       ST_Distance(location::geography, ST_SetSRID(ST_GeomFromGeoJSON($1), 4326)::geography) AS distance
		FROM points
		WHERE ST_DWithin(location::geography, ST_SetSRID(ST_GeomFromGeoJSON($1), 4326)::geography, $2)
		ORDER BY distance
	`, string(geojson), radiusMeters)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPoints(rows, true)
}

func scanPoint(row pgx.Row) (*domain.Point, error) {
	var p domain.Point
	var geojson string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &geojson, &p.CreatedAt); err != nil {
		return nil, err
	}
	location, err := domain.DecodeGeometry([]byte(geojson), domain.GeometryPoint)
	if err != nil {
		return nil, fmt.Errorf("decode stored location: %w", err)
	}
	p.Location = location
	return &p, nil
}

func collectPoints(rows pgx.Rows, withDistance bool) ([]domain.Point, error) {
	var points []domain.Point
	for rows.Next() {
		var p domain.Point
		var geojson string
		var err error
		if withDistance {
			var distance float64
			err = rows.Scan(&p.ID, &p.Name, &p.Description, &geojson, &p.CreatedAt, &distance)
			p.Distance = &distance
		} else {
			err = rows.Scan(&p.ID, &p.Name, &p.Description, &geojson, &p.CreatedAt)
		}
		if err != nil {
			return nil, err
		}
		location, err := domain.DecodeGeometry([]byte(geojson), domain.GeometryPoint)
		if err != nil {
			return nil, fmt.Errorf("decode stored location: %w", err)
		}
		p.Location = location
		points = append(points, p)
	}
	return points, rows.Err()
}
