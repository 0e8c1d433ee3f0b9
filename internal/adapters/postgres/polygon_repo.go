package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/geoplane/internal/core/domain"
)

// PolygonRepo implements ports.PolygonRepository with pgx.
type PolygonRepo struct {
	db *DB
}

// NewPolygonRepo creates a new PolygonRepo.
func NewPolygonRepo(db *DB) *PolygonRepo {
	return &PolygonRepo{db: db}
}

const polygonColumns = `id, name, COALESCE(description, ''), ST_AsGeoJSON(boundary), created_at`

// Create persists a new polygon row.
func (r *PolygonRepo) Create(ctx context.Context, name, description string, boundary *domain.Geometry) (*domain.Polygon, error) {
	geojson, err := json.Marshal(boundary)
	if err != nil {
		return nil, fmt.Errorf("encode boundary: %w", err)
	}

	p := domain.Polygon{Name: name, Description: description, Boundary: boundary}
	err = r.db.Pool.QueryRow(ctx, `
		INSERT INTO polygons (name, description, boundary)
		VALUES ($1, $2, ST_SetSRID(ST_GeomFromGeoJSON($3), 4326))
		RETURNING id, created_at
	`, name, description, string(geojson)).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert polygon: %w", err)
	}
	return &p, nil
}

// GetByID returns a polygon by id.
func (r *PolygonRepo) GetByID(ctx context.Context, id int64) (*domain.Polygon, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT `+polygonColumns+`
		FROM polygons
		WHERE id = $1
	`, id)

	p, err := scanPolygon(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return p, err
}

// List returns a page of polygons ordered by id, plus the total row count.
func (r *PolygonRepo) List(ctx context.Context, offset, limit int) ([]domain.Polygon, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM polygons`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+polygonColumns+`
		FROM polygons
		ORDER BY id
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	polygons, err := collectPolygons(rows)
	return polygons, total, err
}

// Update applies a partial update; see PointRepo.Update for the COALESCE
// handling of absent fields.
func (r *PolygonRepo) Update(ctx context.Context, id int64, upd domain.PolygonUpdate) (*domain.Polygon, error) {
	var geojson *string
	if upd.Boundary != nil {
		b, err := json.Marshal(upd.Boundary)
		if err != nil {
			return nil, fmt.Errorf("encode boundary: %w", err)
		}
		s := string(b)
		geojson = &s
	}

	row := r.db.Pool.QueryRow(ctx, `
		UPDATE polygons
		SET name        = COALESCE($2, name),
		    description = COALESCE($3, description),
		    boundary    = COALESCE(ST_SetSRID(ST_GeomFromGeoJSON($4), 4326), boundary)
		WHERE id = $1
		RETURNING `+polygonColumns+`
	`, id, upd.Name, upd.Description, geojson)

	p, err := scanPolygon(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return p, err
}

// Delete removes a polygon row. An absent id fails with domain.ErrNotFound.
func (r *PolygonRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM polygons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ContainingPoint returns polygons whose boundary covers the point.
// ST_Covers includes points lying exactly on a boundary edge.
func (r *PolygonRepo) ContainingPoint(ctx context.Context, point *domain.Geometry) ([]domain.Polygon, error) {
	geojson, err := json.Marshal(point)
	if err != nil {
		return nil, fmt.Errorf("encode point: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+polygonColumns+`
		FROM polygons
		WHERE ST_Covers(boundary, ST_SetSRID(ST_GeomFromGeoJSON($1), 4326))
		ORDER BY id
	`, string(geojson))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPolygons(rows)
}

func scanPolygon(row pgx.Row) (*domain.Polygon, error) {
	var p domain.Polygon
	var geojson string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &geojson, &p.CreatedAt); err != nil {
		return nil, err
	}
	boundary, err := domain.DecodeGeometry([]byte(geojson), domain.GeometryPolygon)
	if err != nil {
		return nil, fmt.Errorf("decode stored boundary: %w", err)
	}
	p.Boundary = boundary
	return &p, nil
}

func collectPolygons(rows pgx.Rows) ([]domain.Polygon, error) {
	var polygons []domain.Polygon
	for rows.Next() {
		var p domain.Polygon
		var geojson string
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &geojson, &p.CreatedAt); err != nil {
			return nil, err
		}
		boundary, err := domain.DecodeGeometry([]byte(geojson), domain.GeometryPolygon)
		if err != nil {
			return nil, fmt.Errorf("decode stored boundary: %w", err)
		}
		p.Boundary = boundary
		polygons = append(polygons, p)
	}
	return polygons, rows.Err()
}
