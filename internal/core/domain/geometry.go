package domain

import (
	"encoding/json"
	"fmt"
)

// GeometryType is the GeoJSON type tag of a geometry.
type GeometryType string

const (
	GeometryPoint   GeometryType = "Point"
	GeometryPolygon GeometryType = "Polygon"
)

// Geometry is a validated GeoJSON Point or Polygon. Point geometries carry
// Coordinates ([lon, lat] or [lon, lat, elevation]); Polygon geometries carry
// Rings, each a closed sequence of positions with the exterior ring first.
// All coordinates are assumed to share the storage SRID (4326); no reference
// system transformation happens here.
type Geometry struct {
	Type        GeometryType
	Coordinates []float64
	Rings       [][][]float64
}

// rawGeometry mirrors the GeoJSON wire shape before validation.
type rawGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// DecodeGeometry parses raw GeoJSON text and validates it against the
// expected type. Input is never silently corrected: any structural problem
// fails with an error wrapping ErrMalformedGeometry.
func DecodeGeometry(raw []byte, want GeometryType) (*Geometry, error) {
	var rg rawGeometry
	if err := json.Unmarshal(raw, &rg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGeometry, err)
	}
	if GeometryType(rg.Type) != want {
		return nil, fmt.Errorf("%w: expected type %q, got %q", ErrMalformedGeometry, want, rg.Type)
	}
	if len(rg.Coordinates) == 0 {
		return nil, fmt.Errorf("%w: missing coordinates", ErrMalformedGeometry)
	}

	g := &Geometry{Type: want}
	switch want {
	case GeometryPoint:
		if err := json.Unmarshal(rg.Coordinates, &g.Coordinates); err != nil {
			return nil, fmt.Errorf("%w: point coordinates: %v", ErrMalformedGeometry, err)
		}
		if err := validatePosition(g.Coordinates); err != nil {
			return nil, err
		}
	case GeometryPolygon:
		if err := json.Unmarshal(rg.Coordinates, &g.Rings); err != nil {
			return nil, fmt.Errorf("%w: polygon coordinates: %v", ErrMalformedGeometry, err)
		}
		if len(g.Rings) == 0 {
			return nil, fmt.Errorf("%w: polygon has no rings", ErrMalformedGeometry)
		}
		for i, ring := range g.Rings {
			if err := validateRing(ring); err != nil {
				return nil, fmt.Errorf("ring %d: %w", i, err)
			}
		}
	default:
		return nil, fmt.Errorf("%w: unsupported geometry type %q", ErrMalformedGeometry, want)
	}
	return g, nil
}

func validatePosition(pos []float64) error {
	if len(pos) < 2 || len(pos) > 3 {
		return fmt.Errorf("%w: position must have 2 or 3 coordinates, got %d", ErrMalformedGeometry, len(pos))
	}
	return nil
}

func validateRing(ring [][]float64) error {
	if len(ring) < 4 {
		return fmt.Errorf("%w: ring must have at least 4 positions, got %d", ErrMalformedGeometry, len(ring))
	}
	for _, pos := range ring {
		if err := validatePosition(pos); err != nil {
			return err
		}
	}
	first, last := ring[0], ring[len(ring)-1]
	if len(first) != len(last) {
		return fmt.Errorf("%w: ring is not closed", ErrMalformedGeometry)
	}
	for i := range first {
		if first[i] != last[i] {
			return fmt.Errorf("%w: ring is not closed", ErrMalformedGeometry)
		}
	}
	return nil
}

// MarshalJSON re-encodes the geometry as GeoJSON text.
func (g *Geometry) MarshalJSON() ([]byte, error) {
	switch g.Type {
	case GeometryPoint:
		return json.Marshal(struct {
			Type        GeometryType `json:"type"`
			Coordinates []float64    `json:"coordinates"`
		}{g.Type, g.Coordinates})
	case GeometryPolygon:
		return json.Marshal(struct {
			Type        GeometryType  `json:"type"`
			Coordinates [][][]float64 `json:"coordinates"`
		}{g.Type, g.Rings})
	}
	return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
}

// UnmarshalJSON decodes GeoJSON of either supported type, dispatching on the
// embedded type tag. Validation rules are the same as DecodeGeometry.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var rg rawGeometry
	if err := json.Unmarshal(data, &rg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedGeometry, err)
	}
	decoded, err := DecodeGeometry(data, GeometryType(rg.Type))
	if err != nil {
		return err
	}
	*g = *decoded
	return nil
}
