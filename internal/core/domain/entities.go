package domain

import (
	"time"
)

// User is a registered account. The password hash never leaves the backend.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Point is a named spatial point record (WGS 84).
type Point struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Location    *Geometry `json:"location"`
	Distance    *float64  `json:"distance,omitempty"` // meters, set by nearby queries
	CreatedAt   time.Time `json:"created_at"`
}

// Polygon is a named spatial polygon record. The first ring of the boundary
// is the exterior; any further rings are holes.
type Polygon struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Boundary    *Geometry `json:"boundary"`
	CreatedAt   time.Time `json:"created_at"`
}

// PointUpdate is a partial update; nil fields keep their stored values.
type PointUpdate struct {
	Name        *string
	Description *string
	Location    *Geometry
}

// PolygonUpdate is a partial update; nil fields keep their stored values.
type PolygonUpdate struct {
	Name        *string
	Description *string
	Boundary    *Geometry
}

// RecordEvent is published to the message broker when a record changes.
type RecordEvent struct {
	Kind   string    `json:"kind"`   // "point" | "polygon"
	Action string    `json:"action"` // "created" | "updated" | "deleted"
	ID     int64     `json:"id"`
	Name   string    `json:"name,omitempty"`
	Time   time.Time `json:"time"`
}
