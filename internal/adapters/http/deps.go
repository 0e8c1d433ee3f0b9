package http

import (
	"github.com/nats-io/nats.go"
	"github.com/samirrijal/geoplane/internal/adapters/postgres"
	"github.com/samirrijal/geoplane/internal/adapters/valkey"
	"github.com/samirrijal/geoplane/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Auth     *usecases.AuthService
	Points   *usecases.PointService
	Polygons *usecases.PolygonService
	Spatial  *usecases.SpatialService
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}
