package http

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/geoplane/internal/pkg/metrics"
)

// rawField normalizes an optional raw JSON field: an absent field and an
// explicit null both mean "unspecified, keep the prior value".
func rawField(raw json.RawMessage) []byte {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return raw
}

// --- Auth ---

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterHandler creates a new account.
func RegisterHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.Username == "" || req.Password == "" {
			return errBadRequest(c, "username and password are required")
		}

		user, err := deps.Auth.Register(c.UserContext(), req.Username, req.Password)
		if err != nil {
			return mapDomainError(c, err)
		}

		return c.Status(201).JSON(fiber.Map{
			"id":       user.ID,
			"username": user.Username,
		})
	}
}

// LoginHandler verifies credentials and issues a bearer token.
func LoginHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		token, err := deps.Auth.Login(c.UserContext(), req.Username, req.Password)
		if err != nil {
			return mapDomainError(c, err)
		}

		return c.JSON(fiber.Map{
			"access_token": token,
			"token_type":   "bearer",
		})
	}
}

// --- Points ---

// pointRequest carries create/update payloads. Location stays raw so the
// geometry codec reports malformed input as 422 instead of a JSON 400.
type pointRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Location    json.RawMessage `json:"location"`
}

// CreatePointHandler creates a point record.
func CreatePointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req pointRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.Name == nil || *req.Name == "" {
			return errBadRequest(c, "name is required")
		}
		if rawField(req.Location) == nil {
			return errBadRequest(c, "location is required")
		}

		var description string
		if req.Description != nil {
			description = *req.Description
		}

		point, err := deps.Points.Create(c.UserContext(), *req.Name, description, req.Location)
		if err != nil {
			return mapDomainError(c, err)
		}

		metrics.RecordsWritten.WithLabelValues("point", "created").Inc()
		return c.Status(201).JSON(point)
	}
}

// GetPointHandler returns a single point by id.
func GetPointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return errBadRequest(c, "id must be an integer")
		}

		point, err := deps.Points.Get(c.UserContext(), id)
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(point)
	}
}

// ListPointsHandler returns a paginated list of points.
func ListPointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)

		points, total, err := deps.Points.List(c.UserContext(), offset, limit)
		if err != nil {
			return mapDomainError(c, err)
		}

		p := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, p)
		return c.JSON(PaginatedResponse{Data: points, Pagination: p})
	}
}

// UpdatePointHandler applies a partial update to a point.
func UpdatePointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return errBadRequest(c, "id must be an integer")
		}

		var req pointRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		point, err := deps.Points.Update(c.UserContext(), id, req.Name, req.Description, rawField(req.Location))
		if err != nil {
			return mapDomainError(c, err)
		}

		metrics.RecordsWritten.WithLabelValues("point", "updated").Inc()
		return c.JSON(point)
	}
}

// DeletePointHandler removes a point.
func DeletePointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return errBadRequest(c, "id must be an integer")
		}

		if err := deps.Points.Delete(c.UserContext(), id); err != nil {
			return mapDomainError(c, err)
		}

		metrics.RecordsWritten.WithLabelValues("point", "deleted").Inc()
		return c.SendStatus(204)
	}
}

// --- Polygons ---

type polygonRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Boundary    json.RawMessage `json:"boundary"`
}

// CreatePolygonHandler creates a polygon record.
func CreatePolygonHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req polygonRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.Name == nil || *req.Name == "" {
			return errBadRequest(c, "name is required")
		}
		if rawField(req.Boundary) == nil {
			return errBadRequest(c, "boundary is required")
		}

		var description string
		if req.Description != nil {
			description = *req.Description
		}

		polygon, err := deps.Polygons.Create(c.UserContext(), *req.Name, description, req.Boundary)
		if err != nil {
			return mapDomainError(c, err)
		}

		metrics.RecordsWritten.WithLabelValues("polygon", "created").Inc()
		return c.Status(201).JSON(polygon)
	}
}

// GetPolygonHandler returns a single polygon by id.
func GetPolygonHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return errBadRequest(c, "id must be an integer")
		}

		polygon, err := deps.Polygons.Get(c.UserContext(), id)
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(polygon)
	}
}

// ListPolygonsHandler returns a paginated list of polygons.
func ListPolygonsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)

		polygons, total, err := deps.Polygons.List(c.UserContext(), offset, limit)
		if err != nil {
			return mapDomainError(c, err)
		}

		p := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, p)
		return c.JSON(PaginatedResponse{Data: polygons, Pagination: p})
	}
}

// UpdatePolygonHandler applies a partial update to a polygon.
func UpdatePolygonHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return errBadRequest(c, "id must be an integer")
		}

		var req polygonRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		polygon, err := deps.Polygons.Update(c.UserContext(), id, req.Name, req.Description, rawField(req.Boundary))
		if err != nil {
			return mapDomainError(c, err)
		}

		metrics.RecordsWritten.WithLabelValues("polygon", "updated").Inc()
		return c.JSON(polygon)
	}
}

// DeletePolygonHandler removes a polygon.
func DeletePolygonHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return errBadRequest(c, "id must be an integer")
		}

		if err := deps.Polygons.Delete(c.UserContext(), id); err != nil {
			return mapDomainError(c, err)
		}

		metrics.RecordsWritten.WithLabelValues("polygon", "deleted").Inc()
		return c.SendStatus(204)
	}
}

// --- Spatial queries ---

type withinPolygonRequest struct {
	Polygon json.RawMessage `json:"polygon"`
}

// PointsWithinPolygonHandler returns all points covered by the query polygon.
func PointsWithinPolygonHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req withinPolygonRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if len(req.Polygon) == 0 {
			return errBadRequest(c, "polygon is required")
		}

		points, err := deps.Spatial.PointsWithinPolygon(c.UserContext(), req.Polygon)
		if err != nil {
			return mapDomainError(c, err)
		}

		metrics.SpatialQueries.WithLabelValues("within_polygon").Inc()
		return c.JSON(fiber.Map{"data": points})
	}
}

type containingPointRequest struct {
	Point json.RawMessage `json:"point"`
}

// PolygonsContainingPointHandler returns all polygons covering the query point.
func PolygonsContainingPointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req containingPointRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if len(req.Point) == 0 {
			return errBadRequest(c, "point is required")
		}

		polygons, err := deps.Spatial.PolygonsContainingPoint(c.UserContext(), req.Point)
		if err != nil {
			return mapDomainError(c, err)
		}

		metrics.SpatialQueries.WithLabelValues("containing_point").Inc()
		return c.JSON(fiber.Map{"data": polygons})
	}
}

type nearbyRequest struct {
	Point  json.RawMessage `json:"point"`
	Radius float64         `json:"radius"`
}

// PointsNearbyHandler returns points within a radius (meters) of a center
// point, ordered nearest first.
func PointsNearbyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req nearbyRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if len(req.Point) == 0 {
			return errBadRequest(c, "point is required")
		}
		if req.Radius <= 0 {
			return errBadRequest(c, "radius must be a positive number of meters")
		}

		points, err := deps.Spatial.PointsNearby(c.UserContext(), req.Point, req.Radius)
		if err != nil {
			return mapDomainError(c, err)
		}

		metrics.SpatialQueries.WithLabelValues("nearby").Inc()
		return c.JSON(fiber.Map{"data": points})
	}
}
