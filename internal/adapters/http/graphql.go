package http

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/geoplane/internal/core/domain"
)

// geometryField resolves a domain.Geometry field to its GeoJSON text form.
// graphql-go has no native geometry scalar, so clients exchange GeoJSON
// strings both ways.
func geometryField(get func(source interface{}) *domain.Geometry) *graphql.Field {
	return &graphql.Field{
		Type: graphql.String,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			g := get(p.Source)
			if g == nil {
				return nil, nil
			}
			data, err := json.Marshal(g)
			if err != nil {
				return nil, err
			}
			return string(data), nil
		},
	}
}

// requireViewer returns the authenticated username from the resolver context
// or rejects the operation.
func requireViewer(ctx context.Context) (string, error) {
	if username, ok := ctx.Value(usernameKey).(string); ok && username != "" {
		return username, nil
	}
	return "", fmt.Errorf("authentication required")
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	pointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Point",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Int},
			"name":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"location": geometryField(func(source interface{}) *domain.Geometry {
				switch v := source.(type) {
				case domain.Point:
					return v.Location
				case *domain.Point:
					return v.Location
				}
				return nil
			}),
			"distance":   &graphql.Field{Type: graphql.Float},
			"created_at": &graphql.Field{Type: graphql.String},
		},
	})

	polygonType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Polygon",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Int},
			"name":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"boundary": geometryField(func(source interface{}) *domain.Geometry {
				switch v := source.(type) {
				case domain.Polygon:
					return v.Boundary
				case *domain.Polygon:
					return v.Boundary
				}
				return nil
			}),
			"created_at": &graphql.Field{Type: graphql.String},
		},
	})

	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.Int},
			"username": &graphql.Field{Type: graphql.String},
		},
	})

	tokenType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Token",
		Fields: graphql.Fields{
			"access_token": &graphql.Field{Type: graphql.String},
			"token_type":   &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"points": &graphql.Field{
				Type:        graphql.NewList(pointType),
				Description: "List point records",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireViewer(p.Context); err != nil {
						return nil, err
					}
					points, _, err := deps.Points.List(p.Context, p.Args["offset"].(int), p.Args["limit"].(int))
					return points, err
				},
			},
			"point": &graphql.Field{
				Type:        pointType,
				Description: "Get a point by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireViewer(p.Context); err != nil {
						return nil, err
					}
					return deps.Points.Get(p.Context, int64(p.Args["id"].(int)))
				},
			},
			"polygons": &graphql.Field{
				Type:        graphql.NewList(polygonType),
				Description: "List polygon records",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireViewer(p.Context); err != nil {
						return nil, err
					}
					polygons, _, err := deps.Polygons.List(p.Context, p.Args["offset"].(int), p.Args["limit"].(int))
					return polygons, err
				},
			},
			"polygon": &graphql.Field{
				Type:        polygonType,
				Description: "Get a polygon by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireViewer(p.Context); err != nil {
						return nil, err
					}
					return deps.Polygons.Get(p.Context, int64(p.Args["id"].(int)))
				},
			},
			"pointsWithinPolygon": &graphql.Field{
				Type:        graphql.NewList(pointType),
				Description: "Points covered by a GeoJSON polygon, boundary inclusive",
				Args: graphql.FieldConfigArgument{
					"polygon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireViewer(p.Context); err != nil {
						return nil, err
					}
					return deps.Spatial.PointsWithinPolygon(p.Context, []byte(p.Args["polygon"].(string)))
				},
			},
			"polygonsContainingPoint": &graphql.Field{
				Type:        graphql.NewList(polygonType),
				Description: "Polygons whose boundary covers a GeoJSON point",
				Args: graphql.FieldConfigArgument{
					"point": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireViewer(p.Context); err != nil {
						return nil, err
					}
					return deps.Spatial.PolygonsContainingPoint(p.Context, []byte(p.Args["point"].(string)))
				},
			},
			"pointsNearby": &graphql.Field{
				Type:        graphql.NewList(pointType),
				Description: "Points within radius meters of a GeoJSON point, nearest first",
				Args: graphql.FieldConfigArgument{
					"point":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"radius": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireViewer(p.Context); err != nil {
						return nil, err
					}
					return deps.Spatial.PointsNearby(p.Context, []byte(p.Args["point"].(string)), p.Args["radius"].(float64))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"register": &graphql.Field{
				Type:        userType,
				Description: "Create a new account",
				Args: graphql.FieldConfigArgument{
					"username": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Auth.Register(p.Context, p.Args["username"].(string), p.Args["password"].(string))
				},
			},
			"login": &graphql.Field{
				Type:        tokenType,
				Description: "Exchange credentials for a bearer token",
				Args: graphql.FieldConfigArgument{
					"username": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					token, err := deps.Auth.Login(p.Context, p.Args["username"].(string), p.Args["password"].(string))
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"access_token": token,
						"token_type":   "bearer",
					}, nil
				},
			},
			"createPoint": &graphql.Field{
				Type: pointType,
				Args: graphql.FieldConfigArgument{
					"name":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"description": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"location":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireViewer(p.Context); err != nil {
						return nil, err
					}
					return deps.Points.Create(p.Context,
						p.Args["name"].(string),
						p.Args["description"].(string),
						[]byte(p.Args["location"].(string)))
				},
			},
			"updatePoint": &graphql.Field{
				Type: pointType,
				Args: graphql.FieldConfigArgument{
					"id":          &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"name":        &graphql.ArgumentConfig{Type: graphql.String},
					"description": &graphql.ArgumentConfig{Type: graphql.String},
					"location":    &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireViewer(p.Context); err != nil {
						return nil, err
					}
					name, description := optionalString(p, "name"), optionalString(p, "description")
					var location []byte
					if s, ok := p.Args["location"].(string); ok {
						location = []byte(s)
					}
					return deps.Points.Update(p.Context, int64(p.Args["id"].(int)), name, description, location)
				},
			},
			"deletePoint": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireViewer(p.Context); err != nil {
						return nil, err
					}
					if err := deps.Points.Delete(p.Context, int64(p.Args["id"].(int))); err != nil {
						return nil, err
					}
					return true, nil
				},
			},
			"createPolygon": &graphql.Field{
				Type: polygonType,
				Args: graphql.FieldConfigArgument{
					"name":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"description": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"boundary":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireViewer(p.Context); err != nil {
						return nil, err
					}
					return deps.Polygons.Create(p.Context,
						p.Args["name"].(string),
						p.Args["description"].(string),
						[]byte(p.Args["boundary"].(string)))
				},
			},
			"updatePolygon": &graphql.Field{
				Type: polygonType,
				Args: graphql.FieldConfigArgument{
					"id":          &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"name":        &graphql.ArgumentConfig{Type: graphql.String},
					"description": &graphql.ArgumentConfig{Type: graphql.String},
					"boundary":    &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireViewer(p.Context); err != nil {
						return nil, err
					}
					name, description := optionalString(p, "name"), optionalString(p, "description")
					var boundary []byte
					if s, ok := p.Args["boundary"].(string); ok {
						boundary = []byte(s)
					}
					return deps.Polygons.Update(p.Context, int64(p.Args["id"].(int)), name, description, boundary)
				},
			},
			"deletePolygon": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if _, err := requireViewer(p.Context); err != nil {
						return nil, err
					}
					if err := deps.Polygons.Delete(p.Context, int64(p.Args["id"].(int))); err != nil {
						return nil, err
					}
					return true, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func optionalString(p graphql.ResolveParams, key string) *string {
	if s, ok := p.Args[key].(string); ok {
		return &s
	}
	return nil
}

// GraphQLHandler serves the GraphQL endpoint. The route itself is open so
// register/login mutations work; everything else checks the viewer injected
// from the bearer token here.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		ctx := c.UserContext()
		if token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "); ok && token != "" {
			if username, err := deps.Auth.ValidateToken(token); err == nil {
				ctx = context.WithValue(ctx, usernameKey, username)
			}
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        ctx,
		})

		return c.JSON(result)
	}
}
