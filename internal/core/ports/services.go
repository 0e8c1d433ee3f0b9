package ports

import (
	"context"

	"github.com/samirrijal/geoplane/internal/core/domain"
)

// EventPublisher publishes record-change events to a message broker.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, ev *domain.RecordEvent) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// TokenService issues and validates stateless bearer tokens. Validation is a
// pure function of the token and the shared signing secret.
type TokenService interface {
	Issue(username string) (string, error)
	Validate(token string) (username string, err error)
}
