package game

import (
	"context"

	"github.com/minefieldbot/minefield/minefield/database/models"
)

// UserStore is the slice of the user repository the engine needs. The bun
// repository satisfies it; tests use an in-memory fake.
type UserStore interface {
	Get(ctx context.Context, userID, serverID string) (*models.User, error)
	GetOrCreate(ctx context.Context, userID, serverID, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	SaveAll(ctx context.Context, users ...*models.User) error
	CountParticipants(ctx context.Context, serverID string) (int, error)
}

// EdgeStore is the slice of the relationship repository the engine needs.
// Lookups return (nil, nil) when no edge exists.
type EdgeStore interface {
	Bind(ctx context.Context, rel *models.Relationship) error
	Unbind(ctx context.Context, edgeType models.EdgeType, serverID, providerID, targetID string) error
	GetByProvider(ctx context.Context, edgeType models.EdgeType, serverID, providerID string) (*models.Relationship, error)
	GetByTarget(ctx context.Context, edgeType models.EdgeType, serverID, targetID string) (*models.Relationship, error)
	GetDeathPact(ctx context.Context, serverID, userID string) (*models.Relationship, error)
	LinkedUserIDs(ctx context.Context, serverID, userID string) ([]string, error)
	DeleteAllFor(ctx context.Context, serverID, userID string) error
}
