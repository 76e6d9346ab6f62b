package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/minefieldbot/minefield/minefield/database/models"
	"github.com/uptrace/bun"
)

// RelationshipRepository owns the linked-perk edge table. Lookups return
// (nil, nil) when no edge exists: a missing or dangling edge is "no
// relationship", never an error the engine has to special-case.
type RelationshipRepository interface {
	Bind(ctx context.Context, rel *models.Relationship) error
	Unbind(ctx context.Context, edgeType models.EdgeType, serverID, providerID, targetID string) error
	GetByProvider(ctx context.Context, edgeType models.EdgeType, serverID, providerID string) (*models.Relationship, error)
	GetByTarget(ctx context.Context, edgeType models.EdgeType, serverID, targetID string) (*models.Relationship, error)
	GetDeathPact(ctx context.Context, serverID, userID string) (*models.Relationship, error)
	LinkedUserIDs(ctx context.Context, serverID, userID string) ([]string, error)
	DeleteAllFor(ctx context.Context, serverID, userID string) error
}

type relationshipRepository struct {
	db *bun.DB
}

func NewRelationshipRepository(db *bun.DB) RelationshipRepository {
	return &relationshipRepository{db: db}
}

func (r *relationshipRepository) Bind(ctx context.Context, rel *models.Relationship) error {
	_, err := r.db.NewInsert().Model(rel).Exec(ctx)
	if err != nil {
		return &RepositoryError{Operation: "Bind", Entity: string(rel.Type), Err: err}
	}
	slog.Debug("Bound relationship",
		slog.String("type", "db"),
		slog.String("edge_type", string(rel.Type)),
		slog.String("provider_id", rel.ProviderID),
		slog.String("target_id", rel.TargetID))
	return nil
}

// Unbind removes the edge matching both endpoints. Removing an already-absent
// edge is a no-op, so teardown sweeps are idempotent.
func (r *relationshipRepository) Unbind(ctx context.Context, edgeType models.EdgeType, serverID, providerID, targetID string) error {
	_, err := r.db.NewDelete().
		Model((*models.Relationship)(nil)).
		Where("edge_type = ? AND server_id = ? AND provider_id = ? AND target_id = ?",
			edgeType, serverID, providerID, targetID).
		Exec(ctx)
	if err != nil {
		return &RepositoryError{Operation: "Unbind", Entity: string(edgeType), Err: err}
	}
	return nil
}

func (r *relationshipRepository) GetByProvider(ctx context.Context, edgeType models.EdgeType, serverID, providerID string) (*models.Relationship, error) {
	return r.getOne(ctx, "edge_type = ? AND server_id = ? AND provider_id = ?", edgeType, serverID, providerID)
}

func (r *relationshipRepository) GetByTarget(ctx context.Context, edgeType models.EdgeType, serverID, targetID string) (*models.Relationship, error) {
	return r.getOne(ctx, "edge_type = ? AND server_id = ? AND target_id = ?", edgeType, serverID, targetID)
}

// GetDeathPact matches either endpoint; a pact is one row regardless of who
// bought it.
func (r *relationshipRepository) GetDeathPact(ctx context.Context, serverID, userID string) (*models.Relationship, error) {
	return r.getOne(ctx, "edge_type = ? AND server_id = ? AND (provider_id = ? OR target_id = ?)",
		models.EdgeDeathPact, serverID, userID, userID)
}

func (r *relationshipRepository) getOne(ctx context.Context, where string, args ...interface{}) (*models.Relationship, error) {
	rel := new(models.Relationship)
	err := r.db.NewSelect().
		Model(rel).
		Where(where, args...).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, &RepositoryError{Operation: "Get", Entity: "relationship", Err: err}
	}
	return rel, nil
}

// LinkedUserIDs returns every user this one is bound to through any edge type
// in either role. Used for the one-bound-link-per-pair rule.
func (r *relationshipRepository) LinkedUserIDs(ctx context.Context, serverID, userID string) ([]string, error) {
	var rels []*models.Relationship
	err := r.db.NewSelect().
		Model(&rels).
		Where("server_id = ? AND (provider_id = ? OR target_id = ?)", serverID, userID, userID).
		Scan(ctx)
	if err != nil {
		return nil, &RepositoryError{Operation: "LinkedUserIDs", Entity: "relationship", Err: err}
	}

	seen := make(map[string]bool, len(rels))
	linked := make([]string, 0, len(rels))
	for _, rel := range rels {
		other := rel.Other(userID)
		if other != "" && !seen[other] {
			seen[other] = true
			linked = append(linked, other)
		}
	}
	return linked, nil
}

// DeleteAllFor drops every edge touching the user in either role. Called on
// death and reset; safe for an already-unbound user.
func (r *relationshipRepository) DeleteAllFor(ctx context.Context, serverID, userID string) error {
	_, err := r.db.NewDelete().
		Model((*models.Relationship)(nil)).
		Where("server_id = ? AND (provider_id = ? OR target_id = ?)", serverID, userID, userID).
		Exec(ctx)
	if err != nil {
		return &RepositoryError{Operation: "DeleteAllFor", Entity: "relationship", Err: err}
	}
	return nil
}
