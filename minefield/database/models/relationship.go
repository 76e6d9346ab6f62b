package models

import (
	"time"

	"github.com/uptrace/bun"
)

// EdgeType identifies one of the four linked-perk bindings.
type EdgeType string

const (
	EdgeDeathPact EdgeType = "death_pact"
	EdgeLifeline  EdgeType = "lifeline"
	EdgeSacrifice EdgeType = "sacrifice"
	EdgeSymbiote  EdgeType = "symbiote"
)

// EdgeTypes lists every linked-perk edge type, used for teardown sweeps.
var EdgeTypes = []EdgeType{EdgeDeathPact, EdgeLifeline, EdgeSacrifice, EdgeSymbiote}

// Relationship is one directed linked-perk edge. The provider bought the perk,
// the target is who it is bound to. Death pacts are symmetric and are stored as
// a single row; lookups for them match either column.
//
// Uniqueness per (type, server, provider) and (type, server, target) is what
// keeps the graph a set of chains rather than a tangle: a user holds at most
// one outgoing and one incoming edge of each type.
type Relationship struct {
	bun.BaseModel `bun:"table:minefield_relationships,alias:mr"`

	ID         int64    `bun:"id,pk,autoincrement"`
	Type       EdgeType `bun:"edge_type,notnull"`
	ServerID   string   `bun:"server_id,notnull"`
	ProviderID string   `bun:"provider_id,notnull"`
	TargetID   string   `bun:"target_id,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Other returns the opposite endpoint of a symmetric edge, or "" if userID is
// not on the edge at all.
func (r *Relationship) Other(userID string) string {
	switch userID {
	case r.ProviderID:
		return r.TargetID
	case r.TargetID:
		return r.ProviderID
	}
	return ""
}
