package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Coffer is the per-server jackpot pot. Opening flips to true once enough
// tickets are sold and blocks further purchases until the draw resets it.
type Coffer struct {
	bun.BaseModel `bun:"table:minefield_coffers,alias:mc"`

	ServerID string `bun:"server_id,pk"`
	Amount   int    `bun:"amount,notnull,default:0"`
	Opening  bool   `bun:"opening,notnull,default:false"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// CofferTicket is one user's entry count for a server's coffer draw. The n-th
// ticket costs base*2^(n-1), so Count also fixes the next ticket's price.
type CofferTicket struct {
	bun.BaseModel `bun:"table:minefield_coffer_tickets,alias:mt"`

	UserID   string `bun:"user_id,pk"`
	ServerID string `bun:"server_id,pk"`
	Count    int    `bun:"count,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
