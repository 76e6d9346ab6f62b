package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is one participant in one server's minefield. The natural key is
// (user_id, server_id); the same Discord account playing in two servers is
// two independent records.
type User struct {
	bun.BaseModel `bun:"table:minefield_users,alias:mu"`

	UserID   string `bun:"user_id,pk"`
	ServerID string `bun:"server_id,pk"`
	Username string `bun:"username,notnull"`

	CurrentOdds      int  `bun:"current_odds,notnull,default:50"`
	MaxOdds          int  `bun:"max_odds,notnull,default:50"`
	CurrentStreak    int  `bun:"current_streak,notnull,default:0"`
	Currency         int  `bun:"currency,notnull,default:0"`
	LifetimeCurrency int  `bun:"lifetime_currency,notnull,default:0"`
	TotalMessages    int  `bun:"total_messages,notnull,default:0"`
	IsAlive          bool `bun:"is_alive,notnull,default:true"`
	IsImmune         bool `bun:"is_immune,notnull,default:false"`

	// Active perk charges
	AegisCharges    int  `bun:"aegis_charges,notnull,default:0"`
	FortuneCharges  int  `bun:"fortune_charges,notnull,default:0"`
	LifelineCharges int  `bun:"lifeline_charges,notnull,default:0"`
	SymbioteCharges int  `bun:"symbiote_charges,notnull,default:0"`
	HasGuardian     bool `bun:"has_guardian,notnull,default:false"`

	// Cooldown counters, in messages sent since the perk was depleted. They
	// start at the cooldown length so a fresh user can buy immediately.
	MessagesSinceAegis    int `bun:"messages_since_aegis,notnull,default:20"`
	MessagesSinceGuardian int `bun:"messages_since_guardian,notnull,default:15"`
	MessagesSinceCoinFlip int `bun:"messages_since_coin_flip,notnull,default:20"`
	FlipLockout           int `bun:"flip_lockout,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// NewUser returns a fresh record with the starting odds and empty balances.
func NewUser(userID, serverID, username string) *User {
	now := time.Now()
	return &User{
		UserID:                userID,
		ServerID:              serverID,
		Username:              username,
		CurrentOdds:           StartingOdds,
		MaxOdds:               StartingOdds,
		IsAlive:               true,
		MessagesSinceAegis:    20,
		MessagesSinceGuardian: 15,
		MessagesSinceCoinFlip: 20,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// StartingOdds is the 1-in-N denominator every user begins and revives at.
const StartingOdds = 50
