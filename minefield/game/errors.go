package game

import (
	"errors"
	"fmt"

	"github.com/minefieldbot/minefield/minefield/database/repositories"
)

// Precondition failures for perk, arena, coffer and flip operations. Every
// one of these is raised before any state mutation; the commands layer maps
// them to user-facing messages.
var (
	ErrInsufficientFunds = errors.New("not enough currency")
	ErrSelfTarget        = errors.New("cannot target yourself")
	ErrAlreadyActive     = errors.New("perk already active")
	ErrAlreadyBound      = errors.New("you already have this perk bound")
	ErrNotBound          = errors.New("you do not have this perk bound")
	ErrTargetBound       = errors.New("target already has this perk bound")
	ErrAlreadyLinked     = errors.New("already linked to that user with another perk")
	ErrTargetDead        = errors.New("target user is dead")
	ErrTargetAlive       = errors.New("target user is still alive")
	ErrTargetFunds       = errors.New("target cannot afford this perk")
	ErrSacrificeCycle    = errors.New("binding would form a sacrifice loop")
	ErrSacrificeRevive   = errors.New("cannot lifeline a user who sacrificed themself for you")
	ErrAtLimit           = errors.New("cannot be improved any further")
	ErrUserDead          = errors.New("user is dead")
	ErrUserAlive         = errors.New("user is already alive")

	ErrArenaActive   = errors.New("an arena is already active")
	ErrNoArena       = errors.New("there is no arena to join")
	ErrArenaJoined   = errors.New("already in the arena")
	ErrArenaClosed   = errors.New("the arena has already started")
	ErrInvalidBuyIn  = errors.New("arena buy in must be positive")
	ErrCofferOpening = errors.New("the coffer is already opening")
	ErrNoTickets     = errors.New("no tickets have been sold")
	ErrInvalidAmount = errors.New("amount must be greater than 0")
)

// CooldownError reports how many more messages the user must send before the
// perk can be bought again.
type CooldownError struct {
	Perk      string
	Remaining int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s on cooldown for %d more messages", e.Perk, e.Remaining)
}

// PurchaseError wraps ErrInsufficientFunds with the price the user was short
// of, for "you need N" replies.
type PurchaseError struct {
	Cost int
}

func (e *PurchaseError) Error() string {
	return fmt.Sprintf("not enough currency: %d required", e.Cost)
}

func (e *PurchaseError) Unwrap() error {
	return ErrInsufficientFunds
}

// isNotFound reports whether err is the store's missing-record error. A
// dangling edge endpoint resolves to "no relationship", never a failure.
func isNotFound(err error) bool {
	var nfe *repositories.NotFoundError
	return errors.As(err, &nfe)
}
