package game

import (
	"context"

	"github.com/minefieldbot/minefield/minefield/config"
	"github.com/minefieldbot/minefield/minefield/database/models"
)

// Solo perks: validate, debit, persist. Every check runs before any state
// changes so a rejection leaves the user untouched.

// ActivateAegis buys a fresh set of roll-skipping charges. Gated by a
// message-count cooldown after the previous set ran out.
func (e *Engine) ActivateAegis(ctx context.Context, user *models.User) error {
	if user.AegisCharges > 0 {
		return ErrAlreadyActive
	}
	if user.MessagesSinceAegis < config.AegisCooldown {
		return &CooldownError{Perk: "Aegis", Remaining: config.AegisCooldown - user.MessagesSinceAegis}
	}
	if user.Currency < config.AegisCost {
		return &PurchaseError{Cost: config.AegisCost}
	}

	user.Currency -= config.AegisCost
	user.AegisCharges = config.AegisCharges
	user.MessagesSinceAegis = 0
	return e.users.Update(ctx, user)
}

// ActivateFortune buys a set of double-earnings charges.
func (e *Engine) ActivateFortune(ctx context.Context, user *models.User) error {
	if user.FortuneCharges > 0 {
		return ErrAlreadyActive
	}
	if user.Currency < config.FortuneCost {
		return &PurchaseError{Cost: config.FortuneCost}
	}

	user.Currency -= config.FortuneCost
	user.FortuneCharges = config.FortuneCharges
	return e.users.Update(ctx, user)
}

// ActivateGuardian buys a single mine negation.
func (e *Engine) ActivateGuardian(ctx context.Context, user *models.User) error {
	if user.HasGuardian {
		return ErrAlreadyActive
	}
	if user.MessagesSinceGuardian < config.GuardianCooldown {
		return &CooldownError{Perk: "Guardian", Remaining: config.GuardianCooldown - user.MessagesSinceGuardian}
	}
	if user.Currency < config.GuardianCost {
		return &PurchaseError{Cost: config.GuardianCost}
	}

	user.Currency -= config.GuardianCost
	user.HasGuardian = true
	user.MessagesSinceGuardian = 0
	return e.users.Update(ctx, user)
}

// ActivateLuck raises current odds toward max odds, paying per point. The
// requested amount is clamped to the available headroom before pricing.
func (e *Engine) ActivateLuck(ctx context.Context, user *models.User, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if user.CurrentOdds == user.MaxOdds {
		return ErrAtLimit
	}

	amount = minInt(amount, user.MaxOdds-user.CurrentOdds)
	cost := config.LuckCostPer * amount
	if user.Currency < cost {
		return &PurchaseError{Cost: cost}
	}

	user.Currency -= cost
	user.CurrentOdds += amount
	return e.users.Update(ctx, user)
}

// ActivateRestore raises max odds (and current odds with it) toward the
// ceiling, paying per point. The requested amount is clamped to the
// remaining headroom before pricing.
func (e *Engine) ActivateRestore(ctx context.Context, user *models.User, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if user.MaxOdds == config.MaxOddsCeiling {
		return ErrAtLimit
	}

	amount = minInt(amount, config.MaxOddsCeiling-user.MaxOdds)
	cost := config.RestoreCostPer * amount
	if user.Currency < cost {
		return &PurchaseError{Cost: cost}
	}

	user.Currency -= cost
	user.MaxOdds += amount
	user.CurrentOdds += amount
	return e.users.Update(ctx, user)
}
