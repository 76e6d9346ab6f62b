package game

import (
	"context"
	"log/slog"

	"github.com/minefieldbot/minefield/minefield/config"
	"github.com/minefieldbot/minefield/minefield/database/models"
)

// FlipResult is the outcome of one coin flip.
type FlipResult int

const (
	FlipBoom FlipResult = iota
	FlipWin
	FlipLoss
)

func (r FlipResult) String() string {
	switch r {
	case FlipBoom:
		return "boom"
	case FlipWin:
		return "win"
	case FlipLoss:
		return "loss"
	}
	return "unknown"
}

// Flip stakes a fixed amount on a coin flip. A boom swallows the stake into
// the server's coffer pot and imposes the long lockout; otherwise it is an
// even win/loss where a win pays double the stake back. The next flip is
// gated on messages sent, not time.
func (e *Engine) Flip(ctx context.Context, user *models.User) (FlipResult, error) {
	if user.Currency < config.FlipCost {
		return 0, &PurchaseError{Cost: config.FlipCost}
	}
	if user.MessagesSinceCoinFlip < user.FlipLockout {
		return 0, &CooldownError{Perk: "Flip", Remaining: user.FlipLockout - user.MessagesSinceCoinFlip}
	}

	user.Currency -= config.FlipCost
	user.MessagesSinceCoinFlip = 0
	user.FlipLockout = config.FlipCooldown

	var result FlipResult
	switch {
	case e.rng.Intn(100) < config.FlipBoomChance:
		result = FlipBoom
		user.FlipLockout = config.FlipBoomCooldown
		if err := e.addToPot(ctx, user.ServerID, config.FlipCost); err != nil {
			return 0, err
		}
	case e.rng.Intn(2) == 0:
		result = FlipWin
		user.Currency += config.FlipWinPayout
		user.LifetimeCurrency += config.FlipWinPayout - config.FlipCost
	default:
		result = FlipLoss
		if err := e.addToPot(ctx, user.ServerID, config.FlipCost); err != nil {
			return 0, err
		}
	}

	if err := e.users.Update(ctx, user); err != nil {
		return 0, err
	}

	slog.Info("Coin flip",
		slog.String("type", "game"),
		slog.String("user_name", user.Username),
		slog.String("server_id", user.ServerID),
		slog.String("result", result.String()))
	return result, nil
}

func (e *Engine) addToPot(ctx context.Context, serverID string, amount int) error {
	if e.pot == nil {
		return nil
	}
	return e.pot.AddAmount(ctx, serverID, amount)
}
