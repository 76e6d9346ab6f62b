package game

import (
	"context"
	"errors"
	"testing"

	"github.com/minefieldbot/minefield/minefield/config"
)

func TestFlip(t *testing.T) {
	ctx := context.Background()

	t.Run("win", func(t *testing.T) {
		user := testUser("a")
		// First draw dodges the boom, second draw lands the win.
		e := NewEngine(newFakeUsers(user), &fakeEdges{}, &scriptedRand{values: []int{config.FlipBoomChance, 0}}, nil)

		result, err := e.Flip(ctx, user)
		if err != nil {
			t.Fatalf("Flip() error = %v", err)
		}
		if result != FlipWin {
			t.Fatalf("result = %v, want win", result)
		}
		if user.Currency != 1000-config.FlipCost+config.FlipWinPayout {
			t.Errorf("Currency = %d, want stake replaced by payout", user.Currency)
		}
		if user.LifetimeCurrency != 1000+config.FlipWinPayout-config.FlipCost {
			t.Errorf("LifetimeCurrency = %d, want net winnings credited", user.LifetimeCurrency)
		}
		if user.FlipLockout != config.FlipCooldown || user.MessagesSinceCoinFlip != 0 {
			t.Errorf("lockout = %d, counter = %d, want standard cooldown armed", user.FlipLockout, user.MessagesSinceCoinFlip)
		}
	})

	t.Run("loss feeds the pot", func(t *testing.T) {
		user := testUser("a")
		pot := newFakePot()
		e := NewEngine(newFakeUsers(user), &fakeEdges{}, &scriptedRand{values: []int{config.FlipBoomChance, 1}}, nil)
		e.SetPot(pot)

		result, err := e.Flip(ctx, user)
		if err != nil {
			t.Fatalf("Flip() error = %v", err)
		}
		if result != FlipLoss {
			t.Fatalf("result = %v, want loss", result)
		}
		if user.Currency != 1000-config.FlipCost {
			t.Errorf("Currency = %d, want stake gone", user.Currency)
		}
		if pot.amounts["srv"] != config.FlipCost {
			t.Errorf("pot = %d, want the stake", pot.amounts["srv"])
		}
	})

	t.Run("boom arms the long lockout", func(t *testing.T) {
		user := testUser("a")
		pot := newFakePot()
		e := NewEngine(newFakeUsers(user), &fakeEdges{}, &scriptedRand{values: []int{0}}, nil)
		e.SetPot(pot)

		result, err := e.Flip(ctx, user)
		if err != nil {
			t.Fatalf("Flip() error = %v", err)
		}
		if result != FlipBoom {
			t.Fatalf("result = %v, want boom", result)
		}
		if user.FlipLockout != config.FlipBoomCooldown {
			t.Errorf("FlipLockout = %d, want %d", user.FlipLockout, config.FlipBoomCooldown)
		}
		if pot.amounts["srv"] != config.FlipCost {
			t.Errorf("pot = %d, want the stake", pot.amounts["srv"])
		}
	})

	t.Run("gated on messages since the last flip", func(t *testing.T) {
		user := testUser("a")
		user.FlipLockout = config.FlipCooldown
		user.MessagesSinceCoinFlip = config.FlipCooldown - 2
		e := NewEngine(newFakeUsers(user), &fakeEdges{}, &scriptedRand{}, nil)

		var cooldown *CooldownError
		_, err := e.Flip(ctx, user)
		if !errors.As(err, &cooldown) {
			t.Fatalf("error = %v, want CooldownError", err)
		}
		if cooldown.Remaining != 2 {
			t.Errorf("Remaining = %d, want 2", cooldown.Remaining)
		}
	})

	t.Run("too poor to flip", func(t *testing.T) {
		user := testUser("a")
		user.Currency = config.FlipCost - 1
		e := NewEngine(newFakeUsers(user), &fakeEdges{}, &scriptedRand{}, nil)

		var purchase *PurchaseError
		if _, err := e.Flip(ctx, user); !errors.As(err, &purchase) {
			t.Errorf("error = %v, want PurchaseError", err)
		}
	})
}
