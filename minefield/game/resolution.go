package game

import (
	"context"
	"log/slog"

	"github.com/minefieldbot/minefield/minefield/config"
	"github.com/minefieldbot/minefield/minefield/database/models"
)

// SacrificePair is one resolved link of a sacrifice chain: Provider stepped
// in front of Target.
type SacrificePair struct {
	Provider *models.User
	Target   *models.User
}

// Resolution is the result of one fired trigger.
type Resolution struct {
	// GuardianSaved means the blast was negated on the victim; nobody died
	// and the chain was never walked.
	GuardianSaved bool
	// Sacrifices lists the chain links walked, innermost first.
	Sacrifices []SacrificePair
	// FinalVictim is who actually died: the outermost provider, or the
	// original victim if nobody pledged for them. Nil when GuardianSaved.
	FinalVictim *models.User
	// PactVictim is the death-pact partner dragged down with FinalVictim,
	// nil if none.
	PactVictim *models.User
}

// resolveTrigger runs the full protocol for one fired mine on user. It
// mutates users in touched; the caller persists the batch.
func (e *Engine) resolveTrigger(ctx context.Context, user *models.User, touched *userSet) (*Resolution, error) {
	res := &Resolution{}

	// Guardian only ever shields the blast victim itself; it is never
	// re-checked further down a sacrifice chain.
	if user.HasGuardian {
		user.HasGuardian = false
		user.CurrentStreak /= 2
		if err := e.applyOddsPenalty(ctx, user, touched); err != nil {
			return nil, err
		}
		res.GuardianSaved = true
		return res, nil
	}

	user.CurrentStreak /= 2
	if err := e.applyOddsPenalty(ctx, user, touched); err != nil {
		return nil, err
	}

	// Walk the sacrifice chain from the victim's immediate provider. Each
	// provider is paid their cut of the victim's currency, the edge is
	// unbound, and liability moves up one link. The outermost provider dies.
	finalVictim := user
	target := user
	visited := map[string]bool{user.UserID: true}
	for {
		rel, err := e.edges.GetByTarget(ctx, models.EdgeSacrifice, target.ServerID, target.UserID)
		if err != nil {
			return nil, err
		}
		if rel == nil {
			break
		}
		provider, err := e.fetchUser(ctx, touched, rel.ProviderID, rel.ServerID)
		if err != nil {
			return nil, err
		}
		if err := e.edges.Unbind(ctx, models.EdgeSacrifice, rel.ServerID, rel.ProviderID, rel.TargetID); err != nil {
			return nil, err
		}
		if provider == nil {
			// Dangling provider record; the edge is gone, nothing more to walk.
			break
		}
		if visited[provider.UserID] {
			// A cycle cannot be bound in the first place; stop rather than spin.
			slog.Error("Sacrifice chain revisited a user",
				slog.String("type", "game"),
				slog.String("user_id", provider.UserID),
				slog.String("server_id", provider.ServerID))
			break
		}
		visited[provider.UserID] = true

		res.Sacrifices = append(res.Sacrifices, SacrificePair{Provider: provider, Target: target})
		provider.Currency += user.Currency / config.SacrificeCutDivisor

		finalVictim = provider
		target = provider
	}

	// The death-pact partner must be resolved before teardown removes the
	// pact row.
	var partner *models.User
	if pact, err := e.edges.GetDeathPact(ctx, finalVictim.ServerID, finalVictim.UserID); err != nil {
		return nil, err
	} else if pact != nil {
		partner, err = e.fetchUser(ctx, touched, pact.Other(finalVictim.UserID), finalVictim.ServerID)
		if err != nil {
			return nil, err
		}
	}

	if err := e.kill(ctx, finalVictim, touched); err != nil {
		return nil, err
	}
	res.FinalVictim = finalVictim

	// Death-pact death bypasses the partner's guardian and sacrifice chain.
	if partner != nil && partner.IsAlive {
		if err := e.kill(ctx, partner, touched); err != nil {
			return nil, err
		}
		res.PactVictim = partner
	}

	return res, nil
}

// applyOddsPenalty reduces max odds for a trigger, doubled-ish for death
// pacts and applied to both pact members, then clamps current odds.
func (e *Engine) applyOddsPenalty(ctx context.Context, user *models.User, touched *userSet) error {
	pact, err := e.edges.GetDeathPact(ctx, user.ServerID, user.UserID)
	if err != nil {
		return err
	}

	if pact != nil {
		partner, err := e.fetchUser(ctx, touched, pact.Other(user.UserID), user.ServerID)
		if err != nil {
			return err
		}
		user.MaxOdds = maxInt(user.MaxOdds-config.PactDeathPenalty, config.MinOdds)
		if partner != nil {
			partner.MaxOdds = maxInt(partner.MaxOdds-config.PactDeathPenalty, config.MinOdds)
			partner.CurrentOdds = minInt(partner.CurrentOdds, partner.MaxOdds)
		}
	} else {
		user.MaxOdds = maxInt(user.MaxOdds-config.DeathPenalty, config.MinOdds)
	}

	user.CurrentOdds = minInt(user.CurrentOdds, user.MaxOdds)
	return nil
}

// kill marks the user dead, tears down every bound perk in both directions
// and emits the death event.
func (e *Engine) kill(ctx context.Context, user *models.User, touched *userSet) error {
	user.IsAlive = false
	if err := e.removeBoundPerks(ctx, user, touched); err != nil {
		return err
	}
	e.events.UserDied(user)
	slog.Info("User died",
		slog.String("type", "game"),
		slog.String("user_name", user.Username),
		slog.String("server_id", user.ServerID))
	return nil
}

// removeBoundPerks tears down all four edge types touching the user in both
// roles and zeroes the perk state on everyone affected. Idempotent: calling
// it on an unbound user does nothing.
func (e *Engine) removeBoundPerks(ctx context.Context, user *models.User, touched *userSet) error {
	// A provider's remaining charges live on the provider, so edges where
	// this user is the target must zero the other side's counter too.
	for _, edgeType := range []models.EdgeType{models.EdgeLifeline, models.EdgeSymbiote} {
		rel, err := e.edges.GetByTarget(ctx, edgeType, user.ServerID, user.UserID)
		if err != nil {
			return err
		}
		if rel == nil {
			continue
		}
		provider, err := e.fetchUser(ctx, touched, rel.ProviderID, rel.ServerID)
		if err != nil {
			return err
		}
		if provider != nil {
			switch edgeType {
			case models.EdgeLifeline:
				provider.LifelineCharges = 0
			case models.EdgeSymbiote:
				provider.SymbioteCharges = 0
			}
		}
	}

	if err := e.edges.DeleteAllFor(ctx, user.ServerID, user.UserID); err != nil {
		return err
	}

	user.AegisCharges = 0
	user.FortuneCharges = 0
	user.HasGuardian = false
	user.LifelineCharges = 0
	user.SymbioteCharges = 0
	return nil
}

// Revive brings a dead user back: odds reset to their max, streak cleared,
// every bound perk torn down. Emits UserRevived so the access layer can
// restore channel permissions.
func (e *Engine) Revive(ctx context.Context, user *models.User) error {
	if user.IsAlive {
		return ErrUserAlive
	}

	touched := newUserSet(user)
	if err := e.removeBoundPerks(ctx, user, touched); err != nil {
		return err
	}

	user.IsAlive = true
	user.CurrentOdds = user.MaxOdds
	user.CurrentStreak = 0

	if err := e.users.SaveAll(ctx, touched.all()...); err != nil {
		return err
	}

	e.events.UserRevived(user)
	slog.Info("User revived",
		slog.String("type", "game"),
		slog.String("user_name", user.Username),
		slog.String("server_id", user.ServerID))
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
