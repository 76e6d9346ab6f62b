package game

import (
	"context"
	"log/slog"

	"github.com/minefieldbot/minefield/minefield/config"
	"github.com/minefieldbot/minefield/minefield/database/models"
)

// Linked perks bind two users together. Validation is shared: no self
// target, one provider per edge type per target, and at most one link of
// any type between the same two users.

// ActivateDeathPact binds a symmetric pact between two living users. Both
// sides pay the cost; the pact only ends when one of them dies.
func (e *Engine) ActivateDeathPact(ctx context.Context, user, target *models.User) error {
	if user.UserID == target.UserID {
		return ErrSelfTarget
	}
	if !user.IsAlive {
		return ErrUserDead
	}
	if !target.IsAlive {
		return ErrTargetDead
	}

	if pact, err := e.edges.GetDeathPact(ctx, user.ServerID, user.UserID); err != nil {
		return err
	} else if pact != nil {
		return ErrAlreadyBound
	}
	if pact, err := e.edges.GetDeathPact(ctx, target.ServerID, target.UserID); err != nil {
		return err
	} else if pact != nil {
		return ErrTargetBound
	}
	if err := e.checkNotLinked(ctx, user, target.UserID); err != nil {
		return err
	}

	cost := config.DeathPactCost
	if user.Currency < cost {
		return &PurchaseError{Cost: cost}
	}
	if target.Currency < cost {
		return ErrTargetFunds
	}

	user.Currency -= cost
	target.Currency -= cost

	if err := e.edges.Bind(ctx, &models.Relationship{
		Type:       models.EdgeDeathPact,
		ServerID:   user.ServerID,
		ProviderID: user.UserID,
		TargetID:   target.UserID,
	}); err != nil {
		return err
	}
	if err := e.users.SaveAll(ctx, user, target); err != nil {
		return err
	}

	e.logLink("Death pact bound", user, target)
	return nil
}

// ActivateLifeline revives a dead target: the provider pays the cost and
// both of them earn from the target's next messages until the charges run
// out.
func (e *Engine) ActivateLifeline(ctx context.Context, provider, target *models.User) error {
	if provider.UserID == target.UserID {
		return ErrSelfTarget
	}
	if rel, err := e.edges.GetByProvider(ctx, models.EdgeLifeline, provider.ServerID, provider.UserID); err != nil {
		return err
	} else if rel != nil {
		return ErrAlreadyBound
	}
	if target.IsAlive {
		return ErrTargetAlive
	}

	// Reviving the user who pledged to die in your place would make
	// sacrifice free; the target's outgoing sacrifice edge normally dies
	// with them, but a janitor unbind can leave it standing.
	if rel, err := e.edges.GetByProvider(ctx, models.EdgeSacrifice, target.ServerID, target.UserID); err != nil {
		return err
	} else if rel != nil && rel.TargetID == provider.UserID {
		return ErrSacrificeRevive
	}

	if err := e.checkNotLinked(ctx, provider, target.UserID); err != nil {
		return err
	}
	if provider.Currency < config.LifelineCost {
		return &PurchaseError{Cost: config.LifelineCost}
	}

	// Revival clears whatever edges the dead target still holds, so the
	// teardown has to run before the new lifeline is bound.
	touched := newUserSet(provider, target)
	if err := e.removeBoundPerks(ctx, target, touched); err != nil {
		return err
	}

	provider.Currency -= config.LifelineCost
	provider.LifelineCharges = config.LifelineCharges

	if err := e.edges.Bind(ctx, &models.Relationship{
		Type:       models.EdgeLifeline,
		ServerID:   provider.ServerID,
		ProviderID: provider.UserID,
		TargetID:   target.UserID,
	}); err != nil {
		return err
	}

	target.IsAlive = true
	target.CurrentOdds = target.MaxOdds
	target.CurrentStreak = 0

	if err := e.users.SaveAll(ctx, touched.all()...); err != nil {
		return err
	}

	e.events.UserRevived(target)
	e.logLink("Lifeline bound", provider, target)
	return nil
}

// ActivateSacrifice pledges the provider to die in the target's place. The
// target may already be someone else's sacrifice target, forming a chain,
// but the chain must never loop back.
func (e *Engine) ActivateSacrifice(ctx context.Context, provider, target *models.User) error {
	if provider.UserID == target.UserID {
		return ErrSelfTarget
	}
	if rel, err := e.edges.GetByProvider(ctx, models.EdgeSacrifice, provider.ServerID, provider.UserID); err != nil {
		return err
	} else if rel != nil {
		return ErrAlreadyBound
	}
	if rel, err := e.edges.GetByTarget(ctx, models.EdgeSacrifice, target.ServerID, target.UserID); err != nil {
		return err
	} else if rel != nil {
		return ErrTargetBound
	}
	if err := e.checkNotLinked(ctx, provider, target.UserID); err != nil {
		return err
	}
	if ok, err := e.CanAssignSacrifice(ctx, provider, target); err != nil {
		return err
	} else if !ok {
		return ErrSacrificeCycle
	}
	if provider.Currency < config.SacrificeCost {
		return &PurchaseError{Cost: config.SacrificeCost}
	}

	provider.Currency -= config.SacrificeCost

	if err := e.edges.Bind(ctx, &models.Relationship{
		Type:       models.EdgeSacrifice,
		ServerID:   provider.ServerID,
		ProviderID: provider.UserID,
		TargetID:   target.UserID,
	}); err != nil {
		return err
	}
	if err := e.users.Update(ctx, provider); err != nil {
		return err
	}

	e.logLink("Sacrifice bound", provider, target)
	return nil
}

// ActivateSymbiote latches the provider onto a living target's earnings for
// a fixed charge count.
func (e *Engine) ActivateSymbiote(ctx context.Context, provider, target *models.User) error {
	if provider.UserID == target.UserID {
		return ErrSelfTarget
	}
	if rel, err := e.edges.GetByProvider(ctx, models.EdgeSymbiote, provider.ServerID, provider.UserID); err != nil {
		return err
	} else if rel != nil {
		return ErrAlreadyBound
	}
	if rel, err := e.edges.GetByTarget(ctx, models.EdgeSymbiote, target.ServerID, target.UserID); err != nil {
		return err
	} else if rel != nil {
		return ErrTargetBound
	}
	if !target.IsAlive {
		return ErrTargetDead
	}
	if err := e.checkNotLinked(ctx, provider, target.UserID); err != nil {
		return err
	}
	if provider.Currency < config.SymbioteCost {
		return &PurchaseError{Cost: config.SymbioteCost}
	}

	provider.Currency -= config.SymbioteCost
	provider.SymbioteCharges = config.SymbioteCharges

	if err := e.edges.Bind(ctx, &models.Relationship{
		Type:       models.EdgeSymbiote,
		ServerID:   provider.ServerID,
		ProviderID: provider.UserID,
		TargetID:   target.UserID,
	}); err != nil {
		return err
	}
	if err := e.users.Update(ctx, provider); err != nil {
		return err
	}

	e.logLink("Symbiote bound", provider, target)
	return nil
}

// EndLifeline unbinds the provider's outgoing lifeline and forfeits the
// remaining charges. Returns the target's user ID for the reply.
func (e *Engine) EndLifeline(ctx context.Context, provider *models.User) (string, error) {
	return e.endConsumable(ctx, models.EdgeLifeline, provider)
}

// EndSymbiote unbinds the provider's outgoing symbiote and forfeits the
// remaining charges. Returns the target's user ID for the reply.
func (e *Engine) EndSymbiote(ctx context.Context, provider *models.User) (string, error) {
	return e.endConsumable(ctx, models.EdgeSymbiote, provider)
}

func (e *Engine) endConsumable(ctx context.Context, edgeType models.EdgeType, provider *models.User) (string, error) {
	rel, err := e.edges.GetByProvider(ctx, edgeType, provider.ServerID, provider.UserID)
	if err != nil {
		return "", err
	}
	if rel == nil {
		return "", ErrNotBound
	}
	if err := e.edges.Unbind(ctx, edgeType, rel.ServerID, rel.ProviderID, rel.TargetID); err != nil {
		return "", err
	}

	switch edgeType {
	case models.EdgeLifeline:
		provider.LifelineCharges = 0
	case models.EdgeSymbiote:
		provider.SymbioteCharges = 0
	}
	if err := e.users.Update(ctx, provider); err != nil {
		return "", err
	}
	return rel.TargetID, nil
}

// EndSacrifice releases the provider's pledge. Returns the target's user ID
// for the reply.
func (e *Engine) EndSacrifice(ctx context.Context, provider *models.User) (string, error) {
	rel, err := e.edges.GetByProvider(ctx, models.EdgeSacrifice, provider.ServerID, provider.UserID)
	if err != nil {
		return "", err
	}
	if rel == nil {
		return "", ErrNotBound
	}
	if err := e.edges.Unbind(ctx, models.EdgeSacrifice, rel.ServerID, rel.ProviderID, rel.TargetID); err != nil {
		return "", err
	}
	return rel.TargetID, nil
}

// CanAssignSacrifice walks the target's outgoing sacrifice chain and rejects
// the bind if the provider appears anywhere in it, or if any node repeats.
// A well-formed graph cannot already hold a cycle; the repeat check guards
// against corrupted data looping the walk forever.
func (e *Engine) CanAssignSacrifice(ctx context.Context, provider, target *models.User) (bool, error) {
	visited := map[string]bool{}
	currentID := target.UserID
	for currentID != "" {
		if currentID == provider.UserID {
			return false, nil
		}
		if visited[currentID] {
			return false, nil
		}
		visited[currentID] = true

		rel, err := e.edges.GetByProvider(ctx, models.EdgeSacrifice, target.ServerID, currentID)
		if err != nil {
			return false, err
		}
		if rel == nil {
			break
		}
		currentID = rel.TargetID
	}
	return true, nil
}

// checkNotLinked rejects a bind when any edge type already joins the two
// users, in either direction.
func (e *Engine) checkNotLinked(ctx context.Context, user *models.User, targetID string) error {
	linked, err := e.edges.LinkedUserIDs(ctx, user.ServerID, user.UserID)
	if err != nil {
		return err
	}
	for _, id := range linked {
		if id == targetID {
			return ErrAlreadyLinked
		}
	}
	return nil
}

func (e *Engine) logLink(msg string, provider, target *models.User) {
	slog.Info(msg,
		slog.String("type", "game"),
		slog.String("provider", provider.Username),
		slog.String("target", target.Username),
		slog.String("server_id", provider.ServerID))
}
