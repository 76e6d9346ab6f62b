package game

import (
	"context"
	"log/slog"

	"github.com/minefieldbot/minefield/minefield/config"
	"github.com/minefieldbot/minefield/minefield/database/models"
)

// Engine runs the per-message economy: streak and currency accrual, perk
// charges, the mine roll, and trigger resolution. All state flows through the
// injected stores; the engine holds nothing per-server in memory.
type Engine struct {
	users  UserStore
	edges  EdgeStore
	rng    Rand
	events EventSink
	pot    PotStore
}

// PotStore receives house deposits (coin-flip stakes) for a server's coffer.
type PotStore interface {
	AddAmount(ctx context.Context, serverID string, amount int) error
}

func NewEngine(users UserStore, edges EdgeStore, rng Rand, events EventSink) *Engine {
	if rng == nil {
		rng = NewRand()
	}
	if events == nil {
		events = NopSink{}
	}
	return &Engine{users: users, edges: edges, rng: rng, events: events}
}

// SetPot wires the coffer deposit sink; optional, flips just skip the house
// cut without it.
func (e *Engine) SetPot(pot PotStore) {
	e.pot = pot
}

// RollOutcome reports one processed message. Roll is 0 when no roll happened
// (dead or immune user, or aegis charge consumed).
type RollOutcome struct {
	Dead       bool
	Immune     bool
	Odds       int
	Roll       int
	Rolled     bool
	AegisUsed  bool
	Triggered  bool
	CloseCall  bool
	Earnings   int
	Resolution *Resolution
}

// ProcessMessage applies one non-command message from user: accrual, earnings
// fan-out, the roll, and (on a trigger) full resolution. All touched users are
// persisted in one batch before the outcome is returned.
func (e *Engine) ProcessMessage(ctx context.Context, user *models.User) (*RollOutcome, error) {
	if !user.IsAlive {
		return &RollOutcome{Dead: true}, nil
	}
	if user.IsImmune {
		// Immune users chat without playing: no accrual, no roll, no decay.
		return &RollOutcome{Immune: true}, nil
	}

	touched := newUserSet(user)

	user.CurrentStreak++
	user.TotalMessages++

	// Cooldowns tick only while the perk is spent.
	if user.AegisCharges == 0 {
		user.MessagesSinceAegis++
	}
	if !user.HasGuardian {
		user.MessagesSinceGuardian++
	}
	user.MessagesSinceCoinFlip++

	earnings := user.CurrentStreak
	if user.FortuneCharges > 0 {
		user.FortuneCharges--
		earnings *= 2
	}
	if err := e.payoutEarnings(ctx, user, earnings, touched); err != nil {
		return nil, err
	}

	aegisUsed := user.AegisCharges > 0
	if aegisUsed {
		user.AegisCharges--
	}

	outcome := &RollOutcome{
		Odds:      user.CurrentOdds,
		AegisUsed: aegisUsed,
		Earnings:  earnings,
	}

	if !aegisUsed {
		outcome.Rolled = true
		outcome.Roll = e.rng.Intn(user.CurrentOdds) + 1
		outcome.Triggered = outcome.Roll == user.CurrentOdds
	}

	if outcome.Triggered {
		// Resolution applies the max-odds penalty itself; decay must not
		// stack on top of it in the same turn.
		res, err := e.resolveTrigger(ctx, user, touched)
		if err != nil {
			return nil, err
		}
		outcome.Resolution = res
	} else {
		if user.CurrentOdds > config.MinOdds {
			user.CurrentOdds--
		}
		outcome.CloseCall = outcome.Rolled && outcome.Odds-outcome.Roll <= config.CloseCallMargin
	}

	if err := e.users.SaveAll(ctx, touched.all()...); err != nil {
		return nil, err
	}

	if outcome.Triggered {
		slog.Info("Mine triggered",
			slog.String("type", "game"),
			slog.String("user_name", user.Username),
			slog.String("server_id", user.ServerID),
			slog.Int("odds", outcome.Odds),
			slog.Int("roll", outcome.Roll))
	}
	return outcome, nil
}

// ToggleImmunity flips the janitor immunity flag and persists it. An immune
// user's record is frozen until toggled back.
func (e *Engine) ToggleImmunity(ctx context.Context, user *models.User) (bool, error) {
	user.IsImmune = !user.IsImmune
	if err := e.users.Update(ctx, user); err != nil {
		return user.IsImmune, err
	}
	return user.IsImmune, nil
}

// payoutEarnings credits the acting user and fans the same amount out to the
// death-pact partner and any lifeline/symbiote providers. The amount is
// computed once for the actor, never per recipient.
func (e *Engine) payoutEarnings(ctx context.Context, user *models.User, amount int, touched *userSet) error {
	user.Currency += amount
	user.LifetimeCurrency += amount

	if pact, err := e.edges.GetDeathPact(ctx, user.ServerID, user.UserID); err != nil {
		return err
	} else if pact != nil {
		partner, err := e.fetchUser(ctx, touched, pact.Other(user.UserID), user.ServerID)
		if err != nil {
			return err
		}
		if partner != nil {
			partner.Currency += amount
			partner.LifetimeCurrency += amount
		}
	}

	if err := e.payProvider(ctx, models.EdgeLifeline, user, amount, touched); err != nil {
		return err
	}
	return e.payProvider(ctx, models.EdgeSymbiote, user, amount, touched)
}

// payProvider credits a consumable provider edge (lifeline or symbiote),
// decrements its charges and unbinds at zero.
func (e *Engine) payProvider(ctx context.Context, edgeType models.EdgeType, user *models.User, amount int, touched *userSet) error {
	rel, err := e.edges.GetByTarget(ctx, edgeType, user.ServerID, user.UserID)
	if err != nil || rel == nil {
		return err
	}
	provider, err := e.fetchUser(ctx, touched, rel.ProviderID, user.ServerID)
	if err != nil {
		return err
	}
	if provider == nil {
		// Dangling edge; drop it and move on.
		return e.edges.Unbind(ctx, edgeType, rel.ServerID, rel.ProviderID, rel.TargetID)
	}

	provider.Currency += amount
	provider.LifetimeCurrency += amount

	var charges *int
	switch edgeType {
	case models.EdgeLifeline:
		charges = &provider.LifelineCharges
	case models.EdgeSymbiote:
		charges = &provider.SymbioteCharges
	default:
		return nil
	}

	*charges--
	if *charges <= 0 {
		*charges = 0
		return e.edges.Unbind(ctx, edgeType, rel.ServerID, rel.ProviderID, rel.TargetID)
	}
	return nil
}

// fetchUser resolves an edge endpoint, preferring the instance already
// mutated this turn and treating a missing record as nil rather than an
// error. The result is tracked in touched.
func (e *Engine) fetchUser(ctx context.Context, touched *userSet, userID, serverID string) (*models.User, error) {
	if userID == "" {
		return nil, nil
	}
	if existing := touched.get(userID); existing != nil {
		return existing, nil
	}
	user, err := e.users.Get(ctx, userID, serverID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return touched.add(user), nil
}

// userSet dedupes the users touched while processing a message so each is
// persisted exactly once, in first-touch order.
type userSet struct {
	order []*models.User
	seen  map[string]*models.User
}

func newUserSet(users ...*models.User) *userSet {
	s := &userSet{seen: make(map[string]*models.User)}
	for _, u := range users {
		s.add(u)
	}
	return s
}

func (s *userSet) add(user *models.User) *models.User {
	if existing, ok := s.seen[user.UserID]; ok {
		return existing
	}
	s.seen[user.UserID] = user
	s.order = append(s.order, user)
	return user
}

// get returns the already-tracked instance for an ID, if any. Keeps the walk
// code from loading a second copy of a user already mutated this turn.
func (s *userSet) get(userID string) *models.User {
	return s.seen[userID]
}

func (s *userSet) all() []*models.User {
	return s.order
}
