package arena

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/minefieldbot/minefield/minefield/config"
	"github.com/minefieldbot/minefield/minefield/database/models"
	"github.com/minefieldbot/minefield/minefield/game"
)

// Notifier receives arena lifecycle callbacks for narration. Callbacks run
// outside the manager lock; implementations may block on Discord calls.
type Notifier interface {
	ArenaOpened(serverID string, host *models.User, buyIn int)
	ArenaCancelled(serverID string, host *models.User, buyIn int)
	ArenaStarted(serverID string, participants []*models.User, payout int)
	ArenaRound(serverID string, round int, rolls []Roll)
	ArenaResolved(serverID string, winners []*models.User, payout, share int)
}

// NopNotifier discards all callbacks.
type NopNotifier struct{}

func (NopNotifier) ArenaOpened(string, *models.User, int)          {}
func (NopNotifier) ArenaCancelled(string, *models.User, int)       {}
func (NopNotifier) ArenaStarted(string, []*models.User, int)       {}
func (NopNotifier) ArenaRound(string, int, []Roll)                 {}
func (NopNotifier) ArenaResolved(string, []*models.User, int, int) {}

// Roll is one participant's draw in one round.
type Roll struct {
	User       *models.User
	Value      int
	Eliminated bool
}

type tournamentState int

const (
	stateOpen tournamentState = iota
	stateRunning
	stateCancelled
)

// tournament is the transient per-server instance. It exists only between
// open and resolution; final balances go through the user store. The
// participant list holds join-time snapshots used for rolls and narration
// only — money is settled against freshly loaded rows at resolution.
type tournament struct {
	buyIn        int
	payout       int
	state        tournamentState
	participants []*models.User
}

func (t *tournament) joined(userID string) bool {
	for _, p := range t.participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Manager owns at most one tournament per server. The join window and round
// delays sleep outside the lock so joins and other servers' play continue
// during a running arena.
type Manager struct {
	mu     sync.Mutex
	arenas map[string]*tournament

	users    game.UserStore
	rng      game.Rand
	notifier Notifier

	joinWindow time.Duration
	roundDelay time.Duration
}

func NewManager(users game.UserStore, rng game.Rand, notifier Notifier) *Manager {
	if rng == nil {
		rng = game.NewRand()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Manager{
		arenas:     make(map[string]*tournament),
		users:      users,
		rng:        rng,
		notifier:   notifier,
		joinWindow: config.ArenaJoinWindow,
		roundDelay: config.ArenaRoundDelay,
	}
}

// SetTimings overrides the join window and round delay. Tests use this to
// run tournaments without real-time waits.
func (m *Manager) SetTimings(joinWindow, roundDelay time.Duration) {
	m.joinWindow = joinWindow
	m.roundDelay = roundDelay
}

// Active reports whether a tournament exists for the server, open or running.
func (m *Manager) Active(serverID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.arenas[serverID]
	return ok
}

// Open creates a tournament for host's server, debits the host's buy-in and
// starts the join window in the background. Returns once the arena is open.
func (m *Manager) Open(ctx context.Context, host *models.User, buyIn int) error {
	if buyIn <= 0 {
		return game.ErrInvalidBuyIn
	}
	if host.Currency < buyIn {
		return game.ErrInsufficientFunds
	}

	m.mu.Lock()
	if _, ok := m.arenas[host.ServerID]; ok {
		m.mu.Unlock()
		return game.ErrArenaActive
	}
	t := &tournament{buyIn: buyIn, state: stateOpen}
	m.arenas[host.ServerID] = t
	m.mu.Unlock()

	if err := m.enroll(ctx, t, host); err != nil {
		m.mu.Lock()
		delete(m.arenas, host.ServerID)
		m.mu.Unlock()
		return err
	}

	slog.Info("Arena opened",
		slog.String("type", "game"),
		slog.String("server_id", host.ServerID),
		slog.String("host", host.Username),
		slog.Int("buy_in", buyIn))
	m.notifier.ArenaOpened(host.ServerID, host, buyIn)

	go m.run(host.ServerID, host)
	return nil
}

// Join enrolls user in the server's open tournament, debiting the buy-in
// immediately.
func (m *Manager) Join(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	t, ok := m.arenas[user.ServerID]
	switch {
	case !ok:
		m.mu.Unlock()
		return game.ErrNoArena
	case t.state != stateOpen:
		m.mu.Unlock()
		return game.ErrArenaClosed
	case t.joined(user.UserID):
		m.mu.Unlock()
		return game.ErrArenaJoined
	case user.Currency < t.buyIn:
		m.mu.Unlock()
		return game.ErrInsufficientFunds
	}
	m.mu.Unlock()

	return m.enroll(ctx, t, user)
}

// enroll debits and appends under the lock, re-checking what may have
// changed while the caller held nothing.
func (m *Manager) enroll(ctx context.Context, t *tournament, user *models.User) error {
	m.mu.Lock()
	if t.state != stateOpen {
		m.mu.Unlock()
		return game.ErrArenaClosed
	}
	if t.joined(user.UserID) {
		m.mu.Unlock()
		return game.ErrArenaJoined
	}
	user.Currency -= t.buyIn
	t.participants = append(t.participants, user)
	m.mu.Unlock()

	return m.users.Update(ctx, user)
}

// run waits out the join window, then either cancels or plays rounds until
// winners exist. It runs in its own goroutine with a background context;
// state mutations take the lock only for their discrete step.
func (m *Manager) run(serverID string, host *models.User) {
	time.Sleep(m.joinWindow)

	m.mu.Lock()
	t := m.arenas[serverID]
	if t == nil {
		m.mu.Unlock()
		return
	}
	if len(t.participants) < 2 {
		// Close before deleting so a late enroll holding this pointer is
		// rejected instead of debiting into an orphaned tournament.
		t.state = stateCancelled
		sole := t.participants[0]
		delete(m.arenas, serverID)
		m.mu.Unlock()

		m.refund(serverID, sole, t.buyIn)
		slog.Info("Arena cancelled",
			slog.String("type", "game"),
			slog.String("server_id", serverID))
		m.notifier.ArenaCancelled(serverID, host, t.buyIn)
		return
	}

	t.payout = t.buyIn * len(t.participants)
	t.state = stateRunning
	participants := append([]*models.User(nil), t.participants...)
	payout := t.payout
	m.mu.Unlock()

	slog.Info("Arena started",
		slog.String("type", "game"),
		slog.String("server_id", serverID),
		slog.Int("participants", len(participants)),
		slog.Int("payout", payout))
	m.notifier.ArenaStarted(serverID, participants, payout)
	time.Sleep(m.roundDelay)

	winners := m.playRounds(serverID, participants)
	m.resolve(serverID, t, winners)
}

// refund returns the sole participant's buy-in against their current row;
// the join-time snapshot may be stale by the time the window closes.
func (m *Manager) refund(serverID string, sole *models.User, buyIn int) {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	fresh, err := m.users.Get(ctx, sole.UserID, sole.ServerID)
	if err != nil {
		slog.Error("Arena refund failed",
			slog.String("type", "game"),
			slog.String("server_id", serverID),
			slog.String("user_id", sole.UserID),
			slog.String("error", err.Error()))
		return
	}
	fresh.Currency += buyIn
	if err := m.users.Update(ctx, fresh); err != nil {
		slog.Error("Arena refund failed",
			slog.String("type", "game"),
			slog.String("server_id", serverID),
			slog.String("user_id", sole.UserID),
			slog.String("error", err.Error()))
	}
}

// playRounds draws for every survivor each round. A max draw eliminates; if
// the whole field draws it at once the round is a full tie and everyone
// wins. Exactly one survivor ends the tournament.
func (m *Manager) playRounds(serverID string, survivors []*models.User) []*models.User {
	round := 1
	for {
		rolls := make([]Roll, 0, len(survivors))
		next := survivors[:0:0]
		for _, p := range survivors {
			value := m.rng.Intn(config.ArenaRoundSides) + 1
			eliminated := value == config.ArenaRoundSides
			rolls = append(rolls, Roll{User: p, Value: value, Eliminated: eliminated})
			if !eliminated {
				next = append(next, p)
			}
		}

		m.notifier.ArenaRound(serverID, round, rolls)

		if len(next) == 0 {
			// Full-field wipe: treat the round as a tie rather than leave
			// the pot unwinnable.
			return survivors
		}
		if len(next) == 1 {
			return next
		}

		survivors = next
		round++
		time.Sleep(m.roundDelay)
	}
}

// resolve splits the payout by integer division; the remainder is dropped.
// Lifetime credit is the share minus the winner's own buy-in. Winners are
// re-loaded so earnings persisted while the rounds played are kept; the
// context is created here because the rounds can outlast any timeout taken
// before them.
func (m *Manager) resolve(serverID string, t *tournament, winners []*models.User) {
	share := t.payout / len(winners)

	m.mu.Lock()
	delete(m.arenas, serverID)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	paid := make([]*models.User, 0, len(winners))
	for _, w := range winners {
		fresh, err := m.users.Get(ctx, w.UserID, w.ServerID)
		if err != nil {
			slog.Error("Arena payout failed",
				slog.String("type", "game"),
				slog.String("server_id", serverID),
				slog.String("user_id", w.UserID),
				slog.String("error", err.Error()))
			continue
		}
		fresh.Currency += share
		fresh.LifetimeCurrency += share - t.buyIn
		paid = append(paid, fresh)
	}
	if err := m.users.SaveAll(ctx, paid...); err != nil {
		slog.Error("Arena payout failed",
			slog.String("type", "game"),
			slog.String("server_id", serverID),
			slog.String("error", err.Error()))
	}

	slog.Info("Arena resolved",
		slog.String("type", "game"),
		slog.String("server_id", serverID),
		slog.Int("winners", len(winners)),
		slog.Int("share", share))
	m.notifier.ArenaResolved(serverID, winners, t.payout, share)
}
