package coffer

import (
	"context"
	"log/slog"

	"github.com/minefieldbot/minefield/minefield/config"
	"github.com/minefieldbot/minefield/minefield/database/models"
	"github.com/minefieldbot/minefield/minefield/game"
)

// Store is the slice of the coffer repository the lottery needs.
type Store interface {
	GetOrCreate(ctx context.Context, serverID string) (*models.Coffer, error)
	AddAmount(ctx context.Context, serverID string, amount int) error
	SetOpening(ctx context.Context, serverID string, opening bool) error
	TotalTickets(ctx context.Context, serverID string) (int, error)
	UserTickets(ctx context.Context, serverID, userID string) (int, error)
	AllTickets(ctx context.Context, serverID string) ([]*models.CofferTicket, error)
	AddTickets(ctx context.Context, serverID, userID string, count, cost int) error
	PayoutAndReset(ctx context.Context, serverID, winnerID string) (int, error)
}

// Lottery sells doubling-priced tickets into a per-server jackpot and draws
// a winner once enough tickets are sold. The jackpot and tickets persist;
// the lottery holds no per-server state in memory.
type Lottery struct {
	store Store
	users game.UserStore
	rng   game.Rand
}

func NewLottery(store Store, users game.UserStore, rng game.Rand) *Lottery {
	if rng == nil {
		rng = game.NewRand()
	}
	return &Lottery{store: store, users: users, rng: rng}
}

// Status is the coffer summary for one server.
type Status struct {
	Amount      int
	Opening     bool
	TicketsSold int
	Required    int
}

func (l *Lottery) Status(ctx context.Context, serverID string) (*Status, error) {
	c, err := l.store.GetOrCreate(ctx, serverID)
	if err != nil {
		return nil, err
	}
	sold, err := l.store.TotalTickets(ctx, serverID)
	if err != nil {
		return nil, err
	}
	required, err := l.RequiredTickets(ctx, serverID)
	if err != nil {
		return nil, err
	}
	return &Status{Amount: c.Amount, Opening: c.Opening, TicketsSold: sold, Required: required}, nil
}

// TicketPrice is the cost of the next ticket for a user who already owns
// owned tickets: base doubled per ticket held.
func TicketPrice(owned int) int {
	return config.CofferTicketBase << owned
}

// PurchaseCost is the total cost of buying count tickets on top of owned
// ones, the geometric sum of the per-ticket prices.
func PurchaseCost(owned, count int) int {
	cost := 0
	for i := 0; i < count; i++ {
		cost += TicketPrice(owned + i)
	}
	return cost
}

// RequiredTickets is the sales threshold that opens the coffer, scaled by
// how many users have actually played on the server.
func (l *Lottery) RequiredTickets(ctx context.Context, serverID string) (int, error) {
	participants, err := l.users.CountParticipants(ctx, serverID)
	if err != nil {
		return 0, err
	}
	required := participants * config.CofferTicketsPerUser
	if required < config.CofferMinTickets {
		required = config.CofferMinTickets
	}
	return required, nil
}

// BuyTickets charges the user for count tickets and feeds the cost into the
// jackpot. Returns the total cost paid. Purchases are blocked while the
// coffer is opening.
func (l *Lottery) BuyTickets(ctx context.Context, user *models.User, count int) (int, error) {
	if count <= 0 {
		return 0, game.ErrInvalidAmount
	}

	c, err := l.store.GetOrCreate(ctx, user.ServerID)
	if err != nil {
		return 0, err
	}
	if c.Opening {
		return 0, game.ErrCofferOpening
	}

	owned, err := l.store.UserTickets(ctx, user.ServerID, user.UserID)
	if err != nil {
		return 0, err
	}
	cost := PurchaseCost(owned, count)
	if user.Currency < cost {
		return 0, &game.PurchaseError{Cost: cost}
	}

	// AddTickets debits the user and upserts the ticket row in one
	// transaction; the in-memory copy is adjusted to match.
	if err := l.store.AddTickets(ctx, user.ServerID, user.UserID, count, cost); err != nil {
		return 0, err
	}
	user.Currency -= cost

	if err := l.store.AddAmount(ctx, user.ServerID, cost); err != nil {
		return 0, err
	}

	slog.Info("Coffer tickets sold",
		slog.String("type", "game"),
		slog.String("user_name", user.Username),
		slog.String("server_id", user.ServerID),
		slog.Int("count", count),
		slog.Int("cost", cost))
	return cost, nil
}

// ShouldOpen reports whether ticket sales have reached the threshold.
func (l *Lottery) ShouldOpen(ctx context.Context, serverID string) (bool, error) {
	sold, err := l.store.TotalTickets(ctx, serverID)
	if err != nil {
		return false, err
	}
	required, err := l.RequiredTickets(ctx, serverID)
	if err != nil {
		return false, err
	}
	return sold >= required, nil
}

// MarkOpening latches the opening flag so no further tickets sell between
// the threshold being hit and the draw.
func (l *Lottery) MarkOpening(ctx context.Context, serverID string) error {
	return l.store.SetOpening(ctx, serverID, true)
}

// Draw picks one ticket uniformly from the sold multiset, pays the whole
// jackpot to its holder and resets the coffer. Returns the winner's user ID
// and the amount won.
func (l *Lottery) Draw(ctx context.Context, serverID string) (string, int, error) {
	tickets, err := l.store.AllTickets(ctx, serverID)
	if err != nil {
		return "", 0, err
	}

	total := 0
	for _, t := range tickets {
		total += t.Count
	}
	if total == 0 {
		return "", 0, game.ErrNoTickets
	}

	pick := l.rng.Intn(total)
	winnerID := ""
	for _, t := range tickets {
		if pick < t.Count {
			winnerID = t.UserID
			break
		}
		pick -= t.Count
	}

	amount, err := l.store.PayoutAndReset(ctx, serverID, winnerID)
	if err != nil {
		return "", 0, err
	}

	slog.Info("Coffer drawn",
		slog.String("type", "game"),
		slog.String("server_id", serverID),
		slog.String("winner_id", winnerID),
		slog.Int("amount", amount))
	return winnerID, amount, nil
}
