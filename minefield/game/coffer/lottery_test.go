package coffer

import (
	"context"
	"errors"
	"testing"

	"github.com/minefieldbot/minefield/minefield/config"
	"github.com/minefieldbot/minefield/minefield/database/models"
	"github.com/minefieldbot/minefield/minefield/game"
)

// fakeStore keeps one server's coffer state in memory with the same
// semantics as the bun repository.
type fakeStore struct {
	coffer  models.Coffer
	tickets map[string]int
	paid    map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tickets: make(map[string]int),
		paid:    make(map[string]int),
	}
}

func (f *fakeStore) GetOrCreate(_ context.Context, serverID string) (*models.Coffer, error) {
	f.coffer.ServerID = serverID
	c := f.coffer
	return &c, nil
}

func (f *fakeStore) AddAmount(_ context.Context, _ string, amount int) error {
	f.coffer.Amount += amount
	return nil
}

func (f *fakeStore) SetOpening(_ context.Context, _ string, opening bool) error {
	f.coffer.Opening = opening
	return nil
}

func (f *fakeStore) TotalTickets(_ context.Context, _ string) (int, error) {
	total := 0
	for _, n := range f.tickets {
		total += n
	}
	return total, nil
}

func (f *fakeStore) UserTickets(_ context.Context, _, userID string) (int, error) {
	return f.tickets[userID], nil
}

func (f *fakeStore) AllTickets(_ context.Context, serverID string) ([]*models.CofferTicket, error) {
	var all []*models.CofferTicket
	for _, id := range []string{"a", "b", "c"} {
		if f.tickets[id] > 0 {
			all = append(all, &models.CofferTicket{UserID: id, ServerID: serverID, Count: f.tickets[id]})
		}
	}
	return all, nil
}

func (f *fakeStore) AddTickets(_ context.Context, _, userID string, count, _ int) error {
	f.tickets[userID] += count
	return nil
}

func (f *fakeStore) PayoutAndReset(_ context.Context, _, winnerID string) (int, error) {
	amount := f.coffer.Amount
	f.paid[winnerID] += amount
	f.coffer.Amount = 0
	f.coffer.Opening = false
	f.tickets = make(map[string]int)
	return amount, nil
}

type fakeUsers struct {
	participants int
}

func (f *fakeUsers) Get(context.Context, string, string) (*models.User, error) { return nil, nil }
func (f *fakeUsers) GetOrCreate(context.Context, string, string, string) (*models.User, error) {
	return nil, nil
}
func (f *fakeUsers) Update(context.Context, *models.User) error { return nil }
func (f *fakeUsers) SaveAll(context.Context, ...*models.User) error {
	return nil
}
func (f *fakeUsers) CountParticipants(context.Context, string) (int, error) {
	return f.participants, nil
}

type scriptedRand struct {
	value int
}

func (r *scriptedRand) Intn(n int) int {
	if r.value >= n {
		return n - 1
	}
	return r.value
}

func cofferUser(userID string, currency int) *models.User {
	u := models.NewUser(userID, "srv", "user-"+userID)
	u.Currency = currency
	return u
}

func TestTicketPrice(t *testing.T) {
	tests := []struct {
		owned int
		want  int
	}{
		{owned: 0, want: 20},
		{owned: 1, want: 40},
		{owned: 2, want: 80},
		{owned: 5, want: 640},
	}
	for _, tt := range tests {
		if got := TicketPrice(tt.owned); got != tt.want {
			t.Errorf("TicketPrice(%d) = %d, want %d", tt.owned, got, tt.want)
		}
	}
}

func TestPurchaseCost(t *testing.T) {
	tests := []struct {
		owned, count int
		want         int
	}{
		{owned: 0, count: 1, want: 20},
		{owned: 0, count: 3, want: 20 + 40 + 80},
		{owned: 2, count: 2, want: 80 + 160},
		{owned: 0, count: 0, want: 0},
	}
	for _, tt := range tests {
		if got := PurchaseCost(tt.owned, tt.count); got != tt.want {
			t.Errorf("PurchaseCost(%d, %d) = %d, want %d", tt.owned, tt.count, got, tt.want)
		}
	}
}

func TestRequiredTickets(t *testing.T) {
	tests := []struct {
		name         string
		participants int
		want         int
	}{
		{name: "empty server uses the floor", participants: 0, want: config.CofferMinTickets},
		{name: "scaled by participants", participants: 4, want: 4 * config.CofferTicketsPerUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLottery(newFakeStore(), &fakeUsers{participants: tt.participants}, &scriptedRand{})
			got, err := l.RequiredTickets(context.Background(), "srv")
			if err != nil {
				t.Fatalf("RequiredTickets() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RequiredTickets() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBuyTickets(t *testing.T) {
	ctx := context.Background()

	t.Run("charges the geometric sum into the pot", func(t *testing.T) {
		store := newFakeStore()
		l := NewLottery(store, &fakeUsers{}, &scriptedRand{})
		user := cofferUser("a", 1000)

		cost, err := l.BuyTickets(ctx, user, 3)
		if err != nil {
			t.Fatalf("BuyTickets() error = %v", err)
		}
		if cost != 140 {
			t.Errorf("cost = %d, want 140", cost)
		}
		if user.Currency != 860 {
			t.Errorf("user.Currency = %d, want 860", user.Currency)
		}
		if store.coffer.Amount != 140 {
			t.Errorf("pot = %d, want 140", store.coffer.Amount)
		}

		// The next ticket is priced off the tickets already held.
		cost, err = l.BuyTickets(ctx, user, 1)
		if err != nil {
			t.Fatalf("BuyTickets() error = %v", err)
		}
		if cost != 160 {
			t.Errorf("fourth ticket cost = %d, want 160", cost)
		}
	})

	t.Run("rejects an unaffordable purchase", func(t *testing.T) {
		l := NewLottery(newFakeStore(), &fakeUsers{}, &scriptedRand{})
		user := cofferUser("a", 100)

		var purchase *game.PurchaseError
		if _, err := l.BuyTickets(ctx, user, 3); !errors.As(err, &purchase) {
			t.Fatalf("error = %v, want PurchaseError", err)
		}
		if purchase.Cost != 140 {
			t.Errorf("Cost = %d, want 140", purchase.Cost)
		}
		if user.Currency != 100 {
			t.Errorf("rejected purchase still debited")
		}
	})

	t.Run("blocked while opening", func(t *testing.T) {
		store := newFakeStore()
		store.coffer.Opening = true
		l := NewLottery(store, &fakeUsers{}, &scriptedRand{})
		if _, err := l.BuyTickets(ctx, cofferUser("a", 1000), 1); !errors.Is(err, game.ErrCofferOpening) {
			t.Errorf("error = %v, want ErrCofferOpening", err)
		}
	})

	t.Run("rejects a non-positive count", func(t *testing.T) {
		l := NewLottery(newFakeStore(), &fakeUsers{}, &scriptedRand{})
		if _, err := l.BuyTickets(ctx, cofferUser("a", 1000), 0); !errors.Is(err, game.ErrInvalidAmount) {
			t.Errorf("error = %v, want ErrInvalidAmount", err)
		}
	})
}

func TestShouldOpen(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	l := NewLottery(store, &fakeUsers{participants: 1}, &scriptedRand{})

	open, err := l.ShouldOpen(ctx, "srv")
	if err != nil || open {
		t.Fatalf("ShouldOpen() = %v, %v, want false before sales", open, err)
	}

	if _, err := l.BuyTickets(ctx, cofferUser("a", 1000), config.CofferMinTickets); err != nil {
		t.Fatalf("BuyTickets() error = %v", err)
	}
	open, err = l.ShouldOpen(ctx, "srv")
	if err != nil || !open {
		t.Errorf("ShouldOpen() = %v, %v, want true at the threshold", open, err)
	}
}

func TestDraw(t *testing.T) {
	ctx := context.Background()

	t.Run("no tickets", func(t *testing.T) {
		l := NewLottery(newFakeStore(), &fakeUsers{}, &scriptedRand{})
		if _, _, err := l.Draw(ctx, "srv"); !errors.Is(err, game.ErrNoTickets) {
			t.Errorf("error = %v, want ErrNoTickets", err)
		}
	})

	t.Run("picks proportionally to tickets held", func(t *testing.T) {
		// a holds tickets 0-1, b holds 2-4, c holds 5.
		tests := []struct {
			pick int
			want string
		}{
			{pick: 0, want: "a"},
			{pick: 1, want: "a"},
			{pick: 2, want: "b"},
			{pick: 4, want: "b"},
			{pick: 5, want: "c"},
		}
		for _, tt := range tests {
			store := newFakeStore()
			store.tickets["a"] = 2
			store.tickets["b"] = 3
			store.tickets["c"] = 1
			store.coffer.Amount = 500
			l := NewLottery(store, &fakeUsers{}, &scriptedRand{value: tt.pick})

			winnerID, amount, err := l.Draw(ctx, "srv")
			if err != nil {
				t.Fatalf("Draw() error = %v", err)
			}
			if winnerID != tt.want {
				t.Errorf("pick %d: winner = %s, want %s", tt.pick, winnerID, tt.want)
			}
			if amount != 500 {
				t.Errorf("amount = %d, want the whole pot", amount)
			}
			if store.paid[tt.want] != 500 {
				t.Errorf("pot not paid to %s", tt.want)
			}
			if store.coffer.Amount != 0 || len(store.tickets) != 0 {
				t.Errorf("coffer not reset after draw")
			}
		}
	})
}
