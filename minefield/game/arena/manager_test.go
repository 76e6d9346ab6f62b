package arena

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minefieldbot/minefield/minefield/database/models"
	"github.com/minefieldbot/minefield/minefield/database/repositories"
	"github.com/minefieldbot/minefield/minefield/game"
)

// fakeUsers stores copies, like a real row store: mutating a pointer that
// came out of Get changes nothing until it goes back through Update/SaveAll.
type fakeUsers struct {
	rows map[string]models.User
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{rows: make(map[string]models.User)}
	for _, u := range users {
		f.rows[u.ServerID+"/"+u.UserID] = *u
	}
	return f
}

func (f *fakeUsers) Get(_ context.Context, userID, serverID string) (*models.User, error) {
	row, ok := f.rows[serverID+"/"+userID]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "user", ID: userID}
	}
	u := row
	return &u, nil
}

func (f *fakeUsers) GetOrCreate(_ context.Context, userID, serverID, username string) (*models.User, error) {
	if u, err := f.Get(context.Background(), userID, serverID); err == nil {
		return u, nil
	}
	u := models.NewUser(userID, serverID, username)
	f.rows[serverID+"/"+userID] = *u
	return u, nil
}

func (f *fakeUsers) Update(_ context.Context, u *models.User) error {
	f.rows[u.ServerID+"/"+u.UserID] = *u
	return nil
}

func (f *fakeUsers) SaveAll(_ context.Context, users ...*models.User) error {
	for _, u := range users {
		f.rows[u.ServerID+"/"+u.UserID] = *u
	}
	return nil
}

func (f *fakeUsers) CountParticipants(context.Context, string) (int, error) {
	return 0, nil
}

func (f *fakeUsers) row(t *testing.T, userID string) models.User {
	t.Helper()
	row, ok := f.rows["srv/"+userID]
	if !ok {
		t.Fatalf("no stored row for %q", userID)
	}
	return row
}

type scriptedRand struct {
	values []int
	i      int
}

func (r *scriptedRand) Intn(n int) int {
	if r.i >= len(r.values) {
		return 0
	}
	v := r.values[r.i]
	r.i++
	if v >= n {
		v = n - 1
	}
	return v
}

// chanNotifier signals terminal arena states so tests can wait for the
// background goroutine instead of sleeping.
type chanNotifier struct {
	NopNotifier
	cancelled chan struct{}
	resolved  chan []*models.User
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{
		cancelled: make(chan struct{}, 1),
		resolved:  make(chan []*models.User, 1),
	}
}

func (n *chanNotifier) ArenaCancelled(string, *models.User, int) {
	n.cancelled <- struct{}{}
}

func (n *chanNotifier) ArenaResolved(_ string, winners []*models.User, _, _ int) {
	n.resolved <- winners
}

func arenaUser(userID string) *models.User {
	u := models.NewUser(userID, "srv", "user-"+userID)
	u.Currency = 1000
	u.LifetimeCurrency = 1000
	return u
}

func TestOpenValidation(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFakeUsers(), &scriptedRand{}, nil)
	m.SetTimings(time.Hour, 0)

	host := arenaUser("h")
	if err := m.Open(ctx, host, 0); !errors.Is(err, game.ErrInvalidBuyIn) {
		t.Errorf("Open(0) error = %v, want ErrInvalidBuyIn", err)
	}
	if err := m.Open(ctx, host, 2000); !errors.Is(err, game.ErrInsufficientFunds) {
		t.Errorf("Open(2000) error = %v, want ErrInsufficientFunds", err)
	}

	if err := m.Open(ctx, host, 100); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !m.Active("srv") {
		t.Errorf("Active() = false after open")
	}
	if err := m.Open(ctx, arenaUser("h2"), 100); !errors.Is(err, game.ErrArenaActive) {
		t.Errorf("second Open() error = %v, want ErrArenaActive", err)
	}
}

func TestJoinValidation(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFakeUsers(), &scriptedRand{}, nil)
	m.SetTimings(time.Hour, 0)

	if err := m.Join(ctx, arenaUser("j")); !errors.Is(err, game.ErrNoArena) {
		t.Errorf("Join() with no arena error = %v, want ErrNoArena", err)
	}

	host := arenaUser("h")
	if err := m.Open(ctx, host, 100); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := m.Join(ctx, host); !errors.Is(err, game.ErrArenaJoined) {
		t.Errorf("host re-join error = %v, want ErrArenaJoined", err)
	}

	poor := arenaUser("p")
	poor.Currency = 50
	if err := m.Join(ctx, poor); !errors.Is(err, game.ErrInsufficientFunds) {
		t.Errorf("poor Join() error = %v, want ErrInsufficientFunds", err)
	}

	joiner := arenaUser("j")
	if err := m.Join(ctx, joiner); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if joiner.Currency != 900 {
		t.Errorf("joiner.Currency = %d, want buy-in debited", joiner.Currency)
	}
}

func TestSoloArenaRefunds(t *testing.T) {
	store := newFakeUsers()
	notifier := newChanNotifier()
	m := NewManager(store, &scriptedRand{}, notifier)
	m.SetTimings(10*time.Millisecond, 0)

	host := arenaUser("h")
	if err := m.Open(context.Background(), host, 100); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	select {
	case <-notifier.cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("arena never cancelled")
	}
	if got := store.row(t, "h").Currency; got != 1000 {
		t.Errorf("stored host currency = %d, want buy-in refunded", got)
	}
	if m.Active("srv") {
		t.Errorf("arena still active after cancellation")
	}
}

func TestJoinAfterCancelRejected(t *testing.T) {
	// A caller that captured the tournament before the window closed must
	// not be able to buy into it afterwards.
	store := newFakeUsers()
	notifier := newChanNotifier()
	m := NewManager(store, &scriptedRand{}, notifier)
	m.SetTimings(10*time.Millisecond, 0)

	host := arenaUser("h")
	if err := m.Open(context.Background(), host, 100); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	m.mu.Lock()
	stale := m.arenas["srv"]
	m.mu.Unlock()

	select {
	case <-notifier.cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("arena never cancelled")
	}

	joiner := arenaUser("j")
	if err := m.enroll(context.Background(), stale, joiner); !errors.Is(err, game.ErrArenaClosed) {
		t.Fatalf("enroll on cancelled tournament error = %v, want ErrArenaClosed", err)
	}
	if joiner.Currency != 1000 {
		t.Errorf("joiner.Currency = %d, want no debit", joiner.Currency)
	}
}

func TestArenaSingleWinner(t *testing.T) {
	// Round one: host rolls safe, joiner rolls the eliminating max.
	store := newFakeUsers()
	notifier := newChanNotifier()
	m := NewManager(store, &scriptedRand{values: []int{0, 4}}, notifier)
	m.SetTimings(50*time.Millisecond, 0)

	host := arenaUser("h")
	joiner := arenaUser("j")
	if err := m.Open(context.Background(), host, 100); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := m.Join(context.Background(), joiner); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	var winners []*models.User
	select {
	case winners = <-notifier.resolved:
	case <-time.After(2 * time.Second):
		t.Fatal("arena never resolved")
	}

	if len(winners) != 1 || winners[0].UserID != "h" {
		t.Fatalf("winners = %v, want the host alone", winners)
	}
	// 1000 - 100 buy-in + 200 pot.
	hostRow := store.row(t, "h")
	if hostRow.Currency != 1100 {
		t.Errorf("stored host currency = %d, want 1100", hostRow.Currency)
	}
	if hostRow.LifetimeCurrency != 1100 {
		t.Errorf("stored host lifetime = %d, want net winnings credited", hostRow.LifetimeCurrency)
	}
	if got := store.row(t, "j").Currency; got != 900 {
		t.Errorf("stored joiner currency = %d, want buy-in lost", got)
	}
	if m.Active("srv") {
		t.Errorf("arena still active after resolution")
	}
}

func TestArenaFullFieldTie(t *testing.T) {
	// Both participants roll the eliminating max in the same round.
	store := newFakeUsers()
	notifier := newChanNotifier()
	m := NewManager(store, &scriptedRand{values: []int{4, 4}}, notifier)
	m.SetTimings(50*time.Millisecond, 0)

	host := arenaUser("h")
	joiner := arenaUser("j")
	if err := m.Open(context.Background(), host, 100); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := m.Join(context.Background(), joiner); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	var winners []*models.User
	select {
	case winners = <-notifier.resolved:
	case <-time.After(2 * time.Second):
		t.Fatal("arena never resolved")
	}

	if len(winners) != 2 {
		t.Fatalf("winners = %d, want the whole field", len(winners))
	}
	// Each gets payout/2 = their own buy-in back; lifetime is unchanged.
	for _, id := range []string{"h", "j"} {
		row := store.row(t, id)
		if row.Currency != 1000 {
			t.Errorf("stored %s currency = %d, want 1000", id, row.Currency)
		}
		if row.LifetimeCurrency != 1000 {
			t.Errorf("stored %s lifetime = %d, want 1000", id, row.LifetimeCurrency)
		}
	}
}

func TestArenaKeepsMidTournamentEarnings(t *testing.T) {
	// Currency the store accepts while the arena plays out must survive the
	// payout; the winner's join-time snapshot is stale by then.
	store := newFakeUsers()
	notifier := newChanNotifier()
	m := NewManager(store, &scriptedRand{values: []int{0, 4}}, notifier)
	m.SetTimings(100*time.Millisecond, 0)

	host := arenaUser("h")
	joiner := arenaUser("j")
	if err := m.Open(context.Background(), host, 100); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := m.Join(context.Background(), joiner); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	// Earnings land while the join window is still open.
	earned, err := store.Get(context.Background(), "h", "srv")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	earned.Currency += 500
	earned.LifetimeCurrency += 500
	if err := store.Update(context.Background(), earned); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	select {
	case <-notifier.resolved:
	case <-time.After(2 * time.Second):
		t.Fatal("arena never resolved")
	}

	// 1000 - 100 buy-in + 500 earned + 200 pot.
	row := store.row(t, "h")
	if row.Currency != 1600 {
		t.Errorf("stored host currency = %d, want 1600", row.Currency)
	}
	if row.LifetimeCurrency != 1600 {
		t.Errorf("stored host lifetime = %d, want 1600", row.LifetimeCurrency)
	}
}
