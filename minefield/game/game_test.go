package game

import (
	"context"

	"github.com/minefieldbot/minefield/minefield/database/models"
	"github.com/minefieldbot/minefield/minefield/database/repositories"
)

// In-memory store fakes shared by the engine tests. They satisfy the same
// (nil, nil) / NotFoundError contracts as the bun repositories.

type fakeUsers struct {
	users map[string]*models.User
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: make(map[string]*models.User)}
	for _, u := range users {
		f.users[u.ServerID+"/"+u.UserID] = u
	}
	return f
}

func (f *fakeUsers) Get(_ context.Context, userID, serverID string) (*models.User, error) {
	u, ok := f.users[serverID+"/"+userID]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "user", ID: userID}
	}
	return u, nil
}

func (f *fakeUsers) GetOrCreate(_ context.Context, userID, serverID, username string) (*models.User, error) {
	if u, ok := f.users[serverID+"/"+userID]; ok {
		return u, nil
	}
	u := models.NewUser(userID, serverID, username)
	f.users[serverID+"/"+userID] = u
	return u, nil
}

func (f *fakeUsers) Update(_ context.Context, user *models.User) error {
	f.users[user.ServerID+"/"+user.UserID] = user
	return nil
}

func (f *fakeUsers) SaveAll(ctx context.Context, users ...*models.User) error {
	for _, u := range users {
		if err := f.Update(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeUsers) CountParticipants(_ context.Context, serverID string) (int, error) {
	count := 0
	for _, u := range f.users {
		if u.ServerID == serverID && u.TotalMessages > 0 {
			count++
		}
	}
	return count, nil
}

type fakeEdges struct {
	rels []*models.Relationship
}

func (f *fakeEdges) Bind(_ context.Context, rel *models.Relationship) error {
	f.rels = append(f.rels, rel)
	return nil
}

func (f *fakeEdges) Unbind(_ context.Context, edgeType models.EdgeType, serverID, providerID, targetID string) error {
	kept := f.rels[:0]
	for _, r := range f.rels {
		if r.Type == edgeType && r.ServerID == serverID && r.ProviderID == providerID && r.TargetID == targetID {
			continue
		}
		kept = append(kept, r)
	}
	f.rels = kept
	return nil
}

func (f *fakeEdges) GetByProvider(_ context.Context, edgeType models.EdgeType, serverID, providerID string) (*models.Relationship, error) {
	for _, r := range f.rels {
		if r.Type == edgeType && r.ServerID == serverID && r.ProviderID == providerID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeEdges) GetByTarget(_ context.Context, edgeType models.EdgeType, serverID, targetID string) (*models.Relationship, error) {
	for _, r := range f.rels {
		if r.Type == edgeType && r.ServerID == serverID && r.TargetID == targetID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeEdges) GetDeathPact(_ context.Context, serverID, userID string) (*models.Relationship, error) {
	for _, r := range f.rels {
		if r.Type == models.EdgeDeathPact && r.ServerID == serverID && (r.ProviderID == userID || r.TargetID == userID) {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeEdges) LinkedUserIDs(_ context.Context, serverID, userID string) ([]string, error) {
	var ids []string
	for _, r := range f.rels {
		if r.ServerID != serverID {
			continue
		}
		if r.ProviderID == userID {
			ids = append(ids, r.TargetID)
		} else if r.TargetID == userID {
			ids = append(ids, r.ProviderID)
		}
	}
	return ids, nil
}

func (f *fakeEdges) DeleteAllFor(_ context.Context, serverID, userID string) error {
	kept := f.rels[:0]
	for _, r := range f.rels {
		if r.ServerID == serverID && (r.ProviderID == userID || r.TargetID == userID) {
			continue
		}
		kept = append(kept, r)
	}
	f.rels = kept
	return nil
}

// scriptedRand replays a fixed sequence of Intn results, then zeroes.
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

// recordSink captures death and revival events by user ID.
type recordSink struct {
	died    []string
	revived []string
}

func (s *recordSink) UserDied(u *models.User)    { s.died = append(s.died, u.UserID) }
func (s *recordSink) UserRevived(u *models.User) { s.revived = append(s.revived, u.UserID) }

type fakePot struct {
	amounts map[string]int
}

func newFakePot() *fakePot {
	return &fakePot{amounts: make(map[string]int)}
}

func (f *fakePot) AddAmount(_ context.Context, serverID string, amount int) error {
	f.amounts[serverID] += amount
	return nil
}

func testUser(userID string) *models.User {
	u := models.NewUser(userID, "srv", "user-"+userID)
	u.Currency = 1000
	u.LifetimeCurrency = 1000
	return u
}
