package game

import (
	"context"
	"errors"
	"testing"

	"github.com/minefieldbot/minefield/minefield/config"
	"github.com/minefieldbot/minefield/minefield/database/models"
)

func TestActivateDeathPact(t *testing.T) {
	ctx := context.Background()

	t.Run("binds and debits both sides", func(t *testing.T) {
		a, b := testUser("a"), testUser("b")
		edges := &fakeEdges{}
		e := NewEngine(newFakeUsers(a, b), edges, &scriptedRand{}, nil)

		if err := e.ActivateDeathPact(ctx, a, b); err != nil {
			t.Fatalf("ActivateDeathPact() error = %v", err)
		}
		if a.Currency != 1000-config.DeathPactCost || b.Currency != 1000-config.DeathPactCost {
			t.Errorf("Currency = %d/%d, want both debited %d", a.Currency, b.Currency, config.DeathPactCost)
		}
		if rel, _ := edges.GetDeathPact(ctx, "srv", "b"); rel == nil {
			t.Errorf("pact not bound")
		}
	})

	t.Run("rejects self", func(t *testing.T) {
		a := testUser("a")
		e := NewEngine(newFakeUsers(a), &fakeEdges{}, &scriptedRand{}, nil)
		if err := e.ActivateDeathPact(ctx, a, a); !errors.Is(err, ErrSelfTarget) {
			t.Errorf("error = %v, want ErrSelfTarget", err)
		}
	})

	t.Run("rejects a second pact", func(t *testing.T) {
		a, b, c := testUser("a"), testUser("b"), testUser("c")
		e := NewEngine(newFakeUsers(a, b, c), &fakeEdges{}, &scriptedRand{}, nil)
		if err := e.ActivateDeathPact(ctx, a, b); err != nil {
			t.Fatalf("first pact error = %v", err)
		}
		if err := e.ActivateDeathPact(ctx, a, c); !errors.Is(err, ErrAlreadyBound) {
			t.Errorf("second pact error = %v, want ErrAlreadyBound", err)
		}
		if err := e.ActivateDeathPact(ctx, c, b); !errors.Is(err, ErrTargetBound) {
			t.Errorf("pact onto bound target error = %v, want ErrTargetBound", err)
		}
	})

	t.Run("rejects a poor partner", func(t *testing.T) {
		a, b := testUser("a"), testUser("b")
		b.Currency = config.DeathPactCost - 1
		e := NewEngine(newFakeUsers(a, b), &fakeEdges{}, &scriptedRand{}, nil)
		if err := e.ActivateDeathPact(ctx, a, b); !errors.Is(err, ErrTargetFunds) {
			t.Errorf("error = %v, want ErrTargetFunds", err)
		}
		if a.Currency != 1000 {
			t.Errorf("a.Currency = %d, rejected pact still debited", a.Currency)
		}
	})
}

func TestActivateLifeline(t *testing.T) {
	ctx := context.Background()

	t.Run("revives a dead target", func(t *testing.T) {
		provider, target := testUser("p"), testUser("a")
		target.IsAlive = false
		target.MaxOdds = 40
		target.CurrentOdds = 30
		sink := &recordSink{}
		edges := &fakeEdges{}
		e := NewEngine(newFakeUsers(provider, target), edges, &scriptedRand{}, sink)

		if err := e.ActivateLifeline(ctx, provider, target); err != nil {
			t.Fatalf("ActivateLifeline() error = %v", err)
		}
		if !target.IsAlive || target.CurrentOdds != 40 || target.CurrentStreak != 0 {
			t.Errorf("target = %+v, want revived at max odds", target)
		}
		if provider.Currency != 1000-config.LifelineCost {
			t.Errorf("provider.Currency = %d, want debited %d", provider.Currency, config.LifelineCost)
		}
		if provider.LifelineCharges != config.LifelineCharges {
			t.Errorf("LifelineCharges = %d, want %d", provider.LifelineCharges, config.LifelineCharges)
		}
		if len(sink.revived) != 1 {
			t.Errorf("revived events = %v, want one", sink.revived)
		}
	})

	t.Run("requires a dead target", func(t *testing.T) {
		provider, target := testUser("p"), testUser("a")
		e := NewEngine(newFakeUsers(provider, target), &fakeEdges{}, &scriptedRand{}, nil)
		if err := e.ActivateLifeline(ctx, provider, target); !errors.Is(err, ErrTargetAlive) {
			t.Errorf("error = %v, want ErrTargetAlive", err)
		}
	})

	t.Run("survives the revival teardown", func(t *testing.T) {
		// The dead target still holds a stale edge; teardown must not wipe
		// the lifeline being bound.
		provider, target, other := testUser("p"), testUser("a"), testUser("o")
		target.IsAlive = false
		edges := &fakeEdges{rels: []*models.Relationship{
			{Type: models.EdgeSymbiote, ServerID: "srv", ProviderID: "a", TargetID: "o"},
		}}
		e := NewEngine(newFakeUsers(provider, target, other), edges, &scriptedRand{}, nil)

		if err := e.ActivateLifeline(ctx, provider, target); err != nil {
			t.Fatalf("ActivateLifeline() error = %v", err)
		}
		if rel, _ := edges.GetByTarget(ctx, models.EdgeLifeline, "srv", "a"); rel == nil {
			t.Errorf("new lifeline was torn down with the target's old edges")
		}
		if rel, _ := edges.GetByProvider(ctx, models.EdgeSymbiote, "srv", "a"); rel != nil {
			t.Errorf("target's stale symbiote survived revival")
		}
	})

	t.Run("rejects reviving your own sacrifice provider", func(t *testing.T) {
		provider, target := testUser("p"), testUser("a")
		target.IsAlive = false
		edges := &fakeEdges{rels: []*models.Relationship{
			{Type: models.EdgeSacrifice, ServerID: "srv", ProviderID: "a", TargetID: "p"},
		}}
		e := NewEngine(newFakeUsers(provider, target), edges, &scriptedRand{}, nil)
		if err := e.ActivateLifeline(ctx, provider, target); !errors.Is(err, ErrSacrificeRevive) {
			t.Errorf("error = %v, want ErrSacrificeRevive", err)
		}
	})
}

func TestActivateSacrifice(t *testing.T) {
	ctx := context.Background()

	t.Run("chains are allowed", func(t *testing.T) {
		a, b, c := testUser("a"), testUser("b"), testUser("c")
		edges := &fakeEdges{}
		e := NewEngine(newFakeUsers(a, b, c), edges, &scriptedRand{}, nil)

		if err := e.ActivateSacrifice(ctx, b, a); err != nil {
			t.Fatalf("first sacrifice error = %v", err)
		}
		if err := e.ActivateSacrifice(ctx, c, b); err != nil {
			t.Fatalf("chained sacrifice error = %v", err)
		}
	})

	t.Run("cycles are rejected", func(t *testing.T) {
		a, b, c := testUser("a"), testUser("b"), testUser("c")
		edges := &fakeEdges{}
		e := NewEngine(newFakeUsers(a, b, c), edges, &scriptedRand{}, nil)

		if err := e.ActivateSacrifice(ctx, b, a); err != nil {
			t.Fatalf("setup error = %v", err)
		}
		if err := e.ActivateSacrifice(ctx, c, b); err != nil {
			t.Fatalf("setup error = %v", err)
		}
		// a -> c would close the loop a <- b <- c.
		if err := e.ActivateSacrifice(ctx, a, c); !errors.Is(err, ErrSacrificeCycle) {
			t.Errorf("error = %v, want ErrSacrificeCycle", err)
		}
	})

	t.Run("one provider per target", func(t *testing.T) {
		a, b, c := testUser("a"), testUser("b"), testUser("c")
		e := NewEngine(newFakeUsers(a, b, c), &fakeEdges{}, &scriptedRand{}, nil)

		if err := e.ActivateSacrifice(ctx, b, a); err != nil {
			t.Fatalf("setup error = %v", err)
		}
		if err := e.ActivateSacrifice(ctx, c, a); !errors.Is(err, ErrTargetBound) {
			t.Errorf("error = %v, want ErrTargetBound", err)
		}
	})
}

func TestOneLinkPerPair(t *testing.T) {
	ctx := context.Background()
	a, b := testUser("a"), testUser("b")
	e := NewEngine(newFakeUsers(a, b), &fakeEdges{}, &scriptedRand{}, nil)

	if err := e.ActivateSymbiote(ctx, a, b); err != nil {
		t.Fatalf("setup error = %v", err)
	}
	if err := e.ActivateSacrifice(ctx, a, b); !errors.Is(err, ErrAlreadyLinked) {
		t.Errorf("second link error = %v, want ErrAlreadyLinked", err)
	}
	if err := e.ActivateDeathPact(ctx, b, a); !errors.Is(err, ErrAlreadyLinked) {
		t.Errorf("reverse link error = %v, want ErrAlreadyLinked", err)
	}
}

func TestEndConsumable(t *testing.T) {
	ctx := context.Background()
	a, b := testUser("a"), testUser("b")
	edges := &fakeEdges{}
	e := NewEngine(newFakeUsers(a, b), edges, &scriptedRand{}, nil)

	if err := e.ActivateSymbiote(ctx, a, b); err != nil {
		t.Fatalf("setup error = %v", err)
	}

	targetID, err := e.EndSymbiote(ctx, a)
	if err != nil {
		t.Fatalf("EndSymbiote() error = %v", err)
	}
	if targetID != "b" {
		t.Errorf("targetID = %s, want b", targetID)
	}
	if a.SymbioteCharges != 0 {
		t.Errorf("SymbioteCharges = %d, want forfeited", a.SymbioteCharges)
	}

	if _, err := e.EndSymbiote(ctx, a); !errors.Is(err, ErrNotBound) {
		t.Errorf("second end error = %v, want ErrNotBound", err)
	}
}
