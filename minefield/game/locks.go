package game

import "sync"

// GuildLocks serializes all game mutations for one server while letting
// different servers run in parallel. Long waits (arena join window, round
// delays) must sleep outside the lock and re-acquire it for each discrete
// mutation.
type GuildLocks struct {
	locks sync.Map // serverID -> *sync.Mutex
}

func NewGuildLocks() *GuildLocks {
	return &GuildLocks{}
}

// Lock acquires the server's mutex and returns its unlock func.
func (g *GuildLocks) Lock(serverID string) func() {
	mu, _ := g.locks.LoadOrStore(serverID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
