package game

import "github.com/minefieldbot/minefield/minefield/database/models"

// EventSink receives life-cycle notifications the engine emits instead of
// touching the platform itself. The handlers layer implements this with
// channel-permission calls; the engine never imports Discord types.
type EventSink interface {
	UserDied(user *models.User)
	UserRevived(user *models.User)
}

// NopSink discards all events. Used in tests and before the gateway is up.
type NopSink struct{}

func (NopSink) UserDied(*models.User)    {}
func (NopSink) UserRevived(*models.User) {}
