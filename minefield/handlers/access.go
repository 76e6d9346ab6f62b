package handlers

import (
	"log/slog"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/minefieldbot/minefield/minefield"
	"github.com/minefieldbot/minefield/minefield/database/models"
)

// AccessController consumes the engine's death and revival events and
// mirrors them onto channel permissions: dead users lose access to the
// minefield channel until revived. The guild owner's permissions cannot be
// overridden, so owners are skipped.
type AccessController struct {
	bot *minefield.Bot
}

func NewAccessController(b *minefield.Bot) *AccessController {
	return &AccessController{bot: b}
}

// UserDied denies the member the minefield channel. Runs in the background;
// the engine is holding the guild lock when it emits.
func (a *AccessController) UserDied(user *models.User) {
	go a.apply(user, true)
}

// UserRevived drops the member's deny overwrite.
func (a *AccessController) UserRevived(user *models.User) {
	go a.apply(user, false)
}

func (a *AccessController) apply(user *models.User, deny bool) {
	guildID, err := snowflake.Parse(user.ServerID)
	if err != nil {
		return
	}
	userID, err := snowflake.Parse(user.UserID)
	if err != nil {
		return
	}

	channelID, ok := a.bot.MinefieldChannel(guildID)
	if !ok {
		return
	}

	guild, err := a.bot.Client.Rest().GetGuild(guildID, false)
	if err != nil {
		slog.Error("Failed to fetch guild for access change",
			slog.String("type", "sys"),
			slog.String("guild_id", guildID.String()),
			slog.Any("error", err))
		return
	}
	if guild.OwnerID == userID {
		return
	}

	if deny {
		denied := discord.PermissionSendMessages | discord.PermissionViewChannel
		err = a.bot.Client.Rest().UpdatePermissionOverwrite(channelID, userID, discord.MemberPermissionOverwriteUpdate{
			Deny: &denied,
		})
	} else {
		err = a.bot.Client.Rest().DeletePermissionOverwrite(channelID, userID)
	}
	if err != nil {
		slog.Error("Failed to update channel access",
			slog.String("type", "sys"),
			slog.String("guild_id", guildID.String()),
			slog.String("user_id", userID.String()),
			slog.Bool("deny", deny),
			slog.Any("error", err))
	}
}
