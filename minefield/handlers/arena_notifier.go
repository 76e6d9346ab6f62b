package handlers

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/minefieldbot/minefield/minefield"
	"github.com/minefieldbot/minefield/minefield/config"
	"github.com/minefieldbot/minefield/minefield/database/models"
	"github.com/minefieldbot/minefield/minefield/game/arena"
)

// ArenaNotifier narrates arena lifecycle events into the server's minefield
// channel.
type ArenaNotifier struct {
	bot *minefield.Bot
}

func NewArenaNotifier(b *minefield.Bot) *ArenaNotifier {
	return &ArenaNotifier{bot: b}
}

func (n *ArenaNotifier) ArenaOpened(serverID string, host *models.User, buyIn int) {
	n.sendEmbed(serverID, discord.Embed{
		Title: "⚔️ Arena Opened",
		Description: fmt.Sprintf("%s has opened an Arena with a buy in of %d MF$!\nUse /join within %d seconds to enter.",
			host.Username, buyIn, int(config.ArenaJoinWindow.Seconds())),
		Color: config.WarningColor,
	})
}

func (n *ArenaNotifier) ArenaCancelled(serverID string, host *models.User, buyIn int) {
	n.sendEmbed(serverID, discord.Embed{
		Title:       "⚔️ Arena Cancelled",
		Description: fmt.Sprintf("Nobody joined %s's Arena. The buy in of %d MF$ has been refunded.", host.Username, buyIn),
		Color:       config.ErrorColor,
	})
}

func (n *ArenaNotifier) ArenaStarted(serverID string, participants []*models.User, payout int) {
	names := make([]string, len(participants))
	for i, p := range participants {
		names[i] = p.Username
	}
	n.sendEmbed(serverID, discord.Embed{
		Title: "⚔️ Arena Started",
		Description: fmt.Sprintf("The gates close. %d combatants enter for a pot of %d MF$:\n%s",
			len(participants), payout, strings.Join(names, ", ")),
		Color: config.WarningColor,
	})
}

func (n *ArenaNotifier) ArenaRound(serverID string, round int, rolls []arena.Roll) {
	var sb strings.Builder
	for _, r := range rolls {
		if r.Eliminated {
			fmt.Fprintf(&sb, "💥 %s rolled %d and steps on a mine!\n", r.User.Username, r.Value)
		} else {
			fmt.Fprintf(&sb, "✅ %s rolled %d and survives.\n", r.User.Username, r.Value)
		}
	}
	n.sendEmbed(serverID, discord.Embed{
		Title:       fmt.Sprintf("⚔️ Arena — Round %d", round),
		Description: sb.String(),
		Color:       config.InfoColor,
	})
}

func (n *ArenaNotifier) ArenaResolved(serverID string, winners []*models.User, payout, share int) {
	names := make([]string, len(winners))
	for i, w := range winners {
		names[i] = w.Username
	}
	n.sendEmbed(serverID, discord.Embed{
		Title: "🏆 Arena Resolved",
		Description: fmt.Sprintf("%s walks out of the Arena with %d MF$ each (pot: %d MF$).",
			strings.Join(names, ", "), share, payout),
		Color: config.GoldColor,
	})
}

func (n *ArenaNotifier) sendEmbed(serverID string, embed discord.Embed) {
	guildID, err := snowflake.Parse(serverID)
	if err != nil {
		return
	}
	channelID, ok := n.bot.MinefieldChannel(guildID)
	if !ok {
		return
	}
	if _, err := n.bot.Client.Rest().CreateMessage(channelID, discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		Build()); err != nil {
		slog.Error("Failed to send arena message",
			slog.String("type", "sys"),
			slog.String("server_id", serverID),
			slog.Any("error", err))
	}
}
