package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/minefieldbot/minefield/minefield"
	"github.com/minefieldbot/minefield/minefield/config"
	"github.com/minefieldbot/minefield/minefield/game"
	"github.com/minefieldbot/minefield/minefield/logger"
)

var closeCallMessages = []string{
	"You take a step forward, and a soft click reverberates underfoot. Your breath catches, adrenaline spikes through you as realization sets in. Gently, you lift your foot and step back, holding your breath. There's a tense moment as you wait, muscles coiled, before the ground shifts without a blast. Safe, for now.",
	"As you trek through the dense undergrowth, a metallic glint catches your eye just as your boot hovers over it. Reflexes kick in. You pivot mid-stride and launch yourself sideways, hitting the ground hard. Behind you, a muffled *thump* sends debris scattering into the air, but you're out of reach. Close call.",
	"Your foot presses down on something that feels just slightly wrong. Time slows as you lean back, testing the tension. In a single motion, you shift all your weight to your back foot, keeping your balance steady. With bated breath, you pull your foot free. The ground remains silent and undisturbed. You exhale, unharmed.",
	"Moving through a narrow trail, your boot presses into the earth, and you hear a faint metallic *click.* Instinct takes over, you dive forward, rolling to the side as fast as you can. You feel a warm gust behind you as the mine detonates, scattering dust and grit into the air, but you've cleared the blast.",
	"Spotting something suspicious partially buried, you freeze, carefully retracting your foot and feeling your heartbeat pound. You reach for a rock, throw it at the ground in front of you, and duck. The explosion that follows sends dirt and metal into the air, but you remain intact, unharmed. You rise, relieved.",
}

// MessageHandler feeds every non-bot message in a guild's minefield channel
// through the engine and narrates the outcome. All game mutations for one
// guild run under that guild's lock.
func MessageHandler(b *minefield.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.MessageCreate) {
		if e.Message.Author.Bot || e.GuildID == nil {
			return
		}
		channelID, ok := b.MinefieldChannel(*e.GuildID)
		if !ok || e.ChannelID != channelID {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		serverID := e.GuildID.String()
		user, err := b.UserRepository.GetOrCreate(ctx, e.Message.Author.ID.String(), serverID, e.Message.Author.Username)
		if err != nil {
			slog.Error("Failed to load user for message",
				slog.String("type", "game"),
				slog.String("server_id", serverID),
				slog.Any("error", err))
			return
		}

		unlock := b.GuildLocks.Lock(serverID)
		outcome, err := b.Engine.ProcessMessage(ctx, user)
		unlock()
		if err != nil {
			slog.Error("Failed to process message",
				slog.String("type", "game"),
				slog.String("user_name", user.Username),
				slog.String("server_id", serverID),
				slog.Any("error", err))
			return
		}

		switch {
		case outcome.Dead || outcome.AegisUsed:
			return
		case outcome.Triggered:
			logger.LogGame("Mine triggered",
				slog.String("user_name", user.Username),
				slog.String("server_id", serverID),
				slog.Bool("guardian_saved", outcome.Resolution.GuardianSaved))
			narrateTrigger(b, e.ChannelID, outcome)
		case outcome.CloseCall:
			msg := closeCallMessages[rand.Intn(len(closeCallMessages))]
			send(b, e.ChannelID, fmt.Sprintf("%s (%d/%d)", msg, outcome.Roll, outcome.Odds))
		}
	})
}

func narrateTrigger(b *minefield.Bot, channelID snowflake.ID, outcome *game.RollOutcome) {
	res := outcome.Resolution
	for _, pair := range res.Sacrifices {
		send(b, channelID, fmt.Sprintf("%s pushes %s out of the way!", pair.Provider.Username, pair.Target.Username))
	}

	if res.GuardianSaved {
		send(b, channelID, ":angel::boom::angel:")
		return
	}

	if res.PactVictim != nil {
		send(b, channelID, fmt.Sprintf(":scroll: %s has been claimed by their Death Pact with %s :scroll:",
			res.PactVictim.Username, res.FinalVictim.Username))
	}
	send(b, channelID, ":boom:")
}

func send(b *minefield.Bot, channelID snowflake.ID, content string) {
	if _, err := b.Client.Rest().CreateMessage(channelID, discord.NewMessageCreateBuilder().
		SetContent(content).
		Build()); err != nil {
		slog.Error("Failed to send message",
			slog.String("type", "sys"),
			slog.String("channel_id", channelID.String()),
			slog.Any("error", err))
	}
}
