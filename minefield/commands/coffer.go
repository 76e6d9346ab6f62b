package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"

	"github.com/minefieldbot/minefield/minefield"
	"github.com/minefieldbot/minefield/minefield/config"
	"github.com/minefieldbot/minefield/minefield/game"
	"github.com/minefieldbot/minefield/minefield/game/coffer"
)

var Coffer = discord.SlashCommandCreate{
	Name:        "coffer",
	Description: "🪙 See what's in Charon's Coffer",
}

func CofferHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandCtx()
		defer cancel()

		status, err := b.Lottery.Status(ctx, e.GuildID().String())
		if err != nil {
			return err
		}
		return reply(e, fmt.Sprintf("There is currently %d MF$ in Charon's Coffer. %d ticket sales are required to open the Coffer. %d tickets have been sold so far.",
			status.Amount, status.Required, status.TicketsSold))
	}
}

var Tickets = discord.SlashCommandCreate{
	Name:        "tickets",
	Description: "🎟️ Check or buy Coffer tickets",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "amount",
			Description: "How many tickets to buy (omit to just look)",
			Required:    false,
			MinValue:    intPtr(1),
		},
	},
}

func TicketsHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandCtx()
		defer cancel()

		user, err := caller(ctx, b, e)
		if err != nil {
			return err
		}

		amount, buying := e.SlashCommandInteractionData().OptInt("amount")
		if !buying {
			owned, err := b.CofferRepository.UserTickets(ctx, user.ServerID, user.UserID)
			if err != nil {
				return err
			}
			if owned == 0 {
				return reply(e, fmt.Sprintf("You don't have any tickets for Charon's Coffer. Your next ticket will cost %d MF$.", coffer.TicketPrice(0)))
			}
			return reply(e, fmt.Sprintf("You have %d ticket(s) for Charon's Coffer. Your next ticket will cost %d MF$.", owned, coffer.TicketPrice(owned)))
		}

		unlock := b.GuildLocks.Lock(user.ServerID)
		cost, err := b.Lottery.BuyTickets(ctx, user, amount)
		unlock()
		if err != nil {
			return replyGameError(e, err)
		}
		if err := reply(e, fmt.Sprintf("You have purchased %d tickets for %d MF$.", amount, cost)); err != nil {
			return err
		}

		open, err := b.Lottery.ShouldOpen(ctx, user.ServerID)
		if err != nil || !open {
			return err
		}
		go drawCoffer(b, user.ServerID, e.ChannelID())
		return nil
	}
}

// drawCoffer runs the threshold-triggered draw: latch the opening flag,
// announce, wait for drama, then pay out and reset.
func drawCoffer(b *minefield.Bot, serverID string, channelID snowflake.ID) {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	unlock := b.GuildLocks.Lock(serverID)
	err := b.Lottery.MarkOpening(ctx, serverID)
	unlock()
	if err != nil {
		slog.Error("Failed to mark coffer opening",
			slog.String("type", "game"),
			slog.String("server_id", serverID),
			slog.Any("error", err))
		return
	}

	announce(b, channelID, ":moneybag: Charon's Coffer creaks open... :moneybag:")
	time.Sleep(config.CofferDrawDelay)

	unlock = b.GuildLocks.Lock(serverID)
	winnerID, amount, err := b.Lottery.Draw(ctx, serverID)
	unlock()
	if err != nil {
		slog.Error("Failed to draw coffer",
			slog.String("type", "game"),
			slog.String("server_id", serverID),
			slog.Any("error", err))
		return
	}

	name := winnerID
	if winner, err := b.UserRepository.Get(ctx, winnerID, serverID); err == nil {
		name = winner.Username
	}
	announce(b, channelID, fmt.Sprintf(":moneybag: %s has won the Coffer's %d MF$! :moneybag:", name, amount))
}

var Flip = discord.SlashCommandCreate{
	Name:        "flip",
	Description: fmt.Sprintf("🪙 Flip a coin for %d MF$", config.FlipCost),
}

func FlipHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandCtx()
		defer cancel()

		user, err := caller(ctx, b, e)
		if err != nil {
			return err
		}

		unlock := b.GuildLocks.Lock(user.ServerID)
		result, err := b.Engine.Flip(ctx, user)
		unlock()
		if err != nil {
			return replyGameError(e, err)
		}

		switch result {
		case game.FlipBoom:
			return reply(e, fmt.Sprintf(":boom: Flip exploded! You must send %d messages before you can flip again.", config.FlipBoomCooldown))
		case game.FlipWin:
			return reply(e, fmt.Sprintf(":crown: Flip won! You have earned %d MF$. You must send %d messages before you can flip again.", config.FlipWinPayout, config.FlipCooldown))
		default:
			return reply(e, fmt.Sprintf(":coffin: Flip lost! You have lost %d MF$. You must send %d messages before you can flip again.", config.FlipCost, config.FlipCooldown))
		}
	}
}

func announce(b *minefield.Bot, channelID snowflake.ID, content string) {
	if _, err := b.Client.Rest().CreateMessage(channelID, discord.NewMessageCreateBuilder().
		SetContent(content).
		Build()); err != nil {
		slog.Error("Failed to send announcement",
			slog.String("type", "sys"),
			slog.String("channel_id", channelID.String()),
			slog.Any("error", err))
	}
}
