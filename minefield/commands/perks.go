package commands

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/minefieldbot/minefield/minefield"
	"github.com/minefieldbot/minefield/minefield/config"
)

var Aegis = discord.SlashCommandCreate{
	Name:        "aegis",
	Description: fmt.Sprintf("🛡️ Protect your next %d messages from mines (%d MF$)", config.AegisCharges, config.AegisCost),
}

func AegisHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandCtx()
		defer cancel()

		user, err := caller(ctx, b, e)
		if err != nil {
			return err
		}

		unlock := b.GuildLocks.Lock(user.ServerID)
		err = b.Engine.ActivateAegis(ctx, user)
		unlock()
		if err != nil {
			return replyGameError(e, err)
		}
		return reply(e, fmt.Sprintf(":shield: Aegis activated! Your next %d messages are protected. :shield:", config.AegisCharges))
	}
}

var Fortune = discord.SlashCommandCreate{
	Name:        "fortune",
	Description: fmt.Sprintf("🪙 Double the earnings of your next %d messages (%d MF$)", config.FortuneCharges, config.FortuneCost),
}

func FortuneHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandCtx()
		defer cancel()

		user, err := caller(ctx, b, e)
		if err != nil {
			return err
		}

		unlock := b.GuildLocks.Lock(user.ServerID)
		err = b.Engine.ActivateFortune(ctx, user)
		unlock()
		if err != nil {
			return replyGameError(e, err)
		}
		return reply(e, fmt.Sprintf(":coin: Fortune activated! The earnings of your next %d messages are doubled. :coin:", config.FortuneCharges))
	}
}

var Guardian = discord.SlashCommandCreate{
	Name:        "guardian",
	Description: fmt.Sprintf("👼 Negate the next mine you trigger (%d MF$)", config.GuardianCost),
}

func GuardianHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandCtx()
		defer cancel()

		user, err := caller(ctx, b, e)
		if err != nil {
			return err
		}

		unlock := b.GuildLocks.Lock(user.ServerID)
		err = b.Engine.ActivateGuardian(ctx, user)
		unlock()
		if err != nil {
			return replyGameError(e, err)
		}
		return reply(e, ":angel: Guardian activated! The next mine you trigger will be negated. :angel:")
	}
}

var Luck = discord.SlashCommandCreate{
	Name:        "luck",
	Description: fmt.Sprintf("🍀 Improve your current odds (%d MF$ per point)", config.LuckCostPer),
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "amount",
			Description: "How many points of odds to buy back",
			Required:    true,
			MinValue:    intPtr(1),
		},
	},
}

func LuckHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandCtx()
		defer cancel()

		user, err := caller(ctx, b, e)
		if err != nil {
			return err
		}
		amount := e.SlashCommandInteractionData().Int("amount")

		unlock := b.GuildLocks.Lock(user.ServerID)
		err = b.Engine.ActivateLuck(ctx, user, amount)
		unlock()
		if err != nil {
			return replyGameError(e, err)
		}
		return reply(e, fmt.Sprintf(":four_leaf_clover: Luck activated! Your odds have been improved to 1 in %d. :four_leaf_clover:", user.CurrentOdds))
	}
}

var Restore = discord.SlashCommandCreate{
	Name:        "restore",
	Description: fmt.Sprintf("✨ Raise your max odds toward %d (%d MF$ per point)", config.MaxOddsCeiling, config.RestoreCostPer),
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "amount",
			Description: "How many points of max odds to restore",
			Required:    true,
			MinValue:    intPtr(1),
		},
	},
}

func RestoreHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandCtx()
		defer cancel()

		user, err := caller(ctx, b, e)
		if err != nil {
			return err
		}
		amount := e.SlashCommandInteractionData().Int("amount")

		unlock := b.GuildLocks.Lock(user.ServerID)
		err = b.Engine.ActivateRestore(ctx, user, amount)
		unlock()
		if err != nil {
			return replyGameError(e, err)
		}
		return reply(e, fmt.Sprintf(":sparkles: Restore activated! Your max odds are now 1 in %d. :sparkles:", user.MaxOdds))
	}
}

func intPtr(i int) *int {
	return &i
}
