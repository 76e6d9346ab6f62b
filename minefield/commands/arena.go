package commands

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/minefieldbot/minefield/minefield"
)

var Arena = discord.SlashCommandCreate{
	Name:        "arena",
	Description: "⚔️ Open an elimination tournament with a buy in",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "buyin",
			Description: "MF$ every participant must stake",
			Required:    true,
			MinValue:    intPtr(1),
		},
	},
}

func ArenaHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandCtx()
		defer cancel()

		user, err := caller(ctx, b, e)
		if err != nil {
			return err
		}
		buyIn := e.SlashCommandInteractionData().Int("buyin")

		if err := b.Arena.Open(ctx, user, buyIn); err != nil {
			return replyGameError(e, err)
		}
		return reply(e, ":crossed_swords: You have opened the Arena! :crossed_swords:")
	}
}

var Join = discord.SlashCommandCreate{
	Name:        "join",
	Description: "⚔️ Join the open Arena",
}

func JoinHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandCtx()
		defer cancel()

		user, err := caller(ctx, b, e)
		if err != nil {
			return err
		}

		if err := b.Arena.Join(ctx, user); err != nil {
			return replyGameError(e, err)
		}
		return reply(e, ":crossed_swords: You have joined the Arena! :crossed_swords:")
	}
}
