package commands

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/minefieldbot/minefield/minefield"
	"github.com/minefieldbot/minefield/minefield/config"
	"github.com/minefieldbot/minefield/minefield/database/models"
)

var Reset = discord.SlashCommandCreate{
	Name:        "reset",
	Description: "🧹 Wipe a user's minefield record back to a fresh start",
	Options:     []discord.ApplicationCommandOption{adminUserOption},
}

var Revive = discord.SlashCommandCreate{
	Name:        "revive",
	Description: "🧹 Bring a dead user back without a lifeline",
	Options:     []discord.ApplicationCommandOption{adminUserOption},
}

var SetBalance = discord.SlashCommandCreate{
	Name:        "setbalance",
	Description: "🧹 Set a user's MF$ balance",
	Options: []discord.ApplicationCommandOption{
		adminUserOption,
		discord.ApplicationCommandOptionInt{
			Name:        "amount",
			Description: "The new balance",
			Required:    true,
			MinValue:    intPtr(0),
		},
	},
}

var Immune = discord.SlashCommandCreate{
	Name:        "immune",
	Description: "🧹 Toggle your own minefield immunity",
}

var SetOdds = discord.SlashCommandCreate{
	Name:        "setodds",
	Description: "🧹 Set a user's current odds denominator",
	Options: []discord.ApplicationCommandOption{
		adminUserOption,
		discord.ApplicationCommandOptionInt{
			Name:        "odds",
			Description: "The new denominator, between 2 and the user's max odds",
			Required:    true,
			MinValue:    intPtr(config.MinOdds),
		},
	},
}

var SetMaxOdds = discord.SlashCommandCreate{
	Name:        "setmaxodds",
	Description: "🧹 Set a user's max odds denominator",
	Options: []discord.ApplicationCommandOption{
		adminUserOption,
		discord.ApplicationCommandOptionInt{
			Name:        "odds",
			Description: "The new denominator, between 2 and 50",
			Required:    true,
			MinValue:    intPtr(config.MinOdds),
			MaxValue:    intPtr(config.MaxOddsCeiling),
		},
	},
}

var adminUserOption = discord.ApplicationCommandOptionString{
	Name:        "username",
	Description: "The user to act on",
	Required:    true,
}

// adminTarget gates on the janitor role and resolves the username option.
func adminTarget(b *minefield.Bot, e *handler.CommandEvent) (*models.User, error) {
	if !isJanitor(b, e) {
		return nil, replyEphemeral(e, "Only janitors can sweep the minefield.")
	}

	ctx, cancel := commandCtx()
	defer cancel()

	username := e.SlashCommandInteractionData().String("username")
	user, err := target(ctx, b, e, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, replyEphemeral(e, fmt.Sprintf("Could not find user %s.", username))
	}
	return user, nil
}

func ResetHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		user, err := adminTarget(b, e)
		if err != nil || user == nil {
			return err
		}

		ctx, cancel := commandCtx()
		defer cancel()

		unlock := b.GuildLocks.Lock(user.ServerID)
		defer unlock()

		if err := b.RelationshipRepository.DeleteAllFor(ctx, user.ServerID, user.UserID); err != nil {
			return err
		}
		if _, err := b.UserRepository.Reset(ctx, user.UserID, user.ServerID); err != nil {
			return err
		}
		return reply(e, fmt.Sprintf("%s has been reset. Welcome back to the minefield.", user.Username))
	}
}

func ReviveHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		user, err := adminTarget(b, e)
		if err != nil || user == nil {
			return err
		}

		ctx, cancel := commandCtx()
		defer cancel()

		unlock := b.GuildLocks.Lock(user.ServerID)
		err = b.Engine.Revive(ctx, user)
		unlock()
		if err != nil {
			return replyGameError(e, err)
		}
		return reply(e, fmt.Sprintf(":sparkling_heart: %s has been revived! :sparkling_heart:", user.Username))
	}
}

// ImmuneHandler toggles the janitor's own immunity; immune users can talk in
// the channel without rolling or earning.
func ImmuneHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !isJanitor(b, e) {
			return replyEphemeral(e, "Only janitors can sweep the minefield.")
		}

		ctx, cancel := commandCtx()
		defer cancel()

		user, err := caller(ctx, b, e)
		if err != nil {
			return err
		}

		unlock := b.GuildLocks.Lock(user.ServerID)
		immune, err := b.Engine.ToggleImmunity(ctx, user)
		unlock()
		if err != nil {
			return err
		}
		if immune {
			return reply(e, "You are now immune.")
		}
		return reply(e, "You are no longer immune.")
	}
}

func SetOddsHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		user, err := adminTarget(b, e)
		if err != nil || user == nil {
			return err
		}

		odds := e.SlashCommandInteractionData().Int("odds")
		if odds < config.MinOdds || odds > user.MaxOdds {
			return replyEphemeral(e, fmt.Sprintf("Odds must be between %d and %s's max odds (%d).",
				config.MinOdds, user.Username, user.MaxOdds))
		}

		ctx, cancel := commandCtx()
		defer cancel()

		unlock := b.GuildLocks.Lock(user.ServerID)
		user.CurrentOdds = odds
		err = b.UserRepository.Update(ctx, user)
		unlock()
		if err != nil {
			return err
		}
		return reply(e, fmt.Sprintf("Set %s's odds to 1 in %d.", user.Username, odds))
	}
}

func SetMaxOddsHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		user, err := adminTarget(b, e)
		if err != nil || user == nil {
			return err
		}

		odds := e.SlashCommandInteractionData().Int("odds")

		ctx, cancel := commandCtx()
		defer cancel()

		unlock := b.GuildLocks.Lock(user.ServerID)
		user.MaxOdds = odds
		if user.CurrentOdds > user.MaxOdds {
			user.CurrentOdds = user.MaxOdds
		}
		err = b.UserRepository.Update(ctx, user)
		unlock()
		if err != nil {
			return err
		}
		return reply(e, fmt.Sprintf("Set %s's max odds to 1 in %d.", user.Username, odds))
	}
}

func SetBalanceHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		user, err := adminTarget(b, e)
		if err != nil || user == nil {
			return err
		}

		ctx, cancel := commandCtx()
		defer cancel()

		amount := e.SlashCommandInteractionData().Int("amount")

		unlock := b.GuildLocks.Lock(user.ServerID)
		user.Currency = amount
		err = b.UserRepository.Update(ctx, user)
		unlock()
		if err != nil {
			return err
		}
		return reply(e, fmt.Sprintf("%s's balance is now %d MF$.", user.Username, amount))
	}
}
