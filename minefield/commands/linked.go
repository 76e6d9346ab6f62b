package commands

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/minefieldbot/minefield/minefield"
	"github.com/minefieldbot/minefield/minefield/config"
	"github.com/minefieldbot/minefield/minefield/database/models"
)

func usernameOption(desc string) discord.ApplicationCommandOptionString {
	return discord.ApplicationCommandOptionString{
		Name:        "username",
		Description: desc,
		Required:    true,
	}
}

var DeathPact = discord.SlashCommandCreate{
	Name:        "deathpact",
	Description: fmt.Sprintf("📜 Share earnings and fate with another user (%d MF$ each)", config.DeathPactCost),
	Options:     []discord.ApplicationCommandOption{usernameOption("Who to bind your fate to")},
}

func DeathPactHandler(b *minefield.Bot) handler.CommandHandler {
	return linkedPerkHandler(b, func(e *handler.CommandEvent, user, tgt *models.User) (string, error) {
		ctx, cancel := commandCtx()
		defer cancel()
		if err := b.Engine.ActivateDeathPact(ctx, user, tgt); err != nil {
			return "", err
		}
		return fmt.Sprintf(":scroll: Death Pact sealed! You and %s now share earnings, and share death. :scroll:", tgt.Username), nil
	})
}

var Lifeline = discord.SlashCommandCreate{
	Name:        "lifeline",
	Description: fmt.Sprintf("🩸 Revive a dead user and share their next %d messages' earnings (%d MF$)", config.LifelineCharges, config.LifelineCost),
	Options:     []discord.ApplicationCommandOption{usernameOption("The dead user to revive")},
}

func LifelineHandler(b *minefield.Bot) handler.CommandHandler {
	return linkedPerkHandler(b, func(e *handler.CommandEvent, user, tgt *models.User) (string, error) {
		ctx, cancel := commandCtx()
		defer cancel()
		if err := b.Engine.ActivateLifeline(ctx, user, tgt); err != nil {
			return "", err
		}
		return fmt.Sprintf(":drop_of_blood: Lifeline activated! You have revived %s and you will both receive the earnings of their next %d messages. :drop_of_blood:",
			tgt.Username, config.LifelineCharges), nil
	})
}

var Sacrifice = discord.SlashCommandCreate{
	Name:        "sacrifice",
	Description: fmt.Sprintf("🐑 Pledge to die in another user's place (%d MF$)", config.SacrificeCost),
	Options:     []discord.ApplicationCommandOption{usernameOption("Who to die for")},
}

func SacrificeHandler(b *minefield.Bot) handler.CommandHandler {
	return linkedPerkHandler(b, func(e *handler.CommandEvent, user, tgt *models.User) (string, error) {
		ctx, cancel := commandCtx()
		defer cancel()
		if err := b.Engine.ActivateSacrifice(ctx, user, tgt); err != nil {
			return "", err
		}
		return fmt.Sprintf(":sheep: Sacrifice activated! Next time %s would be blown up by a mine, you will be blown up instead. :sheep:", tgt.Username), nil
	})
}

var Symbiote = discord.SlashCommandCreate{
	Name:        "symbiote",
	Description: fmt.Sprintf("🪱 Leech the earnings of another user's next %d messages (%d MF$)", config.SymbioteCharges, config.SymbioteCost),
	Options:     []discord.ApplicationCommandOption{usernameOption("Who to latch onto")},
}

func SymbioteHandler(b *minefield.Bot) handler.CommandHandler {
	return linkedPerkHandler(b, func(e *handler.CommandEvent, user, tgt *models.User) (string, error) {
		ctx, cancel := commandCtx()
		defer cancel()
		if err := b.Engine.ActivateSymbiote(ctx, user, tgt); err != nil {
			return "", err
		}
		return fmt.Sprintf(":worm: Symbiote activated! You will receive the earnings of %s's next %d messages. :worm:",
			tgt.Username, config.SymbioteCharges), nil
	})
}

// linkedPerkHandler resolves the username option, loads both users and runs
// the bind under the guild lock.
func linkedPerkHandler(b *minefield.Bot, bind func(e *handler.CommandEvent, user, tgt *models.User) (string, error)) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandCtx()
		defer cancel()

		username := e.SlashCommandInteractionData().String("username")
		user, err := caller(ctx, b, e)
		if err != nil {
			return err
		}
		tgt, err := target(ctx, b, e, username)
		if err != nil {
			return err
		}
		if tgt == nil {
			return replyEphemeral(e, fmt.Sprintf("Could not find user %s", username))
		}

		unlock := b.GuildLocks.Lock(user.ServerID)
		msg, err := bind(e, user, tgt)
		unlock()
		if err != nil {
			return replyGameError(e, err)
		}
		return reply(e, msg)
	}
}

var EndLifeline = discord.SlashCommandCreate{
	Name:        "endlifeline",
	Description: "End your Lifeline early, forfeiting the remaining charges",
}

func EndLifelineHandler(b *minefield.Bot) handler.CommandHandler {
	return endLinkHandler(b, "Lifeline", func(e *handler.CommandEvent, b *minefield.Bot, user *models.User) (string, error) {
		ctx, cancel := commandCtx()
		defer cancel()
		return b.Engine.EndLifeline(ctx, user)
	})
}

var EndSacrifice = discord.SlashCommandCreate{
	Name:        "endsacrifice",
	Description: "Withdraw your Sacrifice pledge",
}

func EndSacrificeHandler(b *minefield.Bot) handler.CommandHandler {
	return endLinkHandler(b, "Sacrifice", func(e *handler.CommandEvent, b *minefield.Bot, user *models.User) (string, error) {
		ctx, cancel := commandCtx()
		defer cancel()
		return b.Engine.EndSacrifice(ctx, user)
	})
}

var EndSymbiote = discord.SlashCommandCreate{
	Name:        "endsymbiote",
	Description: "End your Symbiote early, forfeiting the remaining charges",
}

func EndSymbioteHandler(b *minefield.Bot) handler.CommandHandler {
	return endLinkHandler(b, "Symbiote", func(e *handler.CommandEvent, b *minefield.Bot, user *models.User) (string, error) {
		ctx, cancel := commandCtx()
		defer cancel()
		return b.Engine.EndSymbiote(ctx, user)
	})
}

func endLinkHandler(b *minefield.Bot, perk string, end func(e *handler.CommandEvent, b *minefield.Bot, user *models.User) (string, error)) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandCtx()
		defer cancel()

		user, err := caller(ctx, b, e)
		if err != nil {
			return err
		}

		unlock := b.GuildLocks.Lock(user.ServerID)
		targetID, err := end(e, b, user)
		unlock()
		if err != nil {
			return replyGameError(e, err)
		}

		name := targetID
		if tgt, err := b.UserRepository.Get(ctx, targetID, user.ServerID); err == nil {
			name = tgt.Username
		}
		return reply(e, fmt.Sprintf("You have ended your %s with %s.", perk, name))
	}
}
