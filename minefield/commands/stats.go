package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/minefieldbot/minefield/minefield"
	"github.com/minefieldbot/minefield/minefield/config"
	"github.com/minefieldbot/minefield/minefield/database/models"
)

var Balance = discord.SlashCommandCreate{
	Name:        "balance",
	Description: "💰 Check a minefield balance",
	Options:     []discord.ApplicationCommandOption{statUserOption},
}

var Odds = discord.SlashCommandCreate{
	Name:        "odds",
	Description: "🎲 Check current mine odds",
	Options:     []discord.ApplicationCommandOption{statUserOption},
}

var MaxOdds = discord.SlashCommandCreate{
	Name:        "maxodds",
	Description: "🎲 Check the mine odds ceiling",
	Options:     []discord.ApplicationCommandOption{statUserOption},
}

var Streak = discord.SlashCommandCreate{
	Name:        "streak",
	Description: "🔥 Check a survival streak",
	Options:     []discord.ApplicationCommandOption{statUserOption},
}

var Messages = discord.SlashCommandCreate{
	Name:        "messages",
	Description: "💬 Check a lifetime message count",
	Options:     []discord.ApplicationCommandOption{statUserOption},
}

var Status = discord.SlashCommandCreate{
	Name:        "status",
	Description: "📋 Full minefield status for a user",
	Options:     []discord.ApplicationCommandOption{statUserOption},
}

var Perks = discord.SlashCommandCreate{
	Name:        "perks",
	Description: "🧿 List a user's active perks",
	Options:     []discord.ApplicationCommandOption{statUserOption},
}

var Users = discord.SlashCommandCreate{
	Name:        "users",
	Description: "👥 List everyone walking the minefield",
}

var Cooldowns = discord.SlashCommandCreate{
	Name:        "cooldowns",
	Description: "🔄 Check your Aegis and Guardian cooldowns",
}

var DeadUsers = discord.SlashCommandCreate{
	Name:        "deadusers",
	Description: "💀 List the minefield's graveyard",
}

var statUserOption = discord.ApplicationCommandOptionString{
	Name:        "username",
	Description: "Whose stats to look up (defaults to you)",
	Required:    false,
}

// statUser resolves the optional username option, falling back to the caller.
func statUser(b *minefield.Bot) func(e *handler.CommandEvent) (*models.User, error) {
	return func(e *handler.CommandEvent) (*models.User, error) {
		ctx, cancel := commandCtx()
		defer cancel()

		if username, ok := e.SlashCommandInteractionData().OptString("username"); ok {
			return target(ctx, b, e, username)
		}
		return caller(ctx, b, e)
	}
}

func statHandler(b *minefield.Bot, format func(u *models.User) string) handler.CommandHandler {
	resolve := statUser(b)
	return func(e *handler.CommandEvent) error {
		user, err := resolve(e)
		if err != nil {
			return err
		}
		if user == nil {
			return replyEphemeral(e, "Could not find that user in the minefield.")
		}
		return reply(e, format(user))
	}
}

func BalanceHandler(b *minefield.Bot) handler.CommandHandler {
	return statHandler(b, func(u *models.User) string {
		return fmt.Sprintf("%s has %d MF$ (%d MF$ lifetime).", u.Username, u.Currency, u.LifetimeCurrency)
	})
}

func OddsHandler(b *minefield.Bot) handler.CommandHandler {
	return statHandler(b, func(u *models.User) string {
		return fmt.Sprintf("%s currently has a 1 in %d chance of hitting a mine.", u.Username, u.CurrentOdds)
	})
}

func MaxOddsHandler(b *minefield.Bot) handler.CommandHandler {
	return statHandler(b, func(u *models.User) string {
		return fmt.Sprintf("%s's odds reset to 1 in %d after each mine.", u.Username, u.MaxOdds)
	})
}

func StreakHandler(b *minefield.Bot) handler.CommandHandler {
	return statHandler(b, func(u *models.User) string {
		return fmt.Sprintf("%s has survived %d message(s) since their last mine.", u.Username, u.CurrentStreak)
	})
}

func MessagesHandler(b *minefield.Bot) handler.CommandHandler {
	return statHandler(b, func(u *models.User) string {
		return fmt.Sprintf("%s has sent %d message(s) in the minefield.", u.Username, u.TotalMessages)
	})
}

func StatusHandler(b *minefield.Bot) handler.CommandHandler {
	resolve := statUser(b)
	return func(e *handler.CommandEvent) error {
		user, err := resolve(e)
		if err != nil {
			return err
		}
		if user == nil {
			return replyEphemeral(e, "Could not find that user in the minefield.")
		}

		state := ":skull: Dead"
		color := config.ErrorColor
		switch {
		case user.IsAlive && user.IsImmune:
			state = ":moyai: Immune"
			color = config.GreyColor
		case user.IsAlive:
			state = ":heart: Alive"
			color = config.SuccessColor
		}

		embed := discord.NewEmbedBuilder().
			SetTitle(fmt.Sprintf("Minefield status: %s", user.Username)).
			SetColor(color).
			AddField("State", state, true).
			AddField("Odds", fmt.Sprintf("1 in %d (resets to 1 in %d)", user.CurrentOdds, user.MaxOdds), true).
			AddField("Streak", fmt.Sprintf("%d", user.CurrentStreak), true).
			AddField("Balance", fmt.Sprintf("%d MF$", user.Currency), true).
			AddField("Lifetime", fmt.Sprintf("%d MF$", user.LifetimeCurrency), true).
			AddField("Messages", fmt.Sprintf("%d", user.TotalMessages), true).
			AddField("Perks", perkSummary(user), false).
			Build()
		return replyEmbed(e, embed)
	}
}

func PerksHandler(b *minefield.Bot) handler.CommandHandler {
	resolve := statUser(b)
	return func(e *handler.CommandEvent) error {
		user, err := resolve(e)
		if err != nil {
			return err
		}
		if user == nil {
			return replyEphemeral(e, "Could not find that user in the minefield.")
		}

		ctx, cancel := commandCtx()
		defer cancel()

		lines := []string{perkSummary(user)}
		for _, edgeType := range models.EdgeTypes {
			line, err := describeEdge(ctx, b, edgeType, user)
			if err != nil {
				return err
			}
			if line != "" {
				lines = append(lines, line)
			}
		}
		return reply(e, fmt.Sprintf("%s's perks:\n%s", user.Username, strings.Join(lines, "\n")))
	}
}

// perkSummary renders the user's consumable and passive perk state.
func perkSummary(u *models.User) string {
	var parts []string
	if u.AegisCharges > 0 {
		parts = append(parts, fmt.Sprintf(":shield: Aegis (%d)", u.AegisCharges))
	}
	if u.FortuneCharges > 0 {
		parts = append(parts, fmt.Sprintf(":four_leaf_clover: Fortune (%d)", u.FortuneCharges))
	}
	if u.HasGuardian {
		parts = append(parts, ":angel: Guardian")
	}
	if u.LifelineCharges > 0 {
		parts = append(parts, fmt.Sprintf(":anchor: Lifeline (%d)", u.LifelineCharges))
	}
	if u.SymbioteCharges > 0 {
		parts = append(parts, fmt.Sprintf(":dna: Symbiote (%d)", u.SymbioteCharges))
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, ", ")
}

// describeEdge renders one linked-perk edge touching the user, or "" when the
// user has no edge of that type.
func describeEdge(ctx context.Context, b *minefield.Bot, edgeType models.EdgeType, u *models.User) (string, error) {
	var rel *models.Relationship
	var err error
	if edgeType == models.EdgeDeathPact {
		rel, err = b.RelationshipRepository.GetDeathPact(ctx, u.ServerID, u.UserID)
	} else {
		rel, err = b.RelationshipRepository.GetByProvider(ctx, edgeType, u.ServerID, u.UserID)
		if err == nil && rel == nil {
			rel, err = b.RelationshipRepository.GetByTarget(ctx, edgeType, u.ServerID, u.UserID)
		}
	}
	if err != nil || rel == nil {
		return "", err
	}

	other := rel.Other(u.UserID)
	name := other
	if otherUser, err := b.UserRepository.Get(ctx, other, u.ServerID); err == nil {
		name = otherUser.Username
	}

	switch edgeType {
	case models.EdgeDeathPact:
		return fmt.Sprintf(":scroll: Death Pact with %s", name), nil
	case models.EdgeLifeline:
		if rel.ProviderID == u.UserID {
			return fmt.Sprintf(":anchor: Lifeline protecting %s", name), nil
		}
		return fmt.Sprintf(":anchor: Lifeline from %s", name), nil
	case models.EdgeSacrifice:
		if rel.ProviderID == u.UserID {
			return fmt.Sprintf(":dagger: Sacrifice protecting %s", name), nil
		}
		return fmt.Sprintf(":dagger: Sacrifice from %s", name), nil
	default:
		if rel.ProviderID == u.UserID {
			return fmt.Sprintf(":dna: Symbiote feeding off %s", name), nil
		}
		return fmt.Sprintf(":dna: Symbiote hosting %s", name), nil
	}
}

func CooldownsHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandCtx()
		defer cancel()

		user, err := caller(ctx, b, e)
		if err != nil {
			return err
		}

		lines := []string{
			cooldownLine(":shield: Aegis", user.AegisCharges > 0, user.AegisCharges,
				config.AegisCooldown-user.MessagesSinceAegis),
			cooldownLine(":angel: Guardian", user.HasGuardian, 0,
				config.GuardianCooldown-user.MessagesSinceGuardian),
		}

		embed := discord.NewEmbedBuilder().
			SetTitle(":arrows_counterclockwise: Perk Cooldowns").
			SetColor(config.InfoColor).
			SetDescription(strings.Join(lines, "\n")).
			Build()
		return replyEmbed(e, embed)
	}
}

// cooldownLine renders one perk's availability: active with charges, ready,
// or the messages left before it can be bought again.
func cooldownLine(label string, active bool, charges, remaining int) string {
	switch {
	case active && charges > 0:
		return fmt.Sprintf("%s — Active (%d charges remaining)", label, charges)
	case active:
		return fmt.Sprintf("%s — Active", label)
	case remaining <= 0:
		return fmt.Sprintf("%s — Available", label)
	default:
		return fmt.Sprintf("%s — On cooldown (%d messages remaining)", label, remaining)
	}
}

func DeadUsersHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandCtx()
		defer cancel()

		usernames, err := b.UserRepository.GetDeadUsernames(ctx, e.GuildID().String())
		if err != nil {
			return err
		}
		graveyard := "None"
		if len(usernames) > 0 {
			graveyard = strings.Join(usernames, "\n")
		}

		embed := discord.NewEmbedBuilder().
			SetTitle(":skull: Dead Users :skull:").
			SetColor(config.GreyColor).
			AddField("Graveyard", graveyard, false).
			Build()
		return replyEmbed(e, embed)
	}
}

func UsersHandler(b *minefield.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandCtx()
		defer cancel()

		usernames, err := b.UserRepository.GetAllUsernames(ctx, e.GuildID().String())
		if err != nil {
			return err
		}
		if len(usernames) == 0 {
			return reply(e, "Nobody is walking the minefield yet.")
		}
		return reply(e, fmt.Sprintf("Walking the minefield (%d): %s", len(usernames), strings.Join(usernames, ", ")))
	}
}
