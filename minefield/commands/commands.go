package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/minefieldbot/minefield/minefield"
	"github.com/minefieldbot/minefield/minefield/config"
	"github.com/minefieldbot/minefield/minefield/database/models"
	"github.com/minefieldbot/minefield/minefield/database/repositories"
	"github.com/minefieldbot/minefield/minefield/game"
	"github.com/minefieldbot/minefield/minefield/handlers"
)

var Commands = []discord.ApplicationCommandCreate{}

func init() {
	Commands = append(Commands,
		Aegis, Fortune, Guardian, Luck, Restore,
		DeathPact, Lifeline, Sacrifice, Symbiote,
		EndLifeline, EndSacrifice, EndSymbiote,
		Arena, Join, Coffer, Tickets, Flip,
		Balance, Odds, MaxOdds, Streak, Messages, Status, Perks, Users,
		Cooldowns, DeadUsers,
		Leaderboard, Help, Info,
		Reset, Revive, SetBalance, Immune, SetOdds, SetMaxOdds,
	)
}

// Register wires every command handler onto the router.
func Register(h *handler.Mux, b *minefield.Bot) {
	cmd := func(name string, fn func(b *minefield.Bot) handler.CommandHandler) {
		h.Command("/"+name, handlers.WrapWithLogging(name, fn(b)))
	}

	cmd("aegis", AegisHandler)
	cmd("fortune", FortuneHandler)
	cmd("guardian", GuardianHandler)
	cmd("luck", LuckHandler)
	cmd("restore", RestoreHandler)
	cmd("deathpact", DeathPactHandler)
	cmd("lifeline", LifelineHandler)
	cmd("sacrifice", SacrificeHandler)
	cmd("symbiote", SymbioteHandler)
	cmd("endlifeline", EndLifelineHandler)
	cmd("endsacrifice", EndSacrificeHandler)
	cmd("endsymbiote", EndSymbioteHandler)
	cmd("arena", ArenaHandler)
	cmd("join", JoinHandler)
	cmd("coffer", CofferHandler)
	cmd("tickets", TicketsHandler)
	cmd("flip", FlipHandler)
	cmd("balance", BalanceHandler)
	cmd("odds", OddsHandler)
	cmd("maxodds", MaxOddsHandler)
	cmd("streak", StreakHandler)
	cmd("messages", MessagesHandler)
	cmd("status", StatusHandler)
	cmd("perks", PerksHandler)
	cmd("users", UsersHandler)
	cmd("cooldowns", CooldownsHandler)
	cmd("deadusers", DeadUsersHandler)
	cmd("leaderboard", LeaderboardHandler)
	cmd("help", HelpHandler)
	cmd("info", InfoHandler)
	cmd("reset", ResetHandler)
	cmd("revive", ReviveHandler)
	cmd("setbalance", SetBalanceHandler)
	cmd("immune", ImmuneHandler)
	cmd("setodds", SetOddsHandler)
	cmd("setmaxodds", SetMaxOddsHandler)
}

// caller loads (or creates) the invoking user's record.
func caller(ctx context.Context, b *minefield.Bot, e *handler.CommandEvent) (*models.User, error) {
	return b.UserRepository.GetOrCreate(ctx, e.User().ID.String(), e.GuildID().String(), e.User().Username)
}

// target resolves a username option against the server's users, exact match
// first, fuzzy second. A miss is (nil, nil) so handlers can answer with a
// not-found message instead of bubbling a repository error.
func target(ctx context.Context, b *minefield.Bot, e *handler.CommandEvent, username string) (*models.User, error) {
	user, err := b.UserRepository.GetByUsername(ctx, username, e.GuildID().String())
	if userNotFound(err) {
		return nil, nil
	}
	return user, err
}

// userNotFound reports whether err is the repository's unknown-user result.
func userNotFound(err error) bool {
	var nf *repositories.NotFoundError
	return errors.As(err, &nf)
}

func reply(e *handler.CommandEvent, content string) error {
	return e.CreateMessage(discord.NewMessageCreateBuilder().SetContent(content).Build())
}

func replyEmbed(e *handler.CommandEvent, embed discord.Embed) error {
	return e.CreateMessage(discord.NewMessageCreateBuilder().SetEmbeds(embed).Build())
}

func replyEphemeral(e *handler.CommandEvent, content string) error {
	return e.CreateMessage(discord.NewMessageCreateBuilder().SetContent(content).SetEphemeral(true).Build())
}

// replyGameError translates an engine rejection into a user-facing message.
// Unexpected errors bubble up to the logging wrapper.
func replyGameError(e *handler.CommandEvent, err error) error {
	var cooldown *game.CooldownError
	if errors.As(err, &cooldown) {
		return replyEphemeral(e, fmt.Sprintf("You must send %d more messages before you can activate %s again.",
			cooldown.Remaining, cooldown.Perk))
	}
	var purchase *game.PurchaseError
	if errors.As(err, &purchase) {
		return replyEphemeral(e, fmt.Sprintf("You don't have enough MF$. You need %d MF$.", purchase.Cost))
	}

	msgs := map[error]string{
		game.ErrInsufficientFunds: "You don't have enough MF$.",
		game.ErrSelfTarget:        "You can't target yourself.",
		game.ErrAlreadyActive:     "You already have that perk activated.",
		game.ErrAlreadyBound:      "You already have that perk bound. End it before you activate it again.",
		game.ErrNotBound:          "You don't have that perk bound.",
		game.ErrTargetBound:       "Target user already has that perk bound to them.",
		game.ErrAlreadyLinked:     "You are already linked to that user with another perk.",
		game.ErrTargetDead:        "Target user is dead.",
		game.ErrTargetAlive:       "Target user is still alive.",
		game.ErrTargetFunds:       "Target user doesn't have enough MF$.",
		game.ErrSacrificeCycle:    "You can't become a sacrifice for this target. It would form a sacrifice loop.",
		game.ErrSacrificeRevive:   "You cannot Lifeline a user who Sacrificed themself for you.",
		game.ErrAtLimit:           "That can't be improved any further.",
		game.ErrUserDead:          "You are dead.",
		game.ErrUserAlive:         "That user is already alive.",
		game.ErrArenaActive:       "There is already an active Arena.",
		game.ErrNoArena:           "There is no Arena to join.",
		game.ErrArenaJoined:       "You are already in the Arena.",
		game.ErrArenaClosed:       "The Arena has already started.",
		game.ErrInvalidBuyIn:      "Arena buy in must be positive.",
		game.ErrCofferOpening:     "The coffer is already opening. You can't buy tickets.",
		game.ErrInvalidAmount:     "Amount must be greater than 0.",
	}
	if msg, ok := msgs[err]; ok {
		return replyEphemeral(e, msg)
	}
	return err
}

// isJanitor reports whether the invoking member holds the janitor role.
func isJanitor(b *minefield.Bot, e *handler.CommandEvent) bool {
	member := e.Member()
	if member == nil {
		return false
	}
	roles, err := b.Client.Rest().GetRoles(*e.GuildID())
	if err != nil {
		slog.Error("Failed to fetch guild roles",
			slog.String("type", "sys"),
			slog.String("guild_id", e.GuildID().String()),
			slog.Any("error", err))
		return false
	}

	janitorName := b.Cfg.Game.JanitorRoleOrDefault()
	for _, role := range roles {
		if role.Name != janitorName {
			continue
		}
		for _, id := range member.RoleIDs {
			if id == role.ID {
				return true
			}
		}
	}
	return false
}

func commandCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
}
