package minefield

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"
	"github.com/disgoorg/snowflake/v2"

	"github.com/minefieldbot/minefield/minefield/database"
	"github.com/minefieldbot/minefield/minefield/database/repositories"
	"github.com/minefieldbot/minefield/minefield/game"
	"github.com/minefieldbot/minefield/minefield/game/arena"
	"github.com/minefieldbot/minefield/minefield/game/coffer"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:        cfg,
		Paginator:  paginator.New(),
		Version:    version,
		Commit:     commit,
		GuildLocks: game.NewGuildLocks(),
	}
}

type Bot struct {
	Cfg        Config
	Client     bot.Client
	Paginator  *paginator.Manager
	Version    string
	Commit     string
	DB         *database.DB
	GuildLocks *game.GuildLocks

	UserRepository         repositories.UserRepository
	RelationshipRepository repositories.RelationshipRepository
	CofferRepository       repositories.CofferRepository

	Engine  *game.Engine
	Arena   *arena.Manager
	Lottery *coffer.Lottery

	// guild -> minefield channel, filled lazily through the REST API
	channels sync.Map
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds, gateway.IntentGuildMessages, gateway.IntentMessageContent)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("Minefield bot is now ready",
		slog.String("type", "sys"),
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithWatchingActivity("the minefield"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}
}

// MinefieldChannel resolves the configured game channel for a guild. The
// result is cached; a guild without the channel is not cached so a later
// channel creation is picked up.
func (b *Bot) MinefieldChannel(guildID snowflake.ID) (snowflake.ID, bool) {
	if cached, ok := b.channels.Load(guildID); ok {
		return cached.(snowflake.ID), true
	}

	chans, err := b.Client.Rest().GetGuildChannels(guildID)
	if err != nil {
		slog.Error("Failed to list guild channels",
			slog.String("type", "sys"),
			slog.String("guild_id", guildID.String()),
			slog.Any("error", err))
		return 0, false
	}

	name := b.Cfg.Game.ChannelNameOrDefault()
	for _, ch := range chans {
		if ch.Type() == discord.ChannelTypeGuildText && ch.Name() == name {
			b.channels.Store(guildID, ch.ID())
			return ch.ID(), true
		}
	}
	return 0, false
}

// PopulateGuild creates a user record for every non-bot member so the
// leaderboard and coffer threshold see the full server from day one.
func (b *Bot) PopulateGuild(ctx context.Context, guildID snowflake.ID) (int, error) {
	count := 0
	var after snowflake.ID
	for {
		members, err := b.Client.Rest().GetMembers(guildID, 1000, after)
		if err != nil {
			return count, err
		}
		for _, m := range members {
			if m.User.Bot {
				continue
			}
			if _, err := b.UserRepository.GetOrCreate(ctx, m.User.ID.String(), guildID.String(), m.User.Username); err != nil {
				return count, err
			}
			count++
		}
		if len(members) < 1000 {
			return count, nil
		}
		after = members[len(members)-1].User.ID
	}
}
