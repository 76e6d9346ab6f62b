package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/handler"
	"golang.org/x/sync/errgroup"

	"github.com/minefieldbot/minefield/minefield"
	"github.com/minefieldbot/minefield/minefield/commands"
	"github.com/minefieldbot/minefield/minefield/database"
	"github.com/minefieldbot/minefield/minefield/database/repositories"
	"github.com/minefieldbot/minefield/minefield/game"
	"github.com/minefieldbot/minefield/minefield/game/arena"
	"github.com/minefieldbot/minefield/minefield/game/coffer"
	"github.com/minefieldbot/minefield/minefield/handlers"
	"github.com/minefieldbot/minefield/minefield/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting Minefield Discord Bot",
		slog.String("version", version),
		slog.String("commit", commit))

	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	shouldPopulate := flag.Bool("populate", true, "Whether to create user records for existing members on startup")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := minefield.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Configuration loaded successfully")

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dbConfig := database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	}

	db, err := database.New(ctx, dbConfig)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	slog.Info("Database schema initialized successfully")

	defer db.Close()

	b := minefield.New(*cfg, version, commit)
	b.DB = db
	b.UserRepository = repositories.NewUserRepository(db.BunDB())
	b.RelationshipRepository = repositories.NewRelationshipRepository(db.BunDB())
	b.CofferRepository = repositories.NewCofferRepository(db.BunDB())

	// The access controller reacts to deaths and revivals by toggling the
	// victim's channel permissions, so the engine gets it as its event sink.
	b.Engine = game.NewEngine(b.UserRepository, b.RelationshipRepository, nil, handlers.NewAccessController(b))
	b.Engine.SetPot(b.CofferRepository)
	b.Arena = arena.NewManager(b.UserRepository, nil, handlers.NewArenaNotifier(b))
	b.Lottery = coffer.NewLottery(b.CofferRepository, b.UserRepository, game.NewRand())

	h := handler.New()
	commands.Register(h, b)

	// Seed user records for every member as guilds come online. The limit
	// keeps startup from hammering both Discord and the pool on big shards.
	populate, populateCtx := errgroup.WithContext(context.Background())
	populate.SetLimit(4)
	populateListener := bot.NewListenerFunc(func(e *events.GuildReady) {
		if !*shouldPopulate {
			return
		}
		guildID := e.Guild.ID
		populate.Go(func() error {
			ctx, cancel := context.WithTimeout(populateCtx, 2*time.Minute)
			defer cancel()

			count, err := b.PopulateGuild(ctx, guildID)
			if err != nil {
				slog.Error("Failed to populate guild",
					slog.String("type", "sys"),
					slog.String("guild_id", guildID.String()),
					slog.Any("error", err))
				return nil
			}
			logger.LogSystem("Populated guild",
				slog.String("guild_id", guildID.String()),
				slog.Int("members", count))
			return nil
		})
	})

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady), populateListener, handlers.MessageHandler(b)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "bot_setup"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds),
		)
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("error_details", fmt.Sprintf("%+v", err)),
				slog.String("component", "command_sync"),
				slog.String("status", "failed"),
			)
		}
	}

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = b.Client.OpenGateway(ctx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "gateway"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...")
	_ = populate.Wait()
}
