package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/codenameh8m/plasticboy-sub000/internal/bot"
	"github.com/codenameh8m/plasticboy-sub000/internal/config"
	"github.com/codenameh8m/plasticboy-sub000/internal/database"
	"github.com/codenameh8m/plasticboy-sub000/internal/events"
	"github.com/codenameh8m/plasticboy-sub000/internal/handler/health"
	"github.com/codenameh8m/plasticboy-sub000/internal/leaderboard"
	"github.com/codenameh8m/plasticboy-sub000/internal/migrations"
	"github.com/codenameh8m/plasticboy-sub000/internal/plasticboy"
	"github.com/codenameh8m/plasticboy-sub000/internal/points"
	"github.com/codenameh8m/plasticboy-sub000/internal/server"
	"github.com/codenameh8m/plasticboy-sub000/internal/store/postgres"
	"github.com/codenameh8m/plasticboy-sub000/internal/store/sqlite"
	"github.com/codenameh8m/plasticboy-sub000/internal/telegramauth"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	checks := map[string]health.Checker{}

	// --- Storage ---
	var store plasticboy.Store
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pool.Close()

		db := stdlib.OpenDBFromPool(pool)
		defer db.Close()
		if err := migrations.Run(db, migrations.Postgres); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		store = postgres.New(pool)
		checks["postgres"] = health.CheckFunc(pool.Ping)
		logger.Info("connected to postgres")
	default:
		db, err := database.Open(ctx, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("connecting to sqlite: %w", err)
		}
		defer db.Close()

		if err := migrations.Run(db, migrations.SQLite); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		store = sqlite.New(db)
		checks["sqlite"] = dbCheck(db)
		logger.Info("connected to sqlite", "path", cfg.DBPath)
	}

	// --- Redis (optional) ---
	var (
		rdb   *redis.Client
		cache leaderboard.Cache
	)
	if cfg.RedisURL != "" {
		rdb, err = openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		cache = leaderboard.NewRedisCache(rdb, cfg.LeaderboardCacheTTL)
		checks["redis"] = health.CheckFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		logger.Info("connected to redis")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	// --- Services ---
	broker := events.NewBroker()
	opts := points.Options{
		Events:  broker,
		Logger:  logger,
		BaseURL: cfg.BaseURL,
		Limits: plasticboy.FormLimits{
			MaxSignatureBytes: cfg.MaxSignatureBytes,
			MaxSelfieBytes:    cfg.MaxSelfieBytes,
		},
	}
	if cfg.TelegramEnabled() {
		opts.Verifier = telegramauth.NewVerifier(cfg.TelegramBotToken, cfg.TelegramAuthMaxAge)
	}
	pointSvc := points.NewService(store, opts)
	board := leaderboard.New(store, cache, logger)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Points:            pointSvc,
		Leaderboard:       board,
		Broker:            broker,
		Health:            checks,
		AdminPasswordHash: hash,
		MaxCollectBytes:   collectBodyLimit(cfg),
		SPADir:            cfg.SPADir,
	})

	// --- Telegram bot (optional) ---
	// Set up before anything runs so a failure here leaves nothing to stop.
	var botTasks []func(context.Context) error
	if cfg.TelegramEnabled() {
		botTasks, err = setupBot(cfg, logger, rdb, broker, board)
		if err != nil {
			return err
		}
	} else {
		logger.Info("telegram bot disabled: no token configured")
	}

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	boardEvents := broker.Subscribe(64)
	g.Go(func() error {
		defer broker.Unsubscribe(boardEvents)
		board.Watch(gctx, boardEvents)
		return nil
	})

	for _, task := range botTasks {
		g.Go(func() error { return task(gctx) })
	}

	return g.Wait()
}

// telegramEndpoint is the Bot API URL template.
var telegramEndpoint = tgbotapi.APIEndpoint

// setupBot authorizes the bot and returns the poller and notifier loops.
func setupBot(cfg *config.Config, logger *slog.Logger, rdb *redis.Client,
	broker *events.Broker, board *leaderboard.Aggregator,
) ([]func(context.Context) error, error) {
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.TelegramBotToken, telegramEndpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	logger.Info("authorized telegram bot", "username", api.Self.UserName)

	var subs bot.Subscribers = bot.NewMemorySubscribers()
	if rdb != nil {
		subs = bot.NewRedisSubscribers(rdb)
	}

	client := bot.NewClient(api, logger)
	router := bot.NewRouter(client, logger)
	bot.RegisterCommands(router, client, subs, board, cfg.BaseURL)
	if err := client.SetCommands(router.Commands()); err != nil {
		logger.Warn("failed to publish bot commands", "error", err)
	}

	poller := bot.NewPoller(api, router, cfg.BotWorkers, logger)
	notifier := bot.NewNotifier(client, subs, cfg.BaseURL, cfg.BotWorkers, logger)
	feed := broker.Subscribe(64)
	return []func(context.Context) error{
		poller.Run,
		func(ctx context.Context) error {
			defer broker.Unsubscribe(feed)
			return notifier.Run(ctx, feed)
		},
	}, nil
}

// collectBodyLimit leaves room for base64 inflation of the uploaded images
// plus the JSON envelope.
func collectBodyLimit(cfg *config.Config) int64 {
	raw := int64(cfg.MaxSelfieBytes + cfg.MaxSignatureBytes)
	return raw*4/3 + 64<<10
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

func dbCheck(db *sql.DB) health.Checker {
	return health.CheckFunc(db.PingContext)
}
