package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"telegram-affiliate-bot/internal/application"
	"telegram-affiliate-bot/internal/config"
	"telegram-affiliate-bot/internal/domain/ports/adapter"
	tele "telegram-affiliate-bot/internal/infra/adapters/telegram"
	"telegram-affiliate-bot/internal/infra/api"
	pg "telegram-affiliate-bot/internal/infra/db/postgres"
	"telegram-affiliate-bot/internal/infra/i18n"
	"telegram-affiliate-bot/internal/infra/logging"
	"telegram-affiliate-bot/internal/infra/metrics"
	red "telegram-affiliate-bot/internal/infra/redis"
	"telegram-affiliate-bot/internal/infra/sched"
	"telegram-affiliate-bot/internal/infra/worker"
	"telegram-affiliate-bot/internal/usecase"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no redaction)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}

	// ---- Postgres ----
	db, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer db.Close()
	go pg.ReportPoolStats(ctx, db, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Repositories ----
	merchantRepo := pg.NewMerchantRepoCacheDecorator(pg.NewPostgresMerchantRepo(db), redisClient, cfg.Redis.TTL, logger)
	userRepo := pg.NewPostgresUserRepo(db)
	interactionRepo := pg.NewPostgresInteractionRepo(db)

	// ---- Analytics workers ----
	jobs := worker.NewPool(cfg.Analytics.Workers, cfg.Analytics.Timeout, logger)
	jobs.Start(ctx)
	defer jobs.Stop()

	// ---- Use cases ----
	merchantUC := usecase.NewMerchantUseCase(merchantRepo, logger)
	composer := usecase.NewLinkComposer(cfg.Links, tr)
	recorder := usecase.NewInteractionRecorder(jobs, interactionRepo, userRepo, logger)
	linkUC := usecase.NewLinkUseCase(merchantUC, composer, recorder, logger)
	statsUC := usecase.NewStatsUseCase(userRepo, interactionRepo, logger)

	// ---- Periodic jobs ----
	digest := sched.NewScheduler(cfg.Analytics.DigestInterval, 30*time.Second, sched.NewStatsDigest(statsUC, cfg.Analytics.StatsDays, logger), logger)
	digest.Start(ctx)
	defer digest.Stop()
	warmer := sched.NewScheduler(cfg.Redis.TTL/2, 10*time.Second, sched.NewCacheWarmer(merchantUC, logger), logger)
	warmer.Start(ctx)
	defer warmer.Stop()

	// ---- Telegram ----
	var (
		botAdapter adapter.TelegramBotAdapter
		poller     *tele.RealTelegramBotAdapter
	)
	botUsername := cfg.Runtime.BotUsername
	if cfg.Bot.Disabled {
		logger.Warn().Msg("telegram disabled; admin sends are only logged")
		botAdapter = tele.NewNoopBotAdapter(logger)
	} else {
		bot, err := tele.Connect(cfg.Bot.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		if botUsername == "" {
			botUsername = bot.Self.UserName
		}
		facade := application.NewBotFacade(merchantUC, linkUC, recorder, tr, cfg.Search, botUsername, cfg.Runtime.Dev, logger)
		poller, err = tele.NewRealTelegramBotAdapter(bot, cfg.Bot, facade, tr, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram adapter")
		}
		botAdapter = poller
	}
	if err := botAdapter.SetMenuCommands(ctx); err != nil {
		logger.Warn().Err(err).Msg("set menu commands")
	}
	if poller != nil {
		go func() {
			if err := poller.StartPolling(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
		logger.Info().Str("bot", botUsername).Int("workers", cfg.Bot.Workers).Msg("telegram polling started")
	}

	// ---- Admin HTTP server ----
	adminSrv := api.NewServer(api.Deps{
		Merchants: merchantUC,
		Links:     linkUC,
		Previewer: composer,
		Stats:     statsUC,
		Bot:       botAdapter,
		Health: []api.HealthCheck{
			{Name: "postgres", Check: db.Ping},
			{Name: "redis", Check: redisClient.Ping},
		},
		SearchLimit: cfg.Search.DisplayLimit,
		StatsDays:   cfg.Analytics.StatsDays,
	}, api.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL), logger)
	server := adminSrv.HTTPServer(fmt.Sprintf(":%d", cfg.Admin.Port))
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("admin api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("admin server error")
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	if poller != nil {
		poller.StopPolling()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin server shutdown")
	}
}
