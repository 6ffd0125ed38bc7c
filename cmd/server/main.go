package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tgexam/backend/internal/config"
	"github.com/tgexam/backend/internal/database"
	"github.com/tgexam/backend/internal/exam"
	"github.com/tgexam/backend/internal/handler"
	"github.com/tgexam/backend/internal/logger"
	"github.com/tgexam/backend/internal/notify"
	"github.com/tgexam/backend/internal/pool"
	"github.com/tgexam/backend/internal/registry"
	"github.com/tgexam/backend/internal/router"
	"github.com/tgexam/backend/internal/store"
	"github.com/tgexam/backend/internal/validator"
	"github.com/tgexam/backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting exam backend")

	if missing := cfg.Validate(); len(missing) > 0 {
		log.Fatal().
			Str("missing", strings.Join(missing, ", ")).
			Msg("Required configuration is missing")
	}

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Load Question Pool ────────────────────────────────────────────
	questions, err := pool.Load(cfg.QuestionsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.QuestionsFile).Msg("Failed to load question pool")
	}
	log.Info().Int("questions", len(questions)).Msg("Question pool loaded")

	examCfg := exam.Config{
		DurationSec:         cfg.DurationSec,
		QuestionsPerAttempt: cfg.QuestionsPerAttempt,
		PassRate:            cfg.PassRate,
		AutoFinishThreshold: cfg.AutoFinishThreshold,
		SelectionStrategy:   exam.Strategy(cfg.SelectionStrategy),
	}

	// ─── Session Store ─────────────────────────────────────────────────
	// Redis when configured, in-process otherwise.
	var sessions store.SessionStore
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		sessions = store.NewRedisSessionStore(rdb, cfg.SessionTTL)
	} else {
		mem := store.NewMemorySessionStore(cfg.SessionTTL)
		defer mem.Close()
		sessions = mem
	}

	// ─── Result Log ────────────────────────────────────────────────────
	// PostgreSQL when configured, JSON file otherwise.
	var results store.ResultLog
	if cfg.DatabaseURL != "" {
		pgPool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pgPool.Close()
		results = store.NewPostgresResultLog(pgPool)
	} else {
		fileLog, err := store.NewFileResultLog(cfg.DataDir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("Failed to open result log")
		}
		results = fileLog
	}

	// ─── Telegram Relay ────────────────────────────────────────────────
	var relay notify.Relay = notify.NopRelay{}
	var tgRelay *notify.TelegramRelay
	if cfg.BotDisabled {
		log.Warn().Msg("Bot disabled, admin notifications are dropped")
	} else {
		tgRelay, err = notify.NewTelegramRelay(cfg.BotToken, cfg.AdminTGID, cfg.AppURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Telegram bot")
		}
		relay = tgRelay
	}

	// ─── Core Services ─────────────────────────────────────────────────
	monitor := handler.NewMonitorHub(cfg.AllowedOrigins, log)
	reg := registry.New(sessions, results, relay, monitor, registry.Config{
		Exam:      examCfg,
		ExamID:    cfg.ExamID,
		ExamTitle: cfg.ExamTitle,
	}, log)
	manager := exam.NewManager(examCfg, questions)

	if tgRelay != nil {
		tgRelay.AttachAdmin(reg)
		go tgRelay.Start()
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	expiryWorker := worker.NewExpiryWorker(manager, reg, cfg.SweepInterval, log)
	go expiryWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(reg, manager, monitor, log),
		Admin:   handler.NewAdminHandler(reg, log),
		Monitor: monitor,
	}
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the expiry worker; its final sweep flushes overdue attempts.
	workerCancel()
	time.Sleep(time.Second)

	// 3. Stop the bot poller and drop monitor clients.
	if tgRelay != nil {
		tgRelay.Stop()
	}
	monitor.Close()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
