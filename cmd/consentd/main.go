package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/org/consentd/internal/api"
	"github.com/org/consentd/internal/backend"
	"github.com/org/consentd/internal/bus"
	"github.com/org/consentd/internal/cache"
	"github.com/org/consentd/internal/mirror"
	"github.com/org/consentd/internal/notify"
	"github.com/org/consentd/internal/session"
	"github.com/org/consentd/internal/sse"
	"github.com/org/consentd/internal/store"
	syncer "github.com/org/consentd/internal/sync"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type config struct {
	ListenAddr    string `yaml:"listen_addr"`
	BackendAddr   string `yaml:"backend_addr"`
	EventsURL     string `yaml:"events_url"`
	DBUrl         string `yaml:"db_url"`
	MigrationsDir string `yaml:"migrations_dir"`
	DataDir       string `yaml:"data_dir"`
	LogLevel      string `yaml:"log_level"`
}

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load config
	cfgFile := "config.yaml"
	if v := os.Getenv("CONSENTD_CONFIG"); v != "" {
		cfgFile = v
	}

	home, _ := os.UserHomeDir()
	cfg := config{
		ListenAddr:    ":8400",
		BackendAddr:   "http://127.0.0.1:8500",
		MigrationsDir: "migrations",
		DataDir:       filepath.Join(home, ".consentd"),
		LogLevel:      "info",
	}

	if data, err := os.ReadFile(cfgFile); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatal().Err(err).Msg("failed to parse config")
		}
	} else {
		log.Warn().Str("file", cfgFile).Msg("config file not found, using defaults")
	}

	// Env overrides
	if v := os.Getenv("CONSENTD_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("CONSENT_BACKEND_ADDR"); v != "" {
		cfg.BackendAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DBUrl = v
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.EventsURL == "" {
		cfg.EventsURL = cfg.BackendAddr + "/v1/consent-events/stream"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Local session state
	sessions, err := session.Open(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session store")
	}

	// Optional audit mirror
	var auditMirror mirror.Mirror
	if cfg.DBUrl != "" {
		pg, err := mirror.NewPostgresMirror(ctx, cfg.DBUrl)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mirror database")
		}
		defer pg.Close()
		if err := mirror.RunMigrations(cfg.DBUrl, cfg.MigrationsDir); err != nil {
			log.Fatal().Err(err).Msg("failed to run mirror migrations")
		}
		log.Info().Msg("audit mirror migrations applied")
		auditMirror = pg
	} else {
		log.Info().Msg("db_url not set, audit mirror disabled")
	}

	// Wire the sync loop
	signals := bus.New()
	notifier := notify.New()
	client := backend.New(backend.Config{Address: cfg.BackendAddr})
	model := store.New()
	ttlCache := cache.New(cache.TTLShort)

	engine := syncer.NewEngine(client, sessions, ttlCache, model, signals, syncer.Options{})
	if auditMirror != nil {
		engine.AttachMirror(auditMirror)
	}
	dispatcher := syncer.NewDispatcher(client, sessions, signals, notifier)

	// A remotely revoked owner grant locks the vault: drop the local
	// session so every authenticated surface forces re-auth.
	lockCh, cancelLock := signals.Subscribe(bus.VaultLockRequested)
	defer cancelLock()
	go func() {
		for ev := range lockCh {
			log.Warn().Str("reason", ev.Reason).Msg("vault lock requested, clearing session")
			sessions.Clear()
			notifier.Error("vault locked: " + ev.Reason)
		}
	}()

	// Event stream
	stream := sse.New(cfg.EventsURL, sessions.Token)
	go stream.Run(ctx)

	engine.Run(ctx, stream.Events())
	defer engine.Stop()

	// Local API
	srv := api.NewServer(model, engine, dispatcher, sessions, notifier, auditMirror, api.Config{
		ListenAddr: cfg.ListenAddr,
	})

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr).Str("backend", cfg.BackendAddr).Msg("consentd started")
	<-quit

	log.Info().Msg("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("consentd stopped")
}
