package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eliseohh/pollbot/internal/bot"
	"github.com/eliseohh/pollbot/internal/session"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
)

type config struct {
	token        string
	logFile      string
	logLevel     zerolog.Level
	pollTimeout  time.Duration
	sessionStore string
	sessionDB    string
}

func loadConfig() (config, error) {
	cfg := config{
		token:        os.Getenv("TOKEN"),
		logFile:      getenv("BOT_LOG_FILE", "Bot.txt"),
		sessionStore: getenv("SESSION_STORE", "memory"),
		sessionDB:    getenv("SESSION_DB", session.DefaultDSN),
	}
	if cfg.token == "" {
		return cfg, fmt.Errorf("TOKEN environment variable is required")
	}

	level, err := zerolog.ParseLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		return cfg, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.logLevel = level

	cfg.pollTimeout, err = time.ParseDuration(getenv("POLL_TIMEOUT", "10s"))
	if err != nil {
		return cfg, fmt.Errorf("POLL_TIMEOUT: %w", err)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(cfg.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	logger := zerolog.New(
		zerolog.ConsoleWriter{
			Out:        f,
			NoColor:    true,
			TimeFormat: time.RFC3339,
		},
	).Level(cfg.logLevel).With().Timestamp().Logger()

	store, err := session.Open(cfg.sessionStore, cfg.sessionDB)
	if err != nil {
		logger.Error().Err(err).Str("store", cfg.sessionStore).Msg("open session store")
		return fmt.Errorf("open session store: %w", err)
	}

	b, err := bot.New(bot.Config{
		Token:       cfg.token,
		PollTimeout: cfg.pollTimeout,
	}, store, logger)
	if err != nil {
		logger.Error().Err(err).Msg("bot init failed")
		return errors.Join(err, store.Close())
	}

	setupGracefulShutdown(b, logger)

	fmt.Println("Bot online. Logging to", cfg.logFile)
	b.Start()
	logger.Info().Msg("bot stopped")
	return nil
}

func setupGracefulShutdown(b *bot.Bot, logger zerolog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-c
		logger.Info().Str("signal", s.String()).Msg("shutting down")
		b.Stop()
	}()
}
