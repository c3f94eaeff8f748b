package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/litrev/internal/agents"
	"github.com/gosuda/litrev/internal/config"
	"github.com/gosuda/litrev/internal/domain"
	"github.com/gosuda/litrev/internal/llm"
	"github.com/gosuda/litrev/internal/notify"
	"github.com/gosuda/litrev/internal/review"
	"github.com/gosuda/litrev/internal/search"
	"github.com/gosuda/litrev/internal/server"
	"github.com/gosuda/litrev/internal/store/memory"
	redisstore "github.com/gosuda/litrev/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("LITREV_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("LITREV_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Connect to Redis for event fan-out.
	pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	// Session registry.
	store := memory.New(cfg.Review.MaxSessions)

	// Provider clients shared by all reviews.
	llmClient := llm.NewOpenAI(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey)
	combined := search.NewCombined(
		search.NewArxiv(cfg.Search.RequestTimeout),
		search.NewSemanticScholar(cfg.Search.SemanticScholarAPIKey, cfg.Search.RequestTimeout),
	)

	// Every session gets a fresh single-use sequencer.
	newRunner := func(req domain.ReviewRequest) review.Runner {
		return agents.NewSequencer(
			agents.NewPlanner(llmClient, req.Model),
			agents.NewSearcher(combined),
			agents.NewSummarizer(llmClient, req.Model),
			agents.NewCritic(llmClient, req.Model, cfg.Review.ApprovalToken),
			agents.Config{
				MaxTurns:        cfg.Review.MaxTurns,
				PlannerMaxTurns: cfg.Review.PlannerMaxTurns,
				ApprovalToken:   cfg.Review.ApprovalToken,
				PapersPerReview: req.NumPapers,
			},
		)
	}

	// Completion notices: Slack when configured, log-only otherwise.
	var senders []notify.Sender
	if cfg.Slack.BotToken != "" {
		senders = append(senders, notify.NewSlack(cfg.Slack.BotToken, cfg.Slack.Channel))
		log.Info().Str("channel", cfg.Slack.Channel).Msg("Slack completion notices enabled")
	}
	notifier := notify.New(senders...)

	coordinator := review.New(store, pubsub, notifier, newRunner)

	// Graceful shutdown on SIGINT / SIGTERM; cancels running reviews.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, store, pubsub, coordinator)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
