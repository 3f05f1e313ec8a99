package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/beatguard/internal/api"
	"github.com/beatguard/internal/bot"
	"github.com/beatguard/internal/classifier"
	"github.com/beatguard/internal/config"
	"github.com/beatguard/internal/events"
	"github.com/beatguard/internal/llm"
	"github.com/beatguard/internal/logging"
	"github.com/beatguard/internal/pipeline"
	"github.com/beatguard/internal/prefilter"
	"github.com/beatguard/internal/retry"
	"github.com/beatguard/internal/reviewqueue"
)

// ServeCommand returns the CLI command for starting the moderation API server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the moderation API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Pretty)

	port := cfg.Server.Port
	if c.Int("port") > 0 {
		port = c.Int("port")
	}

	ctx := context.Background()

	p, queue, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	if queue != nil {
		if err := queue.Start(ctx); err != nil {
			return fmt.Errorf("failed to start review queue: %w", err)
		}
		defer func() {
			if err := queue.Stop(ctx); err != nil {
				qlog := logging.Component("reviewqueue")
				qlog.Error().Err(err).Msg("failed to stop review queue")
			}
		}()
	}

	server := api.NewServer(port, p, logging.Component("api"))
	return server.Start()
}

// buildPipeline assembles all pipeline stages from configuration. The
// returned queue is nil when no database is configured.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, *reviewqueue.Queue, error) {
	rules := cfg.Prefilter.Rules
	if len(rules) == 0 {
		rules = prefilter.DefaultRules()
	}
	scanner, err := prefilter.New(rules)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile prefilter rules: %w", err)
	}

	client := buildLLMClient(ctx, cfg, logging.Component("llm"))

	policy := classifier.New(client, classifier.Options{
		Timeout:          cfg.ClassifierTimeout(),
		ReviewThreshold:  cfg.Classifier.ReviewThreshold,
		Retry:            retry.ClassifierConfig(),
		BreakerThreshold: cfg.Classifier.BreakerThreshold,
		BreakerCooldown:  cfg.BreakerCooldown(),
	}, logging.Component("classifier"))

	engine := bot.New(client, bot.Options{
		Name:               cfg.Bot.Name,
		Handle:             cfg.Bot.Handle,
		AmbientCooldown:    cfg.AmbientCooldown(),
		AmbientProbability: cfg.Bot.AmbientProbability,
		GenerationTimeout:  cfg.GenerationTimeout(),
	}, logging.Component("bot"))

	var sink events.Sink = events.NewLogSink(logging.Component("events"))
	var queue *reviewqueue.Queue
	var escalator pipeline.Escalator

	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		pgSink, err := events.NewPostgresSink(ctx, pool)
		if err != nil {
			return nil, nil, err
		}
		sink = pgSink

		queue, err = reviewqueue.NewQueue(ctx, pool, cfg.Database.QueueMaxWorkers, logging.Component("reviewqueue"))
		if err != nil {
			return nil, nil, err
		}
		escalator = queue
	}

	p := pipeline.New(scanner, policy, engine, sink, escalator,
		cfg.AutoRejectCategories(), logging.Component("pipeline"))
	return p, queue, nil
}

// buildLLMClient returns the configured LLM client, or the disabled client
// when no API key is set so every stage runs on its fallback path.
func buildLLMClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) llm.Client {
	if cfg.AI.APIKey == "" {
		log.Warn().Msg("no AI api_key configured; classifier and bot run in fallback mode")
		return llm.Disabled()
	}
	client, err := llm.NewGoogleAI(ctx, llm.Config{
		APIKey:    cfg.AI.APIKey,
		ModelName: cfg.AI.Model,
		MaxTokens: cfg.AI.MaxTokens,
	})
	if err != nil {
		log.Warn().Err(err).Msg("LLM initialization failed; running in fallback mode")
		return llm.Disabled()
	}
	return client
}
