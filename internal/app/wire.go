package app

import (
	"context"
	"fmt"
	"log/slog"

	"streamarb/internal/archive"
	s3blob "streamarb/internal/blob/s3"
	"streamarb/internal/bus"
	"streamarb/internal/cache/redis"
	"streamarb/internal/config"
	"streamarb/internal/crypto"
	"streamarb/internal/domain"
	"streamarb/internal/notify"
	"streamarb/internal/platform/kraken"
	"streamarb/internal/platform/midgard"
	"streamarb/internal/platform/thornode"
	"streamarb/internal/store/postgres"
)

// Dependencies bundles everything the operating modes need. Wire constructs
// it; the returned cleanup function tears it down. Optional backends
// (Postgres, Redis, S3) are nil when not configured.
type Dependencies struct {
	Events *bus.Bus
	Params *config.Runtime

	Midgard  *midgard.Client
	Thornode *thornode.Client
	Venue    *kraken.Client

	OpportunityStore domain.OpportunityStore
	TradeStore       domain.TradeStore

	Limiter  *redis.RateLimiter
	Archiver *archive.Archiver
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependencies from the configuration. The
// cleanup function must be called on shutdown to release connections.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Events: bus.New(logger),
		Params: config.NewRuntime(cfg.Trading),
	}

	// Ledger index clients.
	deps.Midgard = midgard.NewClient(cfg.Ledger.MidgardURL)
	deps.Thornode = thornode.NewClient(cfg.Ledger.ThornodeURL)

	// Venue client. Without credentials only the public endpoints work,
	// which is all watch and dry-run modes need.
	secret, err := crypto.LoadSecret(crypto.SecretConfig{
		RawSecret:           cfg.Venue.APISecret,
		EncryptedSecretPath: cfg.Venue.EncryptedSecretPath,
		Password:            cfg.Venue.SecretPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: venue secret: %w", err)
	}

	var signer *crypto.Signer
	if cfg.Venue.APIKey != "" && secret != "" {
		signer, err = crypto.NewSigner(cfg.Venue.APIKey, secret)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: venue signer: %w", err)
		}
	}
	deps.Venue = kraken.NewClient(cfg.Venue.BaseURL, signer)

	// PostgreSQL persistence, optional.
	if cfg.Postgres.DSN != "" {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		oppStore := postgres.NewOpportunityStore(pgClient)
		deps.OpportunityStore = oppStore
		deps.TradeStore = postgres.NewTradeStore(pgClient)

		// Persist every emitted opportunity. Trades are persisted by the
		// lifecycle manager at settlement.
		deps.Events.Subscribe(bus.TopicValidOpportunity, func(ctx context.Context, ev bus.Event) {
			opp, ok := ev.Payload.(domain.Opportunity)
			if !ok {
				return
			}
			if err := oppStore.Insert(ctx, opp); err != nil {
				logger.ErrorContext(ctx, "persist opportunity failed",
					slog.String("tx_id", opp.TxID),
					slog.String("error", err.Error()),
				)
			}
		})
	}

	// Redis event mirror and API rate limiter, optional.
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		redis.NewEventMirror(redisClient, deps.Events, logger)
		deps.Limiter = redis.NewRateLimiter(redisClient)
	}

	// S3 cold archive, optional.
	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         true,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Archiver = archive.New(s3blob.NewWriter(s3Client), deps.Events, cfg.S3.ArchiveInterval.Duration, logger)
	}

	// Notification channels.
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	if len(senders) > 0 {
		notify.NewAlerter(deps.Notifier, deps.Events, logger)
	}

	return deps, cleanup, nil
}
