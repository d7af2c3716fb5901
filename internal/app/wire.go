package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "predictd/internal/blob/s3"
	"predictd/internal/cache/redis"
	"predictd/internal/config"
	"predictd/internal/domain"
	"predictd/internal/engine"
	"predictd/internal/persist"
	"predictd/internal/server"
	"predictd/internal/server/handler"
	"predictd/internal/server/ws"
	"predictd/internal/service"
	"predictd/internal/store/file"
	"predictd/internal/store/memory"
	"predictd/internal/store/postgres"
)

// Dependencies bundles everything the running application needs.
type Dependencies struct {
	Coordinator *persist.Coordinator
	Server      *server.Server
	Hub         *ws.Hub
	Archiver    *s3blob.Archiver
}

// Wire constructs all concrete dependencies from the given configuration and
// returns them together with a cleanup function to be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- Durable backend ---
	var (
		marketRepo domain.MarketRepository
		userRepo   domain.UserRepository
		tradeRepo  domain.TradeRepository
	)
	switch strings.ToLower(cfg.Storage.Backend) {
	case "file":
		marketRepo = file.NewMarketRepository(cfg.Storage.DataDir)
		userRepo = file.NewUserRepository(cfg.Storage.DataDir)
		tradeRepo = file.NewTradeRepository(cfg.Storage.DataDir)
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, err
			}
		}

		marketRepo = postgres.NewMarketRepository(pgClient.Pool())
		userRepo = postgres.NewUserRepository(pgClient.Pool())
		tradeRepo = postgres.NewTradeRepository(pgClient.Pool())
	default:
		cleanup()
		return nil, nil, fmt.Errorf("wire: unsupported storage backend %q", cfg.Storage.Backend)
	}

	// --- In-memory stores + coordinator ---
	marketStore := memory.NewMarketStore()
	userStore := memory.NewUserStore()
	coord := persist.NewCoordinator(marketRepo, userRepo, tradeRepo, marketStore, userStore, logger)

	// --- Redis side channels (optional) ---
	var (
		publisher service.PricePublisher
		bus       ws.SignalBus
	)
	if cfg.Redis.Enabled {
		rdb, err := redis.New(ctx, redis.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = rdb.Close() })

		signalBus := redis.NewSignalBus(rdb)
		publisher = redis.NewPublisher(redis.NewPriceCache(rdb), signalBus)
		bus = signalBus
	}

	// --- Engines + services ---
	var commit service.CommitLock
	tradeEngine := engine.NewTradeEngine()
	settlementEngine := engine.NewSettlementEngine()

	marketSvc := service.NewMarketService(marketStore, userStore, settlementEngine, coord, publisher, &commit, cfg.Market.DefaultLiquidity, logger)
	userSvc := service.NewUserService(userStore, coord, &commit, logger)
	tradeSvc := service.NewTradeService(marketStore, userStore, tradeEngine, coord, publisher, &commit, logger)

	// --- HTTP / WebSocket surface ---
	hub := ws.NewHub(bus, logger)
	srv := server.NewServer(server.Config{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		APIKey:      cfg.Server.APIKey,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(),
		Markets: handler.NewMarketHandler(marketSvc, logger),
		Users:   handler.NewUserHandler(userSvc, logger),
		Trades:  handler.NewTradeHandler(tradeSvc, logger),
	}, hub, logger)

	deps := &Dependencies{
		Coordinator: coord,
		Server:      srv,
		Hub:         hub,
	}

	// --- S3 trade archiver (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.Archiver = s3blob.NewArchiver(s3Client, coord)
	}

	return deps, cleanup, nil
}
