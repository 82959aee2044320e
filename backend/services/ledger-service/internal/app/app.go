package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libdb "evledger/backend/libs/db"
	libredis "evledger/backend/libs/redis"
	"evledger/backend/services/ledger-service/internal/config"
	httpserver "evledger/backend/services/ledger-service/internal/http"
	"evledger/backend/services/ledger-service/internal/http/handlers"
	"evledger/backend/services/ledger-service/internal/identity"
	"evledger/backend/services/ledger-service/internal/ledger"
	"evledger/backend/services/ledger-service/internal/payment"
	redisstore "evledger/backend/services/ledger-service/internal/redis"
	"evledger/backend/services/ledger-service/internal/repository"
	"evledger/backend/services/ledger-service/internal/service"
	"evledger/backend/services/ledger-service/internal/ws"
)

// App wires ledger-service dependencies.
type App struct {
	server      *httpserver.Server
	hub         *ws.Hub
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph. Postgres and redis are optional; without a DSN the
// ledger lives in memory only.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	hub := ws.NewHub(ws.HubConfig{
		PingInterval:   cfg.WebSocket.PingInterval,
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		BufferSize:     cfg.WebSocket.BufferSize,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
	}, logger)
	a.hub = hub

	opts := []service.Option{
		service.WithNotifyTimeout(cfg.NotifyTimeout),
		service.WithNotifier(service.NotifierFunc(func(_ context.Context, events []ledger.Event) error {
			hub.Broadcast(events)
			return nil
		})),
	}

	if cfg.PersistenceEnabled() {
		sqlDB, err := libdb.NewPostgresDB(ctx, cfg.Database.DSN, libdb.Options{
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			ConnLifetime: cfg.Database.ConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("app: connect postgres: %w", err)
		}
		a.db = sqlDB

		repo := repository.NewSnapshotRepository(sqlDB)
		if err := repo.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("app: migrate: %w", err)
		}
		opts = append(opts, service.WithStore(repo))
	} else {
		logger.Warn("no database configured, ledger state is kept in memory only")
	}

	if cfg.StreamEnabled() {
		client, err := libredis.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app: connect redis: %w", err)
		}
		a.redisClient = client
		opts = append(opts, service.WithNotifier(redisstore.NewEventStream(client, cfg.Redis.Stream, cfg.Redis.MaxLen)))
	}

	ledgerService := service.NewLedgerService(payment.NewTreasury(), logger, opts...)
	if err := ledgerService.Restore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	tokens := identity.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	router := httpserver.NewRouter(httpserver.RouterDeps{
		LedgerHandlers: handlers.NewLedgerHandlers(ledgerService, logger),
		HealthHandler:  handlers.NewHealthHandler(),
		EventsHandler:  hub.HandleWS,
	}, identity.Middleware(tokens))

	a.server = httpserver.NewServer(cfg.HTTPAddress(), router, logger,
		httpserver.Recoverer(logger),
		httpserver.RequestLogger(logger),
	)
	return a, nil
}

// Run starts HTTP server.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.hub != nil {
		a.hub.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
