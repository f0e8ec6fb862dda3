package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"voltshare/internal/clients"
	"voltshare/internal/config"
	httpserver "voltshare/internal/http"
	"voltshare/internal/http/handlers"
	"voltshare/internal/http/middleware"
	"voltshare/internal/models"
	"voltshare/internal/password"
	"voltshare/internal/reconcile"
	"voltshare/internal/redisstore"
	"voltshare/internal/repository"
	"voltshare/internal/service"
	libdb "voltshare/libs/db"
	libredis "voltshare/libs/redis"
	"voltshare/pkg/ws"
)

// App wires the reconciler service dependencies.
type App struct {
	server      *httpserver.Server
	scheduler   *service.Scheduler
	hub         *ws.Hub
	db          *sql.DB
	redisClient *goredis.Client
	logger      *zap.Logger
}

// snapshotHub adapts the websocket hub to the pass publisher contract.
type snapshotHub struct {
	hub *ws.Hub
}

func (h snapshotHub) BroadcastSnapshot(snapshot models.StationSnapshot) {
	h.hub.BroadcastSnapshot(snapshot)
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := libdb.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	redisClient, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	rentalRepo := repository.NewRentalRepository(sqlDB)
	stationRepo := repository.NewStationRepository(sqlDB)
	userRepo := repository.NewUserRepository(sqlDB)

	stationCache := redisstore.NewStationCache(redisClient, stationRepo, cfg.Reconcile.MetadataTTL.Std(), logger)
	snapshotStore := redisstore.NewSnapshotStore(redisClient)

	hardware := clients.NewHardwareClient(cfg.Hardware.Domain, cfg.Hardware.APIKey, cfg.Reconcile.FetchTimeout.Std(), logger)

	hub := ws.NewHub(logger)
	hub.SetInitDataProvider(func() interface{} {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stations, err := stationCache.List(ctx)
		if err != nil {
			logger.Warn("snapshot feed init: failed to list stations", zap.Error(err))
			return nil
		}
		ids := make([]string, len(stations))
		for i, station := range stations {
			ids[i] = station.ID
		}
		snapshots, err := snapshotStore.List(ctx, ids)
		if err != nil {
			logger.Warn("snapshot feed init: failed to load snapshots", zap.Error(err))
			return nil
		}
		return snapshots
	})

	engineCfg := reconcile.Config{
		GracePeriod:      cfg.Reconcile.GracePeriod.Std(),
		MinServiceCharge: cfg.Reconcile.MinServiceCharge,
		AutoCloseOverdue: cfg.Reconcile.AutoCloseOverdue,
	}
	for _, tier := range cfg.Reconcile.Tiers {
		engineCfg.Tiers = append(engineCfg.Tiers, reconcile.TierAllowance{
			Amount:    tier.Amount,
			Allowance: tier.Allowance.Std(),
		})
	}

	reconciler := service.NewReconciler(
		service.ReconcilerConfig{
			FetchTimeout:     cfg.Reconcile.FetchTimeout.Std(),
			FetchConcurrency: cfg.Reconcile.FetchConcurrency,
			Engine:           engineCfg,
		},
		hardware,
		rentalRepo,
		stationCache,
		snapshotStore,
		snapshotHub{hub: hub},
		logger,
	)
	scheduler := service.NewScheduler(cfg.Reconcile.Interval.Std(), reconciler, logger)

	hasher := password.NewBcryptHasher(0)
	tokenService := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Std())
	authService := service.NewAuthService(userRepo, hasher, tokenService, logger)

	routes := httpserver.Routes{
		Health:           handlers.NewHealthHandler(),
		Signup:           handlers.NewSignupHandler(authService),
		Login:            handlers.NewLoginHandler(authService),
		Stations:         handlers.NewStationsHandler(stationCache, snapshotStore, logger),
		UpsertStation:    handlers.NewUpsertStationHandler(stationCache, logger),
		StationSnapshot:  handlers.NewStationSnapshotHandler(snapshotStore, logger),
		OpenRentals:      handlers.NewOpenRentalsHandler(rentalRepo, logger),
		MissingBatteries: handlers.NewMissingBatteriesHandler(rentalRepo, stationCache, snapshotStore, engineCfg, logger),
		BatteryReturn:    handlers.NewBatteryReturnHandler(rentalRepo, logger),
		ReconcileNow:     handlers.NewReconcileNowHandler(scheduler, logger),
		SnapshotFeed:     handlers.NewSnapshotFeedHandler(hub, logger),
		AuthMiddleware:   middleware.AuthMiddleware(cfg.Auth.JWTSecret),
	}

	router := httpserver.NewRouter(routes)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		scheduler:   scheduler,
		hub:         hub,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts the snapshot hub, the scheduler and the HTTP server, and blocks
// until the context is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.hub.Run(runCtx)

	errCh := make(chan error, 2)
	go func() { errCh <- a.scheduler.Run(runCtx) }()
	go func() { errCh <- a.server.Run(runCtx) }()

	var first error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) && first == nil {
			first = err
		}
		cancel()
	}
	return first
}

// Close releases resources.
func (a *App) Close() {
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
