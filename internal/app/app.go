// Package app wires the rewards engine together. Both binaries build their
// handlers through New so they share one composition.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/learnquest/rewards-engine/config"
	"github.com/learnquest/rewards-engine/internal/application/command"
	"github.com/learnquest/rewards-engine/internal/application/eventhandler"
	"github.com/learnquest/rewards-engine/internal/application/query"
	"github.com/learnquest/rewards-engine/internal/application/uow"
	"github.com/learnquest/rewards-engine/internal/domain/progress"
	"github.com/learnquest/rewards-engine/internal/domain/reward"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
	"github.com/learnquest/rewards-engine/internal/domain/user"
	"github.com/learnquest/rewards-engine/internal/infrastructure/messaging"
	"github.com/learnquest/rewards-engine/internal/infrastructure/metrics"
	"github.com/learnquest/rewards-engine/internal/infrastructure/persistence/memory"
	"github.com/learnquest/rewards-engine/internal/infrastructure/persistence/postgres"
	rediscache "github.com/learnquest/rewards-engine/internal/infrastructure/persistence/redis"
	"github.com/learnquest/rewards-engine/pkg/logger"
)

// Options tune the composition for a particular binary.
type Options struct {
	// Output receives log lines (default os.Stderr).
	Output io.Writer

	// SubscribeRemote listens for events published by other instances.
	SubscribeRemote bool

	// Clock overrides the system clock.
	Clock shared.Clock
}

// Commands groups the write handlers.
type Commands struct {
	CreateReward   *command.CreateRewardDefinitionHandler
	AwardReward    *command.AwardRewardHandler
	ConsumeReward  *command.ConsumeRewardHandler
	CheckStatus    *command.CheckRewardStatusHandler
	CreditPoints   *command.CreditPointsHandler
	RecordActivity *command.RecordActivityHandler
	ExpireRewards  *command.ExpireRewardsHandler
}

// Queries groups the read handlers.
type Queries struct {
	GetReward       *query.GetRewardDefinitionHandler
	ListRewards     *query.ListRewardDefinitionsHandler
	ListUserRewards *query.ListUserRewardsHandler
	GetUserLevel    *query.GetUserLevelHandler
	ListActivity    *query.ListActivityHistoryHandler
}

// App is the assembled engine.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Log     *logger.Logger
	Metrics *metrics.Recorder
	Clock   shared.Clock

	UoW     uow.UnitOfWork
	Catalog reward.Catalog
	Bus     shared.EventBus

	Commands Commands
	Queries  Queries

	// Migrator is nil for the memory store.
	Migrator *postgres.Migrator

	closers []func() error
	checks  []healthCheck
}

type healthCheck struct {
	name string
	ping func(context.Context) error
}

// New builds the engine described by cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (a *App, err error) {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.Clock == nil {
		opts.Clock = shared.SystemClock{}
	}

	level := logger.ParseLevel(cfg.Observability.LogLevel)
	format := logger.Format(cfg.Observability.LogFormat)

	a = &App{
		Config:  cfg,
		Logger:  newSlog(opts.Output, level, format).With("app", cfg.App.Name),
		Log:     logger.New(logger.Options{Output: opts.Output, Level: level, Format: format}),
		Metrics: metrics.NewRecorder(),
		Clock:   opts.Clock,
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	if err := a.openBus(ctx, opts.SubscribeRemote); err != nil {
		return nil, err
	}
	if err := a.buildHandlers(); err != nil {
		return nil, err
	}
	return a, nil
}

func newSlog(out io.Writer, level logger.Level, format logger.Format) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: level.Slog()}
	if format == logger.FormatText {
		return slog.New(slog.NewTextHandler(out, hopts))
	}
	return slog.New(slog.NewJSONHandler(out, hopts))
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

func (a *App) openStore(ctx context.Context) error {
	switch a.Config.Database.Driver {
	case config.DriverMemory:
		a.UoW = memory.NewStore()
		a.Logger.Info("using in-memory store")
	case config.DriverPostgres:
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = a.Config.Database.URL
		pgCfg.MaxConns = a.Config.Database.MaxConns
		pgCfg.MinConns = a.Config.Database.MinConns
		pgCfg.MaxConnLifetime = a.Config.Database.ConnMaxLifetime
		pgCfg.ConnectTimeout = a.Config.Database.ConnectTimeout

		conn, err := postgres.NewConnection(ctx, pgCfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, func() error { conn.Close(); return nil })
		a.checks = append(a.checks, healthCheck{"postgres", conn.Ping})
		a.UoW = postgres.NewUnitOfWork(conn)
		a.Migrator = postgres.NewMigrator(conn)

		if a.Config.Database.AutoMigrate {
			n, err := a.Migrator.Migrate(ctx)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			a.Logger.Info("migrations applied", "count", n)
		}
	default:
		return fmt.Errorf("unknown store driver %q", a.Config.Database.Driver)
	}

	a.Catalog = a.UoW.Repositories().Definitions
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENTS AND CACHE
// ══════════════════════════════════════════════════════════════════════════════

func (a *App) openBus(ctx context.Context, subscribe bool) error {
	local := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		Logger:   a.Logger,
		Observer: a.Metrics,
	})
	a.Bus = local

	if !a.Config.Redis.Enabled {
		a.closers = append(a.closers, local.Close)
		return nil
	}

	rc := a.Config.Redis
	client, err := rediscache.NewClient(ctx, rediscache.Config{
		Host:         rc.Host,
		Port:         rc.Port,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	})
	if err != nil {
		_ = local.Close()
		return fmt.Errorf("connect redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.checks = append(a.checks, healthCheck{"redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}})

	if rc.EventChannel != "" {
		bridge, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:      client,
			ChannelName: rc.EventChannel,
			Subscribe:   subscribe,
			LocalBus:    local,
			Logger:      a.Logger,
		})
		if err != nil {
			_ = local.Close()
			return fmt.Errorf("event bridge: %w", err)
		}
		a.Bus = bridge
		a.closers = append(a.closers, bridge.Close)
	} else {
		a.closers = append(a.closers, local.Close)
	}

	cached := rediscache.NewCachingCatalog(a.Catalog, rediscache.NewCache(client, ""), rc.CatalogTTL, a.Logger)
	if err := cached.Register(a.Bus); err != nil {
		return fmt.Errorf("register catalog cache: %w", err)
	}
	a.Catalog = cached
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (a *App) buildHandlers() error {
	rc := a.Config.Rewards
	policy, ok := reward.ParseReawardPolicy(rc.ReawardPolicy)
	if !ok {
		return fmt.Errorf("unknown reaward policy %q", rc.ReawardPolicy)
	}
	levels := progress.StepPolicy{Step: rc.LevelStep}

	deps := command.Deps{
		UoW:              a.UoW,
		Clock:            a.Clock,
		Publisher:        a.Bus,
		Logger:           a.Log,
		Metrics:          a.Metrics,
		LevelPolicy:      levels,
		ConflictAttempts: rc.ConflictAttempts,
	}

	a.Commands = Commands{
		CreateReward:   command.NewCreateRewardDefinitionHandler(deps),
		AwardReward:    command.NewAwardRewardHandler(deps, command.AwardRewardConfig{Reaward: policy}),
		ConsumeReward:  command.NewConsumeRewardHandler(deps, reward.DefaultHandlers()),
		CheckStatus:    command.NewCheckRewardStatusHandler(deps),
		CreditPoints:   command.NewCreditPointsHandler(deps),
		RecordActivity: command.NewRecordActivityHandler(deps),
		ExpireRewards:  command.NewExpireRewardsHandler(deps),
	}

	repos := a.UoW.Repositories()
	a.Queries = Queries{
		GetReward:       query.NewGetRewardDefinitionHandler(a.Catalog),
		ListRewards:     query.NewListRewardDefinitionsHandler(a.Catalog),
		ListUserRewards: query.NewListUserRewardsHandler(repos.Users, repos.Awards, a.Catalog, a.Clock),
		GetUserLevel:    query.NewGetUserLevelHandler(repos.Users, repos.Ledger, levels),
		ListActivity:    query.NewListActivityHistoryHandler(repos.Users, repos.Activities),
	}

	if rc.AutoAward {
		awarder := eventhandler.NewTriggerAwarder(a.Catalog, a.Commands.AwardReward, a.Logger, eventhandler.DefaultTriggerAwarderConfig())
		if err := awarder.Register(a.Bus); err != nil {
			return fmt.Errorf("register trigger awarder: %w", err)
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// USERS
// ══════════════════════════════════════════════════════════════════════════════

// AddUser registers a user in the identity table.
func (a *App) AddUser(ctx context.Context, id, displayName string) (*user.User, error) {
	u, err := user.New(id, displayName, a.Clock.Now())
	if err != nil {
		return nil, err
	}
	err = a.UoW.Do(ctx, func(ctx context.Context, repos uow.Repositories) error {
		return repos.Users.Create(ctx, u)
	})
	if err != nil {
		return nil, fmt.Errorf("add_user: %w", err)
	}
	return u, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Health pings every external dependency. The map holds "ok" or the error
// text per dependency; err reports whether any check failed.
func (a *App) Health(ctx context.Context) (map[string]string, error) {
	status := make(map[string]string, len(a.checks))
	var errs []error
	for _, c := range a.checks {
		if err := c.ping(ctx); err != nil {
			status[c.name] = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		status[c.name] = "ok"
	}
	return status, errors.Join(errs...)
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// ShutdownContext returns a context bounded by the configured shutdown timeout.
func (a *App) ShutdownContext() (context.Context, context.CancelFunc) {
	timeout := a.Config.App.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}
