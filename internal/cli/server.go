package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/config"
	"quiz-battle-service/internal/infra/memory"
	"quiz-battle-service/internal/infra/oracle"
	pgstore "quiz-battle-service/internal/infra/postgres"
	redisstore "quiz-battle-service/internal/infra/redis"
	"quiz-battle-service/internal/obslog"
	transport "quiz-battle-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the battle server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := obslog.New(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = logger.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	deps, closeDeps, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDeps()

	service := app.NewBattleService(ctx, deps, serviceOptions(cfg))

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service, logger),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting battle service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", zap.Error(err))
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	err = server.Shutdown(shutdownCtx)
	cancel()
	service.Wait()
	return err
}

// buildDeps picks Postgres or the in-memory demo data for users, tasks and
// history, and layers Redis on top when configured.
func buildDeps(ctx context.Context, cfg config.Config, logger *zap.Logger) (app.Deps, func(), error) {
	deps := app.Deps{Logger: logger}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var loader memory.TaskLoader
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return app.Deps{}, nil, err
		}
		closers = append(closers, pool.Close)
		loader = pgstore.NewTaskLoader(pool)
		deps.Users = pgstore.NewUserDirectory(pool)
		deps.History = pgstore.NewHistoryRepository(pool)
	} else {
		logger.Warn("postgres not configured, using in-memory demo data")
		loader = memory.NewStaticTaskLoader(demoTasks())
		deps.Users = memory.NewUserDirectory(demoAccounts()...)
		deps.History = memory.NewHistoryStore()
	}

	tasksTTL := config.Duration(cfg.Tasks.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = client.Close() })
		redisTTL := config.Duration(cfg.Redis.TTL, 30*time.Minute)
		deps.Tasks = redisstore.NewTaskCatalog(client, loader, tasksTTL, logger)
		deps.Observer = redisstore.NewRoomPresence(client, redisTTL, logger)
		deps.Analytics = redisstore.NewAnalyticsSink(client)
	} else {
		deps.Tasks = memory.NewTaskCatalog(loader, tasksTTL)
		deps.Analytics = memory.NewAnalyticsSink()
	}

	if cfg.Grader.URL != "" {
		timeout := config.Duration(cfg.Grader.Timeout, 30*time.Second)
		opts := []oracle.Option{oracle.WithTimeout(timeout)}
		if cfg.Grader.MaxInFlight > 0 {
			opts = append(opts, oracle.WithMaxConnsPerHost(cfg.Grader.MaxInFlight))
		}
		client := oracle.NewClient(cfg.Grader.URL, opts...)
		deps.Grading = app.NewGradingAdapter(ctx, client, timeout, cfg.Grader.MaxInFlight, logger)
	} else {
		logger.Info("grader not configured, oracle checks fall back to exact match")
	}
	return deps, closeAll, nil
}

// serviceOptions maps the battle section onto service options. Active rooms
// are republished to Redis three times per presence TTL.
func serviceOptions(cfg config.Config) app.Options {
	return app.Options{
		CountdownSeconds: cfg.Battle.CountdownSeconds,
		Tick:             config.Duration(cfg.Battle.Tick, time.Second),
		DefaultTimeLimit: cfg.Battle.DefaultTimeLimit,
		DefaultTaskCount: cfg.Battle.DefaultTaskCount,
		KFactor:          cfg.Battle.KFactor,
		FinishGrace:      config.Duration(cfg.Battle.FinishGrace, 30*time.Second),
		PresenceRefresh:  config.Duration(cfg.Redis.TTL, 30*time.Minute) / 3,
	}
}
