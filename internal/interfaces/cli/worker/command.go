package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"tally/internal/application/metering/services"
	"tally/internal/application/metering/usecases"
	"tally/internal/infrastructure/cache"
	"tally/internal/infrastructure/config"
	"tally/internal/infrastructure/database"
	"tally/internal/infrastructure/repository"
	"tally/internal/infrastructure/scheduler"
	"tally/internal/shared/biztime"
	"tally/internal/shared/logger"
)

var env string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Start the metering worker",
		Long:  `Start the metering worker that runs the daily anniversary reset sweep.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")

	return cmd
}

// sweepAdapter bridges the anniversary reset use case onto the scheduler's
// job contract.
type sweepAdapter struct {
	uc *usecases.AnniversaryResetUseCase
}

func (a *sweepAdapter) Execute(ctx context.Context, now time.Time) (int, int, error) {
	result, err := a.uc.Execute(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	return result.Processed, result.Failed, nil
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	log := logger.NewLogger()
	log.Infow("starting metering worker", "environment", env)

	// Initialize business timezone for cycle boundary calculations
	if err := biztime.Init(cfg.Metering.Timezone); err != nil {
		return fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Errorw("failed to close database", "error", err)
		}
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Infow("redis connection established", "address", cfg.Redis.GetAddr())

	accessRepo := repository.NewUserAccessRepository(db, log)
	planRepo := repository.NewPlanRepository(db, log)
	usageRepo := repository.NewUsageCycleRepository(db, log)

	summaryCache := cache.NewRedisUsageSummaryCache(redisClient, log)
	cacheSync := services.NewUsageCacheSyncService(summaryCache, log)

	resetUseCase := usecases.NewAnniversaryResetUseCase(
		accessRepo,
		planRepo,
		usageRepo,
		cacheSync,
		log,
		cfg.Metering.SweepConcurrency,
	)

	schedulerManager, err := scheduler.NewSchedulerManager(log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	if err := schedulerManager.RegisterAnniversarySweep(&sweepAdapter{uc: resetUseCase}, cfg.Metering.SweepHour); err != nil {
		return fmt.Errorf("failed to register anniversary sweep: %w", err)
	}

	schedulerManager.Start()
	log.Infow("metering worker started",
		"sweep_hour", cfg.Metering.SweepHour,
		"timezone", cfg.Metering.Timezone,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Infow("received signal, shutting down", "signal", sig)

	if err := schedulerManager.Stop(); err != nil {
		log.Errorw("failed to stop scheduler", "error", err)
		return err
	}

	log.Infow("metering worker stopped")
	return nil
}
