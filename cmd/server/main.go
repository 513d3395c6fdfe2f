package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/niveshapp/nivesh/internal/config"
	"github.com/niveshapp/nivesh/internal/database"
	"github.com/niveshapp/nivesh/internal/modules/ledger"
	"github.com/niveshapp/nivesh/internal/modules/portfolio"
	portfoliohandlers "github.com/niveshapp/nivesh/internal/modules/portfolio/handlers"
	"github.com/niveshapp/nivesh/internal/modules/pricing"
	"github.com/niveshapp/nivesh/internal/modules/trading"
	tradinghandlers "github.com/niveshapp/nivesh/internal/modules/trading/handlers"
	"github.com/niveshapp/nivesh/internal/reliability"
	"github.com/niveshapp/nivesh/internal/scheduler"
	"github.com/niveshapp/nivesh/internal/seed"
	"github.com/niveshapp/nivesh/internal/server"
	"github.com/niveshapp/nivesh/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting Nivesh")

	// Ledger holds the money; cache is disposable quote storage.
	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{ledgerDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to run migrations")
		}
	}

	if cfg.SeedDemo {
		if err := seed.New(ledgerDB.Conn(), log).Run(); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed demo data")
		}
	}

	// Repositories and services
	accounts := ledger.NewAccountRepository(ledgerDB.Conn(), log)
	holdings := ledger.NewHoldingRepository(ledgerDB.Conn(), log)
	transactions := ledger.NewTransactionRepository(ledgerDB.Conn(), log)
	instruments := pricing.NewInstrumentRepository(ledgerDB.Conn(), log)
	quoteCache := pricing.NewQuoteCache(cacheDB.Conn())
	pricingSvc := pricing.NewService(instruments, quoteCache, log)

	engine := trading.NewEngine(ledgerDB.Conn(), accounts, holdings, transactions, pricingSvc, log)
	portfolioSvc := portfolio.NewService(accounts, holdings, transactions, pricingSvc, log)

	// Background jobs
	sched := scheduler.New(log)
	if err := registerJobs(sched, cfg, ledgerDB, cacheDB, quoteCache, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}
	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:      cfg.Port,
		JWTSecret: []byte(cfg.JWTSecret),
		DevMode:   cfg.DevMode,
		DataDir:   cfg.DataDir,
		Log:       log,
		LedgerDB:  ledgerDB,
		CacheDB:   cacheDB,
		Trading:   tradinghandlers.NewHandler(engine, transactions, log),
		Portfolio: portfoliohandlers.NewHandler(portfolioSvc, log),
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	ledgerDB, cacheDB *database.DB,
	quoteCache *pricing.QuoteCache,
	log zerolog.Logger,
) error {
	if err := sched.AddJob(cfg.CacheCleanupSchedule, pricing.NewCleanupJob(quoteCache, log)); err != nil {
		return err
	}

	backups := reliability.NewBackupService(
		map[string]*database.DB{"ledger": ledgerDB},
		filepath.Join(cfg.DataDir, "backups"),
		log,
	)

	var store *reliability.S3Client
	retain := 7
	if cfg.Backup != nil && cfg.Backup.Enabled {
		retain = cfg.Backup.Retain

		var err error
		store, err = reliability.NewS3Client(context.Background(), reliability.S3ClientConfig{
			Bucket:          cfg.Backup.Bucket,
			Region:          cfg.Backup.Region,
			Endpoint:        cfg.Backup.Endpoint,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		}, log)
		if err != nil {
			return err
		}
	}

	return sched.AddJob(cfg.BackupSchedule, reliability.NewBackupJob(backups, store, retain, log))
}
