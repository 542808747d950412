package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"profitbliss-backend/config"
	"profitbliss-backend/internal/api"
	"profitbliss-backend/internal/auth"
	"profitbliss-backend/internal/cache"
	"profitbliss-backend/internal/database"
	"profitbliss-backend/internal/email"
	"profitbliss-backend/internal/events"
	"profitbliss-backend/internal/investment"
	"profitbliss-backend/internal/transaction"
	"profitbliss-backend/internal/vault"
	"profitbliss-backend/internal/wallet"
)

func main() {
	generateConfig := flag.Bool("generate-config", false, "write a sample config.json and exit")
	flag.Parse()

	if *generateConfig {
		if err := config.GenerateSampleConfig("config.json"); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("sample config written to config.json")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.LoggingConfig)

	// Secrets from Vault override local configuration when enabled.
	vaultClient, err := vault.NewClient(vault.Config{
		Enabled:    cfg.VaultConfig.Enabled,
		Address:    cfg.VaultConfig.Address,
		Token:      cfg.VaultConfig.Token,
		SecretPath: cfg.VaultConfig.SecretPath,
		TLSEnabled: cfg.VaultConfig.TLSEnabled,
		CACert:     cfg.VaultConfig.CACert,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create vault client")
	}
	secrets, err := vaultClient.LoadSecrets(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load secrets from vault")
	}
	if secrets != nil {
		if secrets.JWTSecret != "" {
			cfg.AuthConfig.JWTSecret = secrets.JWTSecret
		}
		if secrets.SMTPPassword != "" {
			cfg.SMTPConfig.Password = secrets.SMTPPassword
		}
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	repo := database.NewRepository(db)

	if err := repo.SeedDefaultPlans(context.Background(), investment.DefaultPlans()); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed plans")
	}
	if err := auth.SeedAdmin(context.Background(), repo, os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD"), logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed admin user")
	}

	bus := events.NewBus()

	emailService := email.NewService(email.Config{
		Host:     cfg.SMTPConfig.Host,
		Port:     cfg.SMTPConfig.Port,
		Username: cfg.SMTPConfig.Username,
		Password: cfg.SMTPConfig.Password,
		From:     cfg.SMTPConfig.From,
		FromName: cfg.SMTPConfig.FromName,
	}, logger)

	authService := auth.NewService(repo, emailService, bus, auth.Config{
		JWTSecret:                cfg.AuthConfig.JWTSecret,
		AccessTokenDuration:      cfg.AuthConfig.AccessTokenDuration,
		RefreshTokenDuration:     cfg.AuthConfig.RefreshTokenDuration,
		MinPasswordLength:        cfg.AuthConfig.MinPasswordLength,
		RequireEmailVerification: cfg.AuthConfig.RequireEmailVerification,
		VerificationCodeTTL:      cfg.AuthConfig.VerificationCodeTTL,
	}, logger)

	ledger := wallet.NewLedger(repo, logger)
	investmentService := investment.NewService(repo, logger)
	transactionService := transaction.NewService(repo, bus, logger)

	// The sweep lock is optional; without Redis a single instance sweeps
	// unguarded, which is safe because settlements and expiries are
	// conditional updates either way.
	var maturityLocks investment.Locker
	var expiryLocks transaction.Locker
	if cfg.RedisConfig.Enabled {
		locks, err := cache.NewLocks(cache.Config{
			Enabled:  cfg.RedisConfig.Enabled,
			Address:  cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer locks.Close()
		maturityLocks = locks
		expiryLocks = locks
	}

	scheduler := investment.NewScheduler(investmentService, repo, bus, maturityLocks, &investment.SchedulerConfig{
		Interval:      cfg.SchedulerConfig.MaturityInterval,
		MaxConcurrent: cfg.SchedulerConfig.MaturityMaxConcurrent,
		SweepTimeout:  5 * time.Minute,
	}, logger)
	sweeper := transaction.NewSweeper(transactionService, repo, expiryLocks, &transaction.SweeperConfig{
		Interval:     cfg.SchedulerConfig.ExpiryInterval,
		PendingTTL:   cfg.SchedulerConfig.PendingTTL,
		SweepTimeout: 2 * time.Minute,
	}, logger)

	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start maturity scheduler")
	}
	if err := sweeper.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start expiry sweeper")
	}

	// Periodic session cleanup keeps the sessions table from growing
	// without bound.
	cleanupStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.AuthConfig.SessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := authService.CleanupExpiredSessions(context.Background()); err != nil {
					logger.Warn().Err(err).Msg("session cleanup failed")
				}
			case <-cleanupStop:
				return
			}
		}
	}()

	server := api.NewServer(api.ServerConfig{
		Port:           cfg.ServerConfig.Port,
		Host:           cfg.ServerConfig.Host,
		AllowedOrigins: cfg.ServerConfig.AllowedOrigins,
		ReadTimeout:    time.Duration(cfg.ServerConfig.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.ServerConfig.WriteTimeout) * time.Second,
		ProductionMode: strings.EqualFold(os.Getenv("GIN_MODE"), "release"),
	}, repo, bus, authService, ledger, investmentService, transactionService, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down")

	close(cleanupStop)
	if err := sweeper.Stop(); err != nil {
		logger.Warn().Err(err).Msg("expiry sweeper stop failed")
	}
	if err := scheduler.Stop(); err != nil {
		logger.Warn().Err(err).Msg("maturity scheduler stop failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	logger.Info().Msg("shutdown complete")
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.JSONFormat {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
