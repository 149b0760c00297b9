package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/goldpayments-ledger/internal/assistant"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/assistant/gemini"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/config"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/goldpayments-ledger/internal/interfaces"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/ledger"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/loan"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/logger"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/models"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/server"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/session"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/storage"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/storage/file"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/storage/postgres"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/storage/redis"
	"github.com/sheikh-saqib/goldpayments-ledger/internal/transfer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Persistent store ---
	kv, closeStore, err := openStore(ctx, cfg.Store)
	storeDown := err != nil
	if storeDown {
		zlog.Error("persistent store unavailable, running in memory",
			zap.String("driver", cfg.Store.Driver), zap.Error(err))
		kv, closeStore = memory.NewMemoryKVStore(), func() error { return nil }
	}
	defer closeStore()

	// --- Events ---
	var opts []ledger.Option
	if len(cfg.Kafka.Brokers) > 0 {
		pub := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, zlog)
		defer pub.Close()
		opts = append(opts, ledger.WithPublisher(pub))
		zlog.Info("kafka publisher initialized",
			zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	// --- Session ---
	l, outcome := session.Bootstrap(ctx, storage.NewRecordStore(kv), zlog, opts...)
	if storeDown {
		l.MarkDegraded()
	}
	zlog.Info("session bootstrapped",
		zap.Stringer("outcome", outcome), zap.Bool("degraded", l.Degraded()))

	// --- Assistant ---
	var completer interfaces.Completer
	if cfg.Gemini.APIKey != "" {
		c, err := gemini.NewCompleter(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			zlog.Error("gemini client init failed, assistant will apologise", zap.Error(err))
		} else {
			completer = c
		}
	} else {
		zlog.Warn("GEMINI_API_KEY not set, assistant will apologise")
	}
	bridge := assistant.NewBridge(completer, assistant.Config{
		Temperature: cfg.Gemini.Temperature,
		Timeout:     cfg.Gemini.Timeout,
	}, zlog)
	chat := assistant.NewConversation(bridge, func() ([]models.Transaction, error) {
		snap, err := l.Snapshot()
		return snap.Transactions, err
	})

	// --- Flows ---
	onboarding := session.NewOnboarding(l,
		session.DelayScanner{Delay: cfg.Account.BiometricDelay},
		session.OnboardingConfig{
			DisplayName:  cfg.Account.DisplayName,
			SeedBalance:  cfg.Account.SeedBalance,
			CreditLimit:  cfg.Account.CreditLimit,
			WelcomeBonus: cfg.Account.WelcomeBonus,
		}, zlog)
	transfers := transfer.NewService(l, zlog)
	loans := loan.NewService(l, loan.Terms{
		MinimumIncrement: cfg.Loan.Min,
		Step:             cfg.Loan.Step,
		AnnualRate:       cfg.Loan.AnnualRate,
		TermMonths:       cfg.Loan.TermMonths,
	}, zlog)

	// --- HTTP ---
	h := server.NewHandler(server.Deps{
		Ledger:     l,
		Outcome:    outcome,
		Onboarding: onboarding,
		Transfers:  transfers,
		Loans:      loans,
		Chat:       chat,
	}, zlog)
	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           server.NewRouter(h, zlog),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openStore returns the KV backend for cfg.Driver plus its close function.
func openStore(ctx context.Context, cfg config.StoreConfig) (interfaces.KVStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case config.DriverMemory:
		return memory.NewMemoryKVStore(), noop, nil
	case config.DriverRedis:
		s, err := redis.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.PGDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := file.NewFileKVStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	}
}
