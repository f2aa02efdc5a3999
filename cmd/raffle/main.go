package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/justbytes/solidity-casino/internal/config"
	"github.com/justbytes/solidity-casino/internal/logger"
	"github.com/justbytes/solidity-casino/internal/payout"
	"github.com/justbytes/solidity-casino/internal/raffle"
	"github.com/justbytes/solidity-casino/internal/storage"
	"github.com/justbytes/solidity-casino/internal/vrf"
	"github.com/justbytes/solidity-casino/internal/webserver"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logger.Initialize(cfg.Log)

	sqliteStorage := storage.NewSqliteStorage(cfg.DatabasePath)
	bank := payout.NewBank()

	coordinator := vrf.NewLocalCoordinator(ctx, cfg.BlockTime, cfg.RequestPrice)
	subscriptionID := coordinator.CreateSubscription()
	if err := coordinator.FundSubscription(subscriptionID, cfg.SubscriptionFunding); err != nil {
		panic(err)
	}

	hub := webserver.NewHub()
	go hub.Run(ctx)

	engine := raffle.New(raffle.Config{
		EntryFee: cfg.EntryFee,
		Interval: cfg.RoundInterval,
		Expiry:   cfg.RoundExpiry,
		Request: vrf.RequestConfig{
			KeyHash:              cfg.KeyHash,
			SubscriptionID:       subscriptionID,
			RequestConfirmations: cfg.RequestConfirmations,
			CallbackGasLimit:     cfg.CallbackGasLimit,
			NumWords:             cfg.NumWords,
			NativePayment:        true,
		},
	}, coordinator, bank, raffle.MultiSink{hub, storage.NewRecorder(sqliteStorage)})

	if err := coordinator.AddConsumer(subscriptionID, engine); err != nil {
		panic(err)
	}

	// Keeper loop: anyone may trigger upkeep; this is the resident trigger.
	go runKeeper(ctx, engine)

	router := gin.Default()
	server := webserver.NewServer(engine, bank, sqliteStorage, hub)
	server.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("raffle service listening", zap.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error("stopping due to server error", zap.Error(err))
		cancel()
	case <-waitForInterrupt():
		logger.Info("interrupt received, shutting down")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}

func runKeeper(ctx context.Context, engine *raffle.Raffle) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			needed, _ := engine.CheckUpkeep()
			if !needed {
				continue
			}

			requestID, err := engine.PerformUpkeep()
			if err != nil {
				// Another trigger may have consumed the round between the
				// check and the call; that is expected.
				var notNeeded *raffle.UpkeepNotNeededError
				if errors.As(err, &notNeeded) {
					continue
				}
				logger.Warn("keeper: upkeep failed", zap.Error(err))
				continue
			}

			logger.Info("keeper: upkeep performed", zap.Uint64("request id", requestID))
		}
	}
}

func waitForInterrupt() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	return sigCh
}
