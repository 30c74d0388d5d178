// Command signalengine is the process entrypoint wiring modules A-I and
// every collaborator (bus, store, broker, config, logging) into one
// running pipeline, replacing the teacher's monolithic root main.go with a
// composition root scoped to this system's own modules.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kosheduteam/signalengine/config"
	"github.com/kosheduteam/signalengine/internal/aggregator"
	"github.com/kosheduteam/signalengine/internal/api"
	"github.com/kosheduteam/signalengine/internal/backtest"
	"github.com/kosheduteam/signalengine/internal/broker"
	"github.com/kosheduteam/signalengine/internal/broker/restbroker"
	"github.com/kosheduteam/signalengine/internal/broker/simbroker"
	"github.com/kosheduteam/signalengine/internal/bus"
	"github.com/kosheduteam/signalengine/internal/bus/memorybus"
	"github.com/kosheduteam/signalengine/internal/bus/redisbus"
	"github.com/kosheduteam/signalengine/internal/executor"
	"github.com/kosheduteam/signalengine/internal/logging"
	"github.com/kosheduteam/signalengine/internal/resilience"
	"github.com/kosheduteam/signalengine/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.New(&logging.Config{
		Level:       cfg.Logging.Level,
		Output:      cfg.Logging.Output,
		JSONFormat:  cfg.Logging.JSONFormat,
		IncludeFile: cfg.Logging.IncludeFile,
		Component:   "signalengine",
	})
	logging.SetDefault(logger)
	logger.Info("configuration loaded", "simulation_mode", cfg.Simulation, "symbols", cfg.Symbols)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to the store", "error", err.Error())
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("failed to run migrations", "error", err.Error())
	}
	logger.Info("store ready")

	var messageBus bus.Bus
	if cfg.Redis.Enabled {
		messageBus = redisbus.New(cfg.Redis, cfg.Queues.BusBufferCapacity)
		logger.Info("bus ready", "transport", "redis")
	} else {
		messageBus = memorybus.NewWithBufferSize(cfg.Queues.BusBufferCapacity)
		logger.Info("bus ready", "transport", "in-process")
	}

	degradation := resilience.NewDegradationRegistry(30 * time.Second)
	degradation.SetFallback("store", true)
	degradation.SetFallback("bus", true)
	qstore := newQueuedStore(db, cfg.Queues.StoreWriteQueueCapacity, logger, degradation)
	go qstore.drain(ctx)

	pipe := newPipeline(cfg, logger, degradation)

	var brk broker.Broker
	if cfg.Simulation {
		brk = simbroker.New(pipe.latestPrice)
		logger.Info("broker ready", "mode", "simulation")
	} else {
		brk = restbroker.New(cfg.Broker.APIKey, cfg.Broker.SecretKey, cfg.Broker.BaseURL)
		logger.Info("broker ready", "mode", "rest")
	}

	aggr := aggregator.New(cfg.CMS, messageBus, db)
	exec := executor.New(cfg, brk, messageBus, db, cfg.AccountEquity)
	pipe.aggregator = aggr
	pipe.executor = exec

	runner := backtest.New(cfg.CMS.Weights, cfg.CMS.RegimeWindowBars)

	server := api.New(cfg.Server, db, messageBus, runner)
	server.SetDegradationRegistry(degradation)
	go func() {
		if err := server.Start(ctx); err != nil {
			logger.Error("api server exited", "error", err.Error())
		}
	}()

	pipe.start(ctx, messageBus, qstore)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutdown signal received")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down api server", "error", err.Error())
	}

	logger.Info("shutdown complete")
}
