package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashdesk/intent-engine/pkg/aggregator"
	"github.com/hashdesk/intent-engine/pkg/chainsync"
	"github.com/hashdesk/intent-engine/pkg/circuitbreaker"
	"github.com/hashdesk/intent-engine/pkg/config"
	"github.com/hashdesk/intent-engine/pkg/contracts"
	"github.com/hashdesk/intent-engine/pkg/dedup"
	"github.com/hashdesk/intent-engine/pkg/health"
	"github.com/hashdesk/intent-engine/pkg/logger"
	"github.com/hashdesk/intent-engine/pkg/monitor"
	"github.com/hashdesk/intent-engine/pkg/normalize"
	"github.com/hashdesk/intent-engine/pkg/notify"
	"github.com/hashdesk/intent-engine/pkg/pipeline"
	"github.com/hashdesk/intent-engine/pkg/registry"
	"github.com/hashdesk/intent-engine/pkg/router"
	"github.com/hashdesk/intent-engine/pkg/service"
	"github.com/hashdesk/intent-engine/pkg/simulate"
	"github.com/hashdesk/intent-engine/pkg/wallet"
)

func main() {
	reg := registry.Default()

	cfg, err := config.LoadConfig(reg)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clients := wallet.NewClientPool(reg, lg)
	defer clients.Close()

	bridge := wallet.NewLocalBridge(registry.EthereumChainID)
	sink := &notify.LogSink{Logger: lg}
	guard := dedup.NewStore(cfg.DedupWindow, cfg.DedupRetention)

	normalizer := normalize.New(normalize.DefaultCatalog(), reg, sink, lg)
	synchronizer := chainsync.New(bridge, reg, cfg.SettleDelay, lg)

	simulator := simulate.New(func(chainID int) (simulate.Backend, error) {
		return clients.Client(chainID)
	}, lg)

	var preparer aggregator.Preparer
	if cfg.AggregatorEnabled {
		preparer = aggregator.New(cfg.AggregatorBaseURL)
	}

	rtr := router.New(reg, router.Config{
		EntrypointEnabled: cfg.EntrypointEnabled,
		Entrypoints:       cfg.Entrypoints,
		AggregatorEnabled: cfg.AggregatorEnabled,
		SlippageBps:       cfg.SlippageBps,
		SettleDelay:       cfg.SettleDelay,
	}, guard, func(chainID int) (contracts.Caller, error) {
		return clients.Client(chainID)
	}, preparer, bridge, sink, lg)

	mon := monitor.New(func(chainID int) (monitor.ReceiptSource, error) {
		return clients.Client(chainID)
	}, cfg.MonitorTimeout, lg)

	pipe := pipeline.New(normalizer, synchronizer, simulator, rtr, mon, lg)

	breakers := circuitbreaker.NewSet(
		cfg.CircuitBreaker.Enabled,
		cfg.CircuitBreaker.Threshold,
		cfg.CircuitBreaker.Window,
		cfg.CircuitBreaker.Cooldown,
		lg,
	)

	signers := wallet.NewSignerPool(clients, cfg.PrivateKey, cfg.GasMultiplier, cfg.MaxGasPrice, lg)
	svc := service.New(pipe, breakers, signers, cfg.WorkerCount, cfg.QueueSize, lg)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		lg.Notice("received termination signal, shutting down gracefully...")
		cancel()
	}()

	healthServer := health.NewServer(cfg.MetricsPort, reg, breakers, guard, clients.Connected, cfg.MetricsAPIKey, lg)
	go healthServer.Start()

	svc.Start(ctx)
	lg.Notice("intent engine started with %d workers", cfg.WorkerCount)

	<-ctx.Done()
	svc.Wait()
	lg.Notice("intent engine stopped")
}
