package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"optiq/internal/broker"
	"optiq/internal/config"
	"optiq/internal/engine"
	"optiq/internal/httpapi"
	"optiq/internal/portfolio"
	"optiq/internal/store"
	"optiq/internal/strategy"
	"optiq/internal/strategy/builtins"
	"optiq/internal/util"
)

func main() {
	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	cfgPath := "config/optiq.yaml"
	if p := os.Getenv("OPTIQ_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	sstore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open sqlite store: %v", err)
	}
	defer sstore.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Broker and quote source: simulator in paper mode, Alpaca otherwise.
	var (
		bkr    broker.Broker
		quotes broker.QuoteSource
	)
	if cfg.Trading.PaperMode {
		sim := broker.NewSimulatedQuotes(
			simUniverse(cfg.Trading.Symbols, cfg.Trading.RefVol),
			cfg.Trading.RiskFreeRate,
			time.Duration(cfg.Trading.LoopIntervalMS)*time.Millisecond,
			time.Now().UnixNano(),
		)
		quotes = sim
		bkr = broker.NewSimulatorBroker(sim.LastPrice, cfg.Trading.StartingCash)
	} else {
		alp := broker.NewAlpacaBroker(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL, logger)
		go alp.SyncFills(ctx, time.Duration(cfg.Trading.LoopIntervalMS)*time.Millisecond)
		bkr = alp
		quotes = broker.NewAlpacaQuotes(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Trading.Symbols, 200)
	}

	registry := strategy.NewRegistry()
	registry.Register(builtins.NewVolArb(cfg.Trading.RefVol, cfg.Trading.VolBand, cfg.Trading.RiskFreeRate, logger))

	strat, ok := registry.Get(cfg.Trading.Strategy)
	if !ok {
		log.Fatalf("unknown strategy %q (available: %v)", cfg.Trading.Strategy, registry.List())
	}

	rm, err := engine.NewRiskManager(engine.RiskLimits{
		MaxPositionSize: cfg.Risk.MaxPositionSize,
		MaxDrawdown:     cfg.Risk.MaxDrawdown,
		MaxLeverage:     cfg.Risk.MaxLeverage,
		MaxRiskPerTrade: cfg.Risk.MaxRiskPerTrade,
		MaxDailyLoss:    cfg.Risk.MaxDailyLoss,
	})
	if err != nil {
		log.Fatalf("invalid risk limits: %v", err)
	}

	promReg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(promReg)

	eng, err := engine.New(engine.Options{
		Broker:     bkr,
		Quotes:     quotes,
		Portfolio:  portfolio.New(),
		Risk:       rm,
		Strategy:   strat,
		Logger:     logger,
		Interval:   time.Duration(cfg.Trading.LoopIntervalMS) * time.Millisecond,
		Orders:     sstore,
		Signals:    sstore,
		Ticks:      pstore,
		Valuations: pstore,
		Metrics:    metrics,
	})
	if err != nil {
		log.Fatalf("failed to build engine: %v", err)
	}

	api := httpapi.NewServer(eng, bkr.Name(), pstore, sstore, promReg, logger)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: api.Handler()}

	go func() {
		logger.Info("api server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server failed", "error", err)
			cancel()
		}
	}()

	err = eng.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Error("api server shutdown", "error", serr)
	}

	if err != nil && err != context.Canceled {
		log.Fatalf("engine error: %v", err)
	}
}

// simUniverse builds the simulated underlyings from configured symbols with
// rough index-level starting spots.
func simUniverse(symbols []string, vol float64) []broker.SimUnderlying {
	if len(symbols) == 0 {
		symbols = []string{"SPY"}
	}
	out := make([]broker.SimUnderlying, 0, len(symbols))
	for i, sym := range symbols {
		out = append(out, broker.SimUnderlying{
			Symbol: sym,
			Spot:   400 + 50*float64(i),
			Vol:    vol,
		})
	}
	return out
}
