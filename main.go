package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signal-core/internal/api"
	"signal-core/internal/engine"
	"signal-core/internal/events"
	"signal-core/internal/fusion"
	"signal-core/internal/indicators"
	"signal-core/internal/market"
	"signal-core/internal/monitor"
	"signal-core/internal/orchestrator"
	"signal-core/internal/regime"
	"signal-core/internal/strategy"
	"signal-core/pkg/config"
	"signal-core/pkg/db"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[MAIN] Failed to load config: %v", err)
	}
	log.Printf("[MAIN] Starting signal-core v%s (symbols=%v primary=%s secondary=%s mock=%v)",
		version, cfg.Symbols, cfg.PrimaryInterval, cfg.SecondaryInterval, cfg.UseMockFeed)

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("[MAIN] Failed to open database: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("[MAIN] Failed to apply migrations: %v", err)
	}

	bus := events.NewBus()
	indEngine := indicators.NewEngine(cfg.WarmupBars)
	detector := regime.NewDetector()

	configs, err := strategy.LoadConfig(cfg.StrategyConfigPath)
	if err != nil {
		log.Fatalf("[MAIN] Failed to load strategy config %s: %v", cfg.StrategyConfigPath, err)
	}
	if err := strategy.SyncConfigToDB(database.DB, configs); err != nil {
		log.Fatalf("[MAIN] Failed to sync strategy config: %v", err)
	}
	registry := strategy.BuildRegistry(configs)
	log.Printf("[MAIN] Registered %d strategies", len(registry.IDs()))

	orch := orchestrator.New(orchestrator.Config{
		Enabled:                cfg.OrchestratorEnabled,
		HealthScoringWindow:    cfg.HealthScoringWindow,
		LossStreakDisable:      cfg.LossStreakDisable,
		DisableDurationSeconds: cfg.DisableDurationSeconds,
		EnforceRegimes:         cfg.EnforceRegimes,
		MinHealthScore:         cfg.MinHealthScore,
	}, strategyMetadata(configs))

	fusionEngine := fusion.NewEngine(registry, indEngine, bus, fusion.Options{
		PrimaryInterval:   cfg.PrimaryInterval,
		SecondaryInterval: cfg.SecondaryInterval,
		ConflictEpsilon:   cfg.ConflictEpsilon,
		MinATRPercent:     cfg.MinATRPercent,
		MaxATRPercent:     cfg.MaxATRPercent,
	})

	metrics := monitor.NewSystemMetrics()
	prom, promHandler := monitor.NewPromRecorder()
	prom.SetTrackedStrategies(len(registry.IDs()))

	svc := engine.NewImpl(engine.Config{
		Fusion:          fusionEngine,
		Orchestrator:    orch,
		Registry:        registry,
		Indicators:      indEngine,
		Detector:        detector,
		Bus:             bus,
		DB:              database,
		Metrics:         metrics,
		Prom:            prom,
		PrimaryInterval: cfg.PrimaryInterval,
		Meta: engine.SystemStatus{
			Symbols:             cfg.Symbols,
			PrimaryInterval:     cfg.PrimaryInterval,
			SecondaryInterval:   cfg.SecondaryInterval,
			UseMockFeed:         cfg.UseMockFeed,
			OrchestratorEnabled: cfg.OrchestratorEnabled,
			Version:             version,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	intervals := []string{cfg.PrimaryInterval}
	if cfg.SecondaryInterval != "" && cfg.SecondaryInterval != cfg.PrimaryInterval {
		intervals = append(intervals, cfg.SecondaryInterval)
	}

	var feed market.Feed
	if cfg.UseMockFeed {
		log.Println("[MAIN] Using mock market feed")
		feed = market.NewMockFeed(indEngine, bus, cfg.Symbols, intervals, cfg.WarmupBars, 2*time.Second, time.Now().UnixNano())
	} else {
		log.Printf("[MAIN] Using Binance market feed (testnet=%v)", cfg.BinanceTestnet)
		feed = market.NewBinanceFeed(cfg.BinanceTestnet, indEngine, bus, cfg.Symbols, intervals, cfg.WarmupBars)
	}
	if err := feed.Start(ctx); err != nil {
		log.Fatalf("[MAIN] Failed to start market feed: %v", err)
	}
	defer feed.Stop()

	mon := &monitor.Monitor{Bus: bus, AlertFn: func(msg string) {
		log.Printf("[ALERT] %s", msg)
	}}
	mon.Start(ctx)

	go svc.Run(ctx)

	server := api.NewServer(bus, database, svc, metrics, promHandler, cfg.JWTSecret)
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("[MAIN] API server stopped: %v", err)
		}
	}()
	log.Printf("[MAIN] API listening on :%s", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("[MAIN] Received %v, shutting down", sig)
	cancel()
	time.Sleep(500 * time.Millisecond) // let in-flight evaluations drain
	log.Println("[MAIN] Shutdown complete")
}

// strategyMetadata extracts the orchestrator rules embedded in each
// strategy's metadata block.
func strategyMetadata(configs []strategy.Config) map[string]orchestrator.Metadata {
	out := make(map[string]orchestrator.Metadata, len(configs))
	for _, c := range configs {
		if len(c.Metadata) == 0 {
			continue
		}
		out[c.ID] = orchestrator.Metadata{
			RequiresRegime: metaStrings(c.Metadata, "requires_regime"),
			AvoidRegime:    metaStrings(c.Metadata, "avoid_regime"),
			SessionStart:   metaString(c.Metadata, "session_start"),
			SessionEnd:     metaString(c.Metadata, "session_end"),
			AllowedDays:    metaStrings(c.Metadata, "allowed_days"),
		}
	}
	return out
}

func metaString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func metaStrings(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}
