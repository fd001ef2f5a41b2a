// Package main is the entry point for the logo hunt service. It keeps one
// counter per player in sync across two chains through a cross-chain bridge
// and serves collect, stats and leaderboard endpoints.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/logohunt-service/internal/aggregate"
	"github.com/yourorg/logohunt-service/internal/api"
	"github.com/yourorg/logohunt-service/internal/candidates"
	"github.com/yourorg/logohunt-service/internal/chain"
	"github.com/yourorg/logohunt-service/internal/circuitbreaker"
	"github.com/yourorg/logohunt-service/internal/collection"
	"github.com/yourorg/logohunt-service/internal/config"
	"github.com/yourorg/logohunt-service/internal/dispatch"
	"github.com/yourorg/logohunt-service/internal/leaderboard"
	"github.com/yourorg/logohunt-service/internal/observability"
	"github.com/yourorg/logohunt-service/internal/otel"
	"github.com/yourorg/logohunt-service/internal/security"
	"github.com/yourorg/logohunt-service/internal/storage"
	"github.com/yourorg/logohunt-service/internal/storage/migrations"
	"github.com/yourorg/logohunt-service/internal/storage/postgres"
)

// main is the entry point for the application
func main() {
	// Configure logging
	config.SetupLogging()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	operator, err := security.NewOperator(cfg.PrivateKey)
	if err != nil {
		logrus.Fatalf("Failed to load operator key: %v", err)
	}
	logrus.WithField("operator", operator.Address().Hex()).Info("Operator loaded")

	shutdownTracer := otel.InitTracer(cfg)
	defer shutdownTracer()

	ctx := context.Background()

	endpoints, err := dialChains(ctx, cfg, operator)
	if err != nil {
		logrus.Fatalf("Failed to connect to chains: %v", err)
	}
	defer func() {
		for _, ep := range endpoints {
			ep.Close()
		}
	}()

	store, closeStore, err := openReceiptStore(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to open receipt store: %v", err)
	}
	defer closeStore()

	breakers := circuitbreaker.NewSet(cfg.ChainNames(), cfg.CircuitFailureThreshold, cfg.CircuitResetDelay,
		func(name string, from, to circuitbreaker.State) {
			observability.UpdateCircuitState(name, int(to))
			logrus.WithFields(logrus.Fields{
				"chain": name,
				"from":  from,
				"to":    to,
			}).Info("Circuit breaker state changed")
		})

	readers := make([]chain.Reader, len(endpoints))
	writers := make([]chain.Endpoint, len(endpoints))
	for i, ep := range endpoints {
		readers[i] = ep
		writers[i] = ep
	}

	collector := collection.NewService(writers, cfg.DefaultChain, dispatch.NewQuoter(),
		collection.WithReceiptStore(store),
		collection.WithReadTimeout(cfg.ReadTimeout),
	)
	stats := aggregate.New(readers,
		aggregate.WithReadTimeout(cfg.ReadTimeout),
		aggregate.WithBreakers(breakers),
	)
	ranker := leaderboard.NewBuilder(readers,
		leaderboard.WithConcurrency(cfg.LeaderboardConcurrency),
		leaderboard.WithReadTimeout(cfg.ReadTimeout),
		leaderboard.WithBreakers(breakers),
	)

	server := api.NewServer(api.Options{
		Port:             cfg.Port,
		LeaderboardSize:  cfg.LeaderboardSize,
		RateLimitRPS:     cfg.RateLimitRPS,
		RateLimitBurst:   cfg.RateLimitBurst,
		WriteTimeout:     cfg.ConfirmationTimeout + 30*time.Second,
		Breakers:         breakers,
		CandidateSources: candidateSources(cfg, endpoints, store),
	}, collector, stats, ranker)

	// Start the server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server shutdown failed: %v", err)
	}

	logrus.Info("Server stopped")
}

// dialChains connects one endpoint per configured chain
func dialChains(ctx context.Context, cfg *config.Config, operator *security.Operator) ([]*chain.EVMEndpoint, error) {
	opts := chain.Options{
		ConfirmationTimeout: cfg.ConfirmationTimeout,
		GasLimit:            cfg.GasLimit,
		RetryMax:            cfg.RPCRetryMax,
	}

	endpoints := make([]*chain.EVMEndpoint, 0, len(cfg.Chains))
	for _, desc := range cfg.Chains {
		ep, err := chain.Dial(ctx, desc, operator, opts)
		if err != nil {
			for _, open := range endpoints {
				open.Close()
			}
			return nil, err
		}

		verifyCtx, cancel := context.WithTimeout(ctx, cfg.ReadTimeout)
		if err := ep.VerifyChainID(verifyCtx); err != nil {
			logrus.WithField("chain", desc.Name).Warnf("Chain id check failed: %v", err)
		}
		cancel()

		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}

// openReceiptStore opens the postgres audit trail. Without DATABASE_URL no
// receipts are kept and the store is nil.
func openReceiptStore(ctx context.Context, cfg *config.Config) (storage.ReceiptStore, func(), error) {
	if cfg.DatabaseURL == "" {
		logrus.Info("DATABASE_URL not set, collect receipts are not recorded")
		return nil, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logrus.Info("Using postgres receipt store")
	return postgres.NewReceiptStore(pool), pool.Close, nil
}

// candidateSources wires leaderboard discovery: configured wallets, recent
// LogoFound events on every chain and, when enabled, collected wallets.
func candidateSources(cfg *config.Config, endpoints []*chain.EVMEndpoint, store storage.ReceiptStore) candidates.Source {
	sources := []candidates.Source{candidates.NewStatic(cfg.LeaderboardCandidates)}
	for _, ep := range endpoints {
		desc := ep.Descriptor()
		sources = append(sources, candidates.NewLogScanner(desc.Name, ep.Backend(), desc.ContractAddress, cfg.LeaderboardLookbackBlocks))
	}
	if cfg.IncludeCollectedPlayers && store != nil {
		sources = append(sources, candidates.NewReceipts(store))
	}
	return candidates.NewMulti(sources...)
}
