// Package app wires configuration, storage and services for the commands.
package app

import (
	"context"
	"fmt"
	"log"

	"solana-wallet-inspector/internal/api"
	"solana-wallet-inspector/internal/cluster"
	"solana-wallet-inspector/internal/config"
	"solana-wallet-inspector/internal/heuristics"
	"solana-wallet-inspector/internal/metadata"
	"solana-wallet-inspector/internal/reporting"
	"solana-wallet-inspector/internal/retry"
	"solana-wallet-inspector/internal/solana"
	"solana-wallet-inspector/internal/storage"
	chstore "solana-wallet-inspector/internal/storage/clickhouse"
	"solana-wallet-inspector/internal/storage/memory"
	"solana-wallet-inspector/internal/storage/migrations"
	pgstore "solana-wallet-inspector/internal/storage/postgres"
	"solana-wallet-inspector/internal/trace"
	"solana-wallet-inspector/internal/wallet"
)

// Stores holds the storage implementations selected by configuration.
type Stores struct {
	Metadata storage.TokenMetadataStore
	Recent   storage.RecentAddressStore
	Archive  storage.TransferArchive
}

// NewMemoryStores returns in-memory stores.
func NewMemoryStores() *Stores {
	return &Stores{
		Metadata: memory.NewTokenMetadataStore(),
		Recent:   memory.NewRecentAddressStore(),
		Archive:  memory.NewTransferArchive(),
	}
}

// NewStores connects the configured databases and applies their migrations.
// PostgreSQL backs metadata and recent addresses, ClickHouse the trace archive;
// whichever DSN is empty falls back to memory.
func NewStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Stores, func(), error) {
	stores := NewMemoryStores()
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		stores.Metadata = pgstore.NewTokenMetadataStore(pool)
		stores.Recent = pgstore.NewRecentAddressStore(pool)
		logger.Println("Using PostgreSQL for token metadata and recent addresses")
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		closers = append(closers, func() { conn.Close() })

		stores.Archive = chstore.NewTransferArchive(conn)
		logger.Println("Using ClickHouse for the trace archive")
	}

	return stores, cleanup, nil
}

// App holds the services built from one configuration.
type App struct {
	Config *config.Config
	RPC    solana.Client
	Stores *Stores

	Resolver  *metadata.Resolver
	Wallet    *wallet.Service
	Walker    *trace.Walker
	Cluster   *cluster.Aggregator
	Memecoins *heuristics.MemecoinScanner
	Ghosts    *heuristics.GhostScanner
	Exchange  *heuristics.ExchangeScanner

	logger *log.Logger
}

// NewRPCClient creates the JSON-RPC client described by cfg.
func NewRPCClient(cfg *config.Config) *solana.HTTPClient {
	return solana.NewHTTPClient(cfg.RPCEndpoint,
		solana.WithMaxRetries(cfg.RPCMaxRetries),
		solana.WithRetryDelay(cfg.RPCRetryDelay),
		solana.WithTimeout(cfg.RPCTimeout),
		solana.WithConcurrency(cfg.RPCConcurrency),
	)
}

// New builds every service over client and stores.
func New(cfg *config.Config, client solana.Client, stores *Stores, logger *log.Logger) *App {
	if logger == nil {
		logger = log.Default()
	}
	if stores == nil {
		stores = NewMemoryStores()
	}

	resolver := metadata.NewResolver(client, &metadata.Options{
		Store:  stores.Metadata,
		MaxAge: cfg.MetadataMaxAge,
		Logger: logger,
	})
	svc := wallet.NewService(client, &wallet.Options{Resolver: resolver, Logger: logger})

	return &App{
		Config:   cfg,
		RPC:      client,
		Stores:   stores,
		Resolver: resolver,
		Wallet:   svc,
		Walker: trace.NewWalker(client, trace.Options{
			SignatureLimit: cfg.TraceSignatureLimit,
			Logger:         logger,
		}),
		Cluster: cluster.NewAggregator(client, cluster.Options{
			SignatureLimit: cfg.ClusterSignatureLimit,
			Logger:         logger,
		}),
		Memecoins: heuristics.NewMemecoinScanner(svc, &heuristics.MemecoinOptions{
			Keywords: cfg.MemecoinKeywords,
			Logger:   logger,
		}),
		Ghosts: heuristics.NewGhostScanner(client, svc, &heuristics.GhostOptions{
			SignatureLimit: cfg.GhostSignatureLimit,
			Dormancy:       cfg.GhostDormancy,
			Logger:         logger,
		}),
		Exchange: heuristics.NewExchangeScanner(client, &heuristics.ExchangeOptions{
			Exchanges:      cfg.ExchangeWallets,
			SignatureLimit: cfg.ExchangeSignatureLimit,
			Logger:         logger,
		}),
		logger: logger,
	}
}

// APIServer returns the HTTP API over the app's services.
func (a *App) APIServer() *api.Server {
	policy := retry.RateLimitPolicy(a.Config.RateLimitAttempts, a.Config.RateLimitDelay)
	return api.NewServer(api.Options{
		Tracer:         a.Walker,
		Cluster:        a.Cluster,
		Wallet:         a.Wallet,
		Memecoins:      a.Memecoins,
		Ghosts:         a.Ghosts,
		Exchange:       a.Exchange,
		Archive:        a.Stores.Archive,
		Recent:         a.Stores.Recent,
		RateLimit:      &policy,
		RequestTimeout: a.Config.RequestTimeout,
		Logger:         a.logger,
	})
}

// ReportGenerator returns a wallet report generator over every service.
func (a *App) ReportGenerator() *reporting.Generator {
	return reporting.NewGenerator(reporting.Sources{
		Balances:  a.Wallet,
		Memecoins: a.Memecoins,
		Exchange:  a.Exchange,
		Ghosts:    a.Ghosts,
		Cluster:   a.Cluster,
		Trace:     a.Walker,
	}, a.logger)
}
