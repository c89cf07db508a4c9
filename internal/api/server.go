// Package api exposes the wallet inspection operations over HTTP.
//
// Every route answers GET with {"result": ...} on success and {"error": "..."}
// otherwise. Routes that accept format=csv return text/csv instead.
package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/observability"
	"solana-wallet-inspector/internal/retry"
	"solana-wallet-inspector/internal/storage"
)

// Request defaults.
const (
	DefaultTraceDepth  = 2
	MaxTraceDepth      = 10
	DefaultRecentLimit = 20
	DefaultRunsLimit   = 20
)

// Tracer traces outbound transfers.
type Tracer interface {
	Trace(ctx context.Context, origin string, maxDepth int) (domain.TraceResult, error)
}

// Clusterer aggregates counterparties.
type Clusterer interface {
	ClusterAddresses(ctx context.Context, origin string) (*domain.ClusterSet, error)
	ClusterGraph(ctx context.Context, origin string) (*domain.ClusterGraph, error)
}

// WalletReader reads balances and recent transactions.
type WalletReader interface {
	Balances(ctx context.Context, owner string) (*domain.WalletBalances, error)
	Transactions(ctx context.Context, addr string, numTx int) ([]domain.TransactionSummary, error)
}

// MemecoinScanner scans a wallet for memecoins.
type MemecoinScanner interface {
	Scan(ctx context.Context, wallet string) (*domain.MemecoinReport, error)
}

// GhostScanner scans a wallet's tokens for awakenings.
type GhostScanner interface {
	Scan(ctx context.Context, wallet string) ([]domain.GhostAwakening, error)
}

// ExchangeScanner scans a wallet for exchange interactions.
type ExchangeScanner interface {
	Scan(ctx context.Context, wallet string) (*domain.ExchangeActivity, error)
}

// Options wires a Server. Archive and Recent are optional.
type Options struct {
	Tracer    Tracer
	Cluster   Clusterer
	Wallet    WalletReader
	Memecoins MemecoinScanner
	Ghosts    GhostScanner
	Exchange  ExchangeScanner

	Archive storage.TransferArchive
	Recent  storage.RecentAddressStore

	// RateLimit wraps trace calls. Default: retry.RateLimitPolicy(5, 1.2s).
	RateLimit      *retry.Policy
	RequestTimeout time.Duration // Default: 60s
	Logger         *log.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	tracer    Tracer
	cluster   Clusterer
	wallet    WalletReader
	memecoins MemecoinScanner
	ghosts    GhostScanner
	exchange  ExchangeScanner
	archive   storage.TransferArchive
	recent    storage.RecentAddressStore

	rateLimit retry.Policy
	timeout   time.Duration
	logger    *log.Logger
	newID     func() string
	now       func() time.Time
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	s := &Server{
		tracer:    opts.Tracer,
		cluster:   opts.Cluster,
		wallet:    opts.Wallet,
		memecoins: opts.Memecoins,
		ghosts:    opts.Ghosts,
		exchange:  opts.Exchange,
		archive:   opts.Archive,
		recent:    opts.Recent,
		rateLimit: retry.RateLimitPolicy(0, 0),
		timeout:   60 * time.Second,
		logger:    opts.Logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
	if opts.RateLimit != nil {
		s.rateLimit = *opts.RateLimit
	}
	if opts.RequestTimeout > 0 {
		s.timeout = opts.RequestTimeout
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	s.rateLimit.OnRetry = func(attempt int, wait time.Duration, err error) {
		s.logger.Printf("[api] rate limited, retry %d after %v: %v", attempt, wait, err)
	}
	return s
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "/api/trace", s.handleTrace)
	s.route(mux, "/api/trace/runs", s.handleTraceRuns)
	s.route(mux, "/api/cluster", s.handleCluster)
	s.route(mux, "/api/cluster-wallets", s.handleClusterWallets)
	s.route(mux, "/api/detect-memecoins", s.handleMemecoins)
	s.route(mux, "/api/ghost-tokens", s.handleGhosts)
	s.route(mux, "/api/binance-detection", s.handleExchange)
	s.route(mux, "/api/token-balances", s.handleBalances)
	s.route(mux, "/api/transactions", s.handleTransactions)
	s.route(mux, "/api/recent", s.handleRecent)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	return mux
}

// route registers a GET handler with a request timeout and metrics.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		if r.Method != http.MethodGet {
			rec.Header().Set("Allow", http.MethodGet)
			writeError(rec, http.StatusMethodNotAllowed, "method not allowed")
		} else {
			ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
			h(rec, r.WithContext(ctx))
			cancel()
		}

		observability.RecordHTTPRequest(pattern, strconv.Itoa(rec.status), time.Since(start).Seconds())
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// touch records addr as recently inspected. Failures are logged only.
func (s *Server) touch(ctx context.Context, addr string) {
	if s.recent == nil {
		return
	}
	if err := s.recent.Touch(ctx, addr, s.now().UnixMilli()); err != nil {
		s.logger.Printf("[api] record recent address %s: %v", addr, err)
	}
}
