package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"solana-wallet-inspector/internal/address"
	"solana-wallet-inspector/internal/domain"
	"solana-wallet-inspector/internal/reporting"
	"solana-wallet-inspector/internal/retry"
	"solana-wallet-inspector/internal/wallet"
)

// handleTrace traces outbound transfers, retrying while the provider rate limits.
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	depth, err := intParam(r, "depth", DefaultTraceDepth)
	if err == nil && (depth < 0 || depth > MaxTraceDepth) {
		err = fmt.Errorf("depth must be between 0 and %d", MaxTraceDepth)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	var result domain.TraceResult
	err = retry.Do(ctx, s.rateLimit, func(ctx context.Context) error {
		var err error
		result, err = s.tracer.Trace(ctx, addr, depth)
		return err
	})
	if err != nil {
		s.fail(w, "trace", err)
		return
	}
	if result == nil {
		result = domain.TraceResult{}
	}
	s.touch(ctx, addr)

	if id, ok := s.archiveRun(ctx, addr, depth, result); ok {
		w.Header().Set("X-Trace-Run-ID", id)
	}

	if wantsCSV(r) {
		writeCSV(w, "trace", addr, reporting.RenderTraceCSV(result))
		return
	}
	writeResult(w, result)
}

// archiveRun stores the trace when an archive is configured. Failures are logged only.
func (s *Server) archiveRun(ctx context.Context, origin string, depth int, events domain.TraceResult) (string, bool) {
	if s.archive == nil {
		return "", false
	}
	run := &domain.TraceRun{
		ID:        s.newID(),
		Origin:    origin,
		MaxDepth:  depth,
		CreatedAt: s.now().UnixMilli(),
		Events:    events,
	}
	if err := s.archive.InsertRun(ctx, run); err != nil {
		s.logger.Printf("[api] archive trace %s: %v", origin, err)
		return "", false
	}
	return run.ID, true
}

// handleTraceRuns returns one archived run by id, or the runs of an origin.
func (s *Server) handleTraceRuns(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotImplemented, "trace archive not configured")
		return
	}

	q := r.URL.Query()
	if id := q.Get("id"); id != "" {
		run, err := s.archive.GetRun(r.Context(), id)
		if err != nil {
			s.fail(w, "get trace run", err)
			return
		}
		if wantsCSV(r) {
			writeCSV(w, "trace-run", run.ID, reporting.RenderTraceCSV(run.Events))
			return
		}
		writeResult(w, run)
		return
	}

	origin := q.Get("origin")
	if origin == "" {
		writeError(w, http.StatusBadRequest, "Missing id or origin parameter")
		return
	}
	if err := address.Validate(origin); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(r, "limit", DefaultRunsLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := s.archive.ListRunsByOrigin(r.Context(), origin, limit)
	if err != nil {
		s.fail(w, "list trace runs", err)
		return
	}
	if runs == nil {
		runs = []*domain.TraceRun{}
	}
	writeResult(w, runs)
}

// handleCluster returns the counterparty graph.
func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	graph, err := s.cluster.ClusterGraph(r.Context(), addr)
	if err != nil {
		s.fail(w, "cluster", err)
		return
	}
	s.touch(r.Context(), addr)

	if wantsCSV(r) {
		writeCSV(w, "cluster", addr, reporting.RenderClusterCSV(graph))
		return
	}
	writeResult(w, graph)
}

// handleClusterWallets returns the flat counterparty set.
func (s *Server) handleClusterWallets(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	set, err := s.cluster.ClusterAddresses(r.Context(), addr)
	if err != nil {
		s.fail(w, "cluster wallets", err)
		return
	}
	s.touch(r.Context(), addr)
	writeResult(w, set)
}

// handleMemecoins returns the memecoin report.
func (s *Server) handleMemecoins(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	report, err := s.memecoins.Scan(r.Context(), addr)
	if err != nil {
		s.fail(w, "detect memecoins", err)
		return
	}
	s.touch(r.Context(), addr)

	if wantsCSV(r) {
		writeCSV(w, "memecoins", addr, reporting.RenderMemecoinCSV(report))
		return
	}
	writeResult(w, report)
}

// handleGhosts returns dormant token awakenings.
func (s *Server) handleGhosts(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	awakenings, err := s.ghosts.Scan(r.Context(), addr)
	if err != nil {
		s.fail(w, "ghost tokens", err)
		return
	}
	s.touch(r.Context(), addr)

	if wantsCSV(r) {
		writeCSV(w, "ghost-tokens", addr, reporting.RenderGhostCSV(awakenings))
		return
	}
	writeResult(w, awakenings)
}

// handleExchange returns exchange interactions.
func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	activity, err := s.exchange.Scan(r.Context(), addr)
	if err != nil {
		s.fail(w, "exchange detection", err)
		return
	}
	s.touch(r.Context(), addr)

	if wantsCSV(r) {
		writeCSV(w, "exchange", addr, reporting.RenderExchangeCSV(activity))
		return
	}
	writeResult(w, activity)
}

// handleBalances returns native and token balances.
func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	balances, err := s.wallet.Balances(r.Context(), addr)
	if err != nil {
		s.fail(w, "token balances", err)
		return
	}
	s.touch(r.Context(), addr)
	writeResult(w, balances)
}

// handleTransactions returns the most recent transactions.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	numTx, err := intParam(r, "numTx", wallet.DefaultTransactionCount)
	if err == nil && numTx < 1 {
		err = errors.New("numTx must be positive")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.wallet.Transactions(r.Context(), addr, numTx)
	if err != nil {
		s.fail(w, "transactions", err)
		return
	}
	s.touch(r.Context(), addr)
	writeResult(w, txs)
}

// handleRecent lists recently inspected addresses, most recent first.
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.recent == nil {
		writeError(w, http.StatusNotImplemented, "recent address store not configured")
		return
	}
	limit, err := intParam(r, "limit", DefaultRecentLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.recent.ListRecent(r.Context(), limit)
	if err != nil {
		s.fail(w, "recent addresses", err)
		return
	}
	writeResult(w, list)
}
