package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"solana-wallet-inspector/internal/address"
	"solana-wallet-inspector/internal/app"
	"solana-wallet-inspector/internal/reporting"
)

// Output formats.
const (
	formatJSON     = "json"
	formatCSV      = "csv"
	formatMarkdown = "markdown"
)

var errUnsupportedFormat = errors.New("unsupported format")

type request struct {
	Mode    string
	Address string
	Depth   int
	NumTx   int
	Format  string
}

// run executes one inspection and writes it to w.
func run(ctx context.Context, a *app.App, req request, w io.Writer) error {
	if err := address.Validate(req.Address); err != nil {
		return err
	}
	switch req.Format {
	case formatJSON, formatCSV, formatMarkdown:
	default:
		return fmt.Errorf("%w %q", errUnsupportedFormat, req.Format)
	}

	var (
		result interface{}
		csv    func() string
		md     func() string
	)

	switch req.Mode {
	case "trace":
		events, err := a.Walker.Trace(ctx, req.Address, req.Depth)
		if err != nil {
			return fmt.Errorf("trace: %w", err)
		}
		result = events
		csv = func() string { return reporting.RenderTraceCSV(events) }
	case "cluster":
		set, err := a.Cluster.ClusterAddresses(ctx, req.Address)
		if err != nil {
			return fmt.Errorf("cluster: %w", err)
		}
		result = set
	case "graph":
		graph, err := a.Cluster.ClusterGraph(ctx, req.Address)
		if err != nil {
			return fmt.Errorf("cluster graph: %w", err)
		}
		result = graph
		csv = func() string { return reporting.RenderClusterCSV(graph) }
	case "memecoins":
		report, err := a.Memecoins.Scan(ctx, req.Address)
		if err != nil {
			return fmt.Errorf("detect memecoins: %w", err)
		}
		result = report
		csv = func() string { return reporting.RenderMemecoinCSV(report) }
	case "ghosts":
		awakenings, err := a.Ghosts.Scan(ctx, req.Address)
		if err != nil {
			return fmt.Errorf("ghost tokens: %w", err)
		}
		result = awakenings
		csv = func() string { return reporting.RenderGhostCSV(awakenings) }
	case "exchange":
		activity, err := a.Exchange.Scan(ctx, req.Address)
		if err != nil {
			return fmt.Errorf("exchange detection: %w", err)
		}
		result = activity
		csv = func() string { return reporting.RenderExchangeCSV(activity) }
	case "balances":
		balances, err := a.Wallet.Balances(ctx, req.Address)
		if err != nil {
			return fmt.Errorf("token balances: %w", err)
		}
		result = balances
	case "transactions":
		txs, err := a.Wallet.Transactions(ctx, req.Address, req.NumTx)
		if err != nil {
			return fmt.Errorf("transactions: %w", err)
		}
		result = txs
	case "report":
		report, err := a.ReportGenerator().Generate(ctx, req.Address, req.Depth)
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		result = report
		md = func() string { return reporting.RenderMarkdown(report) }
	default:
		return fmt.Errorf("unknown mode %q", req.Mode)
	}

	switch req.Format {
	case formatCSV:
		if csv == nil {
			return fmt.Errorf("%w %q for mode %s", errUnsupportedFormat, req.Format, req.Mode)
		}
		_, err := io.WriteString(w, csv())
		return err
	case formatMarkdown:
		if md == nil {
			return fmt.Errorf("%w %q for mode %s", errUnsupportedFormat, req.Format, req.Mode)
		}
		_, err := io.WriteString(w, md())
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}
