// Package main runs one wallet inspection and prints the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"solana-wallet-inspector/internal/app"
	"solana-wallet-inspector/internal/config"
	"solana-wallet-inspector/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	address := flag.String("address", "", "Wallet address to inspect (required)")
	mode := flag.String("mode", "trace", "trace|cluster|graph|memecoins|ghosts|exchange|balances|transactions|report")
	depth := flag.Int("depth", 2, "Trace depth")
	numTx := flag.Int("num-tx", wallet.DefaultTransactionCount, "Transactions to list in transactions mode")
	format := flag.String("format", "json", "Output format: json|csv|markdown")
	flag.StringVar(&cfg.RPCEndpoint, "rpc-endpoint", cfg.RPCEndpoint, "Solana RPC HTTP endpoint")
	verbose := flag.Bool("verbose", false, "Log progress to stderr")
	flag.Parse()

	if *address == "" {
		fmt.Fprintln(os.Stderr, "Error: --address is required")
		flag.Usage()
		os.Exit(2)
	}

	logger := log.New(os.Stderr, "[inspect] ", log.LstdFlags)
	if !*verbose {
		logger.SetOutput(io.Discard)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	inspector := app.New(cfg, app.NewRPCClient(cfg), nil, logger)
	req := request{
		Mode:    *mode,
		Address: *address,
		Depth:   *depth,
		NumTx:   *numTx,
		Format:  *format,
	}
	if err := run(ctx, inspector, req, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
