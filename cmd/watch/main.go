// Package main streams live transfers touching a wallet to stdout or Kafka.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"solana-wallet-inspector/internal/app"
	"solana-wallet-inspector/internal/config"
	"solana-wallet-inspector/internal/sink"
	"solana-wallet-inspector/internal/solana"
	"solana-wallet-inspector/internal/watch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	address := flag.String("address", "", "Wallet address to watch (required)")
	sinkKind := flag.String("sink", "stdout", "Output sink: stdout|kafka")
	brokers := flag.String("kafka-brokers", strings.Join(cfg.KafkaBrokers, ","), "Comma-separated Kafka brokers")
	flag.StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "Kafka topic")
	flag.StringVar(&cfg.RPCEndpoint, "rpc-endpoint", cfg.RPCEndpoint, "Solana RPC HTTP endpoint")
	flag.StringVar(&cfg.WSEndpoint, "ws-endpoint", cfg.WSEndpoint, "Solana WebSocket endpoint")
	flag.Parse()

	// Logs go to stderr so stdout carries only JSON lines
	logger := log.New(os.Stderr, "[watch] ", log.LstdFlags|log.Lshortfile)

	if *address == "" {
		logger.Fatal("--address is required")
	}
	if cfg.WSEndpoint == "" {
		logger.Fatal("--ws-endpoint is required")
	}

	out, err := newSink(*sinkKind, splitList(*brokers), cfg.KafkaTopic)
	if err != nil {
		logger.Fatalf("Failed to create sink: %v", err)
	}
	defer out.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	wsOpts := solana.DefaultWSOptions()
	wsOpts.Logger = logger
	ws, err := solana.NewWSClient(ctx, cfg.WSEndpoint, &wsOpts)
	if err != nil {
		logger.Fatalf("Failed to connect websocket: %v", err)
	}
	defer ws.Close()

	w := watch.NewWatcher(ws, app.NewRPCClient(cfg), out, watch.Options{Logger: logger})

	logger.Printf("Watching %s via %s, sink %s", *address, cfg.WSEndpoint, *sinkKind)
	err = w.Run(ctx, *address)

	stats := w.Stats()
	logger.Printf("Stopped: notifications=%d skipped=%d published=%d",
		stats.Notifications, stats.Skipped, stats.Published)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Watch error: %v", err)
	}
}

// newSink builds the sink named by kind.
func newSink(kind string, brokers []string, topic string) (sink.Sink, error) {
	switch kind {
	case "stdout":
		return sink.NewWriterSink(os.Stdout), nil
	case "kafka":
		return sink.NewKafkaSink(brokers, topic, nil)
	default:
		return nil, fmt.Errorf("unknown sink %q", kind)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
