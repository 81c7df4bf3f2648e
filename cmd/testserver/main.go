// testserver starts a proofmarket API server on an in-memory store with a
// funded escrow account, for exercising the HTTP surface by hand.
// Usage: go run ./cmd/testserver
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/seantiz/proofmarket/internal/api"
	"github.com/seantiz/proofmarket/internal/engine"
	"github.com/seantiz/proofmarket/internal/ledger"
	"github.com/seantiz/proofmarket/internal/marketplace"
	"github.com/seantiz/proofmarket/internal/matchmaker"
	"github.com/seantiz/proofmarket/internal/store"
)

const escrowFunds = 1_000_000

func main() {
	addr := ":8080"
	if v := os.Getenv("PROOFMARKET_LISTEN_ADDR"); v != "" {
		addr = v
	}

	db := store.NewMemoryStore()
	defer db.Close()

	bank := ledger.NewBank("marketplace")
	err := store.Update(context.Background(), db, func(tx store.Tx) error {
		_, err := bank.Genesis(tx, escrowFunds)
		return err
	})
	if err != nil {
		log.Fatalf("failed to fund escrow: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := marketplace.New(db, bank, logger, marketplace.Options{})
	srv := api.NewServer(addr, m, engine.NewEngine(m, logger), matchmaker.DefaultRegistry(), logger)

	logger.Info("testserver: starting", "addr", addr, "escrow", escrowFunds)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
