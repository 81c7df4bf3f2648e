package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seantiz/proofmarket/internal/config"
	"github.com/seantiz/proofmarket/internal/ledger"
	"github.com/seantiz/proofmarket/internal/model"
	"github.com/seantiz/proofmarket/internal/store"
)

func testConfig() config.Config {
	return config.Config{
		StoreDriver:   store.DriverMemory,
		MatchStrategy: "performance",
		EscrowAccount: "marketplace",
		EscrowGenesis: 500,
	}
}

func TestStrategiesCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"strategies"})

	require.NoError(t, cmd.Execute())
	require.Equal(t, []string{"capability", "performance", "reputation"}, strings.Fields(out.String()))
}

func TestNewMarketplaceSeedsEscrowOnce(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "market")

	for range 2 {
		db, err := store.Open(store.DriverPebble, path)
		require.NoError(t, err)

		m, _, err := newMarketplace(ctx, testConfig(), db, logger)
		require.NoError(t, err)

		account, balance, err := m.EscrowBalance(ctx)
		require.NoError(t, err)
		require.Equal(t, model.AccountID("marketplace"), account)
		require.Equal(t, uint64(500), balance.Uint64())
		require.NoError(t, db.Close())
	}
}

func TestNewMarketplaceUnknownStrategy(t *testing.T) {
	cfg := testConfig()
	cfg.MatchStrategy = "lottery"
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	_, _, err := newMarketplace(context.Background(), cfg, store.NewMemoryStore(), logger)
	require.Error(t, err)
}

func TestNewMarketplaceVerifyProofs(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.VerifyProofs = true
	cfg.EnforceMatchedProver = true
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	db := store.NewMemoryStore()
	t.Cleanup(func() { db.Close() })

	m, _, err := newMarketplace(ctx, cfg, db, logger)
	require.NoError(t, err)

	prover := ledger.WithCaller(ctx, "p1")
	_, err = m.RegisterProver(prover, 1)
	require.NoError(t, err)
	id, err := m.SubmitJob(ledger.WithCaller(ctx, "alice"), model.ProofZkSNARK, 5)
	require.NoError(t, err)
	_, _, err = m.MatchAndStartJob(ctx, id)
	require.NoError(t, err)

	_, err = m.CompleteJob(prover, id, nil)
	require.ErrorIs(t, err, model.ErrProofRejected)
	_, err = m.CompleteJob(ledger.WithCaller(ctx, "p2"), id, []byte("proof"))
	require.ErrorIs(t, err, model.ErrUnauthorized)
	_, err = m.CompleteJob(prover, id, []byte("proof"))
	require.NoError(t, err)
}
