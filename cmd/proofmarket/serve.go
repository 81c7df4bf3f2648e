package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/seantiz/proofmarket/internal/api"
	"github.com/seantiz/proofmarket/internal/config"
	"github.com/seantiz/proofmarket/internal/engine"
	"github.com/seantiz/proofmarket/internal/ledger"
	"github.com/seantiz/proofmarket/internal/marketplace"
	"github.com/seantiz/proofmarket/internal/matchmaker"
	"github.com/seantiz/proofmarket/internal/model"
	"github.com/seantiz/proofmarket/internal/store"
	"github.com/seantiz/proofmarket/internal/verifier"
)

func serveCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the marketplace HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromViper(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.String("listen", "", "address to listen on")
	f.String("store", "", "store driver: memory, sqlite or pebble")
	f.String("db", "", "database file (sqlite) or directory (pebble)")
	f.String("log-level", "", "log level: debug, info, warn or error")
	f.String("strategy", "", "prover ranking strategy")
	f.String("escrow-account", "", "account holding job payments")
	f.Uint64("escrow-genesis", 0, "amount minted into escrow on first start")
	f.Bool("enforce-matched-prover", false, "only the matched prover may complete a job")
	f.Bool("verify-proofs", false, "reject completions carrying an empty proof")

	bindFlag(v, cmd, config.KeyListenAddr, "listen")
	bindFlag(v, cmd, config.KeyStoreDriver, "store")
	bindFlag(v, cmd, config.KeyDBPath, "db")
	bindFlag(v, cmd, config.KeyLogLevel, "log-level")
	bindFlag(v, cmd, config.KeyMatchStrategy, "strategy")
	bindFlag(v, cmd, config.KeyEscrowAccount, "escrow-account")
	bindFlag(v, cmd, config.KeyEscrowGenesis, "escrow-genesis")
	bindFlag(v, cmd, config.KeyEnforceMatchedProver, "enforce-matched-prover")
	bindFlag(v, cmd, config.KeyVerifyProofs, "verify-proofs")

	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("proofmarket: starting",
		"listen_addr", cfg.ListenAddr,
		"store_driver", cfg.StoreDriver,
		"db_path", cfg.DBPath,
		"strategy", cfg.MatchStrategy,
	)

	db, err := store.Open(cfg.StoreDriver, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	m, strategies, err := newMarketplace(ctx, cfg, db, logger)
	if err != nil {
		return err
	}

	srv := api.NewServer(cfg.ListenAddr, m, engine.NewEngine(m, logger), strategies, logger)
	return srv.Run()
}

// newMarketplace seeds escrow and assembles the marketplace described by cfg.
func newMarketplace(ctx context.Context, cfg config.Config, db store.Store, logger *slog.Logger) (*marketplace.Marketplace, *matchmaker.Registry, error) {
	bank := ledger.NewBank(model.AccountID(cfg.EscrowAccount))
	var minted bool
	err := store.Update(ctx, db, func(tx store.Tx) error {
		var err error
		minted, err = bank.Genesis(tx, cfg.EscrowGenesis)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("seed escrow: %w", err)
	}
	if minted {
		logger.Info("escrow seeded", "account", cfg.EscrowAccount, "amount", cfg.EscrowGenesis)
	}

	strategies := matchmaker.DefaultRegistry()
	strategy, err := strategies.Resolve(cfg.MatchStrategy)
	if err != nil {
		return nil, nil, err
	}

	opts := marketplace.Options{
		Strategy:             strategy,
		EnforceMatchedProver: cfg.EnforceMatchedProver,
	}
	if cfg.VerifyProofs {
		reg := verifier.NewRegistry()
		for _, pt := range model.ProofTypes {
			reg.Register(pt, verifier.NonEmpty)
		}
		opts.Verifier = reg
	}

	return marketplace.New(db, bank, logger, opts), strategies, nil
}
