// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command concordnode is the standalone entrypoint that wires config,
// logging, the store, and the node.Coordinator together, following the
// teacher's cmd/run plugin-boot idiom (vms/example/xsvm/cmd/run/cmd.go
// and vms/dexvm/plugin/main.go).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/luxfi/concord/block"
	"github.com/luxfi/concord/blockstate"
	"github.com/luxfi/concord/config"
	"github.com/luxfi/concord/hostcap"
	"github.com/luxfi/concord/idhash"
	"github.com/luxfi/concord/metrics"
	"github.com/luxfi/concord/node"
	"github.com/luxfi/concord/store"
	"github.com/luxfi/concord/wire"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/luxfi/utils/ulimit"
	"github.com/luxfi/version"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configPath string
	var dataDir string

	c := &cobra.Command{
		Use:   "concordnode",
		Short: "Runs a standalone tree-state consensus core node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, dataDir)
		},
	}
	c.Flags().StringVar(&configPath, "config", "", "path to a JSON config file (defaults if omitted)")
	c.Flags().StringVar(&dataDir, "data-dir", "", "path to the era database directory (currently ignored: the database is always in-memory)")
	return c
}

func run(ctx context.Context, configPath, dataDir string) error {
	versionStr := fmt.Sprintf("concordnode/1.0.0 [node=%s]", version.Current)
	logger := log.Root()

	if err := ulimit.Set(ulimit.DefaultFDLimit, logger); err != nil {
		return fmt.Errorf("setting fd limit: %w", err)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// dataDir is accepted but not used: the standalone binary always runs
	// against an in-memory database, and no flag selects a durable backend.
	_ = dataDir
	root := memdb.New()
	era, err := store.OpenEra(root, 0)
	if err != nil {
		return fmt.Errorf("opening era 0: %w", err)
	}

	genesisBlock, genesisState, err := newGenesis(cfg)
	if err != nil {
		return fmt.Errorf("building genesis: %w", err)
	}

	registry := metrics.NewRegistry()

	caps := hostcap.Capabilities{
		Broadcast: func(context.Context, wire.Envelope) error {
			logger.Debug("broadcast suppressed: no network capability wired")
			return nil
		},
		Regenesis: func(_ context.Context, h idhash.Hash) error {
			logger.Info("regenesis", "newGenesisHash", h)
			return nil
		},
		Log: logger,
		NotifyBlock: func(_ context.Context, e hostcap.BlockEvent) {
			logger.Debug("block event", "kind", e.Kind, "block", e.Block)
		},
	}

	coord, err := node.New(cfg, caps, node.Deps{
		GenesisBlock: genesisBlock,
		GenesisState: genesisState,
		GenesisIndex: 0,
		TxVerifier:   acceptAllTxVerifier{},
		Oracle:       acceptAllOracle{},
		Executor:     passthroughExecutor{},
		Verifier:     acceptAllVerifier{},
		Registry:     registry,
		Era:          era,
	})
	if err != nil {
		return fmt.Errorf("constructing coordinator: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	coord.Run(runCtx)

	logger.Info("started", "version", versionStr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}

	cancel()
	coord.Shutdown()
	logger.Info("stopped")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default
		return &cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return config.GetConfig(raw)
}

// newGenesis builds the initial block-height-zero block and its empty
// state snapshot; a real deployment would load these from a genesis
// file per §6, but the standalone binary always starts a fresh chain.
func newGenesis(cfg *config.Config) (*block.Block, *blockstate.Snapshot, error) {
	state, err := blockstate.New(1, metric.NewRegistry(), cfg.AccountsCacheSize, cfg.ModulesCacheSize)
	if err != nil {
		return nil, nil, err
	}
	genesisBlock := &block.Block{BlockHeight: 0, SlotNumber: 0}
	genesisBlock.ClaimedStateHash = state.Hash()
	genesisBlock.ClaimedOutcomesHash = idhash.Zero
	return genesisBlock, state, nil
}
