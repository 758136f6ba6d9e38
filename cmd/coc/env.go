package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Adjoshi06/chainofCommand/pkg/artifacts"
	"github.com/Adjoshi06/chainofCommand/pkg/config"
	"github.com/Adjoshi06/chainofCommand/pkg/keyregistry"
	"github.com/Adjoshi06/chainofCommand/pkg/ledger"
	"github.com/Adjoshi06/chainofCommand/pkg/tracestore"
)

// env bundles the stores every subcommand needs, opened once from the
// process's configuration.
type env struct {
	cfg    *config.Config
	traces *tracestore.Store
	ledger *ledger.Ledger
	store  *artifacts.Store
	keys   *keyregistry.Registry
	logger *slog.Logger
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	traces, err := tracestore.Open(cfg.TracesDir())
	if err != nil {
		return nil, fmt.Errorf("open trace store: %w", err)
	}
	store, err := artifacts.Open(cfg.ArtifactsDir())
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	keys, err := keyregistry.Open(cfg.KeysDir(), logger)
	if err != nil {
		return nil, fmt.Errorf("open key registry: %w", err)
	}

	return &env{
		cfg:    cfg,
		traces: traces,
		ledger: ledger.New(traces),
		store:  store,
		keys:   keys,
		logger: logger,
	}, nil
}
