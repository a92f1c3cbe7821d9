package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devkat/CodeExpertDesktop/internal/logging"
	"github.com/devkat/CodeExpertDesktop/internal/metrics"
	"github.com/devkat/CodeExpertDesktop/pkg/apiclient"
	"github.com/devkat/CodeExpertDesktop/pkg/store"
	"github.com/devkat/CodeExpertDesktop/pkg/syncengine"
)

// environment bundles everything a subcommand needs, built once per
// invocation from the persisted signing key, metadata store, and
// configured server URL.
type environment struct {
	logger *zap.Logger
	client *apiclient.Client
	store  *store.Store
	engine *syncengine.Engine
}

// buildEnvironment wires dependencies the way login has already left them
// on disk. Subcommands other than login fail with a clear message if no
// key has been loaded yet.
func buildEnvironment(cmd *cobra.Command) (*environment, error) {
	logger := logging.New(logLevel(cmd))

	signer := apiclient.NewPrivateKeySigner()
	data, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("no signing key at %s — run 'coursesync login' first", cfg.PrivateKeyPath)
	}
	if err := signer.LoadPEM(data); err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}

	client := apiclient.New(apiclient.Config{BaseURL: overrideServer(cmd), Signer: signer})

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	metricsReg := prometheusRegistererFor(cfg.MetricsAddr)
	engine := syncengine.New(syncengine.Config{
		ProjectDir: overrideProjectDir(cmd),
		Client:     client,
		Store:      st,
		Metrics:    metrics.New(metricsReg),
		Logger:     logger,
	})

	return &environment{logger: logger, client: client, store: st, engine: engine}, nil
}
