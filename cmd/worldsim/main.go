// Command worldsim runs the Hinterland world: it loads or creates the world,
// ticks it in real time, serves the HTTP API and saves to SQLite.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/hinterland/internal/api"
	"github.com/talgya/hinterland/internal/catalog"
	"github.com/talgya/hinterland/internal/config"
	"github.com/talgya/hinterland/internal/engine"
	"github.com/talgya/hinterland/internal/entropy"
	"github.com/talgya/hinterland/internal/persistence"
)

func main() {
	var configPath string
	root := &cobra.Command{
		Use:           "worldsim",
		Short:         "Run the Hinterland world simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "hinterland.yaml", "path to the YAML config")

	if err := root.Execute(); err != nil {
		slog.Error("worldsim failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("Hinterland world simulation", "config", configPath, "seed", cfg.Seed)

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		if cat, err = catalog.Load(cfg.CatalogPath); err != nil {
			return err
		}
		slog.Info("catalog loaded", "path", cfg.CatalogPath)
	}

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	db.Keep = cfg.Save.Snapshots
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Load or Generate World ───────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	now := time.Now()
	w, err := loadWorld(ctx, db, cat, cfg, now)
	if err != nil {
		return err
	}

	if client := entropy.NewClient(os.Getenv("HINTERLAND_RANDOM_ORG_KEY")); client != nil {
		w.SetNobleSource(client)
		slog.Info("noble rolls use random.org")
	}

	// ── Engine ───────────────────────────────────────────────────────
	eng := engine.NewEngine(w, engine.SystemClock{})
	eng.SetSaver(db, persistence.Encoder(cfg.Compression))

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("HINTERLAND_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("HINTERLAND_ADMIN_KEY not set, admin endpoints will be disabled")
	}
	apiServer, err := api.NewServer(eng, db, cfg.APIPort, adminKey)
	if err != nil {
		return err
	}
	srv := apiServer.Start()

	fmt.Printf("\nHinterland is alive: %d villages on a %d-tile map.\n", eng.Status().Villages, cfg.Sim.MapSize)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	if err := eng.SaveNow(shutdown); err != nil {
		return fmt.Errorf("final save: %w", err)
	}

	fmt.Println("Simulation stopped. World state saved.")
	return nil
}

// loadWorld restores the latest snapshot, or creates and saves a fresh
// world when there is none. A snapshot that fails verification is fatal
// rather than silently replaced.
func loadWorld(ctx context.Context, db *persistence.DB, cat *catalog.Catalog, cfg config.Config, now time.Time) (*engine.World, error) {
	snap, err := db.LatestSnapshot(ctx)
	if errors.Is(err, persistence.ErrNoSnapshot) {
		slog.Info("no saved state found, generating new world...")
		w := engine.NewWorld(cat, cfg, entropy.NewSeeded(cfg.Seed), now)
		blob, err := persistence.Marshal(w, cfg.Compression)
		if err != nil {
			return nil, err
		}
		if err := db.SaveSnapshot(ctx, w.LastTick, blob); err != nil {
			return nil, fmt.Errorf("initial save: %w", err)
		}
		return w, nil
	}
	if err != nil {
		return nil, err
	}

	w, err := persistence.Unmarshal(snap.Blob)
	if err != nil {
		return nil, fmt.Errorf("snapshot %d: %w", snap.ID, err)
	}
	w.Attach(cat, cfg, entropy.NewSeeded(cfg.Seed^now.UnixNano()))
	slog.Info("world state restored",
		"snapshot", snap.ID,
		"villages", len(w.Villages),
		"missions", len(w.Missions),
		"last_tick", w.LastTick,
		"offline", now.Sub(w.LastTick).Round(time.Second),
	)
	return w, nil
}
