// Package config loads daemon and simulation settings from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/hinterland/internal/catalog"
)

// Config is the full set of tunables. Zero-valued keys in a file keep the defaults.
type Config struct {
	Seed    int64  `yaml:"seed"`
	DBPath  string `yaml:"db_path"`
	APIPort int    `yaml:"api_port"`

	LogLevel    string `yaml:"log_level"`
	Compression string `yaml:"compression"` // zstd, lz4 or none
	CatalogPath string `yaml:"catalog_path"`

	Sim  Sim  `yaml:"sim"`
	AI   AI   `yaml:"ai"`
	Save Save `yaml:"save"`

	// Templates are target garrisons used by AI recruiting.
	Templates map[string]map[catalog.UnitID]int `yaml:"templates"`
}

// Sim holds the rules of the world itself.
type Sim struct {
	MapSize                int           `yaml:"map_size"`
	ChunkRadius            int           `yaml:"chunk_radius"`
	MaxReports             int           `yaml:"max_reports"`
	BuildQueueLimit        int           `yaml:"build_queue_limit"`
	MarketCapacityPerLevel int           `yaml:"market_capacity_per_level"`
	EnableCatapults        bool          `yaml:"enable_catapults"`
	TickInterval           time.Duration `yaml:"tick_interval"`
	TravelSecondsPerSpeed  float64       `yaml:"travel_seconds_per_speed"`  // Per tile per unit speed point
	MerchantSecondsPerTile float64       `yaml:"merchant_seconds_per_tile"` // Transports and recalled support
	RecallFallbackDistance float64       `yaml:"recall_fallback_distance"`  // When the stack's home is gone
	WarlordChance          float64       `yaml:"warlord_chance"`
	BarbarianChance        float64       `yaml:"barbarian_chance"`
}

// AI tunes the non-player turn processor.
type AI struct {
	Enabled         bool          `yaml:"enabled"`
	PassInterval    time.Duration `yaml:"pass_interval"`
	VillagesPerPass int           `yaml:"villages_per_pass"`
	ConquestChance  float64       `yaml:"conquest_chance"`
	AttackEnabled   bool          `yaml:"attack_enabled"`
	AttackInterval  time.Duration `yaml:"attack_interval"`
	AttackChance    float64       `yaml:"attack_chance"`
	AttackRange     float64       `yaml:"attack_range"`    // Tiles
	AttackStrength  float64       `yaml:"attack_strength"` // Share of points/10 sent as axes
}

// Save tunes persistence cadence.
type Save struct {
	Interval  time.Duration `yaml:"interval"`
	Debounce  time.Duration `yaml:"debounce"`
	Snapshots int           `yaml:"snapshots"` // How many snapshots to keep
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Seed:        42,
		DBPath:      "data/hinterland.db",
		APIPort:     8080,
		LogLevel:    "info",
		Compression: "zstd",
		Sim: Sim{
			MapSize:                200,
			ChunkRadius:            7,
			MaxReports:             50,
			BuildQueueLimit:        5,
			MarketCapacityPerLevel: 1000,
			EnableCatapults:        false,
			TickInterval:           time.Second,
			TravelSecondsPerSpeed:  6,
			MerchantSecondsPerTile: 60,
			RecallFallbackDistance: 10,
			WarlordChance:          0.05,
			BarbarianChance:        0.10,
		},
		AI: AI{
			Enabled:         true,
			PassInterval:    10 * time.Second,
			VillagesPerPass: 5,
			ConquestChance:  0.05,
			AttackEnabled:   true,
			AttackInterval:  20 * time.Minute,
			AttackChance:    0.1,
			AttackRange:     15,
			AttackStrength:  0.4,
		},
		Save: Save{
			Interval:  5 * time.Second,
			Debounce:  2 * time.Second,
			Snapshots: 10,
		},
		Templates: map[string]map[catalog.UnitID]int{
			"offense": {catalog.Axe: 6000, catalog.LightCav: 2000, catalog.Ram: 300},
			"defense": {catalog.Spear: 4000, catalog.Sword: 4000, catalog.HeavyCav: 1500},
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the simulation cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Sim.MapSize <= 0 {
		errs = append(errs, fmt.Errorf("sim.map_size must be positive"))
	}
	if c.Sim.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("sim.tick_interval must be positive"))
	}
	if c.Sim.MaxReports <= 0 {
		errs = append(errs, fmt.Errorf("sim.max_reports must be positive"))
	}
	if c.Sim.BuildQueueLimit <= 0 {
		errs = append(errs, fmt.Errorf("sim.build_queue_limit must be positive"))
	}
	if c.Sim.TravelSecondsPerSpeed < 0 || c.Sim.MerchantSecondsPerTile < 0 {
		errs = append(errs, fmt.Errorf("travel times must not be negative"))
	}
	if c.AI.PassInterval <= 0 || c.AI.AttackInterval <= 0 {
		errs = append(errs, fmt.Errorf("ai intervals must be positive"))
	}
	for name, p := range map[string]float64{
		"ai.conquest_chance":   c.AI.ConquestChance,
		"ai.attack_chance":     c.AI.AttackChance,
		"sim.warlord_chance":   c.Sim.WarlordChance,
		"sim.barbarian_chance": c.Sim.BarbarianChance,
	} {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 1]", name))
		}
	}
	if c.Save.Interval <= 0 {
		errs = append(errs, fmt.Errorf("save.interval must be positive"))
	}
	switch c.Compression {
	case "zstd", "lz4", "none", "":
	default:
		errs = append(errs, fmt.Errorf("compression %q: want zstd, lz4 or none", c.Compression))
	}
	return errors.Join(errs...)
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
