// Package config loads the dashboard backend configuration from an optional
// yaml file, with environment variables overriding secrets and endpoints.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultSymbol = "SPY"

// Config is the resolved runtime configuration.
type Config struct {
	Symbol     string
	ListenAddr string
	DataDir    string

	ReplayRoot     string
	ReplayKeepDays int

	EngineBaseURL string

	AggregatorBaseURL string
	AggregatorWSURL   string
	AggregatorAPIKey  string
	AggregatorTimeout time.Duration

	PushoverToken     string
	PushoverUser      string
	PushPriority      int
	PushTimeout       time.Duration
	MinIntervalSec    int64
	GoPollInterval    time.Duration
	CadenceInterval   time.Duration
	AlertHistoryDir   string
	StreamEnabled     bool
	WatcherEnabled    bool
}

type configYaml struct {
	Symbol     string `yaml:"symbol"`
	ListenAddr string `yaml:"listen_addr"`
	DataDir    string `yaml:"data_dir"`

	ReplayRoot     string `yaml:"replay_root"`
	ReplayKeepDays int    `yaml:"replay_keep_days"`

	EngineBaseURL string `yaml:"engine_base_url"`

	AggregatorBaseURL string        `yaml:"aggregator_base_url"`
	AggregatorWSURL   string        `yaml:"aggregator_ws_url"`
	AggregatorTimeout time.Duration `yaml:"aggregator_timeout"`

	PushPriority    int           `yaml:"push_priority"`
	PushTimeout     time.Duration `yaml:"push_timeout"`
	MinIntervalSec  int64         `yaml:"min_interval_sec"`
	GoPollInterval  time.Duration `yaml:"go_poll_interval"`
	CadenceInterval time.Duration `yaml:"cadence_interval"`
	AlertHistoryDir string        `yaml:"alert_history_dir"`
	StreamEnabled   *bool         `yaml:"stream_enabled"`
	WatcherEnabled  *bool         `yaml:"watcher_enabled"`
}

// Get resolves the configuration from flags, yaml and the environment.
func Get() (Config, error) {
	path := flag.String("config", "", "path to yaml config")
	flag.Parse()

	cfg := defaults()
	if *path != "" {
		if err := applyYaml(&cfg, *path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	if cfg.Symbol != defaultSymbol {
		return Config{}, fmt.Errorf("symbol %q is not supported yet, only %s", cfg.Symbol, defaultSymbol)
	}
	if cfg.AggregatorBaseURL == "" {
		return Config{}, fmt.Errorf("aggregator base url is required (POLYGON_BASE_URL or aggregator_base_url)")
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Symbol:            defaultSymbol,
		ListenAddr:        ":8090",
		DataDir:           "./data",
		ReplayRoot:        "./data/replay",
		ReplayKeepDays:    14,
		EngineBaseURL:     "http://127.0.0.1:8090",
		AggregatorBaseURL: "https://api.polygon.io",
		AggregatorWSURL:   "wss://socket.polygon.io/stocks",
		AggregatorTimeout: 20 * time.Second,
		PushPriority:      1,
		PushTimeout:       8 * time.Second,
		MinIntervalSec:    300,
		GoPollInterval:    time.Minute,
		CadenceInterval:   10 * time.Minute,
		AlertHistoryDir:   "./wal/alerts",
		StreamEnabled:     true,
		WatcherEnabled:    true,
	}
}

func applyYaml(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var y configYaml
	if err := yaml.Unmarshal(raw, &y); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&cfg.Symbol, y.Symbol)
	setString(&cfg.ListenAddr, y.ListenAddr)
	setString(&cfg.DataDir, y.DataDir)
	setString(&cfg.ReplayRoot, y.ReplayRoot)
	setString(&cfg.EngineBaseURL, y.EngineBaseURL)
	setString(&cfg.AggregatorBaseURL, y.AggregatorBaseURL)
	setString(&cfg.AggregatorWSURL, y.AggregatorWSURL)
	setString(&cfg.AlertHistoryDir, y.AlertHistoryDir)
	if y.ReplayKeepDays > 0 {
		cfg.ReplayKeepDays = y.ReplayKeepDays
	}
	if y.AggregatorTimeout > 0 {
		cfg.AggregatorTimeout = y.AggregatorTimeout
	}
	if y.PushPriority != 0 {
		cfg.PushPriority = y.PushPriority
	}
	if y.PushTimeout > 0 {
		cfg.PushTimeout = y.PushTimeout
	}
	if y.MinIntervalSec > 0 {
		cfg.MinIntervalSec = y.MinIntervalSec
	}
	if y.GoPollInterval > 0 {
		cfg.GoPollInterval = y.GoPollInterval
	}
	if y.CadenceInterval > 0 {
		cfg.CadenceInterval = y.CadenceInterval
	}
	if y.StreamEnabled != nil {
		cfg.StreamEnabled = *y.StreamEnabled
	}
	if y.WatcherEnabled != nil {
		cfg.WatcherEnabled = *y.WatcherEnabled
	}
	return nil
}

// applyEnv overlays secrets and endpoint overrides. A .env file is honored
// when present so local runs don't need exported variables.
func applyEnv(cfg *Config) {
	_ = godotenv.Load()

	setString(&cfg.AggregatorAPIKey, os.Getenv("POLYGON_API_KEY"))
	setString(&cfg.AggregatorBaseURL, os.Getenv("POLYGON_BASE_URL"))
	setString(&cfg.AggregatorWSURL, os.Getenv("POLYGON_WS_URL"))
	setString(&cfg.PushoverToken, os.Getenv("PUSHOVER_TOKEN"))
	setString(&cfg.PushoverUser, os.Getenv("PUSHOVER_USER"))
	setString(&cfg.EngineBaseURL, os.Getenv("ENGINE_BASE_URL"))
	setString(&cfg.ListenAddr, os.Getenv("LISTEN_ADDR"))
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
