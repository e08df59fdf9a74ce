package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Feed       FeedConfig       `yaml:"feed"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Roster     RosterConfig     `yaml:"roster"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	// CacheTTLSeconds defaults to 30 when unset; 0 disables response caching.
	CacheTTLSeconds *int          `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
}

// FeedConfig describes the upstream push channel the admin listens on.
type FeedConfig struct {
	Enabled            bool              `yaml:"enabled"`
	URL                string            `yaml:"url"`
	Headers            map[string]string `yaml:"headers"`
	HandshakeTimeoutMS int               `yaml:"handshake_timeout_ms"`
	HandshakeTimeout   time.Duration     `yaml:"-"`
	PongWaitSeconds    int               `yaml:"pong_wait_seconds"`
	PongWait           time.Duration     `yaml:"-"`
	ReadLimitBytes     int64             `yaml:"read_limit_bytes"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogSQL                 bool   `yaml:"log_sql"`
}

// RosterConfig seeds the fixed table roster.
type RosterConfig struct {
	Tables        []TableSeed `yaml:"tables"`
	MergeOnInsert bool        `yaml:"merge_on_insert"`
}

// TableSeed is a single table entry of the seed roster.
type TableSeed struct {
	Number   int    `yaml:"number"`
	Size     string `yaml:"size"`
	Capacity int    `yaml:"capacity"`
}

// DefaultTables is the floor plan used when the config does not list tables.
var DefaultTables = []TableSeed{
	{Number: 1, Size: "large", Capacity: 6},
	{Number: 2, Size: "medium", Capacity: 4},
	{Number: 3, Size: "large", Capacity: 8},
	{Number: 4, Size: "small", Capacity: 2},
	{Number: 5, Size: "medium", Capacity: 4},
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills in zero values. Load calls it; tests building a Config
// by hand may call it too.
func (c *Config) ApplyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 5
	}
	if c.Server.CacheTTLSeconds == nil {
		ttl := 30
		c.Server.CacheTTLSeconds = &ttl
	}
	if *c.Server.CacheTTLSeconds > 0 {
		c.Server.CacheTTL = time.Duration(*c.Server.CacheTTLSeconds) * time.Second
	} else {
		c.Server.CacheTTL = 0
	}

	if c.Feed.HandshakeTimeoutMS <= 0 {
		c.Feed.HandshakeTimeoutMS = 10_000
	}
	c.Feed.HandshakeTimeout = time.Duration(c.Feed.HandshakeTimeoutMS) * time.Millisecond
	if c.Feed.PongWaitSeconds <= 0 {
		c.Feed.PongWaitSeconds = 60
	}
	c.Feed.PongWait = time.Duration(c.Feed.PongWaitSeconds) * time.Second
	if c.Feed.ReadLimitBytes <= 0 {
		c.Feed.ReadLimitBytes = 512 * 1024
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}

	if c.Push.TTL <= 0 {
		c.Push.TTL = 3600
	}

	if c.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		c.WorkerPool.Size = 1
	}

	if len(c.Roster.Tables) == 0 {
		c.Roster.Tables = append([]TableSeed(nil), DefaultTables...)
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Feed.Enabled && c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required when the feed is enabled")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	seen := make(map[int]bool, len(c.Roster.Tables))
	for _, t := range c.Roster.Tables {
		if t.Number <= 0 || t.Number > 99 {
			return fmt.Errorf("roster: table number %d out of range 1-99", t.Number)
		}
		if seen[t.Number] {
			return fmt.Errorf("roster: duplicate table number %d", t.Number)
		}
		seen[t.Number] = true
		if t.Capacity <= 0 {
			return fmt.Errorf("roster: table %d must have a positive capacity", t.Number)
		}
		switch t.Size {
		case "small", "medium", "large":
		default:
			return fmt.Errorf("roster: table %d has unknown size %q", t.Number, t.Size)
		}
	}
	return nil
}
