package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/reflex/go/internal/dbconfig"
	"github.com/mcdev12/reflex/go/internal/game"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// StoreKind selects the leaderboard backend.
type StoreKind string

const (
	StoreMemory    StoreKind = "memory"
	StorePostgres  StoreKind = "postgres"
	StoreFirestore StoreKind = "firestore"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the server configuration. Environment variables win over the
// YAML file named by REFLEX_CONFIG, which wins over the defaults.
type Config struct {
	Port     string
	LogLevel zerolog.Level

	Store               StoreKind
	Migrate             bool
	ListenForChanges    bool
	FirestoreProject    string
	FirestoreCollection string
	Database            dbconfig.Config

	NATSURL string

	KeysPerSecond   float64
	KeyBurst        int
	SendBufferSize  int
	RecorderTimeout time.Duration
	LeaderboardTopN int

	Variants []game.Variant
}

// File is the YAML layout of REFLEX_CONFIG.
type File struct {
	Store struct {
		Kind                StoreKind `yaml:"kind"`
		Migrate             *bool     `yaml:"migrate"`
		ListenForChanges    *bool     `yaml:"listen_for_changes"`
		FirestoreProject    string    `yaml:"firestore_project"`
		FirestoreCollection string    `yaml:"firestore_collection"`
	} `yaml:"store"`
	Gateway struct {
		KeysPerSecond   float64       `yaml:"keys_per_second"`
		KeyBurst        int           `yaml:"key_burst"`
		SendBufferSize  int           `yaml:"send_buffer_size"`
		RecorderTimeout time.Duration `yaml:"recorder_timeout"`
		LeaderboardTopN int           `yaml:"leaderboard_top_n"`
	} `yaml:"gateway"`
	Variants []game.Variant `yaml:"variants"`
}

func defaults() *Config {
	return &Config{
		Port:                "8080",
		LogLevel:            zerolog.InfoLevel,
		Store:               StoreMemory,
		Migrate:             true,
		ListenForChanges:    true,
		FirestoreCollection: "leaderboard",
		KeysPerSecond:       30,
		KeyBurst:            10,
		SendBufferSize:      256,
		RecorderTimeout:     5 * time.Second,
		LeaderboardTopN:     10,
	}
}

// Load builds the configuration from defaults, the optional YAML file and the
// environment, in that order.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("REFLEX_CONFIG"); path != "" {
		file, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg.applyFile(file)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads and parses a YAML config file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &file, nil
}

func (c *Config) applyFile(f *File) {
	if f.Store.Kind != "" {
		c.Store = f.Store.Kind
	}
	if f.Store.Migrate != nil {
		c.Migrate = *f.Store.Migrate
	}
	if f.Store.ListenForChanges != nil {
		c.ListenForChanges = *f.Store.ListenForChanges
	}
	if f.Store.FirestoreProject != "" {
		c.FirestoreProject = f.Store.FirestoreProject
	}
	if f.Store.FirestoreCollection != "" {
		c.FirestoreCollection = f.Store.FirestoreCollection
	}

	g := f.Gateway
	if g.KeysPerSecond != 0 {
		c.KeysPerSecond = g.KeysPerSecond
	}
	if g.KeyBurst != 0 {
		c.KeyBurst = g.KeyBurst
	}
	if g.SendBufferSize != 0 {
		c.SendBufferSize = g.SendBufferSize
	}
	if g.RecorderTimeout != 0 {
		c.RecorderTimeout = g.RecorderTimeout
	}
	if g.LeaderboardTopN != 0 {
		c.LeaderboardTopN = g.LeaderboardTopN
	}

	c.Variants = append(c.Variants, f.Variants...)
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.Store = StoreKind(strings.ToLower(getEnv("REFLEX_STORE", string(c.Store))))
	c.Migrate = getEnvAsBool("REFLEX_MIGRATE", c.Migrate)
	c.ListenForChanges = getEnvAsBool("REFLEX_LISTEN", c.ListenForChanges)
	c.FirestoreProject = getEnv("FIRESTORE_PROJECT_ID", c.FirestoreProject)
	c.FirestoreCollection = getEnv("FIRESTORE_COLLECTION", c.FirestoreCollection)
	c.NATSURL = getEnv("NATS_URL", c.NATSURL)
	c.KeysPerSecond = getEnvAsFloat("REFLEX_KEYS_PER_SECOND", c.KeysPerSecond)
	c.KeyBurst = getEnvAsInt("REFLEX_KEY_BURST", c.KeyBurst)
	c.LeaderboardTopN = getEnvAsInt("REFLEX_LEADERBOARD_TOP_N", c.LeaderboardTopN)
	c.Database = dbconfig.NewConfigFromEnv()

	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		level, err := zerolog.ParseLevel(strings.ToLower(raw))
		if err != nil {
			return fmt.Errorf("%w: LOG_LEVEL %q: %v", ErrInvalidConfig, raw, err)
		}
		c.LogLevel = level
	}

	if raw := os.Getenv("REFLEX_RECORDER_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w: REFLEX_RECORDER_TIMEOUT %q: %v", ErrInvalidConfig, raw, err)
		}
		c.RecorderTimeout = d
	}
	return nil
}

// Validate checks the store selection and every configured variant.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StorePostgres:
	case StoreFirestore:
		if c.FirestoreProject == "" {
			return fmt.Errorf("%w: firestore store needs FIRESTORE_PROJECT_ID", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}

	if c.KeysPerSecond <= 0 || c.KeyBurst <= 0 {
		return fmt.Errorf("%w: key rate limit and burst must be positive", ErrInvalidConfig)
	}

	if _, err := c.Catalog(); err != nil {
		return err
	}
	return nil
}

// Catalog returns the built-in variants plus the configured ones.
func (c *Config) Catalog() (*game.Catalog, error) {
	return game.NewCatalog(c.Variants...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
