// Package config loads hatchery settings from HATCHERY_ environment variables
// and the optional YAML genesis file.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"hatchery/internal/blob"
	"hatchery/internal/core"
	"hatchery/internal/entropy"
	"hatchery/pkg/domain"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "HATCHERY_"

// Config is the process configuration.
type Config struct {
	Storage core.StorageConfig
	Escrow  Escrow
	Auth    Auth
	Blob    Blob

	GenesisPath string `env:"GENESIS_PATH"`
	BlockSeed   string `env:"BLOCK_SEED"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"console"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
}

// Escrow selects the escrow ledger: memory, redis or none.
type Escrow struct {
	Driver    string `env:"ESCROW_DRIVER" envDefault:"memory"`
	KeyPrefix string `env:"ESCROW_KEY_PREFIX"`
}

// Auth selects the request authenticator (static or signature) and, for
// signature mode, where nonces are recorded (memory or redis).
type Auth struct {
	Mode           string `env:"AUTH_MODE" envDefault:"static"`
	NonceDriver    string `env:"AUTH_NONCE_DRIVER" envDefault:"memory"`
	NonceKeyPrefix string `env:"AUTH_NONCE_KEY_PREFIX"`
}

// Blob selects the snapshot archive backend.
type Blob struct {
	Driver blob.Driver   `env:"BLOB_DRIVER" envDefault:"fs"`
	FSRoot string        `env:"BLOB_FS_ROOT" envDefault:"archives"`
	S3     blob.S3Config `envPrefix:"BLOB_S3_"`
}

// BlobConfig converts to the blob factory configuration.
func (b Blob) BlobConfig() blob.Config {
	return blob.Config{Driver: b.Driver, FSRoot: b.FSRoot, S3: b.S3}
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{Prefix: EnvPrefix})
}

// LoadFrom reads vars instead of the process environment. Keys carry the
// HATCHERY_ prefix.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Prefix: EnvPrefix, Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Genesis seeds a fresh process: initial free balances and the block seed.
type Genesis struct {
	Seed     string                              `yaml:"seed"`
	Balances map[domain.AccountID]domain.Balance `yaml:"balances"`
}

// LoadGenesis reads the YAML genesis file at path. An empty path yields an
// empty genesis.
func LoadGenesis(path string) (Genesis, error) {
	var g Genesis
	if path == "" {
		return g, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return g, fmt.Errorf("read genesis: %w", err)
	}
	if err := yaml.Unmarshal(raw, &g); err != nil {
		return g, fmt.Errorf("decode genesis %s: %w", path, err)
	}
	return g, nil
}

// Seed derives the block seed from BlockSeed, falling back to the genesis
// seed. Both empty yields the zero seed.
func (c Config) Seed(g Genesis) domain.Seed {
	material := c.BlockSeed
	if material == "" {
		material = g.Seed
	}
	if material == "" {
		return domain.Seed{}
	}
	return entropy.SeedFromHash([]byte(material))
}
