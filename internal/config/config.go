package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/seantiz/proofmarket/internal/store"
)

const envPrefix = "PROOFMARKET"

// Configuration keys. Each is also read from PROOFMARKET_<KEY>.
const (
	KeyConfigFile           = "config"
	KeyListenAddr           = "listen_addr"
	KeyStoreDriver          = "store_driver"
	KeyDBPath               = "db_path"
	KeyLogLevel             = "log_level"
	KeyMatchStrategy        = "match_strategy"
	KeyEscrowAccount        = "escrow_account"
	KeyEscrowGenesis        = "escrow_genesis"
	KeyEnforceMatchedProver = "enforce_matched_prover"
	KeyVerifyProofs         = "verify_proofs"
)

const (
	defaultListenAddr    = ":8080"
	defaultStoreDriver   = store.DriverSQLite
	defaultDBPath        = "proofmarket.db"
	defaultLogLevel      = "info"
	defaultMatchStrategy = "performance"
	defaultEscrowAccount = "marketplace"
)

// ErrInvalid is returned for configuration values that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Config holds application configuration.
type Config struct {
	ListenAddr           string
	StoreDriver          string
	DBPath               string
	LogLevel             slog.Level
	MatchStrategy        string
	EscrowAccount        string
	EscrowGenesis        uint64
	EnforceMatchedProver bool
	VerifyProofs         bool
}

// NewViper returns a viper instance with defaults set and environment
// variables bound. Callers may bind command-line flags to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyListenAddr, defaultListenAddr)
	v.SetDefault(KeyStoreDriver, defaultStoreDriver)
	v.SetDefault(KeyDBPath, defaultDBPath)
	v.SetDefault(KeyLogLevel, defaultLogLevel)
	v.SetDefault(KeyMatchStrategy, defaultMatchStrategy)
	v.SetDefault(KeyEscrowAccount, defaultEscrowAccount)
	v.SetDefault(KeyEscrowGenesis, 0)
	v.SetDefault(KeyEnforceMatchedProver, false)
	v.SetDefault(KeyVerifyProofs, false)
	return v
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	return FromViper(NewViper())
}

// FromViper resolves a Config from v, reading the config file named by the
// "config" key first when one is set.
func FromViper(v *viper.Viper) (Config, error) {
	if path := v.GetString(KeyConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		ListenAddr:           v.GetString(KeyListenAddr),
		StoreDriver:          strings.ToLower(v.GetString(KeyStoreDriver)),
		DBPath:               v.GetString(KeyDBPath),
		LogLevel:             parseLogLevel(v.GetString(KeyLogLevel)),
		MatchStrategy:        strings.ToLower(v.GetString(KeyMatchStrategy)),
		EscrowAccount:        strings.TrimSpace(v.GetString(KeyEscrowAccount)),
		EscrowGenesis:        v.GetUint64(KeyEscrowGenesis),
		EnforceMatchedProver: v.GetBool(KeyEnforceMatchedProver),
		VerifyProofs:         v.GetBool(KeyVerifyProofs),
	}

	switch cfg.StoreDriver {
	case store.DriverMemory, store.DriverSQLite, store.DriverPebble:
	default:
		return Config{}, fmt.Errorf("store driver %q: %w", cfg.StoreDriver, ErrInvalid)
	}
	if cfg.StoreDriver != store.DriverMemory && cfg.DBPath == "" {
		return Config{}, fmt.Errorf("db path required for %s: %w", cfg.StoreDriver, ErrInvalid)
	}
	if cfg.EscrowAccount == "" {
		return Config{}, fmt.Errorf("escrow account is empty: %w", ErrInvalid)
	}
	return cfg, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
