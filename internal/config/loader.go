package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the TOML file at path on top of Defaults, then applies .env and
// WASHTRADE_* overrides. An empty path skips the file. The result is not
// validated; callers run Detection.Validate before detecting.
func Load(path string) (*Config, error) {
	defaults := Defaults()
	cfg := defaults

	if path != "" {
		// Arrays of tables replace the defaults wholesale, so start them empty
		// and restore only the ones the file leaves out.
		cfg.Detection.Directions = nil
		cfg.Detection.OppositePairs = nil
		cfg.Detection.ActivityTiers = nil

		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
		if !md.IsDefined("detection", "directions") {
			cfg.Detection.Directions = defaults.Detection.Directions
		}
		if !md.IsDefined("detection", "opposite_pairs") {
			cfg.Detection.OppositePairs = defaults.Detection.OppositePairs
		}
		if !md.IsDefined("detection", "activity_tiers") {
			cfg.Detection.ActivityTiers = defaults.Detection.ActivityTiers
		}
	}

	// .env is optional.
	_ = godotenv.Load()

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides overwrites fields whose WASHTRADE_* variable is set.
func applyEnvOverrides(cfg *Config) error {
	setStr(&cfg.LogLevel, "WASHTRADE_LOG_LEVEL")
	if err := setBool(&cfg.LogPretty, "WASHTRADE_LOG_PRETTY"); err != nil {
		return err
	}

	setStr(&cfg.Storage.Source, "WASHTRADE_SOURCE")
	setStr(&cfg.Storage.PostgresDSN, "WASHTRADE_POSTGRES_DSN")
	setStr(&cfg.Storage.ClickhouseDSN, "WASHTRADE_CLICKHOUSE_DSN")

	setStr(&cfg.Output.Dir, "WASHTRADE_OUTPUT_DIR")
	setStr(&cfg.Output.MetricsAddr, "WASHTRADE_METRICS_ADDR")
	if err := setBool(&cfg.Output.Verify, "WASHTRADE_VERIFY"); err != nil {
		return err
	}

	setStr(&cfg.Detection.MinAmount, "WASHTRADE_MIN_AMOUNT")
	setStr(&cfg.Detection.ProfileScope, "WASHTRADE_PROFILE_SCOPE")
	setStr(&cfg.Normalization.DefaultLottery, "WASHTRADE_DEFAULT_LOTTERY")
	for key, dst := range map[string]*int{
		"WASHTRADE_MAX_GROUP_SIZE":       &cfg.Detection.MaxGroupSize,
		"WASHTRADE_MAX_PERIOD_DISPARITY": &cfg.Detection.MaxPeriodDisparity,
		"WASHTRADE_WORKERS":              &cfg.Detection.Workers,
	} {
		if err := setInt(dst, key); err != nil {
			return err
		}
	}
	return setFloat64(&cfg.Detection.SimilarityThreshold, "WASHTRADE_SIMILARITY_THRESHOLD")
}

// Typed env helpers. Each only mutates dst when the variable is non-empty.

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return configErr(key, "not an integer: %q", v)
	}
	*dst = n
	return nil
}

func setFloat64(dst *float64, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return configErr(key, "not a number: %q", v)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return configErr(key, "not a boolean: %q", v)
	}
	*dst = b
	return nil
}
