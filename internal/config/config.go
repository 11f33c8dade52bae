package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	FeeRate            float64
	TickSpacing        int
	InitialPrice       float64
	Steps              int
	Seed               int64
	RandomTraders      int
	TrendFollowers     int
	LiquidityProviders int
	MarketMakers       int
	Out                string
	PGDSN              string
	BatchSize          int
	StateFile          string
	LogLevel           string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POOLSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("fee-rate", 0.003)
	v.SetDefault("tick-spacing", 60)
	v.SetDefault("initial-price", 3000.0)
	v.SetDefault("steps", 100)
	v.SetDefault("seed", int64(42))
	v.SetDefault("random-traders", 5)
	v.SetDefault("trend-followers", 3)
	v.SetDefault("liquidity-providers", 1)
	v.SetDefault("market-makers", 1)
	v.SetDefault("out", "./data")
	v.SetDefault("batch-size", 100)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		FeeRate:            v.GetFloat64("fee-rate"),
		TickSpacing:        v.GetInt("tick-spacing"),
		InitialPrice:       v.GetFloat64("initial-price"),
		Steps:              v.GetInt("steps"),
		Seed:               v.GetInt64("seed"),
		RandomTraders:      v.GetInt("random-traders"),
		TrendFollowers:     v.GetInt("trend-followers"),
		LiquidityProviders: v.GetInt("liquidity-providers"),
		MarketMakers:       v.GetInt("market-makers"),
		Out:                v.GetString("out"),
		PGDSN:              v.GetString("pg-dsn"),
		BatchSize:          v.GetInt("batch-size"),
		StateFile:          v.GetString("state-file"),
		LogLevel:           v.GetString("log-level"),
	}

	if cfg.FeeRate < 0 || cfg.FeeRate >= 1 {
		return Config{}, fmt.Errorf("fee-rate must be in [0, 1)")
	}
	if cfg.TickSpacing <= 0 {
		return Config{}, fmt.Errorf("tick-spacing must be positive")
	}
	if cfg.InitialPrice <= 0 {
		return Config{}, fmt.Errorf("initial-price must be positive")
	}

	return cfg, nil
}
