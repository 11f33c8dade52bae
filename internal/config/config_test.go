package config

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FeeRate != 0.003 {
		t.Fatalf("fee rate = %v, want 0.003", cfg.FeeRate)
	}
	if cfg.TickSpacing != 60 {
		t.Fatalf("tick spacing = %d, want 60", cfg.TickSpacing)
	}
	if cfg.InitialPrice != 3000 {
		t.Fatalf("initial price = %v, want 3000", cfg.InitialPrice)
	}
	if cfg.Steps != 100 || cfg.Seed != 42 {
		t.Fatalf("steps/seed = %d/%d, want 100/42", cfg.Steps, cfg.Seed)
	}
	if cfg.RandomTraders != 5 || cfg.TrendFollowers != 3 {
		t.Fatalf("roster defaults = %d/%d", cfg.RandomTraders, cfg.TrendFollowers)
	}
	if cfg.Out != "./data" || cfg.BatchSize != 100 || cfg.LogLevel != "info" {
		t.Fatalf("out/batch/log = %s/%d/%s", cfg.Out, cfg.BatchSize, cfg.LogLevel)
	}
}

func TestLoadFlagsOverrideDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Float64("fee-rate", 0.003, "")
	flags.Int("steps", 100, "")
	if err := flags.Parse([]string{"--fee-rate=0.01", "--steps=500"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.FeeRate != 0.01 {
		t.Fatalf("fee rate = %v, want 0.01", cfg.FeeRate)
	}
	if cfg.Steps != 500 {
		t.Fatalf("steps = %d, want 500", cfg.Steps)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"fee rate too high", []string{"--fee-rate=1.5"}},
		{"negative fee rate", []string{"--fee-rate=-0.1"}},
		{"zero tick spacing", []string{"--tick-spacing=0"}},
		{"negative price", []string{"--initial-price=-1"}},
	}
	for _, tc := range cases {
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Float64("fee-rate", 0.003, "")
		flags.Int("tick-spacing", 60, "")
		flags.Float64("initial-price", 3000, "")
		if err := flags.Parse(tc.args); err != nil {
			t.Fatalf("%s: parse flags: %v", tc.name, err)
		}
		if _, err := Load("", flags); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
