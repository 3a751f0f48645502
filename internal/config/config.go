package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Session struct {
		// TTL bounds durable session fields (order, cursor, bonus state).
		TTL string `yaml:"ttl"`
		// SelectionTTL bounds a pending, unconfirmed answer selection.
		SelectionTTL string `yaml:"selectionTtl"`
	} `yaml:"session"`
	Questions struct {
		// TTL for cached question snapshots.
		TTL string `yaml:"ttl"`
	} `yaml:"questions"`
	Pacing struct {
		// BonusReturnDelay before the turn advances after a bonus cycle.
		BonusReturnDelay string `yaml:"bonusReturnDelay"`
		// AutoConfirmFallback deadline for rounds without a time budget.
		AutoConfirmFallback string `yaml:"autoConfirmFallback"`
	} `yaml:"pacing"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
