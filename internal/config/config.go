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
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Tasks struct {
		TTL string `yaml:"ttl"`
	} `yaml:"tasks"`
	Battle struct {
		CountdownSeconds int     `yaml:"countdown_seconds"`
		Tick             string  `yaml:"tick"`
		DefaultTimeLimit int     `yaml:"default_time_limit"`
		DefaultTaskCount int     `yaml:"default_task_count"`
		KFactor          float64 `yaml:"k_factor"`
		FinishGrace      string  `yaml:"finish_grace"`
	} `yaml:"battle"`
	Grader struct {
		URL         string `yaml:"url"`
		Timeout     string `yaml:"timeout"`
		MaxInFlight int    `yaml:"max_in_flight"`
	} `yaml:"grader"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
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

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
