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
	Quiz struct {
		SessionTTL  string `yaml:"session_ttl"`
		AnswerGrace string `yaml:"answer_grace"`
		PoolTTL     string `yaml:"pool_ttl"`
	} `yaml:"quiz"`
	Raffle struct {
		EntryLimit      int    `yaml:"entry_limit"`
		PhoneTimeout    string `yaml:"phone_timeout"`
		QuestionTimeout string `yaml:"question_timeout"`
		RotationWindow  string `yaml:"rotation_window"`
		SweepInterval   string `yaml:"sweep_interval"`
	} `yaml:"raffle"`
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
