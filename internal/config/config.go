// Package config loads settings for the crawl client and the practice
// server from an optional YAML file, with environment overrides on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Client struct {
	ServerURL      string `yaml:"server_url" env:"CRAWL_SERVER_URL"`
	Username       string `yaml:"username" env:"CRAWL_USERNAME"`
	Password       string `yaml:"password" env:"CRAWL_PASSWORD"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"CRAWL_TIMEOUT_SECONDS"`
	TranscriptPath string `yaml:"transcript_path" env:"CRAWL_TRANSCRIPT"`
}

// Timeout returns the request timeout as a duration.
func (c Client) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type Server struct {
	Addr   string `yaml:"addr" env:"GAMED_ADDR"`
	DBPath string `yaml:"db_path" env:"GAMED_DB"`
}

type Config struct {
	Client Client `yaml:"client"`
	Server Server `yaml:"server"`
}

func defaults() Config {
	return Config{
		Client: Client{
			ServerURL:      "http://localhost:8080",
			TimeoutSeconds: 8,
		},
		Server: Server{
			Addr:   ":8080",
			DBPath: "crawl.sqlite",
		},
	}
}

// Load reads path (skipped when empty), then applies env overrides.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Client.ServerURL == "" {
		return errors.New("client server_url must not be empty")
	}
	if c.Client.TimeoutSeconds <= 0 {
		return errors.New("client timeout_seconds must be positive")
	}
	if c.Server.Addr == "" {
		return errors.New("server addr must not be empty")
	}
	return nil
}
