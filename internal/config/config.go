// Package config loads server configuration from an optional YAML file with
// environment variable overrides. Environment always wins, so container
// deployments can run without a file at all.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can spell it "30s" or "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	v, err := time.ParseDuration(n.Value)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", n.Value, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"databaseUrl"`
	RedisURL    string `yaml:"redisUrl"`

	Auth struct {
		Mode       string `yaml:"mode"` // dev, hmac, jwks
		HMACSecret string `yaml:"hmacSecret"`
		JWKSURL    string `yaml:"jwksUrl"`
	} `yaml:"auth"`

	Solver struct {
		DefaultTimeLimit Duration `yaml:"defaultTimeLimit"`
		MaxTimeLimit     Duration `yaml:"maxTimeLimit"`
		SweepExactLimit  int      `yaml:"sweepExactLimit"`
		MaxShops         int      `yaml:"maxShops"`
		Workers          int      `yaml:"workers"`
	} `yaml:"solver"`

	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rateLimit"`

	Webhooks struct {
		MaxAttempts int `yaml:"maxAttempts"`
	} `yaml:"webhooks"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	var c Config
	c.Addr = ":8080"
	c.Auth.Mode = "dev"
	c.Solver.DefaultTimeLimit = Duration(30 * time.Second)
	c.Solver.MaxTimeLimit = Duration(5 * time.Minute)
	c.Solver.SweepExactLimit = 8
	c.Solver.MaxShops = 500
	c.Solver.Workers = 4
	c.RateLimit.RPS = 50
	c.RateLimit.Burst = 100
	c.Webhooks.MaxAttempts = 10
	return c
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	c.applyEnv()
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Addr = ":" + v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("AUTH_MODE"); v != "" {
		c.Auth.Mode = v
	}
	if v := os.Getenv("AUTH_HMAC_SECRET"); v != "" {
		c.Auth.HMACSecret = v
	}
	if v := os.Getenv("AUTH_JWKS_URL"); v != "" {
		c.Auth.JWKSURL = v
	}
	if v := os.Getenv("SOLVE_TIME_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Solver.DefaultTimeLimit = Duration(d)
		}
	}
	if v := os.Getenv("SOLVE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Solver.Workers = n
		}
	}
	if v := os.Getenv("WEBHOOK_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Webhooks.MaxAttempts = n
		}
	}
}

func (c *Config) validate() error {
	switch c.Auth.Mode {
	case "dev", "hmac", "jwks":
	default:
		return fmt.Errorf("config: unknown auth mode %q", c.Auth.Mode)
	}
	if c.Auth.Mode == "hmac" && c.Auth.HMACSecret == "" {
		return fmt.Errorf("config: auth mode hmac requires a secret")
	}
	if c.Solver.DefaultTimeLimit <= 0 || c.Solver.MaxTimeLimit < c.Solver.DefaultTimeLimit {
		return fmt.Errorf("config: invalid solver time limits")
	}
	if c.Solver.Workers <= 0 {
		return fmt.Errorf("config: solver workers must be positive")
	}
	return nil
}
