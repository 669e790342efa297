package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all server configuration
type Config struct {
	Server    ServerConfig
	Engine    EngineConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        // Server host (default: "0.0.0.0")
	Port            int           // Server port (default: 8080)
	ReadTimeout     time.Duration // Request read timeout
	WriteTimeout    time.Duration // Response write timeout
	ShutdownTimeout time.Duration // Graceful shutdown timeout
}

// EngineConfig holds LVQ engine configuration
type EngineConfig struct {
	MaxCodebooks int     // Max codebook handles held at once
	MaxStats     int     // Max stats handles held at once
	DataDir      string  // Directory store/load paths resolve against
	Epochs       int     // Default training epochs
	Window       int     // Default early-stop window
	MaxIter      int     // Default cap on prototype updates
	Alpha        float64 // Default initial learning rate
}

// AuthConfig holds JWT authentication configuration
type AuthConfig struct {
	Enabled   bool   // Require bearer tokens
	JWTSecret string // HMAC signing secret
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool    // Enable rate limiting
	RequestsPerSec float64 // Requests per second per client
	Burst          int     // Maximum burst size
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Engine: EngineConfig{
			MaxCodebooks: 100,
			MaxStats:     1000,
			DataDir:      "./data",
			Epochs:       5,
			Window:       3,
			MaxIter:      1000,
			Alpha:        0.1,
		},
		Auth: AuthConfig{
			Enabled: false,
		},
		RateLimit: RateLimitConfig{
			Enabled:        false,
			RequestsPerSec: 100,
			Burst:          200,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := Default()

	if host := os.Getenv("LVQ_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("LVQ_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if timeout := os.Getenv("LVQ_READ_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.ReadTimeout = t
		}
	}
	if timeout := os.Getenv("LVQ_WRITE_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.WriteTimeout = t
		}
	}

	if max := os.Getenv("LVQ_MAX_CODEBOOKS"); max != "" {
		if m, err := strconv.Atoi(max); err == nil {
			cfg.Engine.MaxCodebooks = m
		}
	}
	if dataDir := os.Getenv("LVQ_DATA_DIR"); dataDir != "" {
		cfg.Engine.DataDir = dataDir
	}
	if epochs := os.Getenv("LVQ_TRAIN_EPOCHS"); epochs != "" {
		if e, err := strconv.Atoi(epochs); err == nil {
			cfg.Engine.Epochs = e
		}
	}
	if window := os.Getenv("LVQ_TRAIN_WINDOW"); window != "" {
		if w, err := strconv.Atoi(window); err == nil {
			cfg.Engine.Window = w
		}
	}
	if maxIter := os.Getenv("LVQ_TRAIN_MAX_ITER"); maxIter != "" {
		if m, err := strconv.Atoi(maxIter); err == nil {
			cfg.Engine.MaxIter = m
		}
	}
	if alpha := os.Getenv("LVQ_TRAIN_ALPHA"); alpha != "" {
		if a, err := strconv.ParseFloat(alpha, 64); err == nil {
			cfg.Engine.Alpha = a
		}
	}

	if enabled := os.Getenv("LVQ_AUTH_ENABLED"); enabled == "true" {
		cfg.Auth.Enabled = true
		cfg.Auth.JWTSecret = os.Getenv("LVQ_JWT_SECRET")
	}

	if enabled := os.Getenv("LVQ_RATE_LIMIT_ENABLED"); enabled == "true" {
		cfg.RateLimit.Enabled = true
	}
	if rps := os.Getenv("LVQ_RATE_LIMIT_RPS"); rps != "" {
		if r, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimit.RequestsPerSec = r
		}
	}
	if burst := os.Getenv("LVQ_RATE_LIMIT_BURST"); burst != "" {
		if b, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimit.Burst = b
		}
	}

	return cfg
}

// LoadFromFile loads configuration from a JSON file, applied on top of
// the defaults
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}

	if c.Engine.MaxCodebooks < 1 {
		return fmt.Errorf("invalid max codebooks: %d (must be > 0)", c.Engine.MaxCodebooks)
	}
	if c.Engine.MaxStats < 1 {
		return fmt.Errorf("invalid max stats handles: %d (must be > 0)", c.Engine.MaxStats)
	}
	if c.Engine.DataDir == "" {
		return fmt.Errorf("data directory not specified")
	}
	if c.Engine.Epochs < 1 {
		return fmt.Errorf("invalid training epochs: %d (must be > 0)", c.Engine.Epochs)
	}
	if c.Engine.Window < 1 {
		return fmt.Errorf("invalid early-stop window: %d (must be > 0)", c.Engine.Window)
	}
	if c.Engine.MaxIter < 1 {
		return fmt.Errorf("invalid max iterations: %d (must be > 0)", c.Engine.MaxIter)
	}
	if c.Engine.Alpha <= 0 || c.Engine.Alpha > 1 {
		return fmt.Errorf("invalid learning rate: %f (must be in (0, 1])", c.Engine.Alpha)
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth enabled but JWT secret not specified")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSec <= 0 {
			return fmt.Errorf("invalid rate limit: %f req/s (must be > 0)", c.RateLimit.RequestsPerSec)
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("invalid rate limit burst: %d (must be > 0)", c.RateLimit.Burst)
		}
	}

	return nil
}

// Address returns the server address (host:port)
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
