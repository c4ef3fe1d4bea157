package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/sahmadiut/pgw-sim/internal/constants"
)

// ClientConfig represents the client configuration.
type ClientConfig struct {
	ServerIP        string        `mapstructure:"server_ip"`
	ServerPort      int           `mapstructure:"server_port"`
	ResponseTimeout time.Duration `mapstructure:"response_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`

	// RetryDelay is the pause before the second attempt, zero to resend
	// as soon as a reply times out. Later pauses grow by RetryMultiplier
	// up to RetryMaxDelay, each randomised by RetryJitter.
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	RetryMaxDelay   time.Duration `mapstructure:"retry_max_delay"`
	RetryMultiplier float64       `mapstructure:"retry_multiplier"`
	RetryJitter     float64       `mapstructure:"retry_jitter"`

	Logging LoggingConfig `mapstructure:",squash"`
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		ServerIP:        "127.0.0.1",
		ServerPort:      9000,
		ResponseTimeout: constants.DefaultResponseTimeout,
		MaxRetries:      constants.DefaultMaxRetries,
		RetryDelay:      0,
		RetryMaxDelay:   time.Second,
		RetryMultiplier: 2.0,
		RetryJitter:     0,
		Logging: LoggingConfig{
			File:   "client.log",
			Level:  "info",
			Format: "console",
		},
	}
}

// ServerAddr returns the PGW server address.
func (c *ClientConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerIP, c.ServerPort)
}

// LoadClientConfig loads client configuration from a file.
func LoadClientConfig(configPath string) (*ClientConfig, error) {
	v := newViper(configPath, "client_config", "PGW_CLIENT")
	setClientDefaults(v)

	if err := readConfig(v, configPath); err != nil {
		return nil, err
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setClientDefaults(v *viper.Viper) {
	defaults := DefaultClientConfig()

	v.SetDefault("server_ip", defaults.ServerIP)
	v.SetDefault("server_port", defaults.ServerPort)
	v.SetDefault("response_timeout", defaults.ResponseTimeout)
	v.SetDefault("max_retries", defaults.MaxRetries)
	v.SetDefault("retry_delay", defaults.RetryDelay)
	v.SetDefault("retry_max_delay", defaults.RetryMaxDelay)
	v.SetDefault("retry_multiplier", defaults.RetryMultiplier)
	v.SetDefault("retry_jitter", defaults.RetryJitter)

	v.SetDefault("log_file", defaults.Logging.File)
	v.SetDefault("log_level", defaults.Logging.Level)
	v.SetDefault("log_format", defaults.Logging.Format)
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	addr, ok := parseIPv4(c.ServerIP)
	if !ok {
		return invalid("invalid server_ip: %q", c.ServerIP)
	}
	// Replies to a wildcard destination come back from a concrete address
	// and would never match.
	if addr.IsUnspecified() {
		return invalid("invalid server_ip: %q, must be a concrete address", c.ServerIP)
	}
	if !validPort(c.ServerPort) {
		return invalid("invalid server_port: %d, must be 1-65535", c.ServerPort)
	}
	if err := validInterval("response_timeout", c.ResponseTimeout); err != nil {
		return err
	}
	if c.MaxRetries <= 0 {
		return invalid("invalid max_retries: %d, must be > 0", c.MaxRetries)
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	return c.Logging.validate()
}

func (c *ClientConfig) validateRetry() error {
	if c.RetryDelay != 0 {
		if err := validInterval("retry_delay", c.RetryDelay); err != nil {
			return err
		}
	}
	if c.RetryMaxDelay < c.RetryDelay {
		return invalid("invalid retry_max_delay: %v, must be >= retry_delay (%v)", c.RetryMaxDelay, c.RetryDelay)
	}
	if c.RetryMultiplier < 1 {
		return invalid("invalid retry_multiplier: %v, must be >= 1", c.RetryMultiplier)
	}
	if c.RetryJitter < 0 || c.RetryJitter > 1 {
		return invalid("invalid retry_jitter: %v, must be between 0 and 1", c.RetryJitter)
	}
	return nil
}
