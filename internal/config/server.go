package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig represents the complete server configuration.
type ServerConfig struct {
	UDPIP             string        `mapstructure:"udp_ip"`
	UDPPort           int           `mapstructure:"udp_port"`
	HTTPIP            string        `mapstructure:"http_ip"`
	HTTPPort          int           `mapstructure:"http_port"`
	SessionTimeoutSec int           `mapstructure:"session_timeout_sec"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	CDRFile           string        `mapstructure:"cdr_file"`
	Blacklist         []string      `mapstructure:"blacklist"`
	// Workers is the pool size. Zero means one per CPU.
	Workers int `mapstructure:"workers"`

	Logging LoggingConfig `mapstructure:",squash"`
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		UDPIP:             "0.0.0.0",
		UDPPort:           9000,
		HTTPIP:            "0.0.0.0",
		HTTPPort:          8080,
		SessionTimeoutSec: 30,
		SweepInterval:     time.Second,
		CDRFile:           "cdr.log",
		Blacklist:         []string{},
		Workers:           0,
		Logging: LoggingConfig{
			File:   "server.log",
			Level:  "info",
			Format: "console",
		},
	}
}

// SessionTimeout returns the session timeout as a duration.
func (c *ServerConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSec) * time.Second
}

// UDPAddr returns the UDP bind address.
func (c *ServerConfig) UDPAddr() string {
	return fmt.Sprintf("%s:%d", c.UDPIP, c.UDPPort)
}

// HTTPAddr returns the control-plane bind address.
func (c *ServerConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPIP, c.HTTPPort)
}

// LoadServerConfig loads server configuration from a file.
func LoadServerConfig(configPath string) (*ServerConfig, error) {
	v := newViper(configPath, "server_config", "PGW_SERVER")
	setServerDefaults(v)

	if err := readConfig(v, configPath); err != nil {
		return nil, err
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// LoadServerConfigFromFile loads server configuration from a specific file path.
func LoadServerConfigFromFile(path string) (*ServerConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return LoadServerConfig(path)
}

// setServerDefaults sets default values for server configuration.
func setServerDefaults(v *viper.Viper) {
	defaults := DefaultServerConfig()

	v.SetDefault("udp_ip", defaults.UDPIP)
	v.SetDefault("udp_port", defaults.UDPPort)
	v.SetDefault("http_ip", defaults.HTTPIP)
	v.SetDefault("http_port", defaults.HTTPPort)
	v.SetDefault("session_timeout_sec", defaults.SessionTimeoutSec)
	v.SetDefault("sweep_interval", defaults.SweepInterval)
	v.SetDefault("cdr_file", defaults.CDRFile)
	v.SetDefault("blacklist", defaults.Blacklist)
	v.SetDefault("workers", defaults.Workers)

	v.SetDefault("log_file", defaults.Logging.File)
	v.SetDefault("log_level", defaults.Logging.Level)
	v.SetDefault("log_format", defaults.Logging.Format)
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if !validIPv4(c.UDPIP) {
		return invalid("invalid udp_ip: %q", c.UDPIP)
	}
	if !validPort(c.UDPPort) {
		return invalid("invalid udp_port: %d, must be 1-65535", c.UDPPort)
	}
	if !validIPv4(c.HTTPIP) {
		return invalid("invalid http_ip: %q", c.HTTPIP)
	}
	if !validPort(c.HTTPPort) {
		return invalid("invalid http_port: %d, must be 1-65535", c.HTTPPort)
	}
	if err := c.Logging.validate(); err != nil {
		return err
	}
	if c.SessionTimeoutSec <= 0 {
		return invalid("invalid session_timeout_sec: %d, must be > 0", c.SessionTimeoutSec)
	}
	if err := validInterval("sweep_interval", c.SweepInterval); err != nil {
		return err
	}
	if c.CDRFile == "" {
		return invalid("cdr_file must be set")
	}
	if c.Workers < 0 {
		return invalid("invalid workers: %d, must be >= 0", c.Workers)
	}
	return validateBlacklist(c.Blacklist)
}
