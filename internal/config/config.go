// Package config provides configuration loading for the PGW simulator.
package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sahmadiut/pgw-sim/internal/bcd"
	"github.com/sahmadiut/pgw-sim/internal/constants"
	pgwerrors "github.com/sahmadiut/pgw-sim/internal/errors"
	"github.com/sahmadiut/pgw-sim/pkg/logger"
)

// LoggingConfig holds logging configuration shared by server and client.
type LoggingConfig struct {
	File   string `mapstructure:"log_file"`
	Level  string `mapstructure:"log_level"`
	Format string `mapstructure:"log_format"`
}

// newViper returns a viper instance reading configPath (or searching for
// name in the usual places) with env overrides under envPrefix.
func newViper(configPath, name, envPrefix string) *viper.Viper {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(name)
		v.SetConfigType("json")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("/etc/pgw-sim/")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// readConfig reads the file into v. A missing file is not an error when the
// path was not given explicitly.
func readConfig(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && configPath == "" {
			return nil
		}
		return fmt.Errorf("error reading config: %w", err)
	}
	return nil
}

// parseIPv4 parses a dotted-quad IPv4 address. IPv6 forms, including
// IPv4-mapped ones, are refused.
func parseIPv4(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, false
	}
	return addr, true
}

func validIPv4(s string) bool {
	_, ok := parseIPv4(s)
	return ok
}

// validInterval rejects periods below constants.MinInterval. A bare JSON
// number decodes as nanoseconds, so "sweep_interval": 1 lands here.
func validInterval(key string, d time.Duration) error {
	if d < constants.MinInterval {
		return invalid("invalid %s: %v, must be at least %v (use a duration string such as \"1s\")", key, d, constants.MinInterval)
	}
	return nil
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", pgwerrors.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// validate checks the logging section.
func (c LoggingConfig) validate() error {
	if _, err := logger.ParseLevel(c.Level); err != nil || c.Level == "" {
		return invalid("invalid log_level: %q", c.Level)
	}
	switch c.Format {
	case "", "json", "console":
	default:
		return invalid("invalid log_format: %q (use json or console)", c.Format)
	}
	return nil
}

// validateBlacklist requires every entry to be a well-formed IMSI.
func validateBlacklist(list []string) error {
	for _, imsi := range list {
		if !bcd.ValidIMSI(imsi) {
			return invalid("invalid IMSI in blacklist: %q, IMSI must be exactly 15 digits", imsi)
		}
	}
	return nil
}
