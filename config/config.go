// Package config provides YAML configuration parsing for adcbridge.
//
// This package enables running the bridge as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	port: 8080
//	path: /ws
//	title: Bench ADC
//
//	serial:
//	  device: ${ADC_DEVICE:-/dev/ttyUSB0}
//	  baud_rate: 115200
//
//	discovery:
//	  enabled: true
//	  ttl: 2m
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/adcbridge/internal/serial"
)

const (
	defaultPort      = 8080
	defaultPath      = "/ws"
	defaultDevice    = "/dev/ttyUSB0"
	defaultDelimiter = "\n"

	// maxTTL caps the mDNS record TTL. Longer values keep stale records in
	// client caches after the bridge goes away.
	maxTTL = time.Hour
)

// Config is the root configuration structure for adcbridge.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the plotter page title. Defaults to "ADC Live Plotter" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// Path is the websocket URL path. Defaults to "/ws".
	Path string `yaml:"path"`

	// Pattern is a regular expression with one capture group used to
	// extract samples. Defaults to "AD Value: (\d+)".
	Pattern string `yaml:"pattern"`

	// Serial configures the device the samples are read from.
	Serial SerialConfig `yaml:"serial"`

	// Discovery configures mDNS advertisement.
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// SerialConfig defines the serial device.
type SerialConfig struct {
	// Device is the device path.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Device string `yaml:"device"`

	// BaudRate is the line speed. Defaults to 115200.
	BaudRate int `yaml:"baud_rate"`

	// Delimiter ends one chunk of device output. Defaults to "\n".
	// An explicit empty string ("") delivers raw reads.
	Delimiter *string `yaml:"delimiter"`
}

// DiscoveryConfig defines mDNS advertisement of the websocket endpoint.
type DiscoveryConfig struct {
	// Enabled turns advertisement on. Defaults to false.
	Enabled bool `yaml:"enabled"`

	// Instance is the DNS-SD instance name. Defaults to "adcbridge-<hostname>".
	Instance string `yaml:"instance"`

	// TTL is the record time-to-live. Zero uses the library default.
	TTL Duration `yaml:"ttl"`

	// Interface restricts advertising to one network interface.
	Interface string `yaml:"interface"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DelimiterValue returns the configured delimiter, or "\n" when unset.
func (s SerialConfig) DelimiterValue() string {
	if s.Delimiter == nil {
		return defaultDelimiter
	}
	return *s.Delimiter
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in serial.device. Defaults are applied
// for port, path, serial.device and serial.baud_rate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Path == "" {
		cfg.Path = defaultPath
	}
	if cfg.Serial.Device == "" {
		cfg.Serial.Device = defaultDevice
	}
	if cfg.Serial.BaudRate == 0 {
		cfg.Serial.BaudRate = serial.DefaultBaudRate
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path must start with /, got %q", c.Path)
	}
	if c.Path == "/" || c.Path == "/api/status" {
		return fmt.Errorf("path %q is reserved", c.Path)
	}

	if c.Pattern != "" {
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return fmt.Errorf("pattern: %w", err)
		}
		if re.NumSubexp() != 1 {
			return fmt.Errorf("pattern: must have exactly one capture group, got %d", re.NumSubexp())
		}
	}

	expanded, err := expandEnvVars(c.Serial.Device)
	if err != nil {
		return fmt.Errorf("serial.device: %w", err)
	}
	if expanded == "" {
		return fmt.Errorf("serial.device: expands to an empty path")
	}
	c.Serial.Device = expanded

	if !serial.SupportedBaudRate(c.Serial.BaudRate) {
		return fmt.Errorf("serial.baud_rate: unsupported value %d (supported: %v)",
			c.Serial.BaudRate, serial.BaudRates)
	}

	if c.Discovery.TTL.Duration() < 0 {
		return fmt.Errorf("discovery.ttl: cannot be negative, got %s", c.Discovery.TTL.Duration())
	}
	if c.Discovery.TTL.Duration() > maxTTL {
		return fmt.Errorf("discovery.ttl: must not exceed %s, got %s", maxTTL, c.Discovery.TTL.Duration())
	}
	if c.Discovery.TTL != 0 && c.Discovery.TTL.Duration() < time.Second {
		return fmt.Errorf("discovery.ttl: must be at least 1s if specified, got %s", c.Discovery.TTL.Duration())
	}

	return nil
}
