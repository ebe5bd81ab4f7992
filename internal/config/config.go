package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/httpdwatch/httpdwatch/internal/threshold"
)

// Defaults applied when fields are absent from the file and the flags.
const (
	DefaultPath           = "/server-status?auto"
	DefaultTimeoutSeconds = 10
	DefaultFormat         = "nagios"
)

// DefaultStateFile is where prior samples are kept unless overridden.
func DefaultStateFile() string {
	return filepath.Join(os.TempDir(), "httpdwatch.db")
}

// Config is the full check configuration. It is constructed once per
// invocation and passed explicitly; nothing reads it through globals.
type Config struct {
	// Host is the address to connect to (name, IPv4, or IPv6 literal).
	Host string `yaml:"host"`

	// Port overrides the scheme default (80, or 443 with SSL).
	Port int `yaml:"port"`

	// Path is the status page location, query included.
	Path string `yaml:"path"`

	// SSL selects https.
	SSL bool `yaml:"ssl"`

	// VHost is an optional Host-header override for probing a virtual host
	// while connecting to Host.
	VHost string `yaml:"vhost"`

	Auth AuthConfig `yaml:"auth"`

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	// IPv6 forces dialing over tcp6.
	IPv6 bool `yaml:"ipv6"`

	// Timeout is the hard deadline for one fetch, in whole seconds, matching
	// the -t convention of this plugin family.
	Timeout int `yaml:"timeout"`

	// StateFile is the bbolt database holding prior samples.
	StateFile string `yaml:"state_file"`

	// Format selects the output rendering: nagios | prom.
	Format string `yaml:"format"`

	Thresholds ThresholdConfig `yaml:"thresholds"`

	// Verbose lowers the stderr log level to debug.
	Verbose bool `yaml:"verbose"`

	rules []threshold.Rule
}

// AuthConfig carries basic-auth settings. The password lives in the
// environment, not in the file.
type AuthConfig struct {
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Password returns the basic-auth password resolved from the environment.
// Returns empty string if PasswordEnv is unset or the variable is not found.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// ThresholdConfig holds the raw rule strings per severity, each of the form
// <metric>:<operator>:<bound> and repeatable per metric.
type ThresholdConfig struct {
	Warning  []string `yaml:"warning"`
	Critical []string `yaml:"critical"`
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		Path:      DefaultPath,
		Timeout:   DefaultTimeoutSeconds,
		StateFile: DefaultStateFile(),
		Format:    DefaultFormat,
	}
}

// Load reads and parses the YAML config file at path on top of the defaults.
// The result still needs Validate — flags may be merged in first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	return cfg, nil
}

// Validate checks required fields and compiles the threshold rules. It must
// pass before any fetch happens — a bad rule fails the invocation as UNKNOWN
// without touching the network.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("config: host is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive")
	}
	switch c.Format {
	case "nagios", "prom":
	default:
		return fmt.Errorf("config: unknown format %q (valid: nagios, prom)", c.Format)
	}
	if c.StateFile == "" {
		return fmt.Errorf("config: state_file is required")
	}

	critical, err := threshold.ParseRules(c.Thresholds.Critical, threshold.Critical)
	if err != nil {
		return fmt.Errorf("config: critical %w", err)
	}
	warning, err := threshold.ParseRules(c.Thresholds.Warning, threshold.Warning)
	if err != nil {
		return fmt.Errorf("config: warning %w", err)
	}
	c.rules = append(critical, warning...)
	return nil
}

// Rules returns the threshold rules compiled by Validate.
func (c *Config) Rules() []threshold.Rule {
	return c.rules
}

// FetchTimeout returns the timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Scheme returns the URL scheme implied by SSL.
func (c *Config) Scheme() string {
	if c.SSL {
		return "https"
	}
	return "http"
}

// Identity derives the stable state-store key for this check from the fields
// that define which service is being measured. Threshold and output settings
// deliberately do not participate — retuning a threshold must not discard
// the prior sample.
func (c *Config) Identity() string {
	parts := []string{
		c.Scheme(),
		c.Host,
		strconv.Itoa(c.Port),
		c.Path,
		c.VHost,
		c.Auth.Username,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}
