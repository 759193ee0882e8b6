// Package config loads the cpix configuration: a YAML file, an optional
// .env file and CPIX_* environment overrides, applied in that order.
package config

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cpixkit/cpix/pkg/playready"
	"github.com/cpixkit/cpix/pkg/widevine"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CPIX_"

// Config is the complete cpix configuration.
type Config struct {
	LogLevel  string            `yaml:"log_level"`
	AuditLog  string            `yaml:"audit_log"`
	PlayReady PlayReadySettings `yaml:"playready"`
	Widevine  WidevineSettings  `yaml:"widevine"`
	Server    ServerSettings    `yaml:"server"`
}

// PlayReadySettings configures PlayReady header and key generation.
type PlayReadySettings struct {
	// LAURL is written as LA_URL into generated WRM headers.
	LAURL string `yaml:"la_url"`

	// KeySeed is the base64 key seed. KeySeedEnv, when set, names the
	// environment variable holding it instead.
	KeySeed    string `yaml:"key_seed"`
	KeySeedEnv string `yaml:"key_seed_env"`

	// Algorithm is AESCTR or AESCBC.
	Algorithm string `yaml:"algorithm"`

	// Checksum controls KID CHECKSUM attributes (AESCTR only).
	Checksum *bool `yaml:"checksum"`
}

// WidevineSettings configures the Widevine key server client.
type WidevineSettings struct {
	URL      string `yaml:"url"`
	Signer   string `yaml:"signer"`
	Provider string `yaml:"provider"`
	Policy   string `yaml:"policy"`

	// SignerKey and SignerIV are hex encoded. SignerKeyEnv, when set, names
	// the environment variable holding the key instead.
	SignerKey    string `yaml:"signer_key"`
	SignerKeyEnv string `yaml:"signer_key_env"`
	SignerIV     string `yaml:"signer_iv"`
}

// ServerSettings configures the REST API listener.
type ServerSettings struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the configuration used when no file is given. It points
// at the public PlayReady and Widevine test servers.
func Default() *Config {
	checksum := true
	return &Config{
		LogLevel: "warn",
		PlayReady: PlayReadySettings{
			LAURL:     playready.TestServerURL,
			KeySeed:   playready.TestServerKeySeed,
			Algorithm: string(playready.AESCTR),
			Checksum:  &checksum,
		},
		Widevine: WidevineSettings{
			URL:       widevine.TestURL,
			Signer:    widevine.TestSigner,
			Provider:  widevine.TestSigner,
			SignerKey: widevine.TestSignerKey,
			SignerIV:  widevine.TestSignerIV,
		},
		Server: ServerSettings{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load builds the configuration from path (optional), the .env file in the
// working directory (if any) and the environment. Values from the file
// override the defaults; environment variables override both.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file without overriding variables
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from CPIX_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("LOG_LEVEL", &c.LogLevel)
	str("AUDIT_LOG", &c.AuditLog)

	str("PLAYREADY_LA_URL", &c.PlayReady.LAURL)
	str("PLAYREADY_KEY_SEED", &c.PlayReady.KeySeed)
	str("PLAYREADY_ALGORITHM", &c.PlayReady.Algorithm)
	if v, ok := lookup(EnvPrefix + "PLAYREADY_CHECKSUM"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sPLAYREADY_CHECKSUM: %w", EnvPrefix, err)
		}
		c.PlayReady.Checksum = &b
	}

	str("WIDEVINE_URL", &c.Widevine.URL)
	str("WIDEVINE_SIGNER", &c.Widevine.Signer)
	str("WIDEVINE_PROVIDER", &c.Widevine.Provider)
	str("WIDEVINE_POLICY", &c.Widevine.Policy)
	str("WIDEVINE_SIGNER_KEY", &c.Widevine.SignerKey)
	str("WIDEVINE_SIGNER_IV", &c.Widevine.SignerIV)

	str("SERVER_HOST", &c.Server.Host)
	if v, ok := lookup(EnvPrefix + "SERVER_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sSERVER_PORT is not a valid integer: %w", EnvPrefix, err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level: %s", c.LogLevel)
	}

	if _, err := playready.ParseAlgorithm(c.PlayReady.Algorithm); err != nil {
		return fmt.Errorf("playready.algorithm: %w", err)
	}

	if _, err := decodeSecret(c.Widevine.SignerIV); err != nil {
		return fmt.Errorf("widevine.signer_iv: %w", err)
	}
	if c.Widevine.SignerKeyEnv == "" {
		if _, err := decodeSecret(c.Widevine.SignerKey); err != nil {
			return fmt.Errorf("widevine.signer_key: %w", err)
		}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// AlgorithmID returns the configured PlayReady ALGID, AESCTR when unset.
func (c *PlayReadySettings) AlgorithmID() playready.AlgorithmID {
	a, err := playready.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return playready.AESCTR
	}
	return a
}

// UseChecksum reports whether CHECKSUM attributes are written. Defaults to
// true.
func (c *PlayReadySettings) UseChecksum() bool {
	return c.Checksum == nil || *c.Checksum
}

// Seed returns the decoded key seed, read from KeySeedEnv when set.
func (c *PlayReadySettings) Seed() ([]byte, error) {
	s := c.KeySeed
	if c.KeySeedEnv != "" {
		s = os.Getenv(c.KeySeedEnv)
		if s == "" {
			return nil, fmt.Errorf("environment variable %s is not set or empty", c.KeySeedEnv)
		}
	}
	return playready.DecodeSeed(s)
}

// Key returns the decoded signer key, read from SignerKeyEnv when set. An
// empty key means requests are sent unsigned.
func (c *WidevineSettings) Key() ([]byte, error) {
	s := c.SignerKey
	if c.SignerKeyEnv != "" {
		s = os.Getenv(c.SignerKeyEnv)
		if s == "" {
			return nil, fmt.Errorf("environment variable %s is not set or empty", c.SignerKeyEnv)
		}
	}
	return decodeSecret(s)
}

// IV returns the decoded signer IV.
func (c *WidevineSettings) IV() ([]byte, error) {
	return decodeSecret(c.SignerIV)
}

// Client returns a key server client for these settings.
func (c *WidevineSettings) Client() (*widevine.Client, error) {
	key, err := c.Key()
	if err != nil {
		return nil, fmt.Errorf("widevine signer key: %w", err)
	}
	iv, err := c.IV()
	if err != nil {
		return nil, fmt.Errorf("widevine signer iv: %w", err)
	}
	return &widevine.Client{URL: c.URL, Signer: c.Signer, SignerKey: key, SignerIV: iv}, nil
}

// decodeSecret accepts hex, falling back to base64.
func decodeSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if b, err := hex.DecodeString(s); err == nil {
		return b, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New("neither hex nor base64")
	}
	return b, nil
}

// Address returns the listen address of the REST API.
func (s ServerSettings) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
