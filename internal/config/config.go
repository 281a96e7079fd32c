// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coverline/benefitcache/api"
	"github.com/hashicorp/go-secure-stdlib/parseutil"
	"github.com/hashicorp/hcl"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix prefixes every environment variable that overrides the file
	// configuration, for example BENEFITS_CACHE_LISTEN_ADDR.
	EnvPrefix = "BENEFITS_CACHE"

	DefaultListenAddr      = "127.0.0.1:9209"
	DefaultRefreshInterval = 5 * time.Minute
	DefaultRefreshJitter   = 0.2
	DefaultFetchTimeout    = time.Minute

	devConfig = `
daemon {
	listen_addr = "127.0.0.1:9209"
	refresh_interval = "1m"
}

log {
	level = "debug"
	format = "standard"
}
`
)

// Config is the configuration of the cache daemon
type Config struct {
	Api    *Api    `hcl:"api"`
	Daemon *Daemon `hcl:"daemon"`
	Log    *Log    `hcl:"log"`
}

// Api configures the client used to reach the benefits API. Values set through
// the BENEFITS_* environment variables read by the api package take
// precedence.
type Api struct {
	Addr string `hcl:"addr"`
	// Token may be given directly or as an env:// or file:// reference.
	Token         string `hcl:"token"`
	RateLimit     string `hcl:"rate_limit"`
	MaxRetries    int    `hcl:"max_retries"`
	CACert        string `hcl:"ca_cert"`
	TLSSkipVerify bool   `hcl:"tls_skip_verify"`

	TimeoutRaw any           `hcl:"timeout"`
	Timeout    time.Duration `hcl:"-"`
}

type Daemon struct {
	// ListenAddr is a host:port or a unix:// socket path
	ListenAddr string `hcl:"listen_addr"`

	RefreshIntervalRaw any           `hcl:"refresh_interval"`
	RefreshInterval    time.Duration `hcl:"-"`
	// RefreshJitter is the randomization factor applied to RefreshInterval,
	// between 0 and 1.
	RefreshJitter float64 `hcl:"refresh_jitter"`

	FetchTimeoutRaw any           `hcl:"fetch_timeout"`
	FetchTimeout    time.Duration `hcl:"-"`

	DisablePrefetch bool `hcl:"disable_prefetch"`
	DisableMetrics  bool `hcl:"disable_metrics"`
}

type Log struct {
	Level  string `hcl:"level"`
	Format string `hcl:"format"`
	// File enables logging to a rotated file in addition to stderr
	File       string `hcl:"file"`
	MaxSizeMb  int    `hcl:"max_size_mb"`
	MaxBackups int    `hcl:"max_backups"`
	MaxAgeDays int    `hcl:"max_age_days"`
}

// env holds the environment overrides. Pointers stay nil when the variable
// is unset.
type env struct {
	ApiAddr         *string  `envconfig:"API_ADDR"`
	ListenAddr      *string  `envconfig:"LISTEN_ADDR"`
	RefreshInterval *string  `envconfig:"REFRESH_INTERVAL"`
	RefreshJitter   *float64 `envconfig:"REFRESH_JITTER"`
	FetchTimeout    *string  `envconfig:"FETCH_TIMEOUT"`
	DisablePrefetch *bool    `envconfig:"DISABLE_PREFETCH"`
	LogLevel        *string  `envconfig:"LOG_LEVEL"`
	LogFormat       *string  `envconfig:"LOG_FORMAT"`
	LogFile         *string  `envconfig:"LOG_FILE"`
}

// New returns an empty configuration with every block allocated
func New() *Config {
	return &Config{
		Api:    &Api{},
		Daemon: &Daemon{},
		Log:    &Log{},
	}
}

// Dev returns the configuration used by `start -dev`
func Dev() (*Config, error) {
	return Parse(devConfig)
}

// LoadFile loads the configuration from the given file.
func LoadFile(path string) (*Config, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(d))
}

// Parse decodes HCL configuration and fills in defaults
func Parse(d string) (*Config, error) {
	obj, err := hcl.Parse(d)
	if err != nil {
		return nil, err
	}

	result := New()
	if err := hcl.DecodeObject(result, obj); err != nil {
		return nil, err
	}
	if result.Api == nil {
		result.Api = &Api{}
	}
	if result.Daemon == nil {
		result.Daemon = &Daemon{}
	}
	if result.Log == nil {
		result.Log = &Log{}
	}

	if result.Api.Timeout, err = parseDuration(result.Api.TimeoutRaw, "api.timeout"); err != nil {
		return nil, err
	}
	if result.Daemon.RefreshInterval, err = parseDuration(result.Daemon.RefreshIntervalRaw, "daemon.refresh_interval"); err != nil {
		return nil, err
	}
	if result.Daemon.FetchTimeout, err = parseDuration(result.Daemon.FetchTimeoutRaw, "daemon.fetch_timeout"); err != nil {
		return nil, err
	}
	result.setDefaults()
	return result, nil
}

func parseDuration(raw any, name string) (time.Duration, error) {
	if raw == nil {
		return 0, nil
	}
	d, err := parseutil.ParseDurationSecond(raw)
	if err != nil {
		return 0, fmt.Errorf("error parsing %s: %w", name, err)
	}
	return d, nil
}

func (c *Config) setDefaults() {
	if c.Daemon.ListenAddr == "" {
		c.Daemon.ListenAddr = DefaultListenAddr
	}
	if c.Daemon.RefreshInterval == 0 {
		c.Daemon.RefreshInterval = DefaultRefreshInterval
	}
	if c.Daemon.RefreshJitter == 0 {
		c.Daemon.RefreshJitter = DefaultRefreshJitter
	}
	if c.Daemon.FetchTimeout == 0 {
		c.Daemon.FetchTimeout = DefaultFetchTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "standard"
	}
}

// ApplyEnvironment overlays the BENEFITS_CACHE_* environment variables onto
// c. If there is an error, c is left unchanged.
func (c *Config) ApplyEnvironment() error {
	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return err
	}
	var (
		refresh, fetch time.Duration
		err            error
	)
	if e.RefreshInterval != nil {
		if refresh, err = parseDuration(*e.RefreshInterval, EnvPrefix+"_REFRESH_INTERVAL"); err != nil {
			return err
		}
	}
	if e.FetchTimeout != nil {
		if fetch, err = parseDuration(*e.FetchTimeout, EnvPrefix+"_FETCH_TIMEOUT"); err != nil {
			return err
		}
	}

	if e.ApiAddr != nil {
		c.Api.Addr = *e.ApiAddr
	}
	if e.ListenAddr != nil {
		c.Daemon.ListenAddr = *e.ListenAddr
	}
	if refresh > 0 {
		c.Daemon.RefreshInterval = refresh
	}
	if e.RefreshJitter != nil {
		c.Daemon.RefreshJitter = *e.RefreshJitter
	}
	if fetch > 0 {
		c.Daemon.FetchTimeout = fetch
	}
	if e.DisablePrefetch != nil {
		c.Daemon.DisablePrefetch = *e.DisablePrefetch
	}
	if e.LogLevel != nil {
		c.Log.Level = *e.LogLevel
	}
	if e.LogFormat != nil {
		c.Log.Format = *e.LogFormat
	}
	if e.LogFile != nil {
		c.Log.File = *e.LogFile
	}
	return nil
}

// Validate checks values the daemon cannot start with
func (c *Config) Validate() error {
	var errs []error
	if c.Daemon.RefreshInterval < time.Second {
		errs = append(errs, fmt.Errorf("daemon.refresh_interval must be at least 1s, got %s", c.Daemon.RefreshInterval))
	}
	if c.Daemon.RefreshJitter < 0 || c.Daemon.RefreshJitter > 1 {
		errs = append(errs, fmt.Errorf("daemon.refresh_jitter must be between 0 and 1, got %v", c.Daemon.RefreshJitter))
	}
	if c.Api.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("api.max_retries must not be negative"))
	}
	if c.Log.MaxSizeMb < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		errs = append(errs, fmt.Errorf("log rotation limits must not be negative"))
	}
	return errors.Join(errs...)
}

// ApiClient builds the benefits API client. The api package's BENEFITS_*
// environment variables win over the file values.
func (c *Config) ApiClient() (*api.Client, error) {
	cfg, err := api.DefaultConfig()
	if err != nil {
		return nil, err
	}
	if cfg.TLSConfig == nil && (c.Api.CACert != "" || c.Api.TLSSkipVerify) {
		cfg.TLSConfig = &api.TLSConfig{CACert: c.Api.CACert, Insecure: c.Api.TLSSkipVerify}
		if err := cfg.ConfigureTLS(); err != nil {
			return nil, fmt.Errorf("error configuring tls: %w", err)
		}
	}
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	if c.Api.Addr != "" && os.Getenv(api.EnvBenefitsAddr) == "" {
		if err := client.SetAddr(c.Api.Addr); err != nil {
			return nil, err
		}
	}
	if c.Api.Token != "" && os.Getenv(api.EnvBenefitsToken) == "" {
		token, err := ParseAddress(c.Api.Token)
		if err != nil && !errors.Is(err, ErrNotAUrl) {
			return nil, err
		}
		client.SetToken(strings.TrimSpace(token))
	}
	if c.Api.Timeout > 0 && os.Getenv(api.EnvBenefitsClientTimeout) == "" {
		client.SetClientTimeout(c.Api.Timeout)
	}
	if c.Api.MaxRetries > 0 && os.Getenv(api.EnvBenefitsMaxRetries) == "" {
		client.SetMaxRetries(c.Api.MaxRetries)
	}
	if c.Api.RateLimit != "" && os.Getenv(api.EnvBenefitsRateLimit) == "" {
		r, burst, err := api.ParseRateLimit(c.Api.RateLimit)
		if err != nil {
			return nil, err
		}
		client.SetLimiter(r, burst)
	}
	return client, nil
}

var ErrNotAUrl = errors.New("not a url")

// ParseAddress parses a URL with schemes file://, env://, or any other.
// Depending on the scheme it will return specific types of data:
//
// * file:// will return a string with the file's contents
//
// * env:// will return a string with the env var's contents
//
// * anything else will return the string as it was
//
// On error, we return the original string along with the error. The caller can
// switch on ErrNotAUrl to understand whether it was the parsing step that
// errored or something else.
func ParseAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	parsed, err := url.Parse(addr)
	if err != nil {
		return addr, ErrNotAUrl
	}
	switch parsed.Scheme {
	case "file":
		contents, err := os.ReadFile(strings.TrimPrefix(addr, "file://"))
		if err != nil {
			return addr, fmt.Errorf("error reading file at %s: %w", addr, err)
		}
		return string(contents), nil
	case "env":
		return os.Getenv(strings.TrimPrefix(addr, "env://")), nil
	}

	return addr, nil
}
