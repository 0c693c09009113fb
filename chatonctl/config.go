package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bringyour/chaton/comet"
)

const DefaultCookiePath = "/"

const DefaultCountPath = "var/seq"
const DefaultPostPath = "chaton-poster"

var (
	ErrMissingUrl = errors.New("missing url")
	ErrBadConfig  = errors.New("bad config")
)

// precedence, lowest first: defaults, yaml file, environment, command line
type Config struct {
	// room page root
	Url string `yaml:"url"`
	// defaults to `Url`
	CometUrl string `yaml:"comet_url"`
	// defaults to `Url` + `DefaultCountPath`
	CountUrl string `yaml:"count_url"`
	// defaults to `Url` + `DefaultPostPath`
	PostUrl string `yaml:"post_url"`

	Room string `yaml:"room"`
	// overrides the build version compared against the server version
	Version string `yaml:"version"`

	RetryDelay   time.Duration `yaml:"retry_delay"`
	PollInterval time.Duration `yaml:"poll_interval"`

	CookiePath string `yaml:"cookie_path"`
	// empty keeps the remembered nick in memory only
	DataDir string `yaml:"data_dir"`

	MetricsAddr string `yaml:"metrics_addr"`
	Plain       bool   `yaml:"plain"`
}

func DefaultConfig() *Config {
	clientSettings := comet.DefaultClientSettings()
	return &Config{
		Version:      clientSettings.Version,
		RetryDelay:   clientSettings.RetryDelay,
		PollInterval: clientSettings.PollInterval,
		CookiePath:   DefaultCookiePath,
	}
}

// reads the yaml file at `path` over the defaults. An empty path uses only the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, config); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrBadConfig, path, err)
	}
	return config, nil
}

// applies `CHATON_*` variables
func (self *Config) ApplyEnv(lookupEnv func(string) (string, bool)) error {
	stringFields := map[string]*string{
		"CHATON_URL":          &self.Url,
		"CHATON_COMET_URL":    &self.CometUrl,
		"CHATON_COUNT_URL":    &self.CountUrl,
		"CHATON_POST_URL":     &self.PostUrl,
		"CHATON_ROOM":         &self.Room,
		"CHATON_VERSION":      &self.Version,
		"CHATON_COOKIE_PATH":  &self.CookiePath,
		"CHATON_DATA_DIR":     &self.DataDir,
		"CHATON_METRICS_ADDR": &self.MetricsAddr,
	}
	for name, value := range stringFields {
		if v, ok := lookupEnv(name); ok {
			*value = v
		}
	}

	durations := map[string]*time.Duration{
		"CHATON_RETRY_DELAY":   &self.RetryDelay,
		"CHATON_POLL_INTERVAL": &self.PollInterval,
	}
	for name, value := range durations {
		if v, ok := lookupEnv(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%w %s: %w", ErrBadConfig, name, err)
			}
			*value = d
		}
	}

	if v, ok := lookupEnv("CHATON_PLAIN"); ok {
		plain, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w CHATON_PLAIN: %w", ErrBadConfig, err)
		}
		self.Plain = plain
	}
	return nil
}

func (self *Config) Validate() error {
	if self.Url == "" && self.CometUrl == "" {
		return ErrMissingUrl
	}
	if self.RetryDelay <= 0 {
		return fmt.Errorf("%w: retry_delay must be positive", ErrBadConfig)
	}
	if self.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive", ErrBadConfig)
	}
	if !strings.HasPrefix(self.CookiePath, "/") {
		return fmt.Errorf("%w: cookie_path must start with /", ErrBadConfig)
	}
	return nil
}

func (self *Config) Endpoints() *comet.Endpoints {
	root := self.Url
	if root == "" {
		root = self.CometUrl
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}

	endpoints := &comet.Endpoints{
		CometUrl: self.CometUrl,
		CountUrl: self.CountUrl,
		PostUrl:  self.PostUrl,
	}
	if endpoints.CometUrl == "" {
		endpoints.CometUrl = root
	}
	if endpoints.CountUrl == "" {
		endpoints.CountUrl = root + DefaultCountPath
	}
	if endpoints.PostUrl == "" {
		endpoints.PostUrl = root + DefaultPostPath
	}
	return endpoints
}

func (self *Config) ClientSettings() *comet.ClientSettings {
	settings := comet.DefaultClientSettings()
	settings.Version = self.Version
	settings.Room = self.Room
	settings.RetryDelay = self.RetryDelay
	settings.PollInterval = self.PollInterval
	return settings
}
