// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package config

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. SPACEGRAPH_GRAPH_URI.
const EnvPrefix = "SPACEGRAPH"

// Config is the top-level spacegraph configuration.
type Config struct {
	Networking NetworkingConfig `mapstructure:"networking"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Graph      GraphConfig      `mapstructure:"graph"`
	Wikidata   WikidataConfig   `mapstructure:"wikidata"`
	Search     SearchConfig     `mapstructure:"search"`
	Ontology   OntologyConfig   `mapstructure:"ontology"`
}

// NetworkingConfig controls the HTTP listener.
type NetworkingConfig struct {
	Listen         string   `mapstructure:"listen"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
}

// StorageConfig selects the relational store.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// GraphConfig holds the property graph connection settings. Password may be
// a keyring://service/key reference.
type GraphConfig struct {
	Backend               string        `mapstructure:"backend"`
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	Database              string        `mapstructure:"database"`
	ConnectTimeout        time.Duration `mapstructure:"connect_timeout"`
	MaxConnectionLifetime time.Duration `mapstructure:"max_connection_lifetime"`
}

// WikidataConfig controls the Wikidata client and its caches.
type WikidataConfig struct {
	EntityDataURL string        `mapstructure:"entity_data_url"`
	APIURL        string        `mapstructure:"api_url"`
	Language      string        `mapstructure:"language"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxProperties int           `mapstructure:"max_properties"`
	ClaimsTTL     time.Duration `mapstructure:"claims_ttl"`
	LabelsTTL     time.Duration `mapstructure:"labels_ttl"`
	RequestDelay  time.Duration `mapstructure:"request_delay"`
}

// SearchConfig bounds subgraph expansion.
type SearchConfig struct {
	MaxPaths int `mapstructure:"max_paths"`
	MaxDepth int `mapstructure:"max_depth"`
}

// OntologyConfig points at an optional instance-type group table. An empty
// GroupsFile uses the built-in table.
type OntologyConfig struct {
	GroupsFile string `mapstructure:"groups_file"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("networking.listen", "127.0.0.1:8000")
	v.SetDefault("networking.cors_origins", []string{})
	v.SetDefault("networking.rate_limit_rps", 0)
	v.SetDefault("networking.rate_limit_burst", 0)

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "spacegraph.db")

	v.SetDefault("graph.backend", "neo4j")
	v.SetDefault("graph.uri", "bolt://localhost:7687")
	v.SetDefault("graph.user", "neo4j")
	v.SetDefault("graph.password", "")
	v.SetDefault("graph.database", "")
	v.SetDefault("graph.connect_timeout", 30*time.Second)
	v.SetDefault("graph.max_connection_lifetime", time.Hour)

	v.SetDefault("wikidata.entity_data_url", "https://www.wikidata.org/wiki/Special:EntityData")
	v.SetDefault("wikidata.api_url", "https://www.wikidata.org/w/api.php")
	v.SetDefault("wikidata.language", "en")
	v.SetDefault("wikidata.timeout", 5*time.Second)
	v.SetDefault("wikidata.max_properties", 50)
	v.SetDefault("wikidata.claims_ttl", 24*time.Hour)
	v.SetDefault("wikidata.labels_ttl", 168*time.Hour)
	v.SetDefault("wikidata.request_delay", time.Second)

	v.SetDefault("search.max_paths", 5000)
	v.SetDefault("search.max_depth", 5)

	v.SetDefault("ontology.groups_file", "")
}

// SetupEnv binds SPACEGRAPH_* environment variables, mapping "." in keys to "_".
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, sgerr.Errorf(sgerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, sgerr.Errorf(sgerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Load reads configuration from path (or defaults only when path is empty)
// with SPACEGRAPH_ environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, sgerr.Errorf(sgerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// Validate checks the configuration for logical errors, collecting every
// issue rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateGraph()...)
	errs = append(errs, c.validateWikidata()...)
	errs = append(errs, c.validateSearch()...)

	return errs
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.RateLimitRPS < 0 {
		errs = append(errs, invalid("networking.rate_limit_rps must not be negative, got %g", c.Networking.RateLimitRPS))
	}
	if c.Networking.RateLimitRPS > 0 && c.Networking.RateLimitBurst < 1 {
		errs = append(errs, invalid("networking.rate_limit_burst must be at least 1 when rate limiting is enabled, got %d", c.Networking.RateLimitBurst))
	}

	if c.Networking.Listen == "" {
		return append(errs, invalid("networking.listen must not be empty"))
	}

	_, portStr, err := net.SplitHostPort(c.Networking.Listen)
	if err != nil {
		return append(errs, sgerr.Errorf(sgerr.CodeConfigValidateInvalidValue,
			"config: networking.listen must be a valid host:port address, got %q: %w",
			c.Networking.Listen, err,
		))
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, invalid("networking.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, invalid("networking.listen port must be between 1 and 65535, got %d", port))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	if c.Storage.Backend != "sqlite" {
		errs = append(errs, invalid("storage.backend must be one of [sqlite], got %q", c.Storage.Backend))
	}
	if c.Storage.Path == "" {
		errs = append(errs, invalid("storage.path must not be empty"))
	}

	return errs
}

func (c *Config) validateGraph() []error {
	var errs []error

	switch c.Graph.Backend {
	case "memory":
		return nil
	case "neo4j":
	default:
		return append(errs, invalid("graph.backend must be one of [neo4j, memory], got %q", c.Graph.Backend))
	}

	if u, err := url.Parse(c.Graph.URI); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, invalid("graph.uri must be a URL such as bolt://host:7687, got %q", c.Graph.URI))
	}
	if c.Graph.ConnectTimeout <= 0 {
		errs = append(errs, invalid("graph.connect_timeout must be greater than 0, got %s", c.Graph.ConnectTimeout))
	}
	if c.Graph.MaxConnectionLifetime <= 0 {
		errs = append(errs, invalid("graph.max_connection_lifetime must be greater than 0, got %s", c.Graph.MaxConnectionLifetime))
	}

	return errs
}

func (c *Config) validateWikidata() []error {
	var errs []error

	for key, raw := range map[string]string{
		"wikidata.entity_data_url": c.Wikidata.EntityDataURL,
		"wikidata.api_url":         c.Wikidata.APIURL,
	} {
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, invalid("%s must be an http(s) URL, got %q", key, raw))
		}
	}
	if c.Wikidata.Timeout <= 0 {
		errs = append(errs, invalid("wikidata.timeout must be greater than 0, got %s", c.Wikidata.Timeout))
	}
	if c.Wikidata.MaxProperties <= 0 {
		errs = append(errs, invalid("wikidata.max_properties must be greater than 0, got %d", c.Wikidata.MaxProperties))
	}
	if c.Wikidata.ClaimsTTL <= 0 || c.Wikidata.LabelsTTL <= 0 {
		errs = append(errs, invalid("wikidata cache TTLs must be greater than 0, got claims=%s labels=%s",
			c.Wikidata.ClaimsTTL, c.Wikidata.LabelsTTL))
	}
	if c.Wikidata.RequestDelay < 0 {
		errs = append(errs, invalid("wikidata.request_delay must not be negative, got %s", c.Wikidata.RequestDelay))
	}

	return errs
}

func (c *Config) validateSearch() []error {
	var errs []error

	if c.Search.MaxPaths <= 0 {
		errs = append(errs, invalid("search.max_paths must be greater than 0, got %d", c.Search.MaxPaths))
	}
	if c.Search.MaxDepth <= 0 {
		errs = append(errs, invalid("search.max_depth must be greater than 0, got %d", c.Search.MaxDepth))
	}

	return errs
}

func invalid(format string, args ...any) error {
	return sgerr.Errorf(sgerr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}
