package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/delta10/ows-discovery/internal/fetch"
	"github.com/delta10/ows-discovery/internal/probe"
	"github.com/delta10/ows-discovery/internal/utils"
)

type Path struct {
	Path       string `yaml:"path"`
	LogBackend string `yaml:"logBackend"`
	Filter     string `yaml:"filter"`
}

type LogBackend struct {
	BaseURL string            `yaml:"baseUrl"`
	Labels  map[string]string `yaml:"labels"`
}

type Discovery struct {
	UserAgent            string            `yaml:"userAgent"`
	CapabilitiesTimeout  time.Duration     `yaml:"capabilitiesTimeout"`
	GeoJSONTimeout       time.Duration     `yaml:"geojsonTimeout"`
	TileTimeout          time.Duration     `yaml:"tileTimeout"`
	MaxCapabilitiesBytes int64             `yaml:"maxCapabilitiesBytes"`
	MaxGeoJSONBytes      int64             `yaml:"maxGeoJSONBytes"`
	ArcGISLayerQuery     string            `yaml:"arcgisLayerQuery"`
	TemplateVars         map[string]string `yaml:"templateVars"`
}

type Config struct {
	ListenAddress   string                `yaml:"listenAddress"`
	JwksURL         string                `yaml:"jwksUrl"`
	AllowedGroups   []string              `yaml:"allowedGroups"`
	AuditLogBackend string                `yaml:"auditLogBackend"`
	LogLevel        string                `yaml:"logLevel"`
	LogEncoding     string                `yaml:"logEncoding"`
	Paths           []Path                `yaml:"paths"`
	LogBackends     map[string]LogBackend `yaml:"logBackends"`
	Discovery       Discovery             `yaml:"discovery"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		ListenAddress: ":8080",
		Discovery: Discovery{
			UserAgent:            fetch.DefaultUserAgent,
			CapabilitiesTimeout:  10 * time.Second,
			GeoJSONTimeout:       10 * time.Second,
			TileTimeout:          5 * time.Second,
			MaxCapabilitiesBytes: fetch.MaxCapabilitiesBytes,
			MaxGeoJSONBytes:      fetch.MaxGeoJSONBytes,
		},
	}
}

// NewConfig returns a new decoded Config struct
func NewConfig(configPath string) (*Config, error) {
	// Start from the defaults so that omitted keys keep them
	config := Default()

	// Open config file
	file, err := os.Open(configPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// Init new YAML decode
	d := yaml.NewDecoder(file)

	// Start YAML decoding from file
	if err := d.Decode(config); err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", configPath, err)
	}

	config.expandEnv()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return config, nil
}

// expandEnv substitutes ${NAME} environment variables in values that
// commonly carry secrets or deployment specific hosts.
func (c *Config) expandEnv() {
	c.JwksURL = utils.EnvSubst(c.JwksURL)
	for name, backend := range c.LogBackends {
		backend.BaseURL = utils.EnvSubst(backend.BaseURL)
		c.LogBackends[name] = backend
	}
	for key, value := range c.Discovery.TemplateVars {
		c.Discovery.TemplateVars[key] = utils.EnvSubst(value)
	}
}

func (c *Config) validate() error {
	if c.AuditLogBackend != "" {
		if _, ok := c.LogBackends[c.AuditLogBackend]; !ok {
			return fmt.Errorf("audit log backend %q is not defined", c.AuditLogBackend)
		}
	}
	for _, p := range c.Paths {
		if p.Path == "" {
			return fmt.Errorf("path without a path value")
		}
		if p.LogBackend != "" {
			if _, ok := c.LogBackends[p.LogBackend]; !ok {
				return fmt.Errorf("path %s uses undefined log backend %q", p.Path, p.LogBackend)
			}
		}
	}
	return nil
}

// ProbeConfig converts the discovery block into a probe configuration.
func (c *Config) ProbeConfig() probe.Config {
	d := c.Discovery
	return probe.Config{
		Fetch: fetch.Config{
			UserAgent:            d.UserAgent,
			CapabilitiesTimeout:  d.CapabilitiesTimeout,
			GeoJSONTimeout:       d.GeoJSONTimeout,
			TileTimeout:          d.TileTimeout,
			MaxCapabilitiesBytes: d.MaxCapabilitiesBytes,
			MaxGeoJSONBytes:      d.MaxGeoJSONBytes,
		},
		TemplateVars:     d.TemplateVars,
		ArcGISLayerQuery: d.ArcGISLayerQuery,
	}
}
