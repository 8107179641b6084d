// Package owsdiscovery detects whether a URL serves WMS, WMTS, WFS, GeoJSON
// or XYZ tiles and describes the service it found.
package owsdiscovery

import (
	"context"

	"github.com/delta10/ows-discovery/internal/config"
	"github.com/delta10/ows-discovery/internal/fetch"
	"github.com/delta10/ows-discovery/internal/logging"
	"github.com/delta10/ows-discovery/internal/probe"
)

type (
	ServiceInfo = probe.ServiceInfo
	ServiceType = probe.ServiceType
	Config      = probe.Config
	ErrorKind   = fetch.Kind
)

const (
	TypeWMS     = probe.TypeWMS
	TypeWMTS    = probe.TypeWMTS
	TypeWFS     = probe.TypeWFS
	TypeGeoJSON = probe.TypeGeoJSON
	TypeXYZ     = probe.TypeXYZ
)

// DefaultConfig returns the timeouts and size limits used by LoadService.
func DefaultConfig() Config {
	return config.Default().ProbeConfig()
}

// LoadService resolves rawURL with the default configuration. It never
// fails; problems are reported in ServiceInfo.Error.
func LoadService(ctx context.Context, rawURL string) *ServiceInfo {
	return LoadServiceWithConfig(ctx, DefaultConfig(), rawURL)
}

// LoadServiceWithConfig resolves rawURL with cfg.
func LoadServiceWithConfig(ctx context.Context, cfg Config, rawURL string) *ServiceInfo {
	d, err := probe.NewDiscoverer(cfg, logging.GetLogger())
	if err != nil {
		return &ServiceInfo{
			ServiceURL: rawURL,
			Error:      err.Error(),
			ErrorKind:  fetch.KindNoMatchingProtocol,
		}
	}
	return d.LoadService(ctx, rawURL)
}
