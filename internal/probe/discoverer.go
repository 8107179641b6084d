package probe

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/delta10/ows-discovery/internal/arcgis"
	"github.com/delta10/ows-discovery/internal/fetch"
	"github.com/delta10/ows-discovery/internal/geojson"
	"github.com/delta10/ows-discovery/internal/urlnorm"
	"github.com/delta10/ows-discovery/internal/utils"
	"github.com/delta10/ows-discovery/internal/wfs"
	"github.com/delta10/ows-discovery/internal/wms"
	"github.com/delta10/ows-discovery/internal/wmts"
	"github.com/delta10/ows-discovery/internal/xyz"
)

// Config is passed explicitly to every discovery call.
type Config struct {
	Fetch fetch.Config

	// TemplateVars expand ${NAME} placeholders in the raw URL, e.g. API keys.
	TemplateVars map[string]string

	// ArcGISLayerQuery is a jq expression selecting the layer id from an
	// ArcGIS service description. Empty means arcgis.DefaultLayerQuery.
	ArcGISLayerQuery string
}

// Discoverer resolves URLs to services.
type Discoverer struct {
	config Config
	logger *zap.Logger

	wms     *wms.Client
	wmts    *wmts.Client
	wfs     *wfs.Client
	geojson *geojson.Client
	xyz     *xyz.Client
}

// NewDiscoverer builds the protocol clients for config. A nil logger
// disables logging.
func NewDiscoverer(config Config, logger *zap.Logger) (*Discoverer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	f := fetch.NewClientWithConfig(config.Fetch)
	layerQuery := config.ArcGISLayerQuery
	if layerQuery == "" {
		layerQuery = arcgis.DefaultLayerQuery
	}
	a, err := arcgis.NewClientWithLayerQuery(f, layerQuery)
	if err != nil {
		return nil, err
	}

	return &Discoverer{
		config:  config,
		logger:  logger,
		wms:     wms.NewClient(f),
		wmts:    wmts.NewClient(f),
		wfs:     wfs.NewClient(f),
		geojson: geojson.NewClient(f, a),
		xyz:     xyz.NewClient(f),
	}, nil
}

// LoadService normalizes rawURL and runs the discovery cascade on it. It
// never fails; problems are reported in ServiceInfo.Error.
func (d *Discoverer) LoadService(ctx context.Context, rawURL string) *ServiceInfo {
	expanded := utils.ExpandVars(rawURL, d.config.TemplateVars)

	u, err := urlnorm.Normalize(expanded)
	if err != nil {
		d.logger.Debug("invalid service URL", zap.String("url", rawURL), zap.Error(err))
		return &ServiceInfo{
			ServiceURL: rawURL,
			Error:      err.Error(),
			ErrorKind:  fetch.KindOf(err),
		}
	}

	info := Run(ctx, u, d.Steps(), d.logger)
	d.logger.Info("service discovered",
		zap.String("url", info.ServiceURL),
		zap.String("type", string(info.Type)),
		zap.String("error", info.Error),
	)
	return info
}

// Steps returns the cascade in priority order: a GeoJSON GetFeature link,
// WFS capabilities, direct GeoJSON (with ArcGIS and WFS bridging), WMS,
// WMTS, and finally XYZ, since almost any path can pass for a tile URL.
func (d *Discoverer) Steps() []Step {
	return []Step{
		{
			Name:    "wfs-getfeature",
			Type:    TypeGeoJSON,
			Applies: wfs.IsGeoJSONGetFeature,
			Probe:   d.probeGeoJSON,
		},
		{Name: "wfs", Type: TypeWFS, Probe: d.probeWFS},
		{Name: "geojson", Type: TypeGeoJSON, Probe: d.probeGeoJSON},
		{Name: "wms", Type: TypeWMS, Probe: d.probeWMS},
		{Name: "wmts", Type: TypeWMTS, Probe: d.probeWMTS},
		{Name: "xyz", Type: TypeXYZ, Probe: d.probeXYZ},
	}
}

func (d *Discoverer) probeWFS(ctx context.Context, u *url.URL) (*Found, error) {
	res, err := d.wfs.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	return &Found{Title: res.Title, Capabilities: res.Capabilities}, nil
}

func (d *Discoverer) probeGeoJSON(ctx context.Context, u *url.URL) (*Found, error) {
	res, err := d.geojson.Probe(ctx, u)
	if err != nil {
		return nil, err
	}
	return &Found{URL: res.Capabilities.URL, Title: res.Title, Capabilities: res.Capabilities}, nil
}

func (d *Discoverer) probeWMS(ctx context.Context, u *url.URL) (*Found, error) {
	res, err := d.wms.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	return &Found{Title: res.Title, Capabilities: res.Capabilities}, nil
}

func (d *Discoverer) probeWMTS(ctx context.Context, u *url.URL) (*Found, error) {
	res, err := d.wmts.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	return &Found{Title: res.Title, Capabilities: res.Capabilities}, nil
}

func (d *Discoverer) probeXYZ(ctx context.Context, u *url.URL) (*Found, error) {
	res, err := d.xyz.Probe(ctx, u)
	if err != nil {
		return nil, err
	}
	return &Found{URL: res.Capabilities.Template, Title: res.Title, Capabilities: res.Capabilities}, nil
}
