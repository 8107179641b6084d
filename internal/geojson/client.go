package geojson

import (
	"context"
	"net/url"

	"github.com/delta10/ows-discovery/internal/arcgis"
	"github.com/delta10/ows-discovery/internal/fetch"
	"github.com/delta10/ows-discovery/internal/heuristics"
	"github.com/delta10/ows-discovery/internal/wfs"
)

// Accept header sent with GeoJSON requests.
const acceptJSON = "application/geo+json, application/json;q=0.9, application/vnd.geo+json;q=0.9, text/plain;q=0.5, */*;q=0.1"

// Sources of a GeoJSON result.
const (
	SourceDirect = "direct"
	SourceArcGIS = "arcgis"
	SourceWFS    = "wfs"
)

// Client tests URLs for GeoJSON content.
type Client struct {
	fetch  *fetch.Client
	arcgis *arcgis.Client
}

// Capabilities describes a GeoJSON endpoint.
type Capabilities struct {
	URL      string      `json:"url"`
	Source   string      `json:"source"`
	Analysis *Analysis   `json:"analysis"`
	ArcGIS   *ArcGISInfo `json:"arcgis,omitempty"`
}

// ArcGISInfo records the ArcGIS service a GeoJSON query URL was built from.
type ArcGISInfo struct {
	BaseURL      string         `json:"baseUrl"`
	ServiceType  string         `json:"serviceType"`
	LayerID      int            `json:"layerId"`
	LayerName    string         `json:"layerName,omitempty"`
	GeometryType string         `json:"geometryType"`
	QueryURL     string         `json:"queryUrl"`
	Layers       []arcgis.Layer `json:"layers,omitempty"`
}

// Result is a successfully analyzed GeoJSON endpoint.
type Result struct {
	Title        string
	Capabilities *Capabilities
}

func NewClient(f *fetch.Client, a *arcgis.Client) *Client {
	return &Client{fetch: f, arcgis: a}
}

// TestURL fetches rawURL and analyzes it when it is GeoJSON. An HTML page
// served under a text content type is rejected by its title.
func (c *Client) TestURL(ctx context.Context, rawURL string) (*Analysis, error) {
	resp, err := c.fetch.Get(ctx, rawURL, acceptJSON, c.fetch.Config().GeoJSONTimeout, c.fetch.GeoJSONGuard())
	if err != nil {
		return nil, err
	}
	if fetch.LooksLikeHTML(resp.Body) {
		return nil, fetch.Errorf(fetch.KindInvalidContentType, rawURL, "unexpected %s with content type %q, expected json", fetch.DescribeHTML(resp.Body), resp.ContentType())
	}

	doc, err := Decode(resp.Body)
	if err != nil {
		return nil, fetch.Wrap(fetch.KindInvalidGeoJSON, rawURL, err)
	}
	return Analyze(doc), nil
}

// Probe resolves u to GeoJSON. ArcGIS service URLs are bridged to a layer
// query; other URLs are fetched directly, and a GetFeature request that did
// not return GeoJSON is retried with a JSON output format.
func (c *Client) Probe(ctx context.Context, u *url.URL) (*Result, error) {
	if _, ok := arcgis.ParseServiceURL(u); ok {
		return c.probeArcGIS(ctx, u)
	}

	analysis, err := c.TestURL(ctx, u.String())
	if err == nil {
		title := analysis.Name
		if title == "" {
			title = heuristics.TitleFromURL(u)
		}
		return &Result{
			Title: title,
			Capabilities: &Capabilities{
				URL:      u.String(),
				Source:   SourceDirect,
				Analysis: analysis,
			},
		}, nil
	}

	rewritten, ok := wfs.RewriteAsGeoJSON(u)
	if !ok || rewritten == u.String() {
		return nil, err
	}

	analysis, err = c.TestURL(ctx, rewritten)
	if err != nil {
		return nil, err
	}
	title := analysis.Name
	if title == "" {
		title = wfsTypeName(u)
	}
	return &Result{
		Title: title,
		Capabilities: &Capabilities{
			URL:      rewritten,
			Source:   SourceWFS,
			Analysis: analysis,
		},
	}, nil
}

func (c *Client) probeArcGIS(ctx context.Context, u *url.URL) (*Result, error) {
	probe, err := c.arcgis.Probe(ctx, u)
	if err != nil {
		return nil, err
	}

	analysis, err := c.TestURL(ctx, probe.QueryURL)
	if err != nil {
		return nil, err
	}

	layer := probe.SelectedLayer
	title := layer.Name
	if title == "" {
		title = probe.ServiceInfo.Title()
	}
	if title == "" {
		title = heuristics.TitleFromURL(u)
	}

	return &Result{
		Title: title,
		Capabilities: &Capabilities{
			URL:      probe.QueryURL,
			Source:   SourceArcGIS,
			Analysis: analysis,
			ArcGIS: &ArcGISInfo{
				BaseURL:      probe.BaseURL,
				ServiceType:  probe.ServiceType,
				LayerID:      layer.ID,
				LayerName:    layer.Name,
				GeometryType: heuristics.GeometryType(layer.GeometryType, nil, layer.Name),
				QueryURL:     probe.QueryURL,
				Layers:       probe.ServiceInfo.Layers,
			},
		},
	}, nil
}

func wfsTypeName(u *url.URL) string {
	q := u.Query()
	for _, key := range []string{"typeNames", "typeName", "TYPENAMES", "TYPENAME"} {
		if v := q.Get(key); v != "" {
			return v
		}
	}
	return heuristics.TitleFromURL(u)
}
