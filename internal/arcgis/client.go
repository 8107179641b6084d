// Package arcgis bridges ArcGIS REST FeatureServer and MapServer endpoints
// to GeoJSON query URLs.
package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/delta10/ows-discovery/internal/fetch"
	"github.com/delta10/ows-discovery/internal/utils"
)

// DefaultLayerQuery selects the first feature layer of a service
// description, or its first layer of any kind.
const DefaultLayerQuery = `first((.layers[]? | select((.type // "Feature Layer") == "Feature Layer")), .layers[]? | .id)`

var serviceURLPattern = regexp.MustCompile(`(?i)^(.*/rest/services/.+?/(FeatureServer|MapServer))(?:/(\d+))?(?:/query)?/?$`)

// ogcSegments are path segments of the OGC endpoints ArcGIS Server
// publishes next to its REST API.
var ogcSegments = []string{"wmsserver", "wfsserver", "wmts", "wmtscapabilities.xml"}

// ServiceURL is the parsed form of an ArcGIS REST service URL.
type ServiceURL struct {
	BaseURL     string
	ServiceType string
	LayerID     int
	HasLayer    bool
}

// ParseServiceURL recognizes .../rest/services/<name>/FeatureServer and
// MapServer URLs, optionally followed by a layer id and /query. WMS, WMTS
// and WFS endpoints hosted by ArcGIS Server are not REST service URLs.
func ParseServiceURL(u *url.URL) (ServiceURL, bool) {
	if IsOGCEndpoint(u) {
		return ServiceURL{}, false
	}

	bare := url.URL{Scheme: u.Scheme, User: u.User, Host: u.Host, Path: u.Path}
	m := serviceURLPattern.FindStringSubmatch(bare.String())
	if m == nil {
		return ServiceURL{}, false
	}

	s := ServiceURL{BaseURL: m[1], ServiceType: "MapServer"}
	if strings.EqualFold(m[2], "FeatureServer") {
		s.ServiceType = "FeatureServer"
	}
	if m[3] != "" {
		id, err := strconv.Atoi(m[3])
		if err == nil {
			s.LayerID = id
			s.HasLayer = true
		}
	}
	return s, true
}

// IsOGCEndpoint reports whether u names an OGC service, by its service
// parameter or by an ArcGIS WMSServer, WFSServer or WMTS path.
func IsOGCEndpoint(u *url.URL) bool {
	switch strings.ToUpper(utils.GetParam(u.Query(), "service")) {
	case "WMS", "WMTS", "WFS":
		return true
	}

	for _, segment := range strings.Split(strings.ToLower(u.Path), "/") {
		if utils.StringInSlice(segment, ogcSegments) {
			return true
		}
	}
	return false
}

// QueryURL builds the GeoJSON query for a layer of the service at baseURL.
func QueryURL(baseURL string, layerID int) string {
	return strings.TrimRight(baseURL, "/") + "/" + strconv.Itoa(layerID) + "/query?where=1=1&outFields=*&f=geojson&resultRecordCount=1000"
}

// Client describes ArcGIS services.
type Client struct {
	fetch      *fetch.Client
	layerQuery *gojq.Code
}

// NewClient creates a client that selects layers with DefaultLayerQuery.
func NewClient(f *fetch.Client) *Client {
	c, err := NewClientWithLayerQuery(f, DefaultLayerQuery)
	if err != nil {
		panic(err)
	}
	return c
}

// NewClientWithLayerQuery creates a client with a custom jq expression for
// picking the layer id out of a service description.
func NewClientWithLayerQuery(f *fetch.Client, layerQuery string) (*Client, error) {
	query, err := gojq.Parse(layerQuery)
	if err != nil {
		return nil, fmt.Errorf("could not parse layer query: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("could not compile layer query: %w", err)
	}
	return &Client{fetch: f, layerQuery: code}, nil
}

// Describe fetches the JSON description of the service at baseURL. It
// returns the typed metadata and the raw document.
func (c *Client) Describe(ctx context.Context, baseURL string) (*ServiceMetadata, interface{}, error) {
	describeURL := strings.TrimRight(baseURL, "/") + "?f=json"
	cfg := c.fetch.Config()
	guard := fetch.Guard{MaxBytes: cfg.MaxCapabilitiesBytes, Expect: "json", Accept: fetch.IsJSONContentType}

	resp, err := c.fetch.Get(ctx, describeURL, "application/json", cfg.GeoJSONTimeout, guard)
	if err != nil {
		return nil, nil, err
	}

	var meta ServiceMetadata
	if err := json.Unmarshal(resp.Body, &meta); err != nil {
		return nil, nil, fetch.Errorf(fetch.KindInvalidDocument, describeURL, "invalid service description: %v", err)
	}
	if meta.Error != nil {
		return nil, nil, fetch.Errorf(fetch.KindInvalidDocument, describeURL, "service error %d: %s", meta.Error.Code, meta.Error.Message)
	}

	var raw interface{}
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, nil, fetch.Errorf(fetch.KindInvalidDocument, describeURL, "invalid service description: %v", err)
	}

	return &meta, raw, nil
}

// SelectLayer runs the layer query against a raw service description and
// returns the first numeric result.
func (c *Client) SelectLayer(ctx context.Context, description interface{}) (int, bool) {
	iter := c.layerQuery.RunWithContext(ctx, description)
	for {
		v, ok := iter.Next()
		if !ok {
			return 0, false
		}

		switch id := v.(type) {
		case error:
			continue
		case int:
			return id, true
		case float64:
			return int(id), true
		}
	}
}

// Probe describes the service behind u and builds the GeoJSON query URL
// for the layer named in u, or for the layer the layer query selects.
func (c *Client) Probe(ctx context.Context, u *url.URL) (*ProbeResult, error) {
	svc, ok := ParseServiceURL(u)
	if !ok {
		return nil, fetch.Errorf(fetch.KindInvalidURL, u.String(), "not an ArcGIS REST service URL")
	}

	meta, raw, err := c.Describe(ctx, svc.BaseURL)
	if err != nil {
		return nil, err
	}

	layerID := svc.LayerID
	if !svc.HasLayer {
		layerID, ok = c.SelectLayer(ctx, raw)
		if !ok {
			return nil, fetch.Errorf(fetch.KindInvalidDocument, svc.BaseURL, "service exposes no layers")
		}
	}

	layer := meta.FindLayer(layerID)
	if layer == nil {
		layer = &Layer{ID: layerID}
	}

	return &ProbeResult{
		ServiceInfo:   meta,
		QueryURL:      QueryURL(svc.BaseURL, layerID),
		SelectedLayer: layer,
		BaseURL:       svc.BaseURL,
		ServiceType:   svc.ServiceType,
	}, nil
}
