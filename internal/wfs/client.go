// Package wfs discovers and parses OGC Web Feature Services and builds the
// GetFeature URLs that return their features as GeoJSON.
package wfs

import (
	"context"
	"net/url"
	"strings"

	"github.com/delta10/ows-discovery/internal/fetch"
	"github.com/delta10/ows-discovery/internal/utils"
)

// DefaultVersion is the version requested from servers.
const DefaultVersion = "2.0.0"

// GeoJSONFormat is the output format used when a server advertises none.
const GeoJSONFormat = "application/json"

// Parameters replaced when building a GetFeature request.
var getFeatureParams = []string{
	"service", "request", "version", "typename", "typenames", "outputformat", "srsname",
}

var capabilitiesParamBlacklist = []string{
	"service", "request", "version", "typename", "typenames", "outputformat",
	"srsname", "bbox", "count", "maxfeatures", "startindex", "resulttype",
	"propertyname", "filter", "featureid", "resourceid", "sortby",
}

// Client fetches WFS capabilities.
type Client struct {
	fetch *fetch.Client
}

// Result is a successfully parsed WFS endpoint.
type Result struct {
	CapabilitiesURL string
	Title           string
	Capabilities    *Capabilities
}

func NewClient(f *fetch.Client) *Client {
	return &Client{fetch: f}
}

// CapabilitiesURL builds the GetCapabilities request for serviceURL. URLs
// that explicitly name another service are rejected.
func CapabilitiesURL(serviceURL *url.URL) (string, error) {
	q := serviceURL.Query()
	if service := utils.GetParam(q, "service"); service != "" && !strings.EqualFold(service, "wfs") {
		return "", fetch.Errorf(fetch.KindInvalidURL, serviceURL.String(), "service parameter is %q, not WFS", service)
	}

	utils.DelParams(q, capabilitiesParamBlacklist...)
	q.Set("service", "WFS")
	q.Set("request", "GetCapabilities")
	q.Set("version", DefaultVersion)

	u := *serviceURL
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String(), nil
}

// Fetch retrieves and parses the capabilities of serviceURL.
func (c *Client) Fetch(ctx context.Context, serviceURL *url.URL) (*Result, error) {
	capsURL, err := CapabilitiesURL(serviceURL)
	if err != nil {
		return nil, err
	}

	resp, err := c.fetch.FetchXML(ctx, capsURL)
	if err != nil {
		return nil, err
	}

	caps, err := Parse(resp.Body)
	if err != nil {
		return nil, fetch.Wrap(fetch.KindInvalidDocument, capsURL, err)
	}

	title := caps.ServiceIdentification.Title
	if title == "" {
		title = serviceURL.String()
	}

	for i := range caps.FeatureTypes {
		ft := &caps.FeatureTypes[i]
		if geojsonURL, err := caps.GeoJSONURL(serviceURL, ft.Name); err == nil {
			ft.GeoJSONURL = geojsonURL
		}
	}

	return &Result{
		CapabilitiesURL: capsURL,
		Title:           title,
		Capabilities:    caps,
	}, nil
}

// GetFeatureURL builds a GetFeature request for typeName on endpoint,
// asking for WGS84 coordinates in the given output format.
func GetFeatureURL(endpoint *url.URL, typeName, outputFormat string) string {
	if outputFormat == "" {
		outputFormat = GeoJSONFormat
	}

	q := endpoint.Query()
	utils.DelParams(q, getFeatureParams...)
	q.Set("service", "WFS")
	q.Set("version", DefaultVersion)
	q.Set("request", "GetFeature")
	q.Set("typeNames", typeName)
	q.Set("outputFormat", outputFormat)
	q.Set("srsName", "EPSG:4326")

	u := *endpoint
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

// SelectOutputFormat picks the best GeoJSON output format from those a
// server advertises: a geojson format that is not zipped, then any json
// format, then application/json.
func SelectOutputFormat(formats []string) string {
	for _, f := range formats {
		l := strings.ToLower(f)
		if strings.Contains(l, "geojson") && !strings.Contains(l, "zip") {
			return f
		}
	}
	for _, f := range formats {
		if strings.Contains(strings.ToLower(f), "json") {
			return f
		}
	}
	return GeoJSONFormat
}

// GeoJSONURL builds the GeoJSON GetFeature URL for a feature type, using
// the advertised GetFeature endpoint when there is one.
func (c *Capabilities) GeoJSONURL(serviceURL *url.URL, typeName string) (string, error) {
	endpoint := serviceURL
	if href := c.OperationsMetadata.GetURL("GetFeature"); href != "" {
		u, err := url.Parse(href)
		if err != nil {
			return "", fetch.Errorf(fetch.KindInvalidURL, href, "invalid GetFeature endpoint: %v", err)
		}
		endpoint = u
	}
	format := SelectOutputFormat(c.GetFeatureOutputFormats(c.FindFeatureType(typeName)))
	return GetFeatureURL(endpoint, typeName, format), nil
}

// IsGetFeature reports whether u is already a GetFeature request.
func IsGetFeature(u *url.URL) bool {
	return strings.EqualFold(utils.GetParam(u.Query(), "request"), "GetFeature")
}

// IsGeoJSONGetFeature reports whether u is a GetFeature request that asks
// for a JSON output format.
func IsGeoJSONGetFeature(u *url.URL) bool {
	if !IsGetFeature(u) {
		return false
	}
	return strings.Contains(strings.ToLower(utils.GetParam(u.Query(), "outputFormat")), "json")
}

// RewriteAsGeoJSON turns a GetFeature request for any output format into
// the equivalent GeoJSON request. Other parameters are kept.
func RewriteAsGeoJSON(u *url.URL) (string, bool) {
	if !IsGetFeature(u) {
		return "", false
	}
	q := u.Query()
	typeName := utils.GetParam(q, "typeNames")
	if typeName == "" {
		typeName = utils.GetParam(q, "typeName")
	}
	if typeName == "" {
		return "", false
	}

	return GetFeatureURL(u, typeName, GeoJSONFormat), true
}
