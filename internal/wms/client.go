// Package wms discovers and parses OGC Web Map Services.
package wms

import (
	"context"
	"net/url"
	"strings"

	"github.com/delta10/ows-discovery/internal/fetch"
	"github.com/delta10/ows-discovery/internal/utils"
)

// Parameters that belong to a GetMap request and are dropped when turning
// a pasted map URL into a GetCapabilities request.
var capabilitiesParamBlacklist = []string{
	"service", "request", "version", "bbox", "width", "height",
	"srs", "crs", "format", "layers", "styles", "transparent",
}

// Client fetches WMS capabilities.
type Client struct {
	fetch *fetch.Client
}

// Result is a successfully parsed WMS endpoint.
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
	if service := utils.GetParam(q, "service"); service != "" && !strings.EqualFold(service, "wms") {
		return "", fetch.Errorf(fetch.KindInvalidURL, serviceURL.String(), "service parameter is %q, not WMS", service)
	}

	utils.DelParams(q, capabilitiesParamBlacklist...)
	q.Set("service", "WMS")
	q.Set("request", "GetCapabilities")

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

	title := caps.Service.Title
	if title == "" {
		title = serviceURL.String()
	}

	return &Result{
		CapabilitiesURL: capsURL,
		Title:           title,
		Capabilities:    caps,
	}, nil
}
