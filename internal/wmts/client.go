// Package wmts discovers and parses OGC Web Map Tile Services, in both the
// KVP and the RESTful flavour.
package wmts

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/delta10/ows-discovery/internal/fetch"
	"github.com/delta10/ows-discovery/internal/utils"
)

const capabilitiesFile = "WMTSCapabilities.xml"

// DefaultVersion is the only published WMTS version.
const DefaultVersion = "1.0.0"

var (
	versionSegment = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)
	digits         = regexp.MustCompile(`^\d+$`)
	placeholder    = regexp.MustCompile(`^\{[^{}]+\}$`)
)

var kvpParamBlacklist = []string{
	"service", "request", "version", "layer", "style", "format",
	"tilematrixset", "tilematrix", "tilerow", "tilecol",
}

// Client fetches WMTS capabilities.
type Client struct {
	fetch *fetch.Client
}

// Result is a successfully parsed WMTS endpoint.
type Result struct {
	CapabilitiesURL string
	Title           string
	Capabilities    *Capabilities
}

func NewClient(f *fetch.Client) *Client {
	return &Client{fetch: f}
}

// RESTBase is the root of a RESTful WMTS inferred from a tile URL.
type RESTBase struct {
	Root    string
	Version string
}

// InferRESTBase looks for the first run of two or three tile index segments
// (digits or {placeholders}, the third optionally with an extension) and
// drops it along with the segments that precede it within the tile address:
// layer and tile matrix set, plus the style when withStyle is set. A trailing
// version segment is split off the remaining root.
func InferRESTBase(u *url.URL, withStyle bool) (RESTBase, bool) {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	start := tileRunStart(segments)
	if start < 0 {
		return RESTBase{}, false
	}

	strip := 2
	if withStyle {
		strip = 3
	}
	end := start - strip
	if end < 0 {
		end = 0
	}

	base := RESTBase{}
	kept := segments[:end]
	if n := len(kept); n > 0 && versionSegment.MatchString(kept[n-1]) {
		base.Version = kept[n-1]
		kept = kept[:n-1]
	}

	root := url.URL{Scheme: u.Scheme, Host: u.Host, User: u.User}
	if len(kept) > 0 {
		root.Path = "/" + strings.Join(kept, "/")
	}
	base.Root = root.String()
	return base, true
}

func tileRunStart(segments []string) int {
	for i := 0; i+1 < len(segments); i++ {
		if !isTileIndex(segments[i], false) {
			continue
		}
		if isTileIndex(segments[i+1], false) || (i+2 == len(segments) && isTileIndex(segments[i+1], true)) {
			return i
		}
	}
	return -1
}

func isTileIndex(segment string, allowExt bool) bool {
	if allowExt {
		if dot := strings.LastIndex(segment, "."); dot > 0 {
			segment = segment[:dot]
		}
	}
	return digits.MatchString(segment) || placeholder.MatchString(segment)
}

// CapabilitiesURL builds one capabilities URL candidate for serviceURL.
// A URL already pointing at WMTSCapabilities.xml is used as is; a URL that
// looks like a RESTful tile address is reduced to its inferred root;
// anything else becomes a KVP GetCapabilities request.
func CapabilitiesURL(serviceURL *url.URL, withStyle, withVersion bool) (string, error) {
	q := serviceURL.Query()
	if service := utils.GetParam(q, "service"); service != "" && !strings.EqualFold(service, "wmts") {
		return "", fetch.Errorf(fetch.KindInvalidURL, serviceURL.String(), "service parameter is %q, not WMTS", service)
	}

	if strings.HasSuffix(strings.ToLower(serviceURL.Path), strings.ToLower(capabilitiesFile)) {
		u := *serviceURL
		u.Fragment = ""
		return u.String(), nil
	}

	if !utils.HasParam(q, "request") {
		if base, ok := InferRESTBase(serviceURL, withStyle); ok {
			root := base.Root
			if withVersion {
				version := base.Version
				if version == "" {
					version = DefaultVersion
				}
				root += "/" + version
			}
			return root + "/" + capabilitiesFile, nil
		}
	}

	utils.DelParams(q, kvpParamBlacklist...)
	q.Set("service", "WMTS")
	q.Set("request", "GetCapabilities")
	if withVersion {
		q.Set("version", DefaultVersion)
	}

	u := *serviceURL
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String(), nil
}

// Fetch tries the capabilities URL candidates in order (style then version
// toggled) and returns the first document that parses as WMTS capabilities.
// Candidates resolving to an already tried URL are skipped; when all fail
// the last error is returned.
func (c *Client) Fetch(ctx context.Context, serviceURL *url.URL) (*Result, error) {
	tried := map[string]bool{}
	var lastErr error

	for _, withStyle := range []bool{false, true} {
		for _, withVersion := range []bool{false, true} {
			capsURL, err := CapabilitiesURL(serviceURL, withStyle, withVersion)
			if err != nil {
				return nil, err
			}
			if tried[capsURL] {
				continue
			}
			tried[capsURL] = true

			res, err := c.fetchOne(ctx, serviceURL, capsURL)
			if err == nil {
				return res, nil
			}
			lastErr = err
		}
	}

	return nil, lastErr
}

func (c *Client) fetchOne(ctx context.Context, serviceURL *url.URL, capsURL string) (*Result, error) {
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

	caps.TileTemplates = make(map[string]string, len(caps.Contents.Layers))
	for _, l := range caps.Contents.Layers {
		if tpl, err := TileURLTemplate(caps, l.Identifier, serviceURL.String()); err == nil {
			caps.TileTemplates[l.Identifier] = tpl
		}
	}

	return &Result{
		CapabilitiesURL: capsURL,
		Title:           title,
		Capabilities:    caps,
	}, nil
}
