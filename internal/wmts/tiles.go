package wmts

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/delta10/ows-discovery/internal/urltemplate"
	"github.com/delta10/ows-discovery/internal/utils"
)

var webMercatorCodes = []string{"3857", "900913"}

// IsWebMercator reports whether crs names EPSG:3857 or one of its aliases,
// in plain, URN or http URI form.
func IsWebMercator(crs string) bool {
	c := strings.ToLower(strings.TrimSpace(crs))
	var code string
	switch {
	case strings.HasPrefix(c, "epsg:"):
		code = strings.TrimPrefix(c, "epsg:")
	case strings.HasPrefix(c, "urn:ogc:def:crs:epsg:"):
		code = c[strings.LastIndex(c, ":")+1:]
	case strings.HasPrefix(c, "http://www.opengis.net/def/crs/epsg/"):
		code = c[strings.LastIndex(c, "/")+1:]
	default:
		return false
	}
	return utils.StringInSlice(code, webMercatorCodes)
}

// WebMercatorSet returns the first tile matrix set linked to the layer
// whose CRS is Web Mercator.
func (c *Capabilities) WebMercatorSet(l *Layer) *TileMatrixSet {
	for _, tms := range c.TileMatrixSets(l) {
		if IsWebMercator(tms.SupportedCRS) {
			return tms
		}
	}
	return nil
}

// ZoomPlaceholder returns the TileMatrix value to use in a {z}/{x}/{y}
// template. Identifiers that share a prefix ahead of the zoom number, as in
// "EPSG:3857:5", keep that prefix.
func (tms *TileMatrixSet) ZoomPlaceholder() string {
	if len(tms.TileMatrices) == 0 {
		return "{z}"
	}
	first := tms.TileMatrices[0].Identifier
	prefix := strings.TrimRight(first, "0123456789")
	if prefix == "" || prefix == first {
		return "{z}"
	}
	for _, tm := range tms.TileMatrices {
		rest := strings.TrimPrefix(tm.Identifier, prefix)
		if rest == tm.Identifier || !digits.MatchString(rest) {
			return "{z}"
		}
	}
	return prefix + "{z}"
}

// TileURLTemplate resolves a {z}/{x}/{y} template for the layer. An
// explicit tile ResourceURL wins; otherwise a KVP GetTile URL is built
// against the Web Mercator tile matrix set. fallbackURL is used as the KVP
// endpoint when the capabilities do not advertise a GetTile GET URL.
func TileURLTemplate(caps *Capabilities, layerID, fallbackURL string) (string, error) {
	layer := caps.FindLayer(layerID)
	if layer == nil {
		return "", fmt.Errorf("layer %q not found", layerID)
	}

	tms := caps.WebMercatorSet(layer)
	if resource := tileResource(layer); resource != nil {
		if tms == nil {
			sets := caps.TileMatrixSets(layer)
			if len(sets) == 0 {
				return "", fmt.Errorf("layer %q has no tile matrix set", layerID)
			}
			tms = sets[0]
		}
		return restTemplate(layer, tms, resource.Template), nil
	}

	if tms == nil {
		return "", fmt.Errorf("layer %q has no Web Mercator tile matrix set", layerID)
	}

	endpoint := caps.OperationsMetadata.GetURL("GetTile")
	if endpoint == "" {
		endpoint = fallbackURL
	}
	return kvpTemplate(endpoint, layer, tms)
}

func tileResource(l *Layer) *ResourceURL {
	var found *ResourceURL
	format := l.PreferredFormat()
	for i := range l.ResourceURLs {
		r := &l.ResourceURLs[i]
		if !strings.EqualFold(r.ResourceType, "tile") {
			continue
		}
		if strings.EqualFold(r.Format, format) {
			return r
		}
		if found == nil {
			found = r
		}
	}
	return found
}

func restTemplate(l *Layer, tms *TileMatrixSet, template string) string {
	values := map[string]string{
		"Layer":         l.Identifier,
		"Style":         l.DefaultStyle(),
		"TileMatrixSet": tms.Identifier,
		"TileMatrix":    tms.ZoomPlaceholder(),
		"TileRow":       "{y}",
		"TileCol":       "{x}",
	}
	for _, d := range l.Dimensions {
		if d.Default != "" {
			values[d.Identifier] = d.Default
		}
	}
	return urltemplate.Expand(template, values)
}

func kvpTemplate(endpoint string, l *Layer, tms *TileMatrixSet) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid GetTile endpoint %q: %w", endpoint, err)
	}

	q := u.Query()
	utils.DelParams(q, kvpParamBlacklist...)
	q.Set("SERVICE", "WMTS")
	q.Set("REQUEST", "GetTile")
	q.Set("VERSION", DefaultVersion)
	q.Set("LAYER", l.Identifier)
	q.Set("STYLE", l.DefaultStyle())
	q.Set("FORMAT", l.PreferredFormat())
	q.Set("TILEMATRIXSET", tms.Identifier)
	q.Set("TILEMATRIX", tms.ZoomPlaceholder())
	q.Set("TILEROW", "{y}")
	q.Set("TILECOL", "{x}")

	u.RawQuery = q.Encode()
	u.Fragment = ""
	return utils.UnescapeBraces(u.String()), nil
}
