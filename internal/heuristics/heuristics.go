// Package heuristics guesses display metadata that services do not state
// outright. Every function applies its rules in a fixed order and falls
// back to a fixed default.
package heuristics

import (
	"net/url"
	"path"
	"strings"
	"unicode"
)

// DefaultGeometryType is returned when no rule matches.
const DefaultGeometryType = "Geometry"

type rule struct {
	geometryType string
	terms        []string
}

// Rules are tried top to bottom; multi-part types come first so that
// "multi polygon" is not read as "polygon".
var geometryRules = []rule{
	{"MultiPolygon", []string{"multipolygon", "multi polygon", "multisurface"}},
	{"MultiLineString", []string{"multilinestring", "multi linestring", "multicurve"}},
	{"MultiPoint", []string{"multipoint", "multi point"}},
	{"Polygon", []string{"polygon", "surface", "vlak", "vlakken", "area", "parcel", "perceel", "percelen", "gebied", "building", "pand", "zone"}},
	{"LineString", []string{"linestring", "polyline", "curve", "line", "lijn", "road", "weg", "street", "river", "rail", "railway", "route"}},
	{"Point", []string{"point", "punt", "location", "locatie", "address", "adres", "adressen", "poi", "station"}},
}

// pluralSuffixes may follow a term within the same word.
var pluralSuffixes = []string{"", "s", "es", "en"}

// Terms of at least this length also match as the tail of a compound word,
// as in "gemeentegebied".
const minCompoundTerm = 5

var explicitTypes = map[string]string{
	"point":                    "Point",
	"multipoint":               "MultiPoint",
	"linestring":               "LineString",
	"multilinestring":          "MultiLineString",
	"polygon":                  "Polygon",
	"multipolygon":             "MultiPolygon",
	"geometrycollection":       "GeometryCollection",
	"esrigeometrypoint":        "Point",
	"esrigeometrymultipoint":   "MultiPoint",
	"esrigeometrypolyline":     "LineString",
	"esrigeometrypolygon":      "Polygon",
	"esrigeometryenvelope":     "Polygon",
	"pointpropertytype":        "Point",
	"multipointpropertytype":   "MultiPoint",
	"curvepropertytype":        "LineString",
	"linestringpropertytype":   "LineString",
	"multicurvepropertytype":   "MultiLineString",
	"surfacepropertytype":      "Polygon",
	"polygonpropertytype":      "Polygon",
	"multisurfacepropertytype": "MultiPolygon",
	"multipolygonpropertytype": "MultiPolygon",
}

// GeometryType resolves a geometry type in this order: an explicit type
// (GeoJSON, Esri or GML property type names), then keywords, then names or
// titles, then DefaultGeometryType.
func GeometryType(explicit string, keywords []string, names ...string) string {
	if t := NormalizeGeometryType(explicit); t != "" {
		return t
	}
	for _, kw := range keywords {
		if t := matchTerms(kw); t != "" {
			return t
		}
	}
	for _, name := range names {
		if t := matchTerms(name); t != "" {
			return t
		}
	}
	return DefaultGeometryType
}

// NormalizeGeometryType maps a declared type name onto a GeoJSON geometry
// type, or returns "" when the name is not recognized.
func NormalizeGeometryType(declared string) string {
	key := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.LastIndex(key, ":"); i >= 0 {
		key = key[i+1:]
	}
	return explicitTypes[key]
}

// matchTerms looks for rule terms as whole words of s. Words are split on
// anything that is not a letter or digit, underscores included.
func matchTerms(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return ""
	}
	text := " " + strings.Join(words, " ") + " "

	for _, r := range geometryRules {
		for _, term := range r.terms {
			if containsTerm(text, words, term) {
				return r.geometryType
			}
		}
	}
	return ""
}

func containsTerm(text string, words []string, term string) bool {
	for _, suffix := range pluralSuffixes {
		if strings.Contains(text, " "+term+suffix+" ") {
			return true
		}
	}
	if len(term) < minCompoundTerm || strings.Contains(term, " ") {
		return false
	}
	for _, w := range words {
		for _, suffix := range pluralSuffixes {
			if len(w) > len(term+suffix) && strings.HasSuffix(w, term+suffix) {
				return true
			}
		}
	}
	return false
}

// TitleFromURL derives a title from the last path segment without its
// extension, or the host when the path has none.
func TitleFromURL(u *url.URL) string {
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return u.Hostname()
	}
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" {
		return u.Hostname()
	}
	return stem
}
