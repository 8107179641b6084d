// Package geojson fetches, validates and summarizes GeoJSON payloads,
// including those reached through ArcGIS and WFS GetFeature bridges.
package geojson

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

var geometryTypes = map[string]string{
	"Point":              "coordinates",
	"MultiPoint":         "coordinates",
	"LineString":         "coordinates",
	"MultiLineString":    "coordinates",
	"Polygon":            "coordinates",
	"MultiPolygon":       "coordinates",
	"GeometryCollection": "geometries",
}

// Analysis summarizes a GeoJSON document.
type Analysis struct {
	Type          string      `json:"type"`
	FeatureCount  int         `json:"featureCount"`
	GeometryTypes []string    `json:"geometryTypes"`
	Properties    []string    `json:"properties"`
	Bounds        *[4]float64 `json:"bounds"`
	CRS           string      `json:"crs,omitempty"`
	Name          string      `json:"name,omitempty"`
}

// Decode parses data as JSON and validates it as GeoJSON.
func Decode(data []byte) (map[string]interface{}, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc.(map[string]interface{}), nil
}

// Validate checks that doc is a Feature, a FeatureCollection with a
// features array, or a geometry with its coordinates or geometries member.
func Validate(doc interface{}) error {
	obj, ok := doc.(map[string]interface{})
	if !ok {
		return fmt.Errorf("top level value is not an object")
	}
	typ, _ := obj["type"].(string)
	switch typ {
	case "FeatureCollection":
		if _, ok := obj["features"].([]interface{}); !ok {
			return fmt.Errorf("FeatureCollection has no features array")
		}
		return nil
	case "Feature":
		if g, ok := obj["geometry"]; ok && g != nil {
			return validateGeometry(g)
		}
		return nil
	case "":
		return fmt.Errorf("missing type member")
	}
	if _, ok := geometryTypes[typ]; ok {
		return validateGeometry(obj)
	}
	return fmt.Errorf("unknown GeoJSON type %q", typ)
}

func validateGeometry(g interface{}) error {
	obj, ok := g.(map[string]interface{})
	if !ok {
		return fmt.Errorf("geometry is not an object")
	}
	typ, _ := obj["type"].(string)
	member, ok := geometryTypes[typ]
	if !ok {
		return fmt.Errorf("unknown geometry type %q", typ)
	}
	if _, ok := obj[member].([]interface{}); !ok {
		return fmt.Errorf("%s has no %s array", typ, member)
	}
	return nil
}

// Analyze computes the feature count, the distinct geometry types and
// property keys, and the bounds of a validated document. Features without
// geometry or properties contribute nothing to those sets.
func Analyze(doc map[string]interface{}) *Analysis {
	a := &Analysis{}
	a.Type, _ = doc["type"].(string)
	a.Name, _ = doc["name"].(string)
	a.CRS = crsName(doc["crs"])

	geomTypes := map[string]bool{}
	props := map[string]bool{}
	b := newBounds()

	addFeature := func(f interface{}) {
		feature, ok := f.(map[string]interface{})
		if !ok {
			return
		}
		a.FeatureCount++
		if g, ok := feature["geometry"].(map[string]interface{}); ok {
			addGeometry(g, geomTypes, b)
		}
		if p, ok := feature["properties"].(map[string]interface{}); ok {
			for k := range p {
				props[k] = true
			}
		}
	}

	switch a.Type {
	case "FeatureCollection":
		features, _ := doc["features"].([]interface{})
		for _, f := range features {
			addFeature(f)
		}
	case "Feature":
		addFeature(doc)
	default:
		addGeometry(doc, geomTypes, b)
	}

	a.GeometryTypes = sortedKeys(geomTypes)
	a.Properties = sortedKeys(props)
	if bbox, ok := declaredBBox(doc["bbox"]); ok {
		a.Bounds = &bbox
	} else {
		a.Bounds = b.result()
	}
	return a
}

func addGeometry(g map[string]interface{}, types map[string]bool, b *bounds) {
	typ, _ := g["type"].(string)
	if typ == "" {
		return
	}
	types[typ] = true
	if typ == "GeometryCollection" {
		geometries, _ := g["geometries"].([]interface{})
		for _, child := range geometries {
			if c, ok := child.(map[string]interface{}); ok {
				addGeometry(c, types, b)
			}
		}
		return
	}
	b.addCoordinates(g["coordinates"])
}

func crsName(v interface{}) string {
	crs, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	props, ok := crs["properties"].(map[string]interface{})
	if !ok {
		return ""
	}
	name, _ := props["name"].(string)
	return name
}

func declaredBBox(v interface{}) ([4]float64, bool) {
	values, ok := v.([]interface{})
	if !ok || len(values) < 4 || len(values)%2 != 0 {
		return [4]float64{}, false
	}
	nums := make([]float64, len(values))
	for i, value := range values {
		f, ok := value.(float64)
		if !ok {
			return [4]float64{}, false
		}
		nums[i] = f
	}
	half := len(nums) / 2
	return [4]float64{nums[0], nums[1], nums[half], nums[half+1]}, true
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type bounds struct {
	minX, minY, maxX, maxY float64
	seen                   bool
}

func newBounds() *bounds {
	return &bounds{minX: math.Inf(1), minY: math.Inf(1), maxX: math.Inf(-1), maxY: math.Inf(-1)}
}

// addCoordinates walks nested coordinate arrays down to positions.
func (b *bounds) addCoordinates(v interface{}) {
	arr, ok := v.([]interface{})
	if !ok || len(arr) == 0 {
		return
	}
	if x, ok := arr[0].(float64); ok {
		if len(arr) < 2 {
			return
		}
		y, ok := arr[1].(float64)
		if !ok {
			return
		}
		b.minX = math.Min(b.minX, x)
		b.minY = math.Min(b.minY, y)
		b.maxX = math.Max(b.maxX, x)
		b.maxY = math.Max(b.maxY, y)
		b.seen = true
		return
	}
	for _, child := range arr {
		b.addCoordinates(child)
	}
}

func (b *bounds) result() *[4]float64 {
	if !b.seen {
		return nil
	}
	return &[4]float64{b.minX, b.minY, b.maxX, b.maxY}
}
