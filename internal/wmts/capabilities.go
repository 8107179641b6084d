package wmts

import (
	"strings"

	"github.com/delta10/ows-discovery/internal/ows"
)

// Capabilities is the normalized form of a WMTS 1.0.0 Capabilities document.
type Capabilities struct {
	Version               string                    `json:"version"`
	ServiceIdentification ows.ServiceIdentification `json:"serviceIdentification"`
	ServiceProvider       ows.ServiceProvider       `json:"serviceProvider"`
	OperationsMetadata    ows.OperationsMetadata    `json:"operationsMetadata"`
	Contents              Contents                  `json:"contents"`
	ServiceMetadataURL    string                    `json:"serviceMetadataUrl,omitempty"`

	// TileTemplates maps layer identifiers to {z}/{x}/{y} templates.
	TileTemplates map[string]string `json:"tileTemplates,omitempty"`
}

type Contents struct {
	Layers         []*Layer                  `json:"layers"`
	TileMatrixSets map[string]*TileMatrixSet `json:"tileMatrixSets"`
}

type Layer struct {
	Identifier         string              `json:"identifier"`
	Title              string              `json:"title"`
	Abstract           string              `json:"abstract,omitempty"`
	Keywords           []string            `json:"keywords,omitempty"`
	WGS84BoundingBox   *ows.BoundingBox    `json:"wgs84BoundingBox,omitempty"`
	BoundingBoxes      []ows.BoundingBox   `json:"boundingBoxes,omitempty"`
	Styles             []Style             `json:"styles,omitempty"`
	Formats            []string            `json:"formats,omitempty"`
	InfoFormats        []string            `json:"infoFormats,omitempty"`
	TileMatrixSetLinks []TileMatrixSetLink `json:"tileMatrixSetLinks,omitempty"`
	ResourceURLs       []ResourceURL       `json:"resourceUrls,omitempty"`
	Dimensions         []Dimension         `json:"dimensions,omitempty"`
}

type Style struct {
	Identifier string      `json:"identifier"`
	Title      string      `json:"title,omitempty"`
	IsDefault  bool        `json:"isDefault,omitempty"`
	LegendURLs []LegendURL `json:"legendUrls,omitempty"`
}

type LegendURL struct {
	Format string `json:"format,omitempty"`
	Href   string `json:"href"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// TileMatrixSetLink ties a layer to a tile matrix set, optionally limited
// to a range of tiles per matrix.
type TileMatrixSetLink struct {
	TileMatrixSet string             `json:"tileMatrixSet"`
	Limits        []TileMatrixLimits `json:"limits,omitempty"`
}

type TileMatrixLimits struct {
	TileMatrix string `json:"tileMatrix"`
	MinTileRow int    `json:"minTileRow"`
	MaxTileRow int    `json:"maxTileRow"`
	MinTileCol int    `json:"minTileCol"`
	MaxTileCol int    `json:"maxTileCol"`
}

// ResourceURL is a RESTful URL template for tiles or feature info.
type ResourceURL struct {
	Format       string `json:"format"`
	ResourceType string `json:"resourceType"`
	Template     string `json:"template"`
}

type Dimension struct {
	Identifier string   `json:"identifier"`
	Title      string   `json:"title,omitempty"`
	UOM        string   `json:"uom,omitempty"`
	Default    string   `json:"default,omitempty"`
	Current    bool     `json:"current,omitempty"`
	Values     []string `json:"values,omitempty"`
}

type TileMatrixSet struct {
	Identifier        string           `json:"identifier"`
	Title             string           `json:"title,omitempty"`
	SupportedCRS      string           `json:"supportedCrs"`
	WellKnownScaleSet string           `json:"wellKnownScaleSet,omitempty"`
	BoundingBox       *ows.BoundingBox `json:"boundingBox,omitempty"`
	TileMatrices      []TileMatrix     `json:"tileMatrices"`
}

// TileMatrix is one zoom level of a tile matrix set.
type TileMatrix struct {
	Identifier       string     `json:"identifier"`
	ScaleDenominator float64    `json:"scaleDenominator"`
	TopLeftCorner    [2]float64 `json:"topLeftCorner"`
	TileWidth        int        `json:"tileWidth"`
	TileHeight       int        `json:"tileHeight"`
	MatrixWidth      int        `json:"matrixWidth"`
	MatrixHeight     int        `json:"matrixHeight"`
}

// FindLayer returns the layer with the given identifier.
func (c *Capabilities) FindLayer(identifier string) *Layer {
	for _, l := range c.Contents.Layers {
		if l.Identifier == identifier {
			return l
		}
	}
	return nil
}

// TileMatrixSets returns the tile matrix sets linked to the layer, in link order.
func (c *Capabilities) TileMatrixSets(l *Layer) []*TileMatrixSet {
	var out []*TileMatrixSet
	for _, link := range l.TileMatrixSetLinks {
		if tms, ok := c.Contents.TileMatrixSets[link.TileMatrixSet]; ok {
			out = append(out, tms)
		}
	}
	return out
}

// DefaultStyle returns the identifier of the layer's default style, or of
// its first style, or "default".
func (l *Layer) DefaultStyle() string {
	for _, s := range l.Styles {
		if s.IsDefault {
			return s.Identifier
		}
	}
	if len(l.Styles) > 0 {
		return l.Styles[0].Identifier
	}
	return "default"
}

// PreferredFormat picks an image format, favouring PNG.
func (l *Layer) PreferredFormat() string {
	for _, f := range l.Formats {
		if strings.EqualFold(f, "image/png") {
			return f
		}
	}
	if len(l.Formats) > 0 {
		return l.Formats[0]
	}
	return "image/png"
}
