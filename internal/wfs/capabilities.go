package wfs

import "github.com/delta10/ows-discovery/internal/ows"

// Capabilities is the normalized form of a WFS_Capabilities document
// (2.0.x, with 1.1.0 element names accepted where they differ).
type Capabilities struct {
	Version               string                    `json:"version"`
	ServiceIdentification ows.ServiceIdentification `json:"serviceIdentification"`
	ServiceProvider       ows.ServiceProvider       `json:"serviceProvider"`
	OperationsMetadata    ows.OperationsMetadata    `json:"operationsMetadata"`
	FeatureTypes          []FeatureType             `json:"featureTypeList"`
	FilterCapabilities    *FilterCapabilities       `json:"filterCapabilities,omitempty"`
}

type FeatureType struct {
	Name             string           `json:"name"`
	Title            string           `json:"title,omitempty"`
	Abstract         string           `json:"abstract,omitempty"`
	Keywords         []string         `json:"keywords,omitempty"`
	DefaultCRS       string           `json:"defaultCrs,omitempty"`
	OtherCRS         []string         `json:"otherCrs,omitempty"`
	OutputFormats    []string         `json:"outputFormats,omitempty"`
	WGS84BoundingBox *ows.BoundingBox `json:"wgs84BoundingBox,omitempty"`
	MetadataURLs     []string         `json:"metadataUrls,omitempty"`
	GeometryType     string           `json:"geometryType"`
	GeoJSONURL       string           `json:"geojsonUrl,omitempty"`
}

// FilterCapabilities describes the fes:Filter_Capabilities block.
type FilterCapabilities struct {
	Conformance       map[string]bool `json:"conformance,omitempty"`
	ResourceIDs       []string        `json:"resourceIds,omitempty"`
	LogicalOperators  bool            `json:"logicalOperators"`
	ComparisonOps     []string        `json:"comparisonOperators,omitempty"`
	GeometryOperands  []string        `json:"geometryOperands,omitempty"`
	SpatialOperators  []string        `json:"spatialOperators,omitempty"`
	TemporalOperands  []string        `json:"temporalOperands,omitempty"`
	TemporalOperators []string        `json:"temporalOperators,omitempty"`
	Functions         []Function      `json:"functions,omitempty"`
}

type Function struct {
	Name      string     `json:"name"`
	Returns   string     `json:"returns,omitempty"`
	Arguments []Argument `json:"arguments,omitempty"`
}

type Argument struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// FindFeatureType returns the feature type with the given name.
func (c *Capabilities) FindFeatureType(name string) *FeatureType {
	for i := range c.FeatureTypes {
		if c.FeatureTypes[i].Name == name {
			return &c.FeatureTypes[i]
		}
	}
	return nil
}

// GetFeatureOutputFormats lists the output formats GetFeature accepts,
// falling back to those declared on the feature type.
func (c *Capabilities) GetFeatureOutputFormats(ft *FeatureType) []string {
	if formats := c.OperationsMetadata.AllowedValues("GetFeature", "outputFormat"); len(formats) > 0 {
		return formats
	}
	if ft != nil {
		return ft.OutputFormats
	}
	return nil
}
