package wms

// Capabilities is the normalized form of a WMS_Capabilities (1.3.0) or
// WMT_MS_Capabilities (1.1.x) document.
type Capabilities struct {
	Version        string     `json:"version"`
	UpdateSequence string     `json:"updateSequence,omitempty"`
	Service        Service    `json:"service"`
	Capability     Capability `json:"capability"`
}

type Service struct {
	Name               string              `json:"name"`
	Title              string              `json:"title"`
	Abstract           string              `json:"abstract,omitempty"`
	Keywords           []string            `json:"keywords,omitempty"`
	OnlineResource     string              `json:"onlineResource,omitempty"`
	ContactInformation *ContactInformation `json:"contactInformation,omitempty"`
	Fees               string              `json:"fees,omitempty"`
	AccessConstraints  string              `json:"accessConstraints,omitempty"`
	LayerLimit         int                 `json:"layerLimit,omitempty"`
	MaxWidth           int                 `json:"maxWidth,omitempty"`
	MaxHeight          int                 `json:"maxHeight,omitempty"`
}

type ContactInformation struct {
	ContactPerson                string         `json:"contactPerson,omitempty"`
	ContactOrganization          string         `json:"contactOrganization,omitempty"`
	ContactPosition              string         `json:"contactPosition,omitempty"`
	ContactAddress               ContactAddress `json:"contactAddress"`
	ContactVoiceTelephone        string         `json:"contactVoiceTelephone,omitempty"`
	ContactFacsimileTelephone    string         `json:"contactFacsimileTelephone,omitempty"`
	ContactElectronicMailAddress string         `json:"contactElectronicMailAddress,omitempty"`
}

type ContactAddress struct {
	AddressType     string `json:"addressType,omitempty"`
	Address         string `json:"address,omitempty"`
	City            string `json:"city,omitempty"`
	StateOrProvince string `json:"stateOrProvince,omitempty"`
	PostCode        string `json:"postCode,omitempty"`
	Country         string `json:"country,omitempty"`
}

type Capability struct {
	Request   map[string]Operation `json:"request"`
	Exception []string             `json:"exception,omitempty"`
	Layers    []*Layer             `json:"layers"`
}

// Operation is one entry of the Capability/Request block.
type Operation struct {
	Formats []string `json:"formats,omitempty"`
	Get     string   `json:"get,omitempty"`
	Post    string   `json:"post,omitempty"`
}

// Layer is a WMS layer with every inheritable property already resolved
// against its ancestors.
type Layer struct {
	Name          string         `json:"name,omitempty"`
	Title         string         `json:"title"`
	Abstract      string         `json:"abstract,omitempty"`
	Keywords      []string       `json:"keywords,omitempty"`
	Queryable     bool           `json:"queryable"`
	Opaque        bool           `json:"opaque"`
	Cascaded      int            `json:"cascaded,omitempty"`
	NoSubsets     bool           `json:"noSubsets,omitempty"`
	FixedWidth    int            `json:"fixedWidth,omitempty"`
	FixedHeight   int            `json:"fixedHeight,omitempty"`
	CRS           []string       `json:"crs,omitempty"`
	Styles        []Style        `json:"styles,omitempty"`
	Dimensions    []Dimension    `json:"dimensions,omitempty"`
	Attribution   *Attribution   `json:"attribution,omitempty"`
	MetadataURLs  []MetadataURL  `json:"metadataUrls,omitempty"`
	AuthorityURLs []AuthorityURL `json:"authorityUrls,omitempty"`
	Identifiers   []Identifier   `json:"identifiers,omitempty"`
	DataURLs      []string       `json:"dataUrls,omitempty"`

	EXGeographicBoundingBox *GeographicBoundingBox `json:"exGeographicBoundingBox,omitempty"`
	BoundingBoxes           []BoundingBox          `json:"boundingBoxes,omitempty"`

	MinScaleDenominator *float64 `json:"minScaleDenominator"`
	MaxScaleDenominator *float64 `json:"maxScaleDenominator"`

	Layers []*Layer `json:"layers,omitempty"`
}

type GeographicBoundingBox struct {
	WestBoundLongitude float64 `json:"westBoundLongitude"`
	EastBoundLongitude float64 `json:"eastBoundLongitude"`
	SouthBoundLatitude float64 `json:"southBoundLatitude"`
	NorthBoundLatitude float64 `json:"northBoundLatitude"`
}

type BoundingBox struct {
	CRS  string  `json:"crs"`
	MinX float64 `json:"minx"`
	MinY float64 `json:"miny"`
	MaxX float64 `json:"maxx"`
	MaxY float64 `json:"maxy"`
	ResX float64 `json:"resx,omitempty"`
	ResY float64 `json:"resy,omitempty"`
}

type Style struct {
	Name       string      `json:"name"`
	Title      string      `json:"title,omitempty"`
	Abstract   string      `json:"abstract,omitempty"`
	LegendURLs []LegendURL `json:"legendUrls,omitempty"`
}

// LegendURL carries the advertised legend resource and the ready-to-use
// URL with width, height and format applied.
type LegendURL struct {
	Format         string `json:"format,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	OnlineResource string `json:"onlineResource"`
	URL            string `json:"url"`
}

type Dimension struct {
	Name           string `json:"name"`
	Units          string `json:"units,omitempty"`
	UnitSymbol     string `json:"unitSymbol,omitempty"`
	Default        string `json:"default,omitempty"`
	MultipleValues bool   `json:"multipleValues,omitempty"`
	NearestValue   bool   `json:"nearestValue,omitempty"`
	Current        bool   `json:"current,omitempty"`
	Values         string `json:"values,omitempty"`
}

type Attribution struct {
	Title          string   `json:"title,omitempty"`
	OnlineResource string   `json:"onlineResource,omitempty"`
	LogoURL        *LogoURL `json:"logoUrl,omitempty"`
}

type LogoURL struct {
	Format         string `json:"format,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	OnlineResource string `json:"onlineResource"`
}

type MetadataURL struct {
	Type           string `json:"type,omitempty"`
	Format         string `json:"format,omitempty"`
	OnlineResource string `json:"onlineResource"`
}

type AuthorityURL struct {
	Name           string `json:"name"`
	OnlineResource string `json:"onlineResource"`
}

type Identifier struct {
	Authority string `json:"authority"`
	Value     string `json:"value"`
}

// NamedLayers returns every layer that can be requested by name, depth first.
func (c *Capabilities) NamedLayers() []*Layer {
	var out []*Layer
	var visit func(layers []*Layer)
	visit = func(layers []*Layer) {
		for _, l := range layers {
			if l.Name != "" {
				out = append(out, l)
			}
			visit(l.Layers)
		}
	}
	visit(c.Capability.Layers)
	return out
}

// FindLayer returns the named layer, or nil.
func (c *Capabilities) FindLayer(name string) *Layer {
	for _, l := range c.NamedLayers() {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// GetMapURL returns the GetMap GET endpoint advertised by the service.
func (c *Capabilities) GetMapURL() string {
	return c.Capability.Request["GetMap"].Get
}
