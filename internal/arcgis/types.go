package arcgis

// ServiceMetadata is the ?f=json description of a FeatureServer or MapServer.
type ServiceMetadata struct {
	Name               string  `json:"name"`
	MapName            string  `json:"mapName"`
	ServiceDescription string  `json:"serviceDescription"`
	Description        string  `json:"description"`
	Layers             []Layer `json:"layers"`
	Tables             []Layer `json:"tables"`
	Error              *Error  `json:"error"`
}

// Layer is a layer or table entry of a service description.
type Layer struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	GeometryType  string `json:"geometryType"`
	ParentLayerID int    `json:"parentLayerId"`
	SubLayerIDs   []int  `json:"subLayerIds"`
}

// Error is the error envelope ArcGIS returns with HTTP 200.
type Error struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

// ProbeResult is the outcome of bridging an ArcGIS service to a GeoJSON
// query URL.
type ProbeResult struct {
	ServiceInfo   *ServiceMetadata
	QueryURL      string
	SelectedLayer *Layer
	BaseURL       string
	ServiceType   string
}

// Title returns the best available display name of the service.
func (m *ServiceMetadata) Title() string {
	switch {
	case m.Name != "":
		return m.Name
	case m.MapName != "":
		return m.MapName
	case m.ServiceDescription != "":
		return m.ServiceDescription
	}
	return m.Description
}

// FindLayer returns the layer or table with the given id.
func (m *ServiceMetadata) FindLayer(id int) *Layer {
	for i := range m.Layers {
		if m.Layers[i].ID == id {
			return &m.Layers[i]
		}
	}
	for i := range m.Tables {
		if m.Tables[i].ID == id {
			return &m.Tables[i]
		}
	}
	return nil
}
