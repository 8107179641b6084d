package probe

import (
	"encoding/json"

	"github.com/delta10/ows-discovery/internal/fetch"
)

// ServiceType names the protocol a URL was resolved to.
type ServiceType string

const (
	TypeWMS     ServiceType = "WMS"
	TypeWMTS    ServiceType = "WMTS"
	TypeWFS     ServiceType = "WFS"
	TypeGeoJSON ServiceType = "GeoJSON"
	TypeXYZ     ServiceType = "XYZ"
)

// UnknownServiceError is reported when no step produced a result or an error.
const UnknownServiceError = "unknown service type or error"

// ServiceInfo is the outcome of a discovery call. Type is empty exactly when
// no protocol matched, in which case Error is set.
type ServiceInfo struct {
	ServiceURL   string
	ServiceTitle string
	Type         ServiceType
	Capabilities interface{}
	Error        string
	ErrorKind    fetch.Kind
}

// Failed reports whether the URL could not be resolved.
func (s ServiceInfo) Failed() bool {
	return s.Error != ""
}

type serviceInfoJSON struct {
	ServiceURL   string      `json:"serviceURL"`
	ServiceTitle *string     `json:"serviceTitle"`
	Type         *string     `json:"type"`
	Capabilities interface{} `json:"capabilities"`
	Error        *string     `json:"error"`
	ErrorKind    *string     `json:"errorKind"`
}

// MarshalJSON encodes absent values as null.
func (s ServiceInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(serviceInfoJSON{
		ServiceURL:   s.ServiceURL,
		ServiceTitle: nullable(s.ServiceTitle),
		Type:         nullable(string(s.Type)),
		Capabilities: s.Capabilities,
		Error:        nullable(s.Error),
		ErrorKind:    nullable(string(s.ErrorKind)),
	})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
