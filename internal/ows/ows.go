// Package ows holds the OWS Common 1.1 records shared by the WMTS and WFS
// capabilities documents.
package ows

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/delta10/ows-discovery/internal/xmlwalk"
)

type ServiceIdentification struct {
	Title              string   `json:"title"`
	Abstract           string   `json:"abstract,omitempty"`
	Keywords           []string `json:"keywords,omitempty"`
	ServiceType        string   `json:"serviceType,omitempty"`
	ServiceTypeVersion []string `json:"serviceTypeVersion,omitempty"`
	Fees               string   `json:"fees,omitempty"`
	AccessConstraints  []string `json:"accessConstraints,omitempty"`
}

type ServiceProvider struct {
	ProviderName   string         `json:"providerName,omitempty"`
	ProviderSite   string         `json:"providerSite,omitempty"`
	ServiceContact ServiceContact `json:"serviceContact"`
}

type ServiceContact struct {
	IndividualName string      `json:"individualName,omitempty"`
	PositionName   string      `json:"positionName,omitempty"`
	Role           string      `json:"role,omitempty"`
	ContactInfo    ContactInfo `json:"contactInfo"`
}

type ContactInfo struct {
	Voice               string  `json:"voice,omitempty"`
	Facsimile           string  `json:"facsimile,omitempty"`
	Address             Address `json:"address"`
	OnlineResource      string  `json:"onlineResource,omitempty"`
	HoursOfService      string  `json:"hoursOfService,omitempty"`
	ContactInstructions string  `json:"contactInstructions,omitempty"`
}

type Address struct {
	DeliveryPoint         string `json:"deliveryPoint,omitempty"`
	City                  string `json:"city,omitempty"`
	AdministrativeArea    string `json:"administrativeArea,omitempty"`
	PostalCode            string `json:"postalCode,omitempty"`
	Country               string `json:"country,omitempty"`
	ElectronicMailAddress string `json:"electronicMailAddress,omitempty"`
}

// OperationsMetadata lists the operations a service implements.
type OperationsMetadata struct {
	Operations  []Operation `json:"operations"`
	Parameters  []Domain    `json:"parameters,omitempty"`
	Constraints []Domain    `json:"constraints,omitempty"`
}

type Operation struct {
	Name        string   `json:"name"`
	Get         []string `json:"get,omitempty"`
	Post        []string `json:"post,omitempty"`
	Parameters  []Domain `json:"parameters,omitempty"`
	Constraints []Domain `json:"constraints,omitempty"`
}

// Domain is a named parameter or constraint with its allowed values.
type Domain struct {
	Name          string   `json:"name"`
	AllowedValues []string `json:"allowedValues,omitempty"`
	DefaultValue  string   `json:"defaultValue,omitempty"`
	NoValues      bool     `json:"noValues,omitempty"`
}

// BoundingBox is an envelope given by its lower and upper corners.
type BoundingBox struct {
	CRS         string     `json:"crs,omitempty"`
	LowerCorner [2]float64 `json:"lowerCorner"`
	UpperCorner [2]float64 `json:"upperCorner"`
}

// Operation returns the named operation, matched case-insensitively.
func (m OperationsMetadata) Operation(name string) *Operation {
	for i := range m.Operations {
		if strings.EqualFold(m.Operations[i].Name, name) {
			return &m.Operations[i]
		}
	}
	return nil
}

// GetURL returns the first HTTP GET endpoint advertised for an operation.
func (m OperationsMetadata) GetURL(name string) string {
	op := m.Operation(name)
	if op == nil || len(op.Get) == 0 {
		return ""
	}
	return op.Get[0]
}

// AllowedValues collects the values allowed for a parameter of an operation,
// falling back to the service-wide parameter of the same name.
func (m OperationsMetadata) AllowedValues(operation, parameter string) []string {
	if op := m.Operation(operation); op != nil {
		if d := findDomain(op.Parameters, parameter); d != nil && len(d.AllowedValues) > 0 {
			return d.AllowedValues
		}
	}
	if d := findDomain(m.Parameters, parameter); d != nil {
		return d.AllowedValues
	}
	return nil
}

func findDomain(domains []Domain, name string) *Domain {
	for i := range domains {
		if strings.EqualFold(domains[i].Name, name) {
			return &domains[i]
		}
	}
	return nil
}

func ParseServiceIdentification(el *etree.Element) ServiceIdentification {
	var si ServiceIdentification
	xmlwalk.Walk(el, xmlwalk.Handlers{
		"Title":              func(c *etree.Element) { si.Title = xmlwalk.Content(c) },
		"Abstract":           func(c *etree.Element) { si.Abstract = xmlwalk.Content(c) },
		"Keywords":           func(c *etree.Element) { si.Keywords = append(si.Keywords, xmlwalk.Texts(c, "Keyword")...) },
		"ServiceType":        func(c *etree.Element) { si.ServiceType = xmlwalk.Content(c) },
		"ServiceTypeVersion": func(c *etree.Element) { si.ServiceTypeVersion = append(si.ServiceTypeVersion, xmlwalk.Content(c)) },
		"Fees":               func(c *etree.Element) { si.Fees = xmlwalk.Content(c) },
		"AccessConstraints":  func(c *etree.Element) { si.AccessConstraints = append(si.AccessConstraints, xmlwalk.Content(c)) },
	})
	return si
}

func ParseServiceProvider(el *etree.Element) ServiceProvider {
	var sp ServiceProvider
	xmlwalk.Walk(el, xmlwalk.Handlers{
		"ProviderName": func(c *etree.Element) { sp.ProviderName = xmlwalk.Content(c) },
		"ProviderSite": func(c *etree.Element) { sp.ProviderSite = xmlwalk.Href(c) },
		"ServiceContact": func(c *etree.Element) {
			sp.ServiceContact = parseServiceContact(c)
		},
	})
	return sp
}

func parseServiceContact(el *etree.Element) ServiceContact {
	var sc ServiceContact
	xmlwalk.Walk(el, xmlwalk.Handlers{
		"IndividualName": func(c *etree.Element) { sc.IndividualName = xmlwalk.Content(c) },
		"PositionName":   func(c *etree.Element) { sc.PositionName = xmlwalk.Content(c) },
		"Role":           func(c *etree.Element) { sc.Role = xmlwalk.Content(c) },
		"ContactInfo": func(c *etree.Element) {
			info := &sc.ContactInfo
			xmlwalk.Walk(c, xmlwalk.Handlers{
				"Phone": func(p *etree.Element) {
					info.Voice = xmlwalk.Text(p, "Voice")
					info.Facsimile = xmlwalk.Text(p, "Facsimile")
				},
				"Address": func(a *etree.Element) {
					info.Address = Address{
						DeliveryPoint:         xmlwalk.Text(a, "DeliveryPoint"),
						City:                  xmlwalk.Text(a, "City"),
						AdministrativeArea:    xmlwalk.Text(a, "AdministrativeArea"),
						PostalCode:            xmlwalk.Text(a, "PostalCode"),
						Country:               xmlwalk.Text(a, "Country"),
						ElectronicMailAddress: xmlwalk.Text(a, "ElectronicMailAddress"),
					}
				},
				"OnlineResource":      func(o *etree.Element) { info.OnlineResource = xmlwalk.Href(o) },
				"HoursOfService":      func(h *etree.Element) { info.HoursOfService = xmlwalk.Content(h) },
				"ContactInstructions": func(h *etree.Element) { info.ContactInstructions = xmlwalk.Content(h) },
			})
		},
	})
	return sc
}

func ParseOperationsMetadata(el *etree.Element) OperationsMetadata {
	var om OperationsMetadata
	xmlwalk.Walk(el, xmlwalk.Handlers{
		"Operation":  func(c *etree.Element) { om.Operations = append(om.Operations, parseOperation(c)) },
		"Parameter":  func(c *etree.Element) { om.Parameters = append(om.Parameters, ParseDomain(c)) },
		"Constraint": func(c *etree.Element) { om.Constraints = append(om.Constraints, ParseDomain(c)) },
	})
	return om
}

func parseOperation(el *etree.Element) Operation {
	op := Operation{Name: xmlwalk.Attr(el, "name")}
	xmlwalk.Walk(el, xmlwalk.Handlers{
		"DCP": func(dcp *etree.Element) {
			for _, http := range xmlwalk.Children(dcp, "HTTP") {
				xmlwalk.Walk(http, xmlwalk.Handlers{
					"Get":  func(g *etree.Element) { op.Get = appendHref(op.Get, g) },
					"Post": func(p *etree.Element) { op.Post = appendHref(op.Post, p) },
				})
			}
		},
		"Parameter":  func(c *etree.Element) { op.Parameters = append(op.Parameters, ParseDomain(c)) },
		"Constraint": func(c *etree.Element) { op.Constraints = append(op.Constraints, ParseDomain(c)) },
	})
	return op
}

func appendHref(list []string, el *etree.Element) []string {
	if href := xmlwalk.Href(el); href != "" {
		return append(list, href)
	}
	return list
}

// ParseDomain reads an ows:Parameter or ows:Constraint element. Both the
// OWS 1.1 AllowedValues form and the OWS 1.0 bare Value form are accepted.
func ParseDomain(el *etree.Element) Domain {
	d := Domain{Name: xmlwalk.Attr(el, "name")}
	xmlwalk.Walk(el, xmlwalk.Handlers{
		"AllowedValues": func(c *etree.Element) { d.AllowedValues = append(d.AllowedValues, xmlwalk.Texts(c, "Value")...) },
		"Value":         func(c *etree.Element) { d.AllowedValues = append(d.AllowedValues, xmlwalk.Content(c)) },
		"DefaultValue":  func(c *etree.Element) { d.DefaultValue = xmlwalk.Content(c) },
		"NoValues":      func(*etree.Element) { d.NoValues = true },
	})
	return d
}

// ParseBoundingBox reads an ows:BoundingBox or ows:WGS84BoundingBox.
func ParseBoundingBox(el *etree.Element) (*BoundingBox, bool) {
	lower, ok1 := xmlwalk.Pair(xmlwalk.Text(el, "LowerCorner"))
	upper, ok2 := xmlwalk.Pair(xmlwalk.Text(el, "UpperCorner"))
	if !ok1 || !ok2 {
		return nil, false
	}
	bbox := &BoundingBox{CRS: xmlwalk.Attr(el, "crs"), LowerCorner: lower, UpperCorner: upper}
	if bbox.CRS == "" && el.Tag == "WGS84BoundingBox" {
		bbox.CRS = "urn:ogc:def:crs:OGC:2:84"
	}
	return bbox, true
}
