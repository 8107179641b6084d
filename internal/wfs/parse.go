package wfs

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/delta10/ows-discovery/internal/heuristics"
	"github.com/delta10/ows-discovery/internal/ows"
	"github.com/delta10/ows-discovery/internal/xmlwalk"
)

// Parse turns a WFS capabilities document into a Capabilities record.
func Parse(data []byte) (*Capabilities, error) {
	root, err := xmlwalk.Parse(data)
	if err != nil {
		return nil, err
	}
	if msg := xmlwalk.ExceptionText(root); msg != "" {
		return nil, fmt.Errorf("service exception: %s", msg)
	}
	if root.Tag != "WFS_Capabilities" {
		return nil, fmt.Errorf("unexpected root element %q", root.Tag)
	}

	caps := &Capabilities{Version: xmlwalk.Attr(root, "version")}
	xmlwalk.Walk(root, xmlwalk.Handlers{
		"ServiceIdentification": func(el *etree.Element) {
			caps.ServiceIdentification = ows.ParseServiceIdentification(el)
		},
		"ServiceProvider": func(el *etree.Element) {
			caps.ServiceProvider = ows.ParseServiceProvider(el)
		},
		"OperationsMetadata": func(el *etree.Element) {
			caps.OperationsMetadata = ows.ParseOperationsMetadata(el)
		},
		"FeatureTypeList": func(el *etree.Element) {
			for _, ft := range xmlwalk.Children(el, "FeatureType") {
				caps.FeatureTypes = append(caps.FeatureTypes, parseFeatureType(ft))
			}
		},
		"Filter_Capabilities": func(el *etree.Element) {
			caps.FilterCapabilities = parseFilterCapabilities(el)
		},
	})

	return caps, nil
}

func parseFeatureType(el *etree.Element) FeatureType {
	var ft FeatureType
	xmlwalk.Walk(el, xmlwalk.Handlers{
		"Name":       func(c *etree.Element) { ft.Name = xmlwalk.Content(c) },
		"Title":      func(c *etree.Element) { ft.Title = xmlwalk.Content(c) },
		"Abstract":   func(c *etree.Element) { ft.Abstract = xmlwalk.Content(c) },
		"Keywords":   func(c *etree.Element) { ft.Keywords = append(ft.Keywords, xmlwalk.Texts(c, "Keyword")...) },
		"DefaultCRS": func(c *etree.Element) { ft.DefaultCRS = xmlwalk.Content(c) },
		"DefaultSRS": func(c *etree.Element) { ft.DefaultCRS = xmlwalk.Content(c) },
		"OtherCRS":   func(c *etree.Element) { ft.OtherCRS = append(ft.OtherCRS, xmlwalk.Content(c)) },
		"OtherSRS":   func(c *etree.Element) { ft.OtherCRS = append(ft.OtherCRS, xmlwalk.Content(c)) },
		"OutputFormats": func(c *etree.Element) {
			ft.OutputFormats = append(ft.OutputFormats, xmlwalk.Texts(c, "Format")...)
		},
		"WGS84BoundingBox": func(c *etree.Element) {
			if bbox, ok := ows.ParseBoundingBox(c); ok {
				ft.WGS84BoundingBox = bbox
			}
		},
		"MetadataURL": func(c *etree.Element) {
			href := xmlwalk.Href(c)
			if href == "" {
				href = xmlwalk.Content(c)
			}
			if href != "" {
				ft.MetadataURLs = append(ft.MetadataURLs, href)
			}
		},
	})
	ft.GeometryType = heuristics.GeometryType("", ft.Keywords, localName(ft.Name), ft.Title)
	return ft
}

// localName strips a namespace prefix such as "bgt:" from a type name.
func localName(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func parseFilterCapabilities(el *etree.Element) *FilterCapabilities {
	fc := &FilterCapabilities{}
	xmlwalk.Walk(el, xmlwalk.Handlers{
		"Conformance": func(c *etree.Element) {
			fc.Conformance = map[string]bool{}
			for _, d := range xmlwalk.Children(c, "Constraint") {
				domain := ows.ParseDomain(d)
				fc.Conformance[domain.Name] = xmlwalk.Bool(domain.DefaultValue)
			}
		},
		"Id_Capabilities": func(c *etree.Element) {
			for _, id := range c.ChildElements() {
				name := operatorName(id)
				if name == "" {
					name = id.Tag
				}
				fc.ResourceIDs = append(fc.ResourceIDs, name)
			}
		},
		"Scalar_Capabilities": func(c *etree.Element) {
			fc.LogicalOperators = xmlwalk.Child(c, "LogicalOperators") != nil
			fc.ComparisonOps = operatorNames(xmlwalk.Child(c, "ComparisonOperators"))
		},
		"Spatial_Capabilities": func(c *etree.Element) {
			fc.GeometryOperands = operatorNames(xmlwalk.Child(c, "GeometryOperands"))
			fc.SpatialOperators = operatorNames(xmlwalk.Child(c, "SpatialOperators"))
		},
		"Temporal_Capabilities": func(c *etree.Element) {
			fc.TemporalOperands = operatorNames(xmlwalk.Child(c, "TemporalOperands"))
			fc.TemporalOperators = operatorNames(xmlwalk.Child(c, "TemporalOperators"))
		},
		"Functions": func(c *etree.Element) {
			for _, f := range xmlwalk.Children(c, "Function") {
				fc.Functions = append(fc.Functions, parseFunction(f))
			}
		},
	})
	return fc
}

// operatorNames reads a list of operator or operand elements. FES 2.0 puts
// the name in an attribute, Filter 1.1 in the element content.
func operatorNames(el *etree.Element) []string {
	if el == nil {
		return nil
	}
	var out []string
	for _, child := range el.ChildElements() {
		if name := operatorName(child); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func operatorName(el *etree.Element) string {
	if name := xmlwalk.Attr(el, "name"); name != "" {
		return name
	}
	return xmlwalk.Content(el)
}

func parseFunction(el *etree.Element) Function {
	f := Function{Name: operatorName(el), Returns: xmlwalk.Text(el, "Returns")}
	for _, arg := range xmlwalk.Children(xmlwalk.Child(el, "Arguments"), "Argument") {
		f.Arguments = append(f.Arguments, Argument{
			Name: xmlwalk.Attr(arg, "name"),
			Type: xmlwalk.Text(arg, "Type"),
		})
	}
	return f
}
