package wmts

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/delta10/ows-discovery/internal/ows"
	"github.com/delta10/ows-discovery/internal/xmlwalk"
)

// Parse turns a WMTS capabilities document into a Capabilities record. The
// document must have a Capabilities root with a Contents block.
func Parse(data []byte) (*Capabilities, error) {
	root, err := xmlwalk.Parse(data)
	if err != nil {
		return nil, err
	}
	if msg := xmlwalk.ExceptionText(root); msg != "" {
		return nil, fmt.Errorf("service exception: %s", msg)
	}
	if root.Tag != "Capabilities" {
		return nil, fmt.Errorf("unexpected root element %q", root.Tag)
	}
	contents := xmlwalk.Child(root, "Contents")
	if contents == nil {
		return nil, fmt.Errorf("missing Contents element")
	}

	caps := &Capabilities{
		Version: xmlwalk.Attr(root, "version"),
		Contents: Contents{
			TileMatrixSets: map[string]*TileMatrixSet{},
		},
	}

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
		"ServiceMetadataURL": func(el *etree.Element) {
			caps.ServiceMetadataURL = xmlwalk.Href(el)
		},
	})

	xmlwalk.Walk(contents, xmlwalk.Handlers{
		"Layer": func(el *etree.Element) {
			caps.Contents.Layers = append(caps.Contents.Layers, parseLayer(el))
		},
		"TileMatrixSet": func(el *etree.Element) {
			tms := parseTileMatrixSet(el)
			if tms.Identifier != "" {
				caps.Contents.TileMatrixSets[tms.Identifier] = tms
			}
		},
	})

	return caps, nil
}

func parseLayer(el *etree.Element) *Layer {
	l := &Layer{}
	xmlwalk.Walk(el, xmlwalk.Handlers{
		"Identifier": func(c *etree.Element) { l.Identifier = xmlwalk.Content(c) },
		"Title":      func(c *etree.Element) { l.Title = xmlwalk.Content(c) },
		"Abstract":   func(c *etree.Element) { l.Abstract = xmlwalk.Content(c) },
		"Keywords":   func(c *etree.Element) { l.Keywords = append(l.Keywords, xmlwalk.Texts(c, "Keyword")...) },
		"WGS84BoundingBox": func(c *etree.Element) {
			if bbox, ok := ows.ParseBoundingBox(c); ok {
				l.WGS84BoundingBox = bbox
			}
		},
		"BoundingBox": func(c *etree.Element) {
			if bbox, ok := ows.ParseBoundingBox(c); ok {
				l.BoundingBoxes = append(l.BoundingBoxes, *bbox)
			}
		},
		"Style":      func(c *etree.Element) { l.Styles = append(l.Styles, parseStyle(c)) },
		"Format":     func(c *etree.Element) { l.Formats = append(l.Formats, xmlwalk.Content(c)) },
		"InfoFormat": func(c *etree.Element) { l.InfoFormats = append(l.InfoFormats, xmlwalk.Content(c)) },
		"Dimension":  func(c *etree.Element) { l.Dimensions = append(l.Dimensions, parseDimension(c)) },
		"ResourceURL": func(c *etree.Element) {
			l.ResourceURLs = append(l.ResourceURLs, ResourceURL{
				Format:       xmlwalk.Attr(c, "format"),
				ResourceType: xmlwalk.Attr(c, "resourceType"),
				Template:     xmlwalk.Attr(c, "template"),
			})
		},
		"TileMatrixSetLink": func(c *etree.Element) {
			l.TileMatrixSetLinks = append(l.TileMatrixSetLinks, parseTileMatrixSetLink(c))
		},
	})
	return l
}

func parseStyle(el *etree.Element) Style {
	s := Style{IsDefault: xmlwalk.Bool(xmlwalk.Attr(el, "isDefault"))}
	xmlwalk.Walk(el, xmlwalk.Handlers{
		"Identifier": func(c *etree.Element) { s.Identifier = xmlwalk.Content(c) },
		"Title":      func(c *etree.Element) { s.Title = xmlwalk.Content(c) },
		"LegendURL": func(c *etree.Element) {
			s.LegendURLs = append(s.LegendURLs, LegendURL{
				Format: xmlwalk.Attr(c, "format"),
				Href:   xmlwalk.Href(c),
				Width:  xmlwalk.Int(xmlwalk.Attr(c, "width")),
				Height: xmlwalk.Int(xmlwalk.Attr(c, "height")),
			})
		},
	})
	return s
}

func parseDimension(el *etree.Element) Dimension {
	var d Dimension
	xmlwalk.Walk(el, xmlwalk.Handlers{
		"Identifier": func(c *etree.Element) { d.Identifier = xmlwalk.Content(c) },
		"Title":      func(c *etree.Element) { d.Title = xmlwalk.Content(c) },
		"UOM":        func(c *etree.Element) { d.UOM = xmlwalk.Content(c) },
		"Default":    func(c *etree.Element) { d.Default = xmlwalk.Content(c) },
		"Current":    func(c *etree.Element) { d.Current = xmlwalk.Bool(xmlwalk.Content(c)) },
		"Value":      func(c *etree.Element) { d.Values = append(d.Values, xmlwalk.Content(c)) },
	})
	return d
}

func parseTileMatrixSetLink(el *etree.Element) TileMatrixSetLink {
	link := TileMatrixSetLink{TileMatrixSet: xmlwalk.Text(el, "TileMatrixSet")}
	for _, limits := range xmlwalk.Children(xmlwalk.Child(el, "TileMatrixSetLimits"), "TileMatrixLimits") {
		link.Limits = append(link.Limits, TileMatrixLimits{
			TileMatrix: xmlwalk.Text(limits, "TileMatrix"),
			MinTileRow: xmlwalk.Int(xmlwalk.Text(limits, "MinTileRow")),
			MaxTileRow: xmlwalk.Int(xmlwalk.Text(limits, "MaxTileRow")),
			MinTileCol: xmlwalk.Int(xmlwalk.Text(limits, "MinTileCol")),
			MaxTileCol: xmlwalk.Int(xmlwalk.Text(limits, "MaxTileCol")),
		})
	}
	return link
}

func parseTileMatrixSet(el *etree.Element) *TileMatrixSet {
	tms := &TileMatrixSet{}
	xmlwalk.Walk(el, xmlwalk.Handlers{
		"Identifier":        func(c *etree.Element) { tms.Identifier = xmlwalk.Content(c) },
		"Title":             func(c *etree.Element) { tms.Title = xmlwalk.Content(c) },
		"SupportedCRS":      func(c *etree.Element) { tms.SupportedCRS = xmlwalk.Content(c) },
		"WellKnownScaleSet": func(c *etree.Element) { tms.WellKnownScaleSet = xmlwalk.Content(c) },
		"BoundingBox": func(c *etree.Element) {
			if bbox, ok := ows.ParseBoundingBox(c); ok {
				tms.BoundingBox = bbox
			}
		},
		"TileMatrix": func(c *etree.Element) { tms.TileMatrices = append(tms.TileMatrices, parseTileMatrix(c)) },
	})
	return tms
}

func parseTileMatrix(el *etree.Element) TileMatrix {
	tm := TileMatrix{Identifier: xmlwalk.Text(el, "Identifier")}
	tm.ScaleDenominator, _ = xmlwalk.Float(xmlwalk.Text(el, "ScaleDenominator"))
	tm.TopLeftCorner, _ = xmlwalk.Pair(xmlwalk.Text(el, "TopLeftCorner"))
	tm.TileWidth = xmlwalk.Int(xmlwalk.Text(el, "TileWidth"))
	tm.TileHeight = xmlwalk.Int(xmlwalk.Text(el, "TileHeight"))
	tm.MatrixWidth = xmlwalk.Int(xmlwalk.Text(el, "MatrixWidth"))
	tm.MatrixHeight = xmlwalk.Int(xmlwalk.Text(el, "MatrixHeight"))
	return tm
}
