package wms

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/delta10/ows-discovery/internal/utils"
	"github.com/delta10/ows-discovery/internal/xmlwalk"
)

// Parse turns a WMS capabilities document into a Capabilities record.
func Parse(data []byte) (*Capabilities, error) {
	root, err := xmlwalk.Parse(data)
	if err != nil {
		return nil, err
	}
	if msg := xmlwalk.ExceptionText(root); msg != "" {
		return nil, fmt.Errorf("service exception: %s", msg)
	}
	if root.Tag != "WMS_Capabilities" && root.Tag != "WMT_MS_Capabilities" {
		return nil, fmt.Errorf("unexpected root element %q", root.Tag)
	}

	capability := xmlwalk.Child(root, "Capability")
	if capability == nil {
		return nil, fmt.Errorf("missing Capability element")
	}

	caps := &Capabilities{
		Version:        xmlwalk.Attr(root, "version"),
		UpdateSequence: xmlwalk.Attr(root, "updateSequence"),
		Service:        parseService(xmlwalk.Child(root, "Service")),
		Capability: Capability{
			Request: map[string]Operation{},
		},
	}

	xmlwalk.Walk(capability, xmlwalk.Handlers{
		"Request": func(el *etree.Element) {
			for _, op := range el.ChildElements() {
				caps.Capability.Request[op.Tag] = parseOperation(op)
			}
		},
		"Exception": func(el *etree.Element) {
			caps.Capability.Exception = xmlwalk.Texts(el, "Format")
		},
		"Layer": func(el *etree.Element) {
			caps.Capability.Layers = append(caps.Capability.Layers, parseLayer(el, nil))
		},
	})

	return caps, nil
}

func parseService(el *etree.Element) Service {
	var s Service
	xmlwalk.Walk(el, xmlwalk.Handlers{
		"Name":     func(c *etree.Element) { s.Name = xmlwalk.Content(c) },
		"Title":    func(c *etree.Element) { s.Title = xmlwalk.Content(c) },
		"Abstract": func(c *etree.Element) { s.Abstract = xmlwalk.Content(c) },
		"KeywordList": func(c *etree.Element) {
			s.Keywords = append(s.Keywords, xmlwalk.Texts(c, "Keyword")...)
		},
		"OnlineResource":     func(c *etree.Element) { s.OnlineResource = xmlwalk.Href(c) },
		"ContactInformation": func(c *etree.Element) { s.ContactInformation = parseContact(c) },
		"Fees":               func(c *etree.Element) { s.Fees = xmlwalk.Content(c) },
		"AccessConstraints":  func(c *etree.Element) { s.AccessConstraints = xmlwalk.Content(c) },
		"LayerLimit":         func(c *etree.Element) { s.LayerLimit = xmlwalk.Int(xmlwalk.Content(c)) },
		"MaxWidth":           func(c *etree.Element) { s.MaxWidth = xmlwalk.Int(xmlwalk.Content(c)) },
		"MaxHeight":          func(c *etree.Element) { s.MaxHeight = xmlwalk.Int(xmlwalk.Content(c)) },
	})
	return s
}

func parseContact(el *etree.Element) *ContactInformation {
	ci := &ContactInformation{}
	xmlwalk.Walk(el, xmlwalk.Handlers{
		"ContactPersonPrimary": func(c *etree.Element) {
			ci.ContactPerson = xmlwalk.Text(c, "ContactPerson")
			ci.ContactOrganization = xmlwalk.Text(c, "ContactOrganization")
		},
		"ContactPosition": func(c *etree.Element) { ci.ContactPosition = xmlwalk.Content(c) },
		"ContactAddress": func(c *etree.Element) {
			ci.ContactAddress = ContactAddress{
				AddressType:     xmlwalk.Text(c, "AddressType"),
				Address:         xmlwalk.Text(c, "Address"),
				City:            xmlwalk.Text(c, "City"),
				StateOrProvince: xmlwalk.Text(c, "StateOrProvince"),
				PostCode:        xmlwalk.Text(c, "PostCode"),
				Country:         xmlwalk.Text(c, "Country"),
			}
		},
		"ContactVoiceTelephone":        func(c *etree.Element) { ci.ContactVoiceTelephone = xmlwalk.Content(c) },
		"ContactFacsimileTelephone":    func(c *etree.Element) { ci.ContactFacsimileTelephone = xmlwalk.Content(c) },
		"ContactElectronicMailAddress": func(c *etree.Element) { ci.ContactElectronicMailAddress = xmlwalk.Content(c) },
	})
	return ci
}

func parseOperation(el *etree.Element) Operation {
	op := Operation{Formats: xmlwalk.Texts(el, "Format")}
	for _, dcp := range xmlwalk.Children(el, "DCPType") {
		http := xmlwalk.Child(dcp, "HTTP")
		if op.Get == "" {
			op.Get = xmlwalk.Href(xmlwalk.Path(http, "Get", "OnlineResource"))
		}
		if op.Post == "" {
			op.Post = xmlwalk.Href(xmlwalk.Path(http, "Post", "OnlineResource"))
		}
	}
	return op
}

// parseLayer reads one Layer element. Properties the element does not
// define are taken from parent before the children are parsed, so every
// layer in the returned tree is self-contained.
func parseLayer(el *etree.Element, parent *Layer) *Layer {
	l := &Layer{
		Queryable:   xmlwalk.Bool(xmlwalk.Attr(el, "queryable")),
		Opaque:      xmlwalk.Bool(xmlwalk.Attr(el, "opaque")),
		Cascaded:    xmlwalk.Int(xmlwalk.Attr(el, "cascaded")),
		NoSubsets:   xmlwalk.Bool(xmlwalk.Attr(el, "noSubsets")),
		FixedWidth:  xmlwalk.Int(xmlwalk.Attr(el, "fixedWidth")),
		FixedHeight: xmlwalk.Int(xmlwalk.Attr(el, "fixedHeight")),
	}

	var scaleHint *etree.Element
	extents := map[string]*etree.Element{}

	xmlwalk.Walk(el, xmlwalk.Handlers{
		"Name":     func(c *etree.Element) { l.Name = xmlwalk.Content(c) },
		"Title":    func(c *etree.Element) { l.Title = xmlwalk.Content(c) },
		"Abstract": func(c *etree.Element) { l.Abstract = xmlwalk.Content(c) },
		"KeywordList": func(c *etree.Element) {
			l.Keywords = append(l.Keywords, xmlwalk.Texts(c, "Keyword")...)
		},
		"CRS": func(c *etree.Element) { l.CRS = append(l.CRS, strings.Fields(xmlwalk.Content(c))...) },
		"SRS": func(c *etree.Element) { l.CRS = append(l.CRS, strings.Fields(xmlwalk.Content(c))...) },
		"EX_GeographicBoundingBox": func(c *etree.Element) {
			l.EXGeographicBoundingBox = parseGeographicBBox(c)
		},
		"LatLonBoundingBox": func(c *etree.Element) {
			if l.EXGeographicBoundingBox == nil {
				l.EXGeographicBoundingBox = parseLatLonBBox(c)
			}
		},
		"BoundingBox": func(c *etree.Element) {
			if bbox, ok := parseBBox(c); ok {
				l.BoundingBoxes = append(l.BoundingBoxes, bbox)
			}
		},
		"Dimension": func(c *etree.Element) { l.Dimensions = append(l.Dimensions, parseDimension(c)) },
		"Extent":    func(c *etree.Element) { extents[xmlwalk.Attr(c, "name")] = c },
		"Attribution": func(c *etree.Element) {
			l.Attribution = parseAttribution(c)
		},
		"AuthorityURL": func(c *etree.Element) {
			l.AuthorityURLs = append(l.AuthorityURLs, AuthorityURL{
				Name:           xmlwalk.Attr(c, "name"),
				OnlineResource: xmlwalk.Href(xmlwalk.Child(c, "OnlineResource")),
			})
		},
		"Identifier": func(c *etree.Element) {
			l.Identifiers = append(l.Identifiers, Identifier{Authority: xmlwalk.Attr(c, "authority"), Value: xmlwalk.Content(c)})
		},
		"MetadataURL": func(c *etree.Element) {
			l.MetadataURLs = append(l.MetadataURLs, MetadataURL{
				Type:           xmlwalk.Attr(c, "type"),
				Format:         xmlwalk.Text(c, "Format"),
				OnlineResource: xmlwalk.Href(xmlwalk.Child(c, "OnlineResource")),
			})
		},
		"DataURL": func(c *etree.Element) {
			if href := xmlwalk.Href(xmlwalk.Child(c, "OnlineResource")); href != "" {
				l.DataURLs = append(l.DataURLs, href)
			}
		},
		"Style":               func(c *etree.Element) { l.Styles = append(l.Styles, parseStyle(c)) },
		"MinScaleDenominator": func(c *etree.Element) { l.MinScaleDenominator = xmlwalk.FloatPtr(xmlwalk.Content(c)) },
		"MaxScaleDenominator": func(c *etree.Element) { l.MaxScaleDenominator = xmlwalk.FloatPtr(xmlwalk.Content(c)) },
		"ScaleHint":           func(c *etree.Element) { scaleHint = c },
	})

	// WMS 1.1.1 carries dimension values and defaults in a separate Extent.
	for i := range l.Dimensions {
		if ext, ok := extents[l.Dimensions[i].Name]; ok {
			if l.Dimensions[i].Values == "" {
				l.Dimensions[i].Values = xmlwalk.Content(ext)
			}
			if l.Dimensions[i].Default == "" {
				l.Dimensions[i].Default = xmlwalk.Attr(ext, "default")
			}
		}
	}

	if scaleHint != nil && l.MinScaleDenominator == nil && l.MaxScaleDenominator == nil {
		l.MinScaleDenominator, l.MaxScaleDenominator = ScaleHintToDenominators(
			xmlwalk.FloatPtr(xmlwalk.Attr(scaleHint, "min")),
			xmlwalk.FloatPtr(xmlwalk.Attr(scaleHint, "max")),
		)
	}

	if parent != nil {
		inherit(l, parent, el)
	}

	for _, child := range xmlwalk.Children(el, "Layer") {
		l.Layers = append(l.Layers, parseLayer(child, l))
	}
	return l
}

// ScaleHintToDenominators converts a legacy ScaleHint into scale
// denominators: min = 1/hint.max, max = 1/hint.min when hint.min is set.
func ScaleHintToDenominators(hintMin, hintMax *float64) (minScale, maxScale *float64) {
	if hintMax != nil && *hintMax > 0 {
		v := 1 / *hintMax
		minScale = &v
	}
	if hintMin != nil && *hintMin > 0 {
		v := 1 / *hintMin
		maxScale = &v
	}
	return minScale, maxScale
}

// inherit fills l from its parent. CRS, styles and authority URLs are
// additive; every other inheritable property is replaced by the child's
// own value when it has one.
func inherit(l, parent *Layer, el *etree.Element) {
	l.CRS = mergeStrings(l.CRS, parent.CRS)
	l.Styles = mergeStyles(l.Styles, parent.Styles)
	l.AuthorityURLs = mergeAuthorities(l.AuthorityURLs, parent.AuthorityURLs)

	if l.EXGeographicBoundingBox == nil {
		l.EXGeographicBoundingBox = parent.EXGeographicBoundingBox
	}
	if len(l.BoundingBoxes) == 0 {
		l.BoundingBoxes = append([]BoundingBox(nil), parent.BoundingBoxes...)
	}
	if len(l.Dimensions) == 0 {
		l.Dimensions = append([]Dimension(nil), parent.Dimensions...)
	}
	if l.Attribution == nil {
		l.Attribution = parent.Attribution
	}
	if len(l.MetadataURLs) == 0 {
		l.MetadataURLs = append([]MetadataURL(nil), parent.MetadataURLs...)
	}
	if l.MinScaleDenominator == nil {
		l.MinScaleDenominator = parent.MinScaleDenominator
	}
	if l.MaxScaleDenominator == nil {
		l.MaxScaleDenominator = parent.MaxScaleDenominator
	}

	if xmlwalk.Attr(el, "queryable") == "" {
		l.Queryable = parent.Queryable
	}
	if xmlwalk.Attr(el, "opaque") == "" {
		l.Opaque = parent.Opaque
	}
	if xmlwalk.Attr(el, "cascaded") == "" {
		l.Cascaded = parent.Cascaded
	}
	if xmlwalk.Attr(el, "noSubsets") == "" {
		l.NoSubsets = parent.NoSubsets
	}
	if xmlwalk.Attr(el, "fixedWidth") == "" {
		l.FixedWidth = parent.FixedWidth
	}
	if xmlwalk.Attr(el, "fixedHeight") == "" {
		l.FixedHeight = parent.FixedHeight
	}
}

func mergeStrings(own, inherited []string) []string {
	out := append([]string(nil), own...)
	for _, s := range inherited {
		if !utils.StringInSlice(s, out) {
			out = append(out, s)
		}
	}
	return out
}

func mergeStyles(own, inherited []Style) []Style {
	out := append([]Style(nil), own...)
	for _, s := range inherited {
		found := false
		for _, o := range out {
			if o.Name == s.Name {
				found = true
				break
			}
		}
		if !found {
			out = append(out, s)
		}
	}
	return out
}

func mergeAuthorities(own, inherited []AuthorityURL) []AuthorityURL {
	out := append([]AuthorityURL(nil), own...)
	for _, a := range inherited {
		found := false
		for _, o := range out {
			if o.Name == a.Name {
				found = true
				break
			}
		}
		if !found {
			out = append(out, a)
		}
	}
	return out
}

func parseGeographicBBox(el *etree.Element) *GeographicBoundingBox {
	west, ok1 := xmlwalk.Float(xmlwalk.Text(el, "westBoundLongitude"))
	east, ok2 := xmlwalk.Float(xmlwalk.Text(el, "eastBoundLongitude"))
	south, ok3 := xmlwalk.Float(xmlwalk.Text(el, "southBoundLatitude"))
	north, ok4 := xmlwalk.Float(xmlwalk.Text(el, "northBoundLatitude"))
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}
	return &GeographicBoundingBox{WestBoundLongitude: west, EastBoundLongitude: east, SouthBoundLatitude: south, NorthBoundLatitude: north}
}

func parseLatLonBBox(el *etree.Element) *GeographicBoundingBox {
	minx, ok1 := xmlwalk.Float(xmlwalk.Attr(el, "minx"))
	miny, ok2 := xmlwalk.Float(xmlwalk.Attr(el, "miny"))
	maxx, ok3 := xmlwalk.Float(xmlwalk.Attr(el, "maxx"))
	maxy, ok4 := xmlwalk.Float(xmlwalk.Attr(el, "maxy"))
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}
	return &GeographicBoundingBox{WestBoundLongitude: minx, EastBoundLongitude: maxx, SouthBoundLatitude: miny, NorthBoundLatitude: maxy}
}

func parseBBox(el *etree.Element) (BoundingBox, bool) {
	crs := xmlwalk.Attr(el, "CRS")
	if crs == "" {
		crs = xmlwalk.Attr(el, "SRS")
	}
	minx, ok1 := xmlwalk.Float(xmlwalk.Attr(el, "minx"))
	miny, ok2 := xmlwalk.Float(xmlwalk.Attr(el, "miny"))
	maxx, ok3 := xmlwalk.Float(xmlwalk.Attr(el, "maxx"))
	maxy, ok4 := xmlwalk.Float(xmlwalk.Attr(el, "maxy"))
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return BoundingBox{}, false
	}
	bbox := BoundingBox{CRS: crs, MinX: minx, MinY: miny, MaxX: maxx, MaxY: maxy}
	bbox.ResX, _ = xmlwalk.Float(xmlwalk.Attr(el, "resx"))
	bbox.ResY, _ = xmlwalk.Float(xmlwalk.Attr(el, "resy"))
	return bbox, true
}

func parseDimension(el *etree.Element) Dimension {
	return Dimension{
		Name:           xmlwalk.Attr(el, "name"),
		Units:          xmlwalk.Attr(el, "units"),
		UnitSymbol:     xmlwalk.Attr(el, "unitSymbol"),
		Default:        xmlwalk.Attr(el, "default"),
		MultipleValues: xmlwalk.Bool(xmlwalk.Attr(el, "multipleValues")),
		NearestValue:   xmlwalk.Bool(xmlwalk.Attr(el, "nearestValue")),
		Current:        xmlwalk.Bool(xmlwalk.Attr(el, "current")),
		Values:         xmlwalk.Content(el),
	}
}

func parseAttribution(el *etree.Element) *Attribution {
	a := &Attribution{
		Title:          xmlwalk.Text(el, "Title"),
		OnlineResource: xmlwalk.Href(xmlwalk.Child(el, "OnlineResource")),
	}
	if logo := xmlwalk.Child(el, "LogoURL"); logo != nil {
		a.LogoURL = &LogoURL{
			Format:         xmlwalk.Text(logo, "Format"),
			Width:          xmlwalk.Int(xmlwalk.Attr(logo, "width")),
			Height:         xmlwalk.Int(xmlwalk.Attr(logo, "height")),
			OnlineResource: xmlwalk.Href(xmlwalk.Child(logo, "OnlineResource")),
		}
	}
	return a
}

func parseStyle(el *etree.Element) Style {
	s := Style{
		Name:     xmlwalk.Text(el, "Name"),
		Title:    xmlwalk.Text(el, "Title"),
		Abstract: xmlwalk.Text(el, "Abstract"),
	}
	for _, legend := range xmlwalk.Children(el, "LegendURL") {
		l := LegendURL{
			Format:         xmlwalk.Text(legend, "Format"),
			Width:          xmlwalk.Int(xmlwalk.Attr(legend, "width")),
			Height:         xmlwalk.Int(xmlwalk.Attr(legend, "height")),
			OnlineResource: xmlwalk.Href(xmlwalk.Child(legend, "OnlineResource")),
		}
		l.URL = BuildLegendURL(l.OnlineResource, l.Format, l.Width, l.Height)
		s.LegendURLs = append(s.LegendURLs, l)
	}
	return s
}

// BuildLegendURL adds width, height and format to a legend resource when
// they are known and not already part of its query.
func BuildLegendURL(href, format string, width, height int) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	q := u.Query()
	changed := false
	set := func(key, value string) {
		if value == "" || utils.HasParam(q, key) {
			return
		}
		q.Set(key, value)
		changed = true
	}
	if width > 0 {
		set("width", strconv.Itoa(width))
	}
	if height > 0 {
		set("height", strconv.Itoa(height))
	}
	set("format", format)
	if !changed {
		return href
	}
	u.RawQuery = q.Encode()
	return u.String()
}
