// Package xmlwalk is the traversal primitive shared by the capabilities
// parsers. Elements and attributes are matched on their local name, so
// documents parse the same whatever prefixes or default namespaces the
// server chose.
package xmlwalk

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// Handlers maps a child's local name to the extractor run for it.
type Handlers map[string]func(el *etree.Element)

// Parse reads an XML document and returns its root element.
func Parse(data []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("document has no root element")
	}
	return root, nil
}

// Walk runs the handler registered for each direct child, in document order.
func Walk(parent *etree.Element, handlers Handlers) {
	if parent == nil {
		return
	}
	for _, child := range parent.ChildElements() {
		if h, ok := handlers[child.Tag]; ok {
			h(child)
		}
	}
}

// Child returns the first direct child with the given local name.
func Child(parent *etree.Element, name string) *etree.Element {
	if parent == nil {
		return nil
	}
	for _, child := range parent.ChildElements() {
		if child.Tag == name {
			return child
		}
	}
	return nil
}

// Children returns every direct child with the given local name.
func Children(parent *etree.Element, name string) []*etree.Element {
	if parent == nil {
		return nil
	}
	var out []*etree.Element
	for _, child := range parent.ChildElements() {
		if child.Tag == name {
			out = append(out, child)
		}
	}
	return out
}

// Path follows a chain of local names from parent.
func Path(parent *etree.Element, names ...string) *etree.Element {
	el := parent
	for _, name := range names {
		el = Child(el, name)
		if el == nil {
			return nil
		}
	}
	return el
}

// Find returns the first descendant (depth first) with the given local name.
func Find(parent *etree.Element, name string) *etree.Element {
	if parent == nil {
		return nil
	}
	for _, child := range parent.ChildElements() {
		if child.Tag == name {
			return child
		}
		if found := Find(child, name); found != nil {
			return found
		}
	}
	return nil
}

// Content returns the trimmed character data of el.
func Content(el *etree.Element) string {
	if el == nil {
		return ""
	}
	var b strings.Builder
	for _, tok := range el.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			b.WriteString(cd.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

// Text returns the content of the first child named name.
func Text(parent *etree.Element, name string) string {
	return Content(Child(parent, name))
}

// Texts returns the non-empty contents of all children named name.
func Texts(parent *etree.Element, name string) []string {
	var out []string
	for _, el := range Children(parent, name) {
		if s := Content(el); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Attr returns the value of the attribute with the given local name.
func Attr(el *etree.Element, name string) string {
	if el == nil {
		return ""
	}
	for _, a := range el.Attr {
		if a.Key == name && a.Space != "xmlns" {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

// Href returns the xlink:href of el.
func Href(el *etree.Element) string {
	return Attr(el, "href")
}

// Float parses s as a float.
func Float(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FloatPtr parses s, returning nil when it is not a number.
func FloatPtr(s string) *float64 {
	f, ok := Float(s)
	if !ok {
		return nil
	}
	return &f
}

// Int parses s as an integer, returning 0 when it is not one.
func Int(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// Bool parses the "0"/"1"/"true"/"false" forms used by OGC attributes.
func Bool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true":
		return true
	}
	return false
}

// Floats parses a whitespace separated list of numbers such as a
// lowerCorner. Tokens that are not numbers are skipped.
func Floats(s string) []float64 {
	var out []float64
	for _, field := range strings.Fields(s) {
		if f, ok := Float(field); ok {
			out = append(out, f)
		}
	}
	return out
}

// Pair parses a two-number coordinate.
func Pair(s string) ([2]float64, bool) {
	values := Floats(s)
	if len(values) < 2 {
		return [2]float64{}, false
	}
	return [2]float64{values[0], values[1]}, true
}

// ExceptionText returns the message of an OGC exception report root, or
// "" when root is not one.
func ExceptionText(root *etree.Element) string {
	if root == nil {
		return ""
	}
	switch root.Tag {
	case "ServiceExceptionReport", "ExceptionReport":
	default:
		return ""
	}
	var parts []string
	var collect func(el *etree.Element)
	collect = func(el *etree.Element) {
		for _, child := range el.ChildElements() {
			switch child.Tag {
			case "ServiceException", "ExceptionText":
				if s := Content(child); s != "" {
					parts = append(parts, s)
				}
			}
			collect(child)
		}
	}
	collect(root)
	if len(parts) == 0 {
		return root.Tag
	}
	return strings.Join(parts, "; ")
}
