// Package xyz infers {z}/{x}/{y} tile templates from tile URLs and checks
// them by requesting the top level tile.
package xyz

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/delta10/ows-discovery/internal/heuristics"
	"github.com/delta10/ows-discovery/internal/utils"
)

// DefaultExtension is appended when a path carries no tile indices.
const DefaultExtension = ".png"

var (
	placeholders  = regexp.MustCompile(`(?i)\{z\}/\{x\}/\{-?y\}`)
	numericSuffix = regexp.MustCompile(`/\d+/\d+/\d+(\.[A-Za-z0-9]+)?$`)
	yExtension    = regexp.MustCompile(`(?i)\{-?y\}(\.[A-Za-z0-9]+)?$`)
)

// NormalizeToXYZFormat rewrites a tile path to use {z}/{x}/{y}. A trailing
// /<int>/<int>/<int>[.ext] run is replaced in place; other paths get
// /{z}/{x}/{y}.png appended. Paths that already carry placeholders are
// returned unchanged.
func NormalizeToXYZFormat(p string) string {
	if placeholders.MatchString(p) {
		return p
	}
	if m := numericSuffix.FindStringSubmatchIndex(p); m != nil {
		ext := ""
		if m[2] >= 0 {
			ext = p[m[2]:m[3]]
		}
		return p[:m[0]] + "/{z}/{x}/{y}" + ext
	}
	return strings.TrimRight(p, "/") + "/{z}/{x}/{y}" + DefaultExtension
}

// NormalizeURL applies NormalizeToXYZFormat to the path of u and returns
// the template with its placeholders unescaped.
func NormalizeURL(u *url.URL) string {
	t := *u
	t.Path = NormalizeToXYZFormat(u.Path)
	t.RawPath = ""
	t.Fragment = ""
	return utils.UnescapeBraces(t.String())
}

// Extension returns the file extension following the {y} placeholder of a
// template, including the dot.
func Extension(template string) string {
	path, _ := splitQuery(template)
	m := yExtension.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}

// WithExtension replaces the extension after the {y} placeholder.
func WithExtension(template, ext string) string {
	path, query := splitQuery(template)
	loc := yExtension.FindStringSubmatchIndex(path)
	if loc == nil {
		return template
	}
	end := loc[1]
	if loc[2] >= 0 {
		end = loc[2]
	}
	return path[:end] + ext + query
}

// Title names a tile layer after the path segment preceding the tile
// placeholders, or the host.
func Title(u *url.URL) string {
	p := u.Path
	if loc := placeholders.FindStringIndex(p); loc != nil {
		p = p[:loc[0]]
	} else if loc := numericSuffix.FindStringIndex(p); loc != nil {
		p = p[:loc[0]]
	}
	base := *u
	base.Path = strings.TrimRight(p, "/")
	return heuristics.TitleFromURL(&base)
}

func splitQuery(template string) (string, string) {
	if i := strings.IndexByte(template, '?'); i >= 0 {
		return template[:i], template[i:]
	}
	return template, ""
}
