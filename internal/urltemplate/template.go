// Copyright 2012 The Gorilla Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package urltemplate parses the brace templates found in tile URLs, such as
// WMTS ResourceURL templates ({TileMatrix}/{TileRow}/{TileCol}) and XYZ
// templates ({z}/{x}/{y}).
//
// The parser is derived from the route template parser in gorilla/mux.
package urltemplate

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// Template is a parsed URL template.
type Template struct {
	// The unmodified template.
	Template string
	// Variable names, in order of appearance.
	VarsN []string
	// Literal text around the variables; len(literals) == len(VarsN)+1.
	literals []string
}

// Parse parses a template such as "https://t/{TileMatrix}/{TileRow}/{TileCol}.png".
// A variable may carry its own pattern after a colon: "{z:[0-9]+}". The
// patterns are validated but only the names take part in expansion.
func Parse(tpl string) (*Template, error) {
	idxs, err := braceIndices(tpl)
	if err != nil {
		return nil, err
	}

	defaultPattern := "[^/?&]+"
	varsN := make([]string, len(idxs)/2)
	literals := make([]string, 0, len(idxs)/2+1)
	pattern := bytes.NewBufferString("^")

	var end int
	for i := 0; i < len(idxs); i += 2 {
		raw := tpl[end:idxs[i]]
		end = idxs[i+1]
		parts := strings.SplitN(tpl[idxs[i]+1:end-1], ":", 2)
		name := parts[0]
		patt := defaultPattern
		if len(parts) == 2 {
			patt = parts[1]
		}
		// Name or pattern can't be empty.
		if name == "" || patt == "" {
			return nil, fmt.Errorf("urltemplate: missing name or pattern in %q", tpl[idxs[i]:end])
		}
		fmt.Fprintf(pattern, "%s(?P<%s>%s)", regexp.QuoteMeta(raw), varGroupName(i/2), patt)

		literals = append(literals, raw)
		varsN[i/2] = name
	}
	raw := tpl[end:]
	literals = append(literals, raw)
	pattern.WriteString(regexp.QuoteMeta(raw))
	pattern.WriteByte('$')

	reg, err := regexp.Compile(pattern.String())
	if err != nil {
		return nil, err
	}
	// Check for capturing groups inside variable patterns.
	if reg.NumSubexp() != len(varsN) {
		return nil, fmt.Errorf("urltemplate: %s contains capture groups; use (?:pattern)", tpl)
	}

	return &Template{
		Template: tpl,
		VarsN:    varsN,
		literals: literals,
	}, nil
}

// Expand substitutes values, matched case-insensitively by name. Variables
// without a value are written back as {name}.
func (t *Template) Expand(values map[string]string) string {
	var b strings.Builder
	for i, name := range t.VarsN {
		b.WriteString(t.literals[i])
		if v, ok := lookup(values, name); ok {
			b.WriteString(v)
		} else {
			b.WriteString("{" + name + "}")
		}
	}
	b.WriteString(t.literals[len(t.literals)-1])
	return b.String()
}

// Expand parses tpl and expands it in one step. Malformed templates are
// returned unchanged.
func Expand(tpl string, values map[string]string) string {
	t, err := Parse(tpl)
	if err != nil {
		return tpl
	}
	return t.Expand(values)
}

func lookup(values map[string]string, name string) (string, bool) {
	if v, ok := values[name]; ok {
		return v, true
	}
	for k, v := range values {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// braceIndices returns the first level curly brace indices from a string.
// It returns an error in case of unbalanced braces.
func braceIndices(s string) ([]int, error) {
	var level, idx int
	var idxs []int
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			if level++; level == 1 {
				idx = i
			}
		case '}':
			if level--; level == 0 {
				idxs = append(idxs, idx, i+1)
			} else if level < 0 {
				return nil, fmt.Errorf("urltemplate: unbalanced braces in %q", s)
			}
		}
	}
	if level != 0 {
		return nil, fmt.Errorf("urltemplate: unbalanced braces in %q", s)
	}
	return idxs, nil
}

// varGroupName builds a capturing group name for the indexed variable.
func varGroupName(idx int) string {
	return fmt.Sprintf("v%d", idx)
}
