package xyz

import (
	"bytes"
	"context"
	"image"
	"mime"
	"net/url"
	"strconv"
	"strings"

	// Decoders for tile dimensions.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/delta10/ows-discovery/internal/fetch"
	"github.com/delta10/ows-discovery/internal/urltemplate"
)

// Extensions tried after the template's own extension.
var probeExtensions = []string{"", ".png", ".jpg", ".jpeg", ".webp"}

var extensionTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// Capabilities describes a verified tile template.
type Capabilities struct {
	Template   string `json:"template"`
	Extension  string `json:"extension"`
	Format     string `json:"format"`
	TileWidth  int    `json:"tileWidth,omitempty"`
	TileHeight int    `json:"tileHeight,omitempty"`
}

// Result is a tile template that served an image for the top level tile.
type Result struct {
	Title        string
	Capabilities *Capabilities
}

// Client probes tile templates.
type Client struct {
	fetch *fetch.Client
}

func NewClient(f *fetch.Client) *Client {
	return &Client{fetch: f}
}

// Probe normalizes u to a tile template and requests tile 0/0/0 with the
// template's extension, then without one, then with each known image
// extension. The first response with an image type matching the tried
// extension wins.
func (c *Client) Probe(ctx context.Context, u *url.URL) (*Result, error) {
	template := NormalizeURL(u)

	var lastErr error
	for _, ext := range candidateExtensions(Extension(template)) {
		candidate := WithExtension(template, ext)
		caps, err := c.testTemplate(ctx, candidate, ext)
		if err != nil {
			lastErr = err
			continue
		}
		return &Result{Title: Title(u), Capabilities: caps}, nil
	}
	return nil, lastErr
}

func (c *Client) testTemplate(ctx context.Context, template, ext string) (*Capabilities, error) {
	tileURL := TileURL(template, 0, 0, 0)
	cfg := c.fetch.Config()
	guard := fetch.Guard{MaxBytes: cfg.MaxTileBytes, Expect: "image", Accept: isImage}

	resp, err := c.fetch.Get(ctx, tileURL, "image/*", cfg.TileTimeout, guard)
	if err != nil {
		return nil, err
	}

	format := mediaType(resp.ContentType())
	if want, ok := extensionTypes[strings.ToLower(ext)]; ok && format != want {
		return nil, fetch.Errorf(fetch.KindInvalidContentType, tileURL, "content type %q does not match extension %q", format, ext)
	}

	caps := &Capabilities{
		Template:  template,
		Extension: ext,
		Format:    format,
	}
	if img, _, err := image.DecodeConfig(bytes.NewReader(resp.Body)); err == nil {
		caps.TileWidth = img.Width
		caps.TileHeight = img.Height
	}
	return caps, nil
}

// TileURL expands a template for one tile. {-y} is the TMS row, counted
// from the bottom, and {s} selects the first subdomain.
func TileURL(template string, z, x, y int) string {
	return urltemplate.Expand(template, map[string]string{
		"z":  strconv.Itoa(z),
		"x":  strconv.Itoa(x),
		"y":  strconv.Itoa(y),
		"-y": strconv.Itoa((1 << uint(z)) - 1 - y),
		"s":  "a",
	})
}

func candidateExtensions(own string) []string {
	out := make([]string, 0, len(probeExtensions)+1)
	if own != "" {
		out = append(out, own)
	}
	for _, ext := range probeExtensions {
		if ext != "" && strings.EqualFold(ext, own) {
			continue
		}
		out = append(out, ext)
	}
	return out
}

func isImage(ct string) bool {
	return strings.HasPrefix(mediaType(ct), "image/")
}

func mediaType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return strings.ToLower(mt)
}
