// Package fetch performs the guarded HTTP requests every protocol client
// relies on: bounded timeouts, content-type checks and size limits.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Limits enforced on fetched documents.
const (
	MaxCapabilitiesBytes int64 = 5 * 1024 * 1024
	MaxGeoJSONBytes      int64 = 50 * 1024 * 1024
	MaxTileBytes         int64 = 10 * 1024 * 1024

	DefaultUserAgent = "ows-discovery/1.0"
)

// Config contains configuration for the fetch client
type Config struct {
	// HTTPClient is the HTTP client to use (optional).
	// Timeouts are applied per request through the context, so a shared
	// client without its own Timeout is fine.
	HTTPClient *http.Client

	UserAgent string

	CapabilitiesTimeout time.Duration
	GeoJSONTimeout      time.Duration
	TileTimeout         time.Duration

	MaxCapabilitiesBytes int64
	MaxGeoJSONBytes      int64
	MaxTileBytes         int64
}

// Client issues guarded requests against unknown endpoints.
type Client struct {
	config     Config
	httpClient *http.Client
}

// Response is a fully read, guarded HTTP response.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ContentType returns the response Content-Type header.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// Guard describes what an acceptable response looks like.
type Guard struct {
	MaxBytes int64
	Expect   string
	Accept   func(contentType string) bool
}

// NewClient creates a client with default timeouts and limits.
func NewClient() *Client {
	return NewClientWithConfig(Config{})
}

// NewClientWithConfig creates a client, filling unset fields with defaults.
func NewClientWithConfig(config Config) *Client {
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.CapabilitiesTimeout <= 0 {
		config.CapabilitiesTimeout = 10 * time.Second
	}
	if config.GeoJSONTimeout <= 0 {
		config.GeoJSONTimeout = 10 * time.Second
	}
	if config.TileTimeout <= 0 {
		config.TileTimeout = 5 * time.Second
	}
	if config.MaxCapabilitiesBytes <= 0 {
		config.MaxCapabilitiesBytes = MaxCapabilitiesBytes
	}
	if config.MaxGeoJSONBytes <= 0 {
		config.MaxGeoJSONBytes = MaxGeoJSONBytes
	}
	if config.MaxTileBytes <= 0 {
		config.MaxTileBytes = MaxTileBytes
	}
	return &Client{
		config:     config,
		httpClient: client,
	}
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// XMLGuard accepts capabilities documents.
func (c *Client) XMLGuard() Guard {
	return Guard{MaxBytes: c.config.MaxCapabilitiesBytes, Expect: "xml", Accept: IsXMLContentType}
}

// GeoJSONGuard accepts JSON-ish and text payloads.
func (c *Client) GeoJSONGuard() Guard {
	return Guard{MaxBytes: c.config.MaxGeoJSONBytes, Expect: "json", Accept: IsJSONContentType}
}

// IsXMLContentType reports whether ct names an XML document.
func IsXMLContentType(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "xml")
}

// IsJSONContentType reports whether ct is JSON-ish or any text type.
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.Contains(ct, "json") || strings.HasPrefix(ct, "text/")
}

// CheckHead validates content type and declared size with a HEAD request.
// Servers that refuse HEAD are let through; Get applies the same guard.
func (c *Client) CheckHead(ctx context.Context, rawURL string, guard Guard) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.CapabilitiesTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodHead, rawURL, "")
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return unreachable(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Errorf(KindUnreachable, rawURL, "received HTTP status %d", resp.StatusCode)
	}

	return checkHeaders(rawURL, resp.Header, contentLength(resp), guard, nil)
}

// Get performs a guarded GET and reads the body up to the guard limit.
func (c *Client) Get(ctx context.Context, rawURL, accept string, timeout time.Duration, guard Guard) (*Response, error) {
	if timeout <= 0 {
		timeout = c.config.CapabilitiesTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, rawURL, accept)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, unreachable(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, Errorf(KindUnreachable, rawURL, "received HTTP status %d", resp.StatusCode)
	}

	if err := checkHeaders(rawURL, resp.Header, contentLength(resp), guard, resp.Body); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, guard.MaxBytes+1))
	if err != nil {
		return nil, unreachable(rawURL, err)
	}
	if int64(len(body)) > guard.MaxBytes {
		return nil, Errorf(KindContentTooLarge, rawURL, "body exceeds %d bytes", guard.MaxBytes)
	}

	return &Response{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// FetchXML retrieves a capabilities document: HEAD guard first, then GET.
func (c *Client) FetchXML(ctx context.Context, rawURL string) (*Response, error) {
	guard := c.XMLGuard()
	if err := c.CheckHead(ctx, rawURL, guard); err != nil {
		return nil, err
	}
	return c.Get(ctx, rawURL, "application/xml, text/xml;q=0.9, */*;q=0.5", c.config.CapabilitiesTimeout, guard)
}

func (c *Client) newRequest(ctx context.Context, method, rawURL, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, Errorf(KindInvalidURL, rawURL, "failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return req, nil
}

func checkHeaders(rawURL string, header http.Header, length int64, guard Guard, body io.Reader) error {
	ct := header.Get("Content-Type")
	if guard.Accept != nil && !guard.Accept(ct) {
		msg := fmt.Sprintf("unexpected content type %q, expected %s", ct, guard.Expect)
		if body != nil && strings.Contains(strings.ToLower(ct), "html") {
			if title := describeHTML(body); title != "" {
				msg += " (" + title + ")"
			}
		}
		return &Error{Kind: KindInvalidContentType, URL: rawURL, Err: fmt.Errorf("%s", msg)}
	}
	if guard.MaxBytes > 0 && length > guard.MaxBytes {
		return Errorf(KindContentTooLarge, rawURL, "content length %d exceeds %d bytes", length, guard.MaxBytes)
	}
	return nil
}

func contentLength(resp *http.Response) int64 {
	if resp.ContentLength >= 0 {
		return resp.ContentLength
	}
	n, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func unreachable(rawURL string, err error) error {
	if urlErr, ok := err.(*url.Error); ok && urlErr.Timeout() {
		return Errorf(KindUnreachable, rawURL, "request timed out: %v", urlErr.Err)
	}
	return &Error{Kind: KindUnreachable, URL: rawURL, Err: err}
}
