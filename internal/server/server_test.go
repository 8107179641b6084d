package server

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/delta10/ows-discovery/internal/config"
	"github.com/delta10/ows-discovery/internal/fetch"
	"github.com/delta10/ows-discovery/internal/logs"
	"github.com/delta10/ows-discovery/internal/probe"
)

type fakeDiscoverer struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakeDiscoverer) LoadService(_ context.Context, rawURL string) *probe.ServiceInfo {
	f.mu.Lock()
	f.urls = append(f.urls, rawURL)
	f.mu.Unlock()

	if rawURL == "https://example.com/broken" {
		return &probe.ServiceInfo{
			ServiceURL: rawURL,
			Error:      "no service found",
			ErrorKind:  fetch.KindNoMatchingProtocol,
		}
	}
	return &probe.ServiceInfo{
		ServiceURL:   rawURL,
		ServiceTitle: "Luchtfoto",
		Type:         probe.TypeWMS,
		Capabilities: map[string]interface{}{
			"layers": []string{"ortho", "infrared"},
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *fakeDiscoverer) {
	t.Helper()
	d := &fakeDiscoverer{}
	s, err := New(cfg, d, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, d
}

func get(t *testing.T, h http.Handler, target string, header http.Header) (*httptest.ResponseRecorder, interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func discoverPath(rawURL string, extra url.Values) string {
	q := url.Values{"url": {rawURL}}
	for k, v := range extra {
		q[k] = v
	}
	return "/discover?" + q.Encode()
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, config.Default())
	rec, body := get(t, s.Handler(), "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"status": "ok"}, body)
}

func TestDiscover(t *testing.T) {
	s, d := newTestServer(t, config.Default())

	rec, body := get(t, s.Handler(), discoverPath("https://example.com/wms", nil), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	m := body.(map[string]interface{})
	assert.Equal(t, "WMS", m["type"])
	assert.Equal(t, "Luchtfoto", m["serviceTitle"])
	assert.Nil(t, m["error"])
	assert.Equal(t, []string{"https://example.com/wms"}, d.urls)
}

func TestDiscoverReportsFailureWithOK(t *testing.T) {
	s, _ := newTestServer(t, config.Default())

	rec, body := get(t, s.Handler(), discoverPath("https://example.com/broken", nil), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	m := body.(map[string]interface{})
	assert.Nil(t, m["type"])
	assert.Equal(t, "no service found", m["error"])
	assert.Equal(t, "NoMatchingProtocol", m["errorKind"])
}

func TestDiscoverFilter(t *testing.T) {
	s, _ := newTestServer(t, config.Default())

	rec, body := get(t, s.Handler(), discoverPath("https://example.com/wms", url.Values{"filter": {".capabilities.layers[]"}}), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"ortho", "infrared"}, body)

	rec, body = get(t, s.Handler(), discoverPath("https://example.com/wms", url.Values{"filter": {".type"}}), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "WMS", body)
}

func TestDiscoverBadRequests(t *testing.T) {
	s, d := newTestServer(t, config.Default())

	tests := []struct {
		name   string
		target string
	}{
		{"missing url", "/discover"},
		{"bad filter", discoverPath("https://example.com/wms", url.Values{"filter": {".type | ["}})},
		{"repeated key", "/discover?url=https://a.example.com&URL=https://b.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, s.Handler(), tt.target, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, body.(map[string]interface{})["message"])
		})
	}
	assert.Empty(t, d.urls)
}

func TestDiscoverMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, config.Default())

	req := httptest.NewRequest(http.MethodPost, discoverPath("https://example.com/wms", nil), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestConfiguredPath(t *testing.T) {
	cfg := config.Default()
	cfg.Paths = []config.Path{{Path: "/title", Filter: ".serviceTitle"}}
	s, _ := newTestServer(t, cfg)

	// The preset filter wins over a filter in the request.
	rec, body := get(t, s.Handler(), "/title?url=https://example.com/wms&filter=.type", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Luchtfoto", body)
}

func TestNewRejectsBadPathFilter(t *testing.T) {
	cfg := config.Default()
	cfg.Paths = []config.Path{{Path: "/broken", Filter: "{"}}
	_, err := New(cfg, &fakeDiscoverer{}, nil)
	assert.Error(t, err)
}

func TestAuditLog(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []logs.Body
	)
	loki := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body logs.Body
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer loki.Close()

	cfg := config.Default()
	cfg.AuditLogBackend = "loki"
	cfg.LogBackends = map[string]config.LogBackend{
		"loki": {BaseURL: loki.URL, Labels: map[string]string{"env": "test"}},
	}
	s, _ := newTestServer(t, cfg)

	rec, _ := get(t, s.Handler(), discoverPath("https://example.com/wms", nil), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1)
	stream := bodies[0].Streams[0]
	assert.Equal(t, "test", stream.Stream["env"])
	assert.Equal(t, "ows-discovery", stream.Stream["source"])
	assert.Equal(t, "WMS", stream.Stream["service_type"])

	var line map[string]string
	require.NoError(t, json.Unmarshal([]byte(stream.Values[0][1].(string)), &line))
	assert.Equal(t, "https://example.com/wms", line["url"])
	assert.Equal(t, "WMS", line["type"])
	assert.Equal(t, rec.Header().Get("X-Request-Id"), line["request_id"])
	assert.Equal(t, "192.0.2.1", line["ip"])
}

func newJWKS(t *testing.T) (*rsa.PrivateKey, *httptest.Server) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := map[string]interface{}{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "test",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(srv.Close)
	return key, srv
}

func signToken(t *testing.T, key *rsa.PrivateKey, groups []string, expires time.Time) http.Header {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, ClaimsWithGroups{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Groups: groups,
	})
	token.Header["kid"] = "test"
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return http.Header{"Authorization": {"Bearer " + signed}}
}

func TestAuthorization(t *testing.T) {
	key, jwksServer := newJWKS(t)

	cfg := config.Default()
	cfg.JwksURL = jwksServer.URL
	cfg.AllowedGroups = []string{"gis"}
	s, _ := newTestServer(t, cfg)

	target := discoverPath("https://example.com/wms", nil)
	hour := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		header http.Header
		status int
	}{
		{"no token", nil, http.StatusUnauthorized},
		{"not a bearer token", http.Header{"Authorization": {"Basic dXNlcjpwYXNz"}}, http.StatusUnauthorized},
		{"garbage", http.Header{"Authorization": {"Bearer abc.def.ghi"}}, http.StatusUnauthorized},
		{"expired", signToken(t, key, []string{"gis"}, time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"wrong group", signToken(t, key, []string{"finance"}, hour), http.StatusForbidden},
		{"allowed", signToken(t, key, []string{"finance", "gis"}, hour), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := get(t, s.Handler(), target, tt.header)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	rec, _ := get(t, s.Handler(), "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewFailsOnUnreachableJWKS(t *testing.T) {
	cfg := config.Default()
	cfg.JwksURL = "http://127.0.0.1:1/jwks.json"
	_, err := New(cfg, &fakeDiscoverer{}, nil)
	assert.Error(t, err)
}
