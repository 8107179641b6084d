// Package server exposes discovery over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/itchyny/gojq"
	"go.uber.org/zap"

	"github.com/delta10/ows-discovery/internal/config"
	"github.com/delta10/ows-discovery/internal/logs"
	"github.com/delta10/ows-discovery/internal/probe"
	"github.com/delta10/ows-discovery/internal/utils"
)

// Discoverer resolves a raw URL to a service description.
type Discoverer interface {
	LoadService(ctx context.Context, rawURL string) *probe.ServiceInfo
}

type Server struct {
	config     *config.Config
	discoverer Discoverer
	logger     *zap.Logger

	jwks    *keyfunc.JWKS
	keyfunc jwt.Keyfunc

	router *mux.Router
}

// New builds the router. When the config names a JWKS URL the key set is
// fetched here, so a broken identity provider fails at startup.
func New(cfg *config.Config, discoverer Discoverer, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:     cfg,
		discoverer: discoverer,
		logger:     logger,
		router:     mux.NewRouter(),
	}

	if cfg.JwksURL != "" {
		jwks, err := keyfunc.Get(cfg.JwksURL, keyfunc.Options{
			RefreshInterval: time.Hour,
			RefreshErrorHandler: func(err error) {
				logger.Warn("could not refresh JWKS", zap.String("url", cfg.JwksURL), zap.Error(err))
			},
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, err
		}
		s.jwks = jwks
		s.keyfunc = jwks.Keyfunc
	}

	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	s.router.Handle("/discover", s.authorize(s.discover(s.backend(cfg.AuditLogBackend), "/discover"))).Methods(http.MethodGet)

	for _, configuredPath := range cfg.Paths {
		path := configuredPath
		query, err := ParseFilter(path.Filter)
		if err != nil {
			return nil, err
		}

		backendName := path.LogBackend
		if backendName == "" {
			backendName = cfg.AuditLogBackend
		}

		s.router.Handle(path.Path, s.authorize(s.discoverWith(query, s.backend(backendName), path.Path))).Methods(http.MethodGet)
	}

	return s, nil
}

func (s *Server) backend(name string) *logs.LogBackend {
	if name == "" {
		return nil
	}
	backend, ok := s.config.LogBackends[name]
	if !ok {
		return nil
	}
	return logs.NewLogBackend(backend)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        s.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   2 * time.Minute, // a cascade may run several fetch timeouts in a row
		MaxHeaderBytes: 1 << 20,
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("address", srv.Addr))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Close stops the background JWKS refresh.
func (s *Server) Close() {
	if s.jwks != nil {
		s.jwks.EndBackground()
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// discover handles the generic route, which takes its filter from the
// request.
func (s *Server) discover(backend *logs.LogBackend, route string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query, err := ParseFilter(utils.QueryParamsToLower(r.URL.Query()).Get("filter"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.discoverWith(query, backend, route).ServeHTTP(w, r)
	})
}

func (s *Server) discoverWith(query *gojq.Query, backend *logs.LogBackend, route string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		if utils.QueryParamsContainMultipleKeys(r.URL.Query()) {
			s.logger.Info("rejected request as query parameters contain multiple keys", zap.String("request_id", requestID))
			writeError(w, http.StatusBadRequest, "query parameters contain multiple keys")
			return
		}

		rawURL := utils.QueryParamsToLower(r.URL.Query()).Get("url")
		if rawURL == "" {
			writeError(w, http.StatusBadRequest, "missing url parameter")
			return
		}

		info := s.discoverer.LoadService(r.Context(), rawURL)

		s.logger.Info("discovery request",
			zap.String("request_id", requestID),
			zap.String("route", route),
			zap.String("url", rawURL),
			zap.String("type", string(info.Type)),
			zap.String("error", info.Error),
			zap.Duration("duration", time.Since(start)),
		)

		if backend != nil {
			s.audit(r, backend, requestID, route, info)
		}

		result, err := ApplyFilter(query, info)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not apply filter")
			return
		}

		writeJSON(w, http.StatusOK, result)
	})
}

func (s *Server) audit(r *http.Request, backend *logs.LogBackend, requestID, route string, info *probe.ServiceInfo) {
	entry := logs.Entry{
		RequestID: requestID,
		Route:     route,
		URL:       info.ServiceURL,
		Type:      string(info.Type),
		Error:     info.Error,
		ErrorKind: string(info.ErrorKind),
		IP:        utils.ReadUserIP(r),
		UserAgent: r.Header.Get("User-Agent"),
	}
	if subject, ok := r.Context().Value(subjectKey{}).(string); ok {
		entry.Subject = subject
	}

	if err := backend.Push(r.Context(), entry); err != nil {
		s.logger.Warn("could not write audit log", zap.String("request_id", requestID), zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	response, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not marshal json")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(response)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	resp := make(map[string]string)
	resp["message"] = message
	jsonResp, _ := json.Marshal(resp)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(jsonResp)
}
