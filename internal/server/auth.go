package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/delta10/ows-discovery/internal/utils"
)

type ClaimsWithGroups struct {
	jwt.RegisteredClaims
	Groups []string `json:"groups"`
}

type subjectKey struct{}

// authorize requires a valid bearer token when a JWKS is configured. With
// allowed groups configured the token must carry at least one of them.
func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.keyfunc == nil {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || tokenString == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims := &ClaimsWithGroups{}
		token, err := jwt.ParseWithClaims(tokenString, claims, s.keyfunc)
		if err != nil || !token.Valid {
			s.logger.Info("rejected token", zap.Error(err))
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if len(s.config.AllowedGroups) > 0 && !inAnyGroup(claims.Groups, s.config.AllowedGroups) {
			writeError(w, http.StatusForbidden, "not a member of an allowed group")
			return
		}

		ctx := context.WithValue(r.Context(), subjectKey{}, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func inAnyGroup(groups, allowed []string) bool {
	for _, group := range groups {
		if utils.StringInSlice(group, allowed) {
			return true
		}
	}
	return false
}
