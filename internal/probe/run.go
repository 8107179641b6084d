// Package probe resolves an arbitrary URL to the geospatial protocol it
// speaks by trying protocol clients in a fixed order.
package probe

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/delta10/ows-discovery/internal/fetch"
)

// Found is what a successful step reports.
type Found struct {
	// URL replaces the service URL when set, e.g. with a GeoJSON query URL
	// or a tile template.
	URL          string
	Title        string
	Capabilities interface{}
}

// Step is one protocol attempt of the cascade.
type Step struct {
	Name string
	Type ServiceType
	// Applies limits the step to matching URLs. Nil means every URL.
	Applies func(u *url.URL) bool
	Probe   func(ctx context.Context, u *url.URL) (*Found, error)
}

// Run tries the steps in order and returns the first success. When all
// steps fail the last error is reported. Steps run one at a time; a panic
// inside a step counts as that step's error.
func Run(ctx context.Context, u *url.URL, steps []Step, logger *zap.Logger) *ServiceInfo {
	if logger == nil {
		logger = zap.NewNop()
	}
	info := &ServiceInfo{ServiceURL: u.String()}

	var lastErr error
	for _, step := range steps {
		if step.Applies != nil && !step.Applies(u) {
			continue
		}
		if err := ctx.Err(); err != nil {
			lastErr = &fetch.Error{Kind: fetch.KindUnreachable, URL: u.String(), Err: err}
			break
		}

		start := time.Now()
		found, err := runStep(ctx, step, u)
		if err == nil && found == nil {
			err = fmt.Errorf("%s step returned no result", step.Name)
		}
		if err != nil {
			logger.Debug("discovery step failed",
				zap.String("url", u.String()),
				zap.String("step", step.Name),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		logger.Debug("discovery step matched",
			zap.String("url", u.String()),
			zap.String("step", step.Name),
			zap.Duration("duration", time.Since(start)),
		)
		info.Type = step.Type
		info.ServiceTitle = found.Title
		info.Capabilities = found.Capabilities
		if found.URL != "" {
			info.ServiceURL = found.URL
		}
		return info
	}

	info.ErrorKind = fetch.KindNoMatchingProtocol
	if lastErr == nil {
		info.Error = UnknownServiceError
		return info
	}
	info.Error = lastErr.Error()
	if kind := fetch.KindOf(lastErr); kind != "" {
		info.ErrorKind = kind
	}
	return info
}

func runStep(ctx context.Context, step Step, u *url.URL) (found *Found, err error) {
	defer func() {
		if r := recover(); r != nil {
			found = nil
			err = fmt.Errorf("%s step panicked: %v", step.Name, r)
		}
	}()
	return step.Probe(ctx, u)
}
