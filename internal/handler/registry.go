package handler

import (
	"errors"
	"fmt"
	"log/slog"
)

// errNotVendored is returned internally when a path calculation is
// attempted against a path the vendored-repo handler does not actually own.
var errNotVendored = errors.New("path is not under a vendored repo")

// Registry selects the first handler whose CanHandle claims a path. The
// project handler must always be registered last, as a fallback: it claims
// any path under the source root that no more specific handler claimed
// first.
type Registry struct {
	handlers []Handler
	logger   *slog.Logger
}

// NewRegistry builds a registry from handlers in priority order. Callers are
// responsible for ordering the project handler last.
func NewRegistry(logger *slog.Logger, handlers ...Handler) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{handlers: handlers, logger: logger.With("component", "handler-registry")}
}

// Resolve returns the handler that owns path. If no handler claims it, the
// registry logs a warning and returns ok=false; the caller must skip the
// path rather than fail the run (spec.md §4.1 "warn-and-skip").
func (r *Registry) Resolve(path string) (Handler, bool) {
	for _, h := range r.handlers {
		if h.CanHandle(path) {
			return h, true
		}
	}
	r.logger.Warn("no handler claims path, skipping", "path", path)
	return nil, false
}

// Handlers returns the registered handlers in priority order, for callers
// (such as the decision engine's orphan scan) that must iterate every
// handler's own output area.
func (r *Registry) Handlers() []Handler {
	return r.handlers
}

// errHandlerFailure wraps a handler path-calculation failure. Per spec.md
// §4.1 "Failure semantics," any handler failure at path calculation is fatal
// only for that path; the caller logs and skips.
func errHandlerFailure(handler, path string, err error) error {
	return fmt.Errorf("handler %q failed to resolve path %q: %w", handler, path, err)
}
