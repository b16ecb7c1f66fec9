// Package router exposes a Behavior over HTTP. Every GET path is dispatched
// through the route templates to the record it was generated from, and the
// path maps of bound groups are served under /_routable.
package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/conduit-lang/routable/internal/orm/query"
	"github.com/conduit-lang/routable/internal/routable"
	"github.com/conduit-lang/routable/internal/web/middleware"
	"github.com/conduit-lang/routable/internal/web/response"
)

// RecordResponse is the body of a successful lookup
type RecordResponse struct {
	Group  string          `json:"group"`
	ID     interface{}     `json:"id"`
	Record routable.Record `json:"record"`
}

// PathResponse is one entry of a path map
type PathResponse struct {
	ID   interface{} `json:"id"`
	Path interface{} `json:"path"`
}

type handler struct {
	behavior *routable.Behavior
	logger   *zap.Logger
}

// New builds the lookup handler
func New(behavior *routable.Behavior, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{behavior: behavior, logger: logger}

	chain := middleware.NewChain(
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.Recovery(logger),
	)

	r := chi.NewRouter()
	r.Use(chain.Middlewares()...)

	r.Route("/_routable", func(r chi.Router) {
		r.Get("/groups", h.groups)
		r.Get("/paths/{group}", h.paths)
	})
	r.Get("/*", h.lookup)

	return r
}

func (h *handler) groups(w http.ResponseWriter, r *http.Request) {
	response.RenderJSON(w, http.StatusOK, h.behavior.Groups())
}

// paths serves the path map of a group. ?full=true prefixes the base URL,
// repeated ?where= conditions narrow the records.
func (h *handler) paths(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")

	var extra *query.PredicateGroup
	if wheres := r.URL.Query()["where"]; len(wheres) > 0 {
		extra = query.NewPredicateGroup(false)
		for _, expr := range wheres {
			cond, err := query.ParseCondition(expr)
			if err != nil {
				response.RenderError(w, http.StatusBadRequest, fmt.Errorf("invalid where %q: %w", expr, err))
				return
			}
			extra.AddCondition(cond)
		}
	}

	generate := h.behavior.GeneratePathMap
	if r.URL.Query().Get("full") == "true" {
		generate = h.behavior.GenerateURLMap
	}

	list, err := generate(r.Context(), group, extra)
	if err != nil {
		if errors.Is(err, routable.ErrUnknownGroup) {
			response.RenderNotFound(w, err.Error())
			return
		}
		h.fail(w, r, err)
		return
	}

	out := make([]PathResponse, 0, len(list))
	for _, entry := range list {
		out = append(out, PathResponse{ID: entry.ID, Path: entry.Path})
	}
	response.RenderJSON(w, http.StatusOK, out)
}

// lookup resolves the request path. Passed segments are encoded with escapes
// while template values are not, so the decoded path is tried second.
func (h *handler) lookup(w http.ResponseWriter, r *http.Request) {
	candidates := []string{r.URL.EscapedPath()}
	if r.URL.Path != candidates[0] {
		candidates = append(candidates, r.URL.Path)
	}

	for _, path := range candidates {
		match, ok, err := h.behavior.Serve(r.Context(), path)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if ok {
			response.RenderJSON(w, http.StatusOK, &RecordResponse{
				Group:  match.Group,
				ID:     match.ID,
				Record: match.Record,
			})
			return
		}
	}
	response.RenderNotFound(w, fmt.Sprintf("no record is routed at %s", candidates[0]))
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("lookup failed",
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("path", r.URL.EscapedPath()),
		zap.Error(err))
	response.RenderInternalError(w, err)
}
