// Package handler exposes the workspace operations as a JSON HTTP API. The
// session is identified by the X-Session-ID header; requests without one get
// a fresh session whose id is echoed back.
package handler

import (
	"net/http"
	"time"

	"github.com/xenking/waffle-kart/internal/domain/catalog"
	"github.com/xenking/waffle-kart/internal/workspace"
)

const (
	// SessionHeader carries the workspace id in both directions.
	SessionHeader = "X-Session-ID"
	// DefaultSubmitTimeout bounds a charge when NewHandler gets zero.
	DefaultSubmitTimeout = 30 * time.Second
)

// Handler serves the API over a workspace registry.
type Handler struct {
	registry      *workspace.Registry
	catalog       *catalog.Catalog
	submitTimeout time.Duration
}

// NewHandler constructs a Handler with the required domain dependencies.
// submitTimeout bounds each charge, which does not end when the client
// disconnects.
func NewHandler(registry *workspace.Registry, c *catalog.Catalog, submitTimeout time.Duration) *Handler {
	if submitTimeout <= 0 {
		submitTimeout = DefaultSubmitTimeout
	}
	return &Handler{
		registry:      registry,
		catalog:       c,
		submitTimeout: submitTimeout,
	}
}

// Routes returns the API mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/catalog", h.GetCatalog)
	mux.HandleFunc("DELETE /api/session", h.EndSession)

	mux.HandleFunc("GET /api/composition", h.session(h.GetComposition))
	mux.HandleFunc("DELETE /api/composition", h.session(h.ResetComposition))
	mux.HandleFunc("PUT /api/composition/base", h.session(h.SetBase))
	mux.HandleFunc("POST /api/composition/toppings/{id}", h.session(h.ToggleTopping))
	mux.HandleFunc("PUT /api/composition/note", h.session(h.SetNote))
	mux.HandleFunc("POST /api/composition/curate", h.session(h.Curate))
	mux.HandleFunc("POST /api/composition/describe", h.session(h.Describe))
	mux.HandleFunc("POST /api/composition/cart", h.session(h.AddCompositionToCart))

	mux.HandleFunc("GET /api/collection", h.session(h.ListSaved))
	mux.HandleFunc("POST /api/collection", h.session(h.SaveComposition))
	mux.HandleFunc("DELETE /api/collection/{id}", h.session(h.DeleteSaved))
	mux.HandleFunc("POST /api/collection/{id}/load", h.session(h.LoadSaved))
	mux.HandleFunc("POST /api/collection/{id}/cart", h.session(h.AddSavedToCart))

	mux.HandleFunc("GET /api/cart", h.session(h.GetCart))
	mux.HandleFunc("POST /api/cart/specials/{id}", h.session(h.AddSpecialToCart))
	mux.HandleFunc("DELETE /api/cart/lines/{id}", h.session(h.RemoveCartLine))
	mux.HandleFunc("PUT /api/cart/open", h.session(h.SetCartOpen))

	mux.HandleFunc("GET /api/checkout", h.session(h.GetCheckout))
	mux.HandleFunc("POST /api/checkout", h.session(h.OpenCheckout))
	mux.HandleFunc("DELETE /api/checkout", h.session(h.DismissCheckout))
	mux.HandleFunc("POST /api/checkout/reset", h.session(h.ResetCheckout))
	mux.HandleFunc("POST /api/checkout/submit", h.session(h.SubmitCheckout))
	mux.HandleFunc("POST /api/checkout/retry", h.session(h.RetryCheckout))

	return mux
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace)

// session resolves the workspace for the request, creating it on first use.
func (h *Handler) session(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := h.registry.Open(r.Header.Get(SessionHeader))
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set(SessionHeader, ws.ID())
		next(w, r, ws)
	}
}

// EndSession closes the caller's workspace. Saved compositions are kept.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(SessionHeader)
	if id == "" || !h.registry.Close(id) {
		writeError(w, r, errSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
