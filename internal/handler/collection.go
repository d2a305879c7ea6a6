package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/waffle-kart/internal/workspace"
)

// ListSaved returns the saved compositions, most recent first.
func (h *Handler) ListSaved(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	items, err := ws.SavedCompositions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, s := range items {
				encodeSaved(e, s)
			}
		})
	})
}

// SaveComposition handles an optional {"name": "..."}.
func (h *Handler) SaveComposition(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	req, err := readStrings(r, "name")
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := ws.SaveComposition(r.Context(), req["name"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeSaved(e, saved) })
}

// DeleteSaved removes a saved composition. Unknown ids succeed.
func (h *Handler) DeleteSaved(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	if err := ws.DeleteSaved(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadSaved makes a saved composition the current one.
func (h *Handler) LoadSaved(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	v, err := ws.LoadSaved(r.Context(), r.PathValue("id"))
	writeComposition(w, r, v, err)
}

// AddSavedToCart adds a saved composition to the cart.
func (h *Handler) AddSavedToCart(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	line, err := ws.AddSavedToCart(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeLine(e, line) })
}
