package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/waffle-kart/internal/workspace"
)

// GetCatalog returns bases, toppings and specials in menu order.
func (h *Handler) GetCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCatalog(e, h.catalog) })
}

func writeComposition(w http.ResponseWriter, r *http.Request, v workspace.Composition, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeComposition(e, v) })
}

// GetComposition returns the current configuration.
func (h *Handler) GetComposition(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	writeComposition(w, r, ws.Composition(), nil)
}

// ResetComposition restores the default base with no toppings.
func (h *Handler) ResetComposition(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	v, err := ws.ResetComposition()
	writeComposition(w, r, v, err)
}

// SetBase handles {"id": "..."}.
func (h *Handler) SetBase(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	req, err := readStrings(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := ws.SetBase(req["id"])
	writeComposition(w, r, v, err)
}

// ToggleTopping adds or removes the topping in the path.
func (h *Handler) ToggleTopping(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	v, err := ws.ToggleTopping(r.PathValue("id"))
	writeComposition(w, r, v, err)
}

// SetNote handles {"note": "..."}.
func (h *Handler) SetNote(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	req, err := readStrings(r, "note")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := ws.SetNote(req["note"])
	writeComposition(w, r, v, err)
}

// Curate handles {"mood": "..."} and reports which parts of the suggestion
// were applied.
func (h *Handler) Curate(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	req, err := readStrings(r, "mood")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, outcome, err := ws.Curate(r.Context(), req["mood"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("composition", func(e *jx.Encoder) { encodeComposition(e, v) })
			e.Field("outcome", func(e *jx.Encoder) { encodeOutcome(e, outcome) })
		})
	})
}

// Describe generates a description and stores it as the note.
func (h *Handler) Describe(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	v, err := ws.Describe(r.Context())
	writeComposition(w, r, v, err)
}

// AddCompositionToCart snapshots the configuration into the cart.
func (h *Handler) AddCompositionToCart(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	line, err := ws.AddCompositionToCart()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeLine(e, line) })
}
