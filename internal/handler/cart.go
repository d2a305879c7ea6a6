package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/waffle-kart/internal/workspace"
)

// GetCart returns the lines and totals.
func (h *Handler) GetCart(w http.ResponseWriter, _ *http.Request, ws *workspace.Workspace) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, ws.Cart()) })
}

// AddSpecialToCart adds the special in the path.
func (h *Handler) AddSpecialToCart(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	line, err := ws.AddSpecialToCart(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeLine(e, line) })
}

// RemoveCartLine removes a line. Unknown ids succeed.
func (h *Handler) RemoveCartLine(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	if err := ws.RemoveCartLine(r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCartOpen handles {"open": bool}.
func (h *Handler) SetCartOpen(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	var (
		open  bool
		found bool
	)
	err := readObject(r, func(d *jx.Decoder, key string) error {
		if key != "open" {
			return d.Skip()
		}
		v, err := d.Bool()
		if err != nil {
			return errors.Wrap(err, "open")
		}
		open, found = v, true
		return nil
	})
	if err == nil && !found {
		err = &badRequestError{err: errors.New("open is required")}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	ws.Cart().SetOpen(open)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, ws.Cart()) })
}
