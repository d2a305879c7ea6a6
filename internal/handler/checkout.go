package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/waffle-kart/internal/domain/checkout"
	"github.com/xenking/waffle-kart/internal/workspace"
)

func writeCheckout(w http.ResponseWriter, r *http.Request, v checkout.View, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCheckout(e, v) })
}

// GetCheckout returns the checkout state.
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	writeCheckout(w, r, ws.Checkout().Snapshot(), nil)
}

// OpenCheckout shows the payment form and freezes the amount due.
func (h *Handler) OpenCheckout(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	v, err := ws.Checkout().Open()
	writeCheckout(w, r, v, err)
}

// DismissCheckout closes the checkout. The client acknowledges with
// POST /api/checkout/reset.
func (h *Handler) DismissCheckout(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	writeCheckout(w, r, ws.Checkout().Dismiss(), nil)
}

// ResetCheckout completes a dismissal.
func (h *Handler) ResetCheckout(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	v, err := ws.Checkout().Reset()
	writeCheckout(w, r, v, err)
}

// SubmitCheckout charges the amount due. It answers once the processor has.
// A client that disconnects mid-charge does not cancel the payment; the
// outcome is readable from GET /api/checkout.
func (h *Handler) SubmitCheckout(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	req, err := readStrings(r, "name", "cardNumber", "expiry", "cvc")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.submitTimeout)
	defer cancel()

	v, err := ws.Checkout().Submit(ctx, checkout.Details{
		Name:       req["name"],
		CardNumber: req["cardNumber"],
		Expiry:     req["expiry"],
		CVC:        req["cvc"],
	})
	if errors.Is(err, checkout.ErrPaymentFailed) {
		// The failed state is the answer; the client offers a retry.
		writeJSON(w, http.StatusPaymentRequired, func(e *jx.Encoder) { encodeCheckout(e, v) })
		return
	}
	writeCheckout(w, r, v, err)
}

// RetryCheckout returns a failed checkout to the form.
func (h *Handler) RetryCheckout(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	v, err := ws.Checkout().Retry()
	writeCheckout(w, r, v, err)
}
