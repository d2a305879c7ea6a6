package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/waffle-kart/internal/domain/advisory"
	"github.com/xenking/waffle-kart/internal/domain/catalog"
	"github.com/xenking/waffle-kart/internal/domain/checkout"
	"github.com/xenking/waffle-kart/internal/domain/collection"
	"github.com/xenking/waffle-kart/internal/workspace"
)

var errSessionNotFound = errors.New("session not found")

// badRequestError marks malformed request bodies.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return "invalid request body: " + e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

// mapError converts domain errors to a status code and client message.
// Unrecognized errors are internal and their text is not exposed.
func mapError(err error) (int, string) {
	var badReq *badRequestError
	switch {
	case errors.As(err, &badReq):
		return http.StatusBadRequest, badReq.Error()
	case errors.Is(err, workspace.ErrInvalidID),
		errors.Is(err, workspace.ErrEmptyMood):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errSessionNotFound),
		errors.Is(err, collection.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, catalog.ErrUnknownCatalogID),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidPaymentDetails):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, checkout.ErrPaymentFailed):
		return http.StatusPaymentRequired, err.Error()
	case errors.Is(err, workspace.ErrBusy),
		errors.Is(err, checkout.ErrSubmitInProgress),
		errors.Is(err, checkout.ErrInvalidTransition),
		errors.Is(err, checkout.ErrDismissed):
		return http.StatusConflict, err.Error()
	case errors.Is(err, workspace.ErrClosed):
		return http.StatusGone, err.Error()
	case errors.Is(err, advisory.ErrUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, advisory.ErrRequestFailed):
		return http.StatusBadGateway, "advisory service request failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeError writes {"code": ..., "message": ...}.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := mapError(err)

	lg := zctx.From(r.Context())
	if code >= http.StatusInternalServerError {
		lg.Error("Request failed", zap.Int("status", code), zap.Error(err))
	} else {
		lg.Debug("Request rejected", zap.Int("status", code), zap.Error(err))
	}

	writeJSON(w, code, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(code) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}
