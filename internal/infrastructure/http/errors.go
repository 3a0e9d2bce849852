package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/domain/failure"
)

func statusFor(kind failure.Kind) int {
	switch kind {
	case failure.BadInput:
		return http.StatusUnprocessableEntity
	case failure.Conflict:
		return http.StatusConflict
	case failure.NotFound:
		return http.StatusNotFound
	case failure.Retryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := failure.KindOf(err)
	resp := errorResp{Error: err.Error(), Kind: kind.String()}

	var fe *failure.Error
	if errors.As(err, &fe) {
		resp.Code = fe.Code
	}

	fields := map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
		"kind":   resp.Kind,
		"error":  err,
	}
	if kind == failure.Fatal {
		// Internal details stay in the log.
		resp.Error = "internal error"
		h.logger().Error("request failed", fields)
	} else {
		h.logger().Warn("request rejected", fields)
	}

	writeJSON(w, statusFor(kind), resp)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResp{Error: msg, Kind: failure.BadInput.String()})
}
