package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dropDatabas3/formgate/internal/fault"
	"github.com/dropDatabas3/formgate/internal/observability/logger"
	"github.com/dropDatabas3/formgate/internal/workflow"
)

type apiError struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON: respuesta JSON estándar
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteDomainError traduce la taxonomía de errores del dominio al borde HTTP:
//
//	NotFound   → 404
//	BadRequest → 422
//	AppConfig  → 500
//	Upstream   → status y body verbatim del servicio externo
//	RateLimit  → 429
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if up, ok := fault.AsUpstream(err); ok {
		// La respuesta ya viene en formato legible; se reenvía sin tocar.
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(up.StatusCode)
		_, _ = w.Write([]byte(up.Body))
		return
	}
	if errors.Is(err, workflow.ErrRateLimited) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	switch fault.KindOf(err) {
	case fault.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	case fault.KindBadRequest:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case fault.KindAppConfig:
		writeError(w, http.StatusInternalServerError, "Error in application configuration: "+err.Error())
	default:
		logger.From(r.Context()).Error("unhandled error", logger.Err(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	rid := w.Header().Get("X-Request-ID")
	WriteJSON(w, status, apiError{Error: msg, RequestID: rid})
}
