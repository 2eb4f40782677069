package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/donaldmo/pandopot-api/internal/domain/apperr"
)

const maxRequestBody = 1 << 20

type errorBody struct {
	Status   int    `json:"status"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Charged       bool   `json:"charged,omitempty"`
	ChargeUnknown bool   `json:"chargeUnknown,omitempty"`
	ChargeID      string `json:"chargeId,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindPaymentDeclined:
		return http.StatusPaymentRequired
	case apperr.KindPaymentUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatusError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Status: status, Kind: kind, Message: message}})
}

// writeError renders err by its kind. Internal failures hide their cause.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	body := errorBody{Status: status, Kind: string(kind), Message: err.Error()}

	if appErr, ok := apperr.As(err); ok {
		body.Charged = appErr.Charged
		body.ChargeUnknown = appErr.ChargeUnknown
		body.ChargeID = appErr.ChargeID
		if appErr.Message != "" {
			body.Message = appErr.Message
		}
	}
	if status >= http.StatusInternalServerError {
		h.log.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
		if kind == apperr.KindInternal {
			body.Message = "internal server error"
		}
	}
	writeJSON(w, status, errorEnvelope{Error: body})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.NewValidation("decode", "request body is required")
		}
		return apperr.NewValidation("decode", "invalid request body: %v", err)
	}
	return nil
}
