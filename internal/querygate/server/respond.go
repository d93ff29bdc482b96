package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vaibhaw-/QueryGate/internal/querygate/engine"
	"github.com/vaibhaw-/QueryGate/internal/querygate/gateway"
	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
	"github.com/vaibhaw-/QueryGate/internal/querygate/validate"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Warnw("http: failed to encode response", "error", err)
	}
}

// statusFor maps gateway errors onto HTTP status codes.
func statusFor(err error) int {
	var verr *validate.Error
	var execErr *engine.ExecutionError
	var reqErr *requestError
	switch {
	case errors.Is(err, gateway.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, gateway.ErrUnavailable):
		return http.StatusNotImplemented
	case errors.As(err, &verr), errors.As(err, &execErr), errors.As(err, &reqErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.L().Errorw("http: internal error", "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, errorBody{Code: status, Message: msg})
}

// requestError is a malformed request: bad JSON, bad query parameters.
type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

const maxBody = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid request body: " + err.Error())
	}
	return nil
}
