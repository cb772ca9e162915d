package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.String("component", "api"), zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message, field string) {
	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:      code,
		Message:   message,
		Field:     field,
		RequestID: RequestIDFrom(r.Context()),
	}})
}
