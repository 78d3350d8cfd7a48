package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apperrors "chathub/errors"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("encode response", slog.Any("error", err))
	}
}

func writeError(log *slog.Logger, w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	status := apperrors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.Any("error", err))
	}
	writeJSON(log, w, status, errorBody{Error: errorDetail{
		Code:    string(code),
		Message: apperrors.MessageOf(err),
	}})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.BadRequest("invalid request body")
	}
	return nil
}
