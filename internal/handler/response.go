package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"videotube/internal/middleware"
	"videotube/internal/model"
	"videotube/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// writeError is the single place where errors become HTTP responses.
// Unexpected causes are logged with the request ID so they can be matched to
// the access log line.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "unexpected server error",
	}

	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
		if apiErr.Err != nil {
			slog.Error("dependency failure",
				"request_id", middleware.RequestIDFromContext(r.Context()),
				"code", apiErr.Code,
				"message", apiErr.Message,
				"error", apiErr.Err,
			)
		}
	case errors.Is(err, model.ErrUserNotFound):
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "user not found"
	case errors.Is(err, model.ErrVideoNotFound):
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "video not found"
	case errors.Is(err, model.ErrUserAlreadyExists):
		status = http.StatusConflict
		body.Code = apierror.CodeConflict
		body.Message = "user already exists"
	case errors.Is(err, model.ErrTokenExpired):
		status = http.StatusUnauthorized
		body.Code = apierror.CodeTokenExpired
		body.Message = "token expired"
	case errors.Is(err, model.ErrTokenMalformed), errors.Is(err, model.ErrTokenSignatureMismatch):
		status = http.StatusUnauthorized
		body.Code = apierror.CodeTokenInvalid
		body.Message = "invalid token"
	default:
		slog.Error("unhandled error in writeError",
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"error", err,
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Message: body.Message,
		Error:   body,
	})
}

// decodeJSON decodes a JSON body. An empty body leaves dst untouched when
// optional is set.
func decodeJSON(r *http.Request, dst any, optional bool) error {
	if r.Body == nil || r.Body == http.NoBody {
		if optional {
			return nil
		}
		return apierror.Validation("request body is required", "")
	}
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}

	var maxErr *http.MaxBytesError
	switch {
	case optional && errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &maxErr):
		return apierror.New(apierror.CodePayloadTooLarge, "request body too large", "", http.StatusRequestEntityTooLarge)
	default:
		return apierror.Validation("invalid JSON body", "")
	}
}
