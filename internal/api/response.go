package api

import (
	"encoding/json"
	"net/http"

	"github.com/jmartin-dev/musiccast-hub-go/internal/apperrors"
)

// errorBody is the serialized error payload for a failed request.
type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

var kindStatus = map[apperrors.Kind]int{
	apperrors.KindInternalError:      http.StatusInternalServerError,
	apperrors.KindArgumentError:      http.StatusBadRequest,
	apperrors.KindNotFound:           http.StatusNotFound,
	apperrors.KindAlreadyRegistered:  http.StatusConflict,
	apperrors.KindPreconditionFailed: http.StatusPreconditionFailed,
	apperrors.KindTransport:          http.StatusBadGateway,
	apperrors.KindInvalidResponse:    http.StatusBadGateway,
	apperrors.KindUpnpError:          http.StatusBadGateway,
}

func statusForError(err error) int {
	kind, ok := apperrors.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusBadGateway
}

// WriteJSON sends a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// WriteError serializes an error into the standard error response body.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	body := errorBody{Message: err.Error()}
	if kind, ok := apperrors.KindOf(err); ok {
		body.Kind = string(kind)
	} else {
		body.Kind = string(apperrors.KindInternalError)
	}
	_ = WriteJSON(w, status, map[string]any{
		"request_id": GetRequestID(r),
		"error":      body,
	})
}

// WriteResource writes a single resource response.
func WriteResource(w http.ResponseWriter, r *http.Request, status int, key string, resource any) error {
	return WriteJSON(w, status, map[string]any{
		"request_id": GetRequestID(r),
		key:          resource,
	})
}

// WriteList writes a collection response.
func WriteList(w http.ResponseWriter, r *http.Request, key string, items any) error {
	return WriteJSON(w, http.StatusOK, map[string]any{
		"request_id": GetRequestID(r),
		key:          items,
	})
}
