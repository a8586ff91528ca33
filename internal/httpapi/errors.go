package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/1mb-dev/library-gateway/internal/apierror"
)

type errorBody struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string, cause error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Message: message})
}

// writeClassifiedError maps an apierror.Error (or any error defaulting
// to Internal) to its HTTP status and writes the JSON body. A
// RetryableFailure is written as 204 No Content with an empty body,
// matching the original gateway's "accepted for retry" response.
func writeClassifiedError(w http.ResponseWriter, err error) {
	kind := apierror.KindOf(err)
	status := kind.Status()
	if kind == apierror.RetryableFailure {
		w.WriteHeader(status)
		return
	}
	writeError(w, status, err.Error(), err)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
