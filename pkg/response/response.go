package response

import (
	"encoding/json"
	"net/http"

	"tradewinds-engine/pkg/apierror"
)

// Response represents the standard JSON envelope shared by the UI bridge
// and the game API: {success, data?, error?}.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// JSON sends a success envelope with the given status code.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(Response{
		Success: true,
		Data:    data,
	})
}

// Error sends an error envelope. Engine errors keep their status code and
// stable error code; anything else becomes an internal error.
func Error(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(*apierror.Error); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(apiErr.StatusCode)
		_, _ = w.Write(apiErr.ToJSON())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write(apierror.InternalError(err.Error()).ToJSON())
}
