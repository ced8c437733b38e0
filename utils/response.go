package utils

import (
	"encoding/json"
	"net/http"
)

type M map[string]any

// RespondWithJSON sends a JSON response with the given status code.
func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// Success writes the uniform success envelope: {"status":"success","data":{...}}.
func Success(w http.ResponseWriter, statusCode int, data any) {
	RespondWithJSON(w, statusCode, M{"status": "success", "data": data})
}

// SuccessList is Success plus a result count for list endpoints.
func SuccessList(w http.ResponseWriter, statusCode int, results int, data any) {
	RespondWithJSON(w, statusCode, M{"status": "success", "results": results, "data": data})
}
