package utils

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the envelope every endpoint answers with, success or not.
// Data is omitted when there is nothing to return.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageMeta describes one page of a listing (admin order/user lists).
type PageMeta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}

func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// encode errors past WriteHeader are unrecoverable, drop them
	_ = json.NewEncoder(w).Encode(resp)
}

// GetStringValue dereferences a nullable string, empty when nil.
func GetStringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
