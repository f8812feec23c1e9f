package utils

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 .-]{4,18}[0-9]$`)

// ValidPhone reports whether s looks like a dialable phone number.
// Empty is allowed; the profile phone field is optional.
func ValidPhone(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	return phoneRegex.MatchString(s)
}

func StrPtr(s string) *string {
	return &s
}

func PtrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteJSONError(w http.ResponseWriter, message string, code int) {
	WriteJSON(w, code, map[string]string{"error": message})
}

// WriteFieldError surfaces a validation error bound to a single form field.
func WriteFieldError(w http.ResponseWriter, field, message string) {
	WriteJSON(w, http.StatusBadRequest, map[string]string{
		"error": message,
		"field": field,
	})
}
