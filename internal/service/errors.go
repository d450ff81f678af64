package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIMessage is a single error entry returned by the service.
type APIMessage struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// APIError is returned for any response with status >= 400.
type APIError struct {
	StatusCode int
	Messages   []APIMessage
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("request failed with status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	parts := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		parts = append(parts, fmt.Sprintf("%s: %s", m.Name, m.Message))
	}
	return strings.Join(parts, ";")
}

// Temporary reports whether retrying the request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var payload struct {
		Errors []APIMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Messages = payload.Errors
	}
	return apiErr
}
