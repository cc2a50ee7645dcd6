package vrchat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is the result form of a remote failure: the HTTP status code plus
// the service's error message. Modeling failures as values keeps the
// status-to-user-message mapping in the bot layer exhaustively testable.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vrchat api error: status %d: %s", e.StatusCode, e.Message)
}

// AsAPIError unwraps err to an *APIError if there is one in the chain.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	ae, ok := AsAPIError(err)
	return ok && ae.StatusCode == code
}

// parseAPIError builds an *APIError from a non-2xx response. The service wraps
// messages as {"error":{"message":"...","status_code":N}}; anything else falls
// back to a trimmed slice of the body or the generic status text.
func parseAPIError(status int, raw []byte) *APIError {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(raw, &envelope); err == nil {
		msg = strings.Trim(envelope.Error.Message, `" `)
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
		if len(msg) > 200 {
			msg = msg[:200]
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}
