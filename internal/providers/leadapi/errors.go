package leadapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotConfigured = errors.New("lead_api_not_configured")
	ErrUnavailable   = errors.New("lead_api_unavailable")
)

// StoreError is a failed call to the external store. Message carries the
// store's own error text when it sent one.
type StoreError struct {
	Operation string
	Status    int
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s failed with status %d", e.Operation, e.Status)
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Status == 0 || e.Status >= http.StatusInternalServerError {
		if e.Err != nil {
			return errors.Join(ErrUnavailable, e.Err)
		}
		return ErrUnavailable
	}
	return e.Err
}

// AsStoreError extracts a *StoreError from err.
func AsStoreError(err error) (*StoreError, bool) {
	var storeErr *StoreError
	if errors.As(err, &storeErr) && storeErr != nil {
		return storeErr, true
	}
	return nil, false
}

func IsNotFound(err error) bool {
	storeErr, ok := AsStoreError(err)
	return ok && storeErr.Status == http.StatusNotFound
}

// parseErrorBody pulls a human readable message out of the store's error
// payloads: {"message"}, {"error"} or {"error":{"message"}}.
func parseErrorBody(body []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if msg := rawString(payload["message"]); msg != "" {
		return msg
	}
	raw, ok := payload["error"]
	if !ok {
		return ""
	}
	if msg := rawString(raw); msg != "" {
		return msg
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}
