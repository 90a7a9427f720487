package llmclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// TransportError is a failure originating from the backend HTTP call.
// Retryable is true for rate limits, server errors, and network trouble;
// false for auth and bad-request failures where retrying cannot help.
type TransportError struct {
	StatusCode int
	Message    string
	Cause      error
	retryable  bool
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm: %s", e.Message)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Retryable reports whether the orchestrator may retry the call.
func (e *TransportError) Retryable() bool { return e.retryable }

// networkError wraps a transport-level failure (dial, TLS, timeout) as a
// retryable TransportError.
func networkError(msg string, cause error) *TransportError {
	return &TransportError{Message: msg, Cause: cause, retryable: true}
}

// errorFromResponse builds a TransportError from a non-2xx response,
// extracting the provider's error message when the body is JSON.
func errorFromResponse(resp *http.Response) *TransportError {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("failed to read error response body: %v", err),
			Cause:      err,
			retryable:  retryableStatus(resp.StatusCode),
		}
	}

	message := extractErrorMessage(body)
	if message == "" {
		message = string(body)
	}

	return &TransportError{
		StatusCode: resp.StatusCode,
		Message:    message,
		retryable:  retryableStatus(resp.StatusCode),
	}
}

// retryableStatus classifies HTTP status codes: 429 and 5xx are transient,
// other 4xx indicate a request or auth problem that retrying cannot fix.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func extractErrorMessage(body []byte) string {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return ""
	}
	if errObj, ok := raw["error"].(map[string]any); ok {
		if msg, ok := errObj["message"].(string); ok {
			return msg
		}
	}
	if msg, ok := raw["message"].(string); ok {
		return msg
	}
	return ""
}
