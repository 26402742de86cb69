package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	apperrors "github.com/Adithya-Monish-Kumar-K/company-search/pkg/errors"
)

// ResponseError is a non-2xx answer from the engine.
type ResponseError struct {
	Op         string
	StatusCode int
	Type       string
	Reason     string
}

func (e *ResponseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s: engine returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: engine returned status %d: %s: %s", e.Op, e.StatusCode, e.Type, e.Reason)
}

// Unwrap lets callers match with errors.Is against ErrEngine or
// ErrIndexNotFound.
func (e *ResponseError) Unwrap() error {
	if e.Type == "index_not_found_exception" {
		return apperrors.ErrIndexNotFound
	}
	return apperrors.ErrEngine
}

// errorCause mirrors the engine's {"type": ..., "reason": ...} object. Some
// endpoints answer with a bare string instead.
type errorCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func (c *errorCause) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Reason = s
		return nil
	}
	type plain errorCause
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = errorCause(p)
	return nil
}

func newResponseError(op string, status int, body io.Reader) error {
	respErr := &ResponseError{Op: op, StatusCode: status}
	if body == nil {
		return respErr
	}
	var envelope struct {
		Error *errorCause `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err == nil && envelope.Error != nil {
		respErr.Type = envelope.Error.Type
		respErr.Reason = envelope.Error.Reason
	}
	return respErr
}

// transportError tags connection-level failures so they classify as engine
// errors upstream.
func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", apperrors.ErrEngine, err)
}
