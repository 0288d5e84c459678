// Package api defines the ingest HTTP wire format: response bodies,
// error codes and envelope batch decoding.
package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/asbrown77/bagile-platform-sub001/ingest/internal/model"
)

var (
	ErrNoData          = &Error{Code: 5, Text: "No data"}
	ErrInvalidEnvelope = &Error{Code: 6, Text: "Invalid data format"}
	ErrUnknownSource   = &Error{Code: 7, Text: "Unknown source"}
	ErrTooLarge        = &Error{Code: 8, Text: "Payload too large"}
	ErrServerBusy      = &Error{Code: 9, Text: "Server is busy"}
	ErrRateLimited     = &Error{Code: 10, Text: "Rate limit exceeded"}
	ErrRejected        = &Error{Code: 11, Text: "Envelope rejected"}
)

// Error is an API error with a stable numeric code.
type Error struct {
	Code int
	Text string
}

func (e *Error) Error() string {
	return e.Text
}

// Response is the body of every ingest endpoint response.
type Response struct {
	Text     string    `json:"text"`
	Code     int       `json:"code"`
	Queued   int       `json:"queued,omitempty"`
	Outcomes []Outcome `json:"outcomes,omitempty"`
}

// Outcome reports what happened to one envelope.
type Outcome struct {
	Status     string   `json:"status"`
	Source     string   `json:"source"`
	ExternalID string   `json:"externalId,omitempty"`
	RecordIDs  []string `json:"recordIds,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// Success returns a success response.
func Success(outcomes ...Outcome) Response {
	return Response{Text: "Success", Code: 0, Outcomes: outcomes}
}

// Failure returns the response for err.
func Failure(err *Error) Response {
	return Response{Text: err.Text, Code: err.Code}
}

// DecodeEnvelopes accepts a single envelope object, a JSON array of
// envelopes, or newline-delimited envelopes.
func DecodeEnvelopes(body []byte) ([]model.Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrNoData
	}

	if trimmed[0] == '[' {
		var envs []model.Envelope
		if err := json.Unmarshal(trimmed, &envs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
		}
		if len(envs) == 0 {
			return nil, ErrNoData
		}
		return envs, nil
	}

	var single model.Envelope
	if err := json.Unmarshal(trimmed, &single); err == nil {
		return []model.Envelope{single}, nil
	}

	var envs []model.Envelope
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), len(trimmed)+1)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var env model.Envelope
		if err := json.Unmarshal(text, &env); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidEnvelope, line, err)
		}
		envs = append(envs, env)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return envs, nil
}

// AsError extracts an *Error from err, defaulting to ErrInvalidEnvelope.
func AsError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInvalidEnvelope
}
