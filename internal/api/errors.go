package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"dashboard-console/internal/model"
)

var ErrMissingCredentials = errors.New("api: missing account or user token")

// Error is returned for every failed call. Errors always holds at least one
// item so that callers can surface it verbatim.
type Error struct {
	Status int
	Errors []model.ErrorItem
	cause  error
}

func (e *Error) Error() string {
	if len(e.Errors) == 0 {
		return "api: request failed"
	}
	return "api: " + e.Errors[0].Message
}

func (e *Error) Items() []model.ErrorItem { return e.Errors }

func (e *Error) Unwrap() error { return e.cause }

func transportError(err error) *Error {
	return &Error{
		Errors: []model.ErrorItem{{Code: 0, Message: err.Error()}},
		cause:  err,
	}
}

func responseError(status int, body []byte) *Error {
	var payload struct {
		Errors []model.ErrorItem `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Errors) > 0 {
		return &Error{Status: status, Errors: payload.Errors}
	}
	return &Error{
		Status: status,
		Errors: []model.ErrorItem{{Code: status, Message: http.StatusText(status)}},
	}
}
