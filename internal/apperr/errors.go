// Package apperr defines component-tagged application errors and their HTTP mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the component and operation that failed.
type Code string

const (
	CodeUnknown             Code = "UNKNOWN_ERROR"
	CodeBadRequest          Code = "BAD_REQUEST_PARAMETERS"
	CodeNotFound            Code = "ENTITY_NOT_FOUND"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeMalformedToken      Code = "MALFORMED_TOKEN"
	CodeUserRepository      Code = "USER_REPOSITORY_ERROR"
	CodeStatsRepoWrite      Code = "SYSTEM_STATS_REPOSITORY_WRITE_ERROR"
	CodeStatsRepoRead       Code = "SYSTEM_STATS_REPOSITORY_READ_ERROR"
	CodeStatsRepoCleanup    Code = "SYSTEM_STATS_REPOSITORY_CLEANUP_ERROR"
	CodeWatcherTemperature  Code = "SYSTEM_WATCHER_GET_TEMPERATURE_ERROR"
	CodeWatcherSaveStats    Code = "SYSTEM_WATCHER_SAVE_STATS_ERROR"
	CodeWatcherCleanupStats Code = "SYSTEM_WATCHER_CLEANUP_STATS_ERROR"
	CodeMonitoringGetStats  Code = "MONITORING_SERVICE_GET_SYSTEM_STATS_ERROR"
)

type codeInfo struct {
	status      int
	description string
}

var codes = map[Code]codeInfo{
	CodeUnknown:             {http.StatusInternalServerError, "Unknown error"},
	CodeBadRequest:          {http.StatusBadRequest, "Bad request parameters"},
	CodeNotFound:            {http.StatusNotFound, "Entity not found"},
	CodeUnauthorized:        {http.StatusUnauthorized, "Unauthorized"},
	CodeForbidden:           {http.StatusForbidden, "Access denied"},
	CodeMalformedToken:      {http.StatusInternalServerError, "Malformed token payload"},
	CodeUserRepository:      {http.StatusInternalServerError, "Users repository error"},
	CodeStatsRepoWrite:      {http.StatusInternalServerError, "Error writing system stats"},
	CodeStatsRepoRead:       {http.StatusInternalServerError, "Error reading system stats"},
	CodeStatsRepoCleanup:    {http.StatusInternalServerError, "Error cleaning up system stats"},
	CodeWatcherTemperature:  {http.StatusInternalServerError, "Error reading temperature sensor"},
	CodeWatcherSaveStats:    {http.StatusInternalServerError, "Error saving system stats"},
	CodeWatcherCleanupStats: {http.StatusInternalServerError, "Error cleaning up old system stats"},
	CodeMonitoringGetStats:  {http.StatusInternalServerError, "Error getting system stats"},
}

// HTTPStatus returns the HTTP status for code; unknown codes map to 500.
func (c Code) HTTPStatus() int {
	if info, ok := codes[c]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// Description returns the fixed human-readable description of code.
func (c Code) Description() string {
	if info, ok := codes[c]; ok {
		return info.description
	}
	return codes[CodeUnknown].description
}

// Error is an error tagged with a component code and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// New returns an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags err with code. A nil err yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.Description()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// CodeOf returns the code of the outermost Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode reports whether any Error in err's chain carries code.
func IsCode(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}
