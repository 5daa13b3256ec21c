package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ParseFailed indicates a mappings file could not be parsed
	ParseFailed ErrorCode = "PARSE_FAILED"
	// NoResults indicates a query matched nothing
	NoResults ErrorCode = "NO_RESULTS"
	// NamespaceUnknown indicates the namespace is not registered in the catalog
	NamespaceUnknown ErrorCode = "NAMESPACE_UNKNOWN"
	// VersionUnavailable indicates the namespace has no mappings for a version
	VersionUnavailable ErrorCode = "VERSION_UNAVAILABLE"
	// CacheCorrupt indicates a binary cache file could not be decoded
	CacheCorrupt ErrorCode = "CACHE_CORRUPT"
	// ConfigInvalid indicates configuration or manifest problems
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests editing a configuration file
	EditConfig FixActionType = "edit-config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	File        string        `json:"file,omitempty"`
}

// MapdexError represents an error with code, message, and suggestions
type MapdexError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new MapdexError with the predefined fixes for its code
func New(code ErrorCode, message string, cause error) *MapdexError {
	return &MapdexError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf is New with a formatted message and no cause
func Newf(code ErrorCode, format string, args ...interface{}) *MapdexError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *MapdexError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *MapdexError) Unwrap() error {
	return e.cause
}

// Is matches another *MapdexError by code, so errors.Is(err, &MapdexError{Code: NoResults}) works.
func (e *MapdexError) Is(target error) bool {
	t, ok := target.(*MapdexError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails adds details to the error
func (e *MapdexError) WithDetails(details interface{}) *MapdexError {
	e.Details = details
	return e
}

// HasCode reports whether err (or anything it wraps) is a MapdexError with the given code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if me, ok := err.(*MapdexError); ok && me.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	NoResults: {
		{
			Type:        RunCommand,
			Command:     "mapdex query ${kind} ${key} --accuracy fuzzy",
			Safe:        true,
			Description: "Retry with fuzzy matching",
		},
	},
	NamespaceUnknown: {
		{
			Type:        RunCommand,
			Command:     "mapdex namespaces",
			Safe:        true,
			Description: "List registered namespaces",
		},
	},
	VersionUnavailable: {
		{
			Type:        EditConfig,
			File:        "sources.toml",
			Description: "Add a source entry for the version",
		},
	},
	CacheCorrupt: {
		{
			Type:        RunCommand,
			Command:     "mapdex cache clear ${namespace}",
			Safe:        true,
			Description: "Drop cached mappings and re-parse",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
