package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("underlying error")

	err := New(NoResults, "no classes matched", cause)

	if err.Code != NoResults {
		t.Errorf("Code = %v, want %v", err.Code, NoResults)
	}
	if err.Message != "no classes matched" {
		t.Errorf("Message = %q, want %q", err.Message, "no classes matched")
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestMapdexError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      ParseFailed,
			message:   "bad tiny header",
			cause:     errors.New("line 1"),
			wantParts: []string{"PARSE_FAILED", "bad tiny header", "line 1"},
		},
		{
			name:      "without cause",
			code:      NamespaceUnknown,
			message:   "namespace 'foo' not registered",
			cause:     nil,
			wantParts: []string{"NAMESPACE_UNKNOWN", "namespace 'foo' not registered"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.cause)
			got := err.Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestMapdexError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(InternalError, "something went wrong", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := Newf(CacheCorrupt, "cache %s unreadable", "yarn-1.20")
	if errNoCause.Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestMapdexError_Is(t *testing.T) {
	err := fmt.Errorf("loading: %w", New(VersionUnavailable, "no 1.2.5", nil))

	if !errors.Is(err, &MapdexError{Code: VersionUnavailable}) {
		t.Error("errors.Is should match by code through wrapping")
	}
	if errors.Is(err, &MapdexError{Code: NoResults}) {
		t.Error("errors.Is should not match a different code")
	}
	if !HasCode(err, VersionUnavailable) {
		t.Error("HasCode should find the wrapped code")
	}
	if HasCode(errors.New("plain"), VersionUnavailable) {
		t.Error("HasCode should be false for plain errors")
	}
}

func TestMapdexError_WithDetails(t *testing.T) {
	err := New(NoResults, "nothing", nil)
	details := map[string]string{"diagnosis": "looks-like-method"}

	result := err.WithDetails(details)

	if result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		wantNil bool
		wantLen int
	}{
		{NoResults, false, 1},
		{NamespaceUnknown, false, 1},
		{VersionUnavailable, false, 1},
		{CacheCorrupt, false, 1},
		{ParseFailed, true, 0},
		{InternalError, true, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			fixes := GetSuggestedFixes(tt.code)

			if tt.wantNil && fixes != nil {
				t.Errorf("GetSuggestedFixes(%v) = %v, want nil", tt.code, fixes)
			}
			if !tt.wantNil && len(fixes) != tt.wantLen {
				t.Errorf("GetSuggestedFixes(%v) len = %d, want %d", tt.code, len(fixes), tt.wantLen)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		ParseFailed,
		NoResults,
		NamespaceUnknown,
		VersionUnavailable,
		CacheCorrupt,
		ConfigInvalid,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true

		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}
