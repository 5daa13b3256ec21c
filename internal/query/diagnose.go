package query

import (
	"fmt"
	"strings"
	"unicode"

	mderrors "mapdex/internal/errors"
)

// Kind is what a search was looking for.
type Kind string

const (
	KindAny    Kind = ""
	KindClass  Kind = "class"
	KindField  Kind = "field"
	KindMethod Kind = "method"
)

// Diagnosis explains why a search probably found nothing.
type Diagnosis string

const (
	DiagnosisInvalidIdentifier Diagnosis = "invalid_identifier"
	DiagnosisLooksLikeMethod   Diagnosis = "looks_like_method"
	DiagnosisLooksLikeField    Diagnosis = "looks_like_field"
	DiagnosisNotAClass         Diagnosis = "not_a_class"
	DiagnosisNoResults         Diagnosis = "no_results"
)

// Diagnose classifies an empty search. It only picks the message; it never
// changes what a search matches.
func Diagnose(kind Kind, key string) Diagnosis {
	simple := normalizeKey(key)
	if i := strings.LastIndexByte(simple, '/'); i >= 0 {
		simple = simple[i+1:]
	}
	switch {
	case !isIdentifier(simple) && !startsWithDigit(simple):
		return DiagnosisInvalidIdentifier
	case kind != KindMethod && (strings.HasPrefix(simple, "func_") || strings.HasPrefix(simple, "method_")):
		return DiagnosisLooksLikeMethod
	case kind != KindField && strings.HasPrefix(simple, "field_"):
		return DiagnosisLooksLikeField
	case kind == KindClass && !strings.HasPrefix(simple, "class_") && startsLower(simple):
		return DiagnosisNotAClass
	}
	return DiagnosisNoResults
}

// ErrorNoResultsFound builds the NO_RESULTS error for an empty search, with
// the Diagnosis as details.
func ErrorNoResultsFound(kind Kind, key string) *mderrors.MapdexError {
	d := Diagnose(kind, key)
	what := "entries"
	if kind != KindAny {
		what = string(kind) + "s"
	}
	var msg string
	switch d {
	case DiagnosisInvalidIdentifier:
		msg = fmt.Sprintf("%q is not a valid identifier", key)
	case DiagnosisLooksLikeMethod:
		msg = fmt.Sprintf("no %s match %q, which looks like a method name", what, key)
	case DiagnosisLooksLikeField:
		msg = fmt.Sprintf("no %s match %q, which looks like a field name", what, key)
	case DiagnosisNotAClass:
		msg = fmt.Sprintf("no classes match %q; class names usually start with an upper-case letter", key)
	default:
		msg = fmt.Sprintf("no %s match %q", what, key)
	}
	err := mderrors.New(mderrors.NoResults, msg, nil).WithDetails(d)

	fixKind := kind
	if fixKind == KindAny {
		fixKind = KindClass
	}
	r := strings.NewReplacer("${kind}", string(fixKind), "${key}", key)
	fixes := make([]mderrors.FixAction, len(err.SuggestedFixes))
	for i, fix := range err.SuggestedFixes {
		fix.Command = r.Replace(fix.Command)
		fixes[i] = fix
	}
	err.SuggestedFixes = fixes
	return err
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func startsLower(s string) bool {
	for _, r := range s {
		return unicode.IsLower(r)
	}
	return false
}
