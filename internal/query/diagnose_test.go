package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mderrors "mapdex/internal/errors"
)

func TestDiagnose(t *testing.T) {
	tests := []struct {
		kind Kind
		key  string
		want Diagnosis
	}{
		{KindClass, "Foo Bar", DiagnosisInvalidIdentifier},
		{KindAny, "a-b", DiagnosisInvalidIdentifier},
		{KindField, "1abc", DiagnosisNoResults},
		{KindClass, "method_1234", DiagnosisLooksLikeMethod},
		{KindField, "func_71410_x", DiagnosisLooksLikeMethod},
		{KindMethod, "method_1234", DiagnosisNoResults},
		{KindMethod, "field_5", DiagnosisLooksLikeField},
		{KindAny, "field_5", DiagnosisLooksLikeField},
		{KindField, "field_5", DiagnosisNoResults},
		{KindClass, "block", DiagnosisNotAClass},
		{KindClass, "net.minecraft.block", DiagnosisNotAClass},
		{KindClass, "class_5", DiagnosisNoResults},
		{KindClass, "Block", DiagnosisNoResults},
		{KindField, "block", DiagnosisNoResults},
		{KindClass, "a/b/$Inner", DiagnosisNoResults},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, Diagnose(tt.kind, tt.key))
		})
	}
}

func TestErrorNoResultsFound(t *testing.T) {
	err := ErrorNoResultsFound(KindClass, "method_5")
	assert.True(t, mderrors.HasCode(err, mderrors.NoResults))
	assert.Equal(t, DiagnosisLooksLikeMethod, err.Details)
	assert.Contains(t, err.Message, "method_5")
	require.Len(t, err.SuggestedFixes, 1)
	assert.Equal(t, "mapdex query class method_5 --accuracy fuzzy", err.SuggestedFixes[0].Command)

	err = ErrorNoResultsFound(KindAny, "Zzz")
	assert.Equal(t, DiagnosisNoResults, err.Details)
	assert.Contains(t, err.Message, "entries")
}
