package diagnostic

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesCode(t *testing.T) {
	err := Errorf(CodeValidation, "DS", "uri", "required field missing")

	require.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrInvalidSpec)

	wrapped := fmt.Errorf("construct: %w", err)
	require.ErrorIs(t, wrapped, ErrValidation)

	var de *Error
	require.ErrorAs(t, wrapped, &de)
	assert.Equal(t, "uri", de.Field)
	assert.Equal(t, "DS", de.Kind)
}

func TestErrorString(t *testing.T) {
	err := &Error{Code: CodeInvalidSpec, Kind: "DS", Field: "rows", Msg: `token "gt=abc"`, Err: errors.New("bad int")}
	assert.Equal(t, `invalid_spec [DS] rows: token "gt=abc": bad int`, err.Error())
}

func TestWithKindKeepsExisting(t *testing.T) {
	err := Errorf(CodeValidation, "", "uri", "missing")
	assert.Equal(t, "DS", err.WithKind("DS").Kind)

	owned := Errorf(CodeValidation, "Child", "uri", "missing")
	assert.Equal(t, "Child", owned.WithKind("DS").Kind)
}

func TestDiagnosticsCollect(t *testing.T) {
	var d Diagnostics
	d.AddWarning(CodeUnresolvedXRef, "xref DS not registered", "Widget", "ds")
	assert.True(t, d.IsValid())
	assert.NoError(t, d.Error())

	d.AddError(CodeDuplicateField, "field declared twice", "Widget", "ns")
	assert.True(t, d.HasErrors())
	require.Error(t, d.Error())
	assert.Equal(t, "[Widget] ns: [duplicate_field] field declared twice", d.Error().Error())

	w := d.Warnings[0]
	w.Suggestions = []string{"ds"}
	assert.Equal(t, "[Widget] ds: [unresolved_xref] xref DS not registered (did you mean ds?)", w.String())
}

func TestDiagnosticsMerge(t *testing.T) {
	var a, b Diagnostics
	a.AddInfo(CodeIgnoredToken, "kept", "", "")
	b.Add(Diagnostic{Severity: SeverityWarning, Code: CodeProxyNotFound, Message: "no proxy Nope", Suggestions: []string{"DSProxy"}})

	a.Merge(b)
	assert.Len(t, a.Infos, 1)
	require.Len(t, a.Warnings, 1)
	assert.Equal(t, "[proxy_not_found] no proxy Nope (did you mean DSProxy?)", a.Warnings[0].String())
	assert.Equal(t, "warning", a.Warnings[0].Severity.String())
	assert.Equal(t, "Severity(7)", Severity(7).String())
}
