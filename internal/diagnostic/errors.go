package diagnostic

import (
	"fmt"
	"strings"
)

// Code names a class of failure.
type Code string

const (
	CodeInvalidSpec        Code = "invalid_spec"
	CodeKindRequired       Code = "kind_required"
	CodeDuplicateField     Code = "duplicate_field"
	CodeDuplicateType      Code = "duplicate_type"
	CodeValidation         Code = "validation"
	CodeStrictExtraField   Code = "strict_extra_field"
	CodeUnknownKind        Code = "unknown_kind"
	CodeProxyNotFound      Code = "proxy_not_found"
	CodePermission         Code = "permission"
	CodeNamespaceCollision Code = "namespace_collision"
	CodeNotFound           Code = "not_found"
	CodeAmbiguousLookup    Code = "ambiguous_lookup"
	CodeParse              Code = "parse"

	// warning-only codes
	CodeUnresolvedXRef Code = "unresolved_xref"
	CodeIgnoredToken   Code = "ignored_token"
)

// Sentinels for errors.Is. Any *Error with the same Code matches.
var (
	ErrInvalidSpec        = &Error{Code: CodeInvalidSpec}
	ErrKindRequired       = &Error{Code: CodeKindRequired}
	ErrDuplicateField     = &Error{Code: CodeDuplicateField}
	ErrDuplicateType      = &Error{Code: CodeDuplicateType}
	ErrValidation         = &Error{Code: CodeValidation}
	ErrStrictExtraField   = &Error{Code: CodeStrictExtraField}
	ErrUnknownKind        = &Error{Code: CodeUnknownKind}
	ErrProxyNotFound      = &Error{Code: CodeProxyNotFound}
	ErrPermission         = &Error{Code: CodePermission}
	ErrNamespaceCollision = &Error{Code: CodeNamespaceCollision}
	ErrNotFound           = &Error{Code: CodeNotFound}
	ErrAmbiguousLookup    = &Error{Code: CodeAmbiguousLookup}
	ErrParse              = &Error{Code: CodeParse}
)

// Error is the typed failure returned by the engine. Kind and Field name the
// originating record kind and field when known.
type Error struct {
	Code  Code
	Kind  string
	Field string
	Msg   string
	Err   error
}

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, kind, field, format string, args ...any) *Error {
	return &Error{Code: code, Kind: kind, Field: field, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(string(e.Code))

	if e.Kind != "" {
		b.WriteString(" [" + e.Kind + "]")
	}

	if e.Field != "" {
		b.WriteString(" " + e.Field)
	}

	if e.Msg != "" {
		b.WriteString(": " + e.Msg)
	}

	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Code == e.Code
}

// WithKind returns a copy of e attributed to kind, keeping an existing attribution.
func (e *Error) WithKind(kind string) *Error {
	if e.Kind != "" {
		return e
	}

	c := *e
	c.Kind = kind

	return &c
}
