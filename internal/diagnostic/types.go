package diagnostic

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

//go:generate go tool stringer -type=Severity -linecomment -output=severity_string.go

// Severity ranks a finding.
type Severity int

const (
	SeverityInfo    Severity = iota // info
	SeverityWarning                 // warning
	SeverityError                   // error
)

// Diagnostic is a finding that did not stop the pass that made it.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	// Kind and Field locate the finding; both may be empty.
	Kind  string
	Field string
	// Suggestions are names close to the one that failed to resolve.
	Suggestions []string
}

func (d Diagnostic) String() string {
	var b strings.Builder

	var where []string
	if d.Kind != "" {
		where = append(where, "["+d.Kind+"]")
	}

	if d.Field != "" {
		where = append(where, d.Field)
	}

	if len(where) > 0 {
		b.WriteString(strings.Join(where, " ") + ": ")
	}

	if d.Code != "" {
		fmt.Fprintf(&b, "[%s] ", d.Code)
	}

	b.WriteString(d.Message)

	if len(d.Suggestions) > 0 {
		fmt.Fprintf(&b, " (did you mean %s?)", strings.Join(d.Suggestions, ", "))
	}

	return b.String()
}

// Diagnostics collects the findings of a build or registration pass by
// severity.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Infos    []Diagnostic
}

// Add files d under its severity.
func (ds *Diagnostics) Add(d Diagnostic) {
	switch d.Severity {
	case SeverityError:
		ds.Errors = append(ds.Errors, d)
	case SeverityWarning:
		ds.Warnings = append(ds.Warnings, d)
	default:
		ds.Infos = append(ds.Infos, d)
	}
}

func (ds *Diagnostics) AddError(code Code, message, kind, field string) {
	ds.Add(Diagnostic{Severity: SeverityError, Code: code, Message: message, Kind: kind, Field: field})
}

func (ds *Diagnostics) AddWarning(code Code, message, kind, field string) {
	ds.Add(Diagnostic{Severity: SeverityWarning, Code: code, Message: message, Kind: kind, Field: field})
}

func (ds *Diagnostics) AddInfo(code Code, message, kind, field string) {
	ds.Add(Diagnostic{Severity: SeverityInfo, Code: code, Message: message, Kind: kind, Field: field})
}

// Merge appends the findings of other.
func (ds *Diagnostics) Merge(other Diagnostics) {
	ds.Errors = append(ds.Errors, other.Errors...)
	ds.Warnings = append(ds.Warnings, other.Warnings...)
	ds.Infos = append(ds.Infos, other.Infos...)
}

func (ds *Diagnostics) HasErrors() bool { return len(ds.Errors) > 0 }

// IsValid reports the absence of errors.
func (ds *Diagnostics) IsValid() bool { return !ds.HasErrors() }

// Error joins the error findings, or returns nil when there are none.
func (ds *Diagnostics) Error() error {
	if ds.IsValid() {
		return nil
	}

	parts := make([]string, len(ds.Errors))
	for i, e := range ds.Errors {
		parts[i] = e.String()
	}

	return errors.New(strings.Join(parts, "; "))
}
