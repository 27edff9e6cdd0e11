// Package log provides the key/value logger used across the engine.
//
// The variadic arguments of every method are key value pairs. The key must be
// a string and the value should have a meaningful string representation.
package log

import (
	"fmt"
	"log"
	"strings"
)

// Root is the fallback logger for components constructed without one.
var Root Logger = &Default{}

// Logger is the logging sink consumed by the engine.
type Logger interface {
	Debug(string, ...any)
	Info(string, ...any)
	Warn(string, ...any)
	Error(string, ...any)
	With(...any) Logger
}

// Default writes through the standard library logger. Debug lines are only
// written when Verbose is set.
type Default struct {
	Verbose bool
	Tags    []any
}

func (l *Default) Debug(m string, s ...any) {
	if l.Verbose {
		log.Print(tfmt("DEB ", m, s, l.Tags))
	}
}
func (l *Default) Info(m string, s ...any)  { log.Print(tfmt("INF ", m, s, l.Tags)) }
func (l *Default) Warn(m string, s ...any)  { log.Print(tfmt("WRN ", m, s, l.Tags)) }
func (l *Default) Error(m string, s ...any) { log.Print(tfmt("ERR ", m, s, l.Tags)) }
func (l *Default) With(tags ...any) Logger {
	return l.with(tags)
}

func (l *Default) with(tags []any) *Default {
	t := make([]any, 0, len(tags)+len(l.Tags))
	t = append(t, tags...)
	t = append(t, l.Tags...)

	return &Default{Verbose: l.Verbose, Tags: t}
}

// Discard drops everything.
type Discard struct{}

func (Discard) Debug(string, ...any) {}
func (Discard) Info(string, ...any)  {}
func (Discard) Warn(string, ...any)  {}
func (Discard) Error(string, ...any) {}
func (d Discard) With(...any) Logger { return d }

// Or returns l, or Root when l is nil.
func Or(l Logger) Logger {
	if l == nil {
		return Root
	}

	return l
}

func tfmt(lvl, msg string, all ...[]any) string {
	var b strings.Builder

	b.WriteString(lvl)
	b.WriteString(msg)

	for _, tags := range all {
		for i, v := range tags {
			if i%2 == 0 {
				b.WriteByte(' ')
			} else {
				b.WriteByte('=')
			}

			b.WriteString(fmt.Sprint(v))
		}
	}

	return b.String()
}
