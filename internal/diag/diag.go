package diag

import (
	"fmt"
	"sort"
)

// Severity classifies a diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Diagnostic is a severity-tagged message anchored to a source position.
type Diagnostic struct {
	Severity Severity
	Message  string
	Line     int
	Column   int
	File     string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("(%d:%d): %s", d.Line, d.Column, d.Message)
}

// Bag collects diagnostics across all compilation phases. It is
// append-only; a single bag is shared by the lexer, parser and analyzer
// within one compilation.
type Bag struct {
	diags  []Diagnostic
	errors int
}

func NewBag() *Bag {
	return &Bag{}
}

func (b *Bag) Add(d Diagnostic) {
	if d.Severity == Error {
		b.errors++
	}
	b.diags = append(b.diags, d)
}

func (b *Bag) Infof(line, col int, format string, args ...any) {
	b.Add(Diagnostic{Severity: Info, Line: line, Column: col, Message: fmt.Sprintf(format, args...)})
}

func (b *Bag) Warnf(line, col int, format string, args ...any) {
	b.Add(Diagnostic{Severity: Warning, Line: line, Column: col, Message: fmt.Sprintf(format, args...)})
}

func (b *Bag) Errorf(line, col int, format string, args ...any) {
	b.Add(Diagnostic{Severity: Error, Line: line, Column: col, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any error-severity diagnostic was added.
func (b *Bag) HasErrors() bool { return b.errors > 0 }

// ErrorCount returns the number of error-severity diagnostics.
func (b *Bag) ErrorCount() int { return b.errors }

// WarningCount returns the number of warning-severity diagnostics.
func (b *Bag) WarningCount() int {
	n := 0
	for _, d := range b.diags {
		if d.Severity == Warning {
			n++
		}
	}
	return n
}

// Len returns the total number of diagnostics.
func (b *Bag) Len() int { return len(b.diags) }

// All returns the diagnostics in insertion order.
func (b *Bag) All() []Diagnostic {
	out := make([]Diagnostic, len(b.diags))
	copy(out, b.diags)
	return out
}

// Sorted returns the diagnostics ordered by (line, column). The sort is
// stable, so diagnostics at the same position keep insertion order.
func (b *Bag) Sorted() []Diagnostic {
	out := b.All()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	return out
}
