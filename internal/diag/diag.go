// Package diag defines the compiler's diagnostic surface: stable,
// machine-readable error codes, source positions, and a collector that
// accumulates diagnostics across a run so one invocation surfaces as many
// problems as possible before aborting.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Code is a stable, namespaced diagnostic identifier. Codes are part of the
// tool's public interface and must never be renumbered.
type Code string

// Preprocessor / dependency resolution.
const (
	UnresolvedInclude Code = "CNX-PP-001"
	MalformedInclude  Code = "CNX-PP-002"
	UnknownLanguage   Code = "CNX-PP-003"
)

// Symbol collection and table.
const (
	SymbolConflict     Code = "CNX-SYM-001"
	HeaderParseFailure Code = "CNX-SYM-002"
	UnknownSymbol      Code = "CNX-SYM-003"
	UseBeforeDefine    Code = "CNX-SYM-004"
)

// DSL lexing/parsing.
const (
	LexError   Code = "CNX-PARSE-001"
	ParseError Code = "CNX-PARSE-002"
)

// Flow analyses in the code generator.
const (
	ReadBeforeInit      Code = "CNX-INIT-001"
	AssignToConst       Code = "CNX-CONST-001"
	NullNamingRequired  Code = "CNX-NULL-001"
	NullCompareMisuse   Code = "CNX-NULL-002"
	UncheckedHandleUse  Code = "CNX-NULL-003"
	BitIndexOutOfRange  Code = "CNX-BIT-001"
	SliceBoundsError    Code = "CNX-BIT-002"
	WriteOnlyRead       Code = "CNX-REG-001"
	ReadOnlyWrite       Code = "CNX-REG-002"
	BoundaryLiteral     Code = "CNX-LIT-001"
	LiteralOverflow     Code = "CNX-LIT-002"
	SwitchNotExhaustive Code = "CNX-SW-001"
	SwitchCountMismatch Code = "CNX-SW-002"
)

// Code generation (non-flow).
const (
	TypeMismatch  Code = "CNX-GEN-001"
	InvalidLValue Code = "CNX-GEN-002"
	UnknownMember Code = "CNX-GEN-003"
)

// Pos is a source position. Line and Col are 1-based; Col may be zero when
// only the line is known.
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string {
	if p.Col > 0 {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
	}
	if p.Line > 0 {
		return fmt.Sprintf("%s:%d", p.File, p.Line)
	}
	return p.File
}

// Diagnostic is a single compile-time error. All diagnostics are fatal to
// the run; there is no warning severity.
type Diagnostic struct {
	Code    Code
	Pos     Pos
	Message string
	Fix     string // optional suggested fix, empty when none applies
}

// Error implements the error interface so a Diagnostic can flow through
// ordinary error returns.
func (d *Diagnostic) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] %s", d.Pos, d.Code, d.Message)
	if d.Fix != "" {
		fmt.Fprintf(&sb, " (fix: %s)", d.Fix)
	}
	return sb.String()
}

// New builds a Diagnostic.
func New(code Code, pos Pos, format string, args ...any) *Diagnostic {
	return &Diagnostic{Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// WithFix attaches a suggested fix and returns the same diagnostic.
func (d *Diagnostic) WithFix(format string, args ...any) *Diagnostic {
	d.Fix = fmt.Sprintf(format, args...)
	return d
}

// Collector accumulates diagnostics. Stages that must maximise diagnostic
// yield (foreign-header collection, multi-file builds) report into a
// Collector and check Err once at a stage boundary.
type Collector struct {
	diags []*Diagnostic
}

// Add records one diagnostic. A nil diagnostic is ignored.
func (c *Collector) Add(d *Diagnostic) {
	if d != nil {
		c.diags = append(c.diags, d)
	}
}

// AddError records an arbitrary error, promoting it to a Diagnostic if it is
// not one already.
func (c *Collector) AddError(code Code, pos Pos, err error) {
	if err == nil {
		return
	}
	if d, ok := err.(*Diagnostic); ok {
		c.diags = append(c.diags, d)
		return
	}
	c.diags = append(c.diags, New(code, pos, "%s", err.Error()))
}

// HasErrors reports whether anything was collected.
func (c *Collector) HasErrors() bool { return len(c.diags) > 0 }

// Count returns the number of collected diagnostics.
func (c *Collector) Count() int { return len(c.diags) }

// All returns collected diagnostics ordered by file, then line, then code.
func (c *Collector) All() []*Diagnostic {
	out := make([]*Diagnostic, len(c.diags))
	copy(out, c.diags)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Pos.File != b.Pos.File {
			return a.Pos.File < b.Pos.File
		}
		if a.Pos.Line != b.Pos.Line {
			return a.Pos.Line < b.Pos.Line
		}
		return a.Code < b.Code
	})
	return out
}

// Err returns nil when empty, otherwise an error summarising every
// collected diagnostic, one per line.
func (c *Collector) Err() error {
	if len(c.diags) == 0 {
		return nil
	}
	var sb strings.Builder
	for i, d := range c.All() {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(d.Error())
	}
	return fmt.Errorf("%d error(s):\n%s", len(c.diags), sb.String())
}
