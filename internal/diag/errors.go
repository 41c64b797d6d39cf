// Package diag defines the fatal lowering errors reported by flatc.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/flatc/internal/ir"
)

// Kind categorizes lowering errors.
type Kind string

const (
	// KindNamingConflict indicates two distinct declarations share a flat name.
	KindNamingConflict Kind = "NAMING_CONFLICT"

	// KindUnresolvedOverload indicates a call or construction matches no
	// declared signature, or more than one equally well.
	KindUnresolvedOverload Kind = "UNRESOLVED_OVERLOAD"

	// KindUnresolvableLayout indicates a value-containment cycle.
	KindUnresolvableLayout Kind = "UNRESOLVABLE_LAYOUT"

	// KindMalformedVariadic indicates a variadic tail that cannot be lowered.
	KindMalformedVariadic Kind = "MALFORMED_VARIADIC"

	// KindInvalidInput indicates the declaration list failed validation.
	KindInvalidInput Kind = "INVALID_INPUT"
)

// Site identifies a declaration in the input list.
type Site struct {
	Decl  string
	Index int
	Pos   ir.Pos
}

// SiteOf returns the site of d.
func SiteOf(d ir.Decl) Site {
	idx, pos := d.Position()
	return Site{Decl: d.DeclName(), Index: idx, Pos: pos}
}

func (s Site) String() string {
	if s.Pos.IsValid() {
		return fmt.Sprintf("%s (decl #%d at %s)", s.Decl, s.Index, s.Pos)
	}
	return fmt.Sprintf("%s (decl #%d)", s.Decl, s.Index)
}

// Error is a fatal lowering error. Site is the offending declaration and
// Related lists any other declarations involved, such as the other side
// of a naming conflict or the rest of a layout cycle.
type Error struct {
	Kind    Kind
	Message string
	Site    Site
	Related []Site

	// Details contains additional context, e.g. the flat name in conflict.
	Details map[string]string

	// Causes holds the individual problems of an InvalidInput error.
	Causes []error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if e.Site.Decl != "" {
		fmt.Fprintf(&b, " in %s", e.Site)
	}
	for _, r := range e.Related {
		fmt.Fprintf(&b, "; see %s", r)
	}
	for _, c := range e.Causes {
		fmt.Fprintf(&b, "\n  %s", c)
	}
	return b.String()
}

// Unwrap exposes the individual causes to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	return e.Causes
}

// KindOf returns the kind of the first diag.Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// Is reports whether err carries a diag.Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsNamingConflict returns true if err is a naming conflict.
// Uses errors.As to handle wrapped errors.
func IsNamingConflict(err error) bool { return Is(err, KindNamingConflict) }

// IsUnresolvedOverload returns true if err is an unresolved overload.
func IsUnresolvedOverload(err error) bool { return Is(err, KindUnresolvedOverload) }

// IsUnresolvableLayout returns true if err is an unresolvable layout.
func IsUnresolvableLayout(err error) bool { return Is(err, KindUnresolvableLayout) }

// IsMalformedVariadic returns true if err is a malformed variadic tail.
func IsMalformedVariadic(err error) bool { return Is(err, KindMalformedVariadic) }

// IsInvalidInput returns true if err is a validation failure.
func IsInvalidInput(err error) bool { return Is(err, KindInvalidInput) }

// NewNamingConflict reports that d and prev mangle to the same flat name
// without being redeclarations of each other.
func NewNamingConflict(flat string, d, prev ir.Decl) *Error {
	return &Error{
		Kind:    KindNamingConflict,
		Message: fmt.Sprintf("flat name %s is already taken by %s", flat, prev.DeclName()),
		Site:    SiteOf(d),
		Related: []Site{SiteOf(prev)},
		Details: map[string]string{"flat_name": flat},
	}
}

// NewUnresolvedOverload reports a call in the body of d that no candidate
// accepts. Candidates lists the considered signatures, if any.
func NewUnresolvedOverload(d ir.Decl, call string, candidates []string) *Error {
	msg := fmt.Sprintf("no overload of %s matches the call", call)
	if len(candidates) > 0 {
		msg += fmt.Sprintf(" (candidates: %s)", strings.Join(candidates, ", "))
	}
	return &Error{
		Kind:    KindUnresolvedOverload,
		Message: msg,
		Site:    SiteOf(d),
		Details: map[string]string{"call": call},
	}
}

// NewAmbiguousOverload reports a call that more than one candidate
// accepts at the same cost.
func NewAmbiguousOverload(d ir.Decl, call string, candidates []string) *Error {
	return &Error{
		Kind:    KindUnresolvedOverload,
		Message: fmt.Sprintf("call to %s is ambiguous between %s", call, strings.Join(candidates, " and ")),
		Site:    SiteOf(d),
		Details: map[string]string{"call": call, "ambiguous": "true"},
	}
}

// NewUnresolvableLayout reports aggregates that contain each other by
// value. cycle lists the members in declaration order.
func NewUnresolvableLayout(cycle []ir.Decl) *Error {
	names := make([]string, len(cycle))
	related := make([]Site, 0, len(cycle)-1)
	for i, d := range cycle {
		names[i] = d.DeclName()
		if i > 0 {
			related = append(related, SiteOf(d))
		}
	}
	return &Error{
		Kind:    KindUnresolvableLayout,
		Message: fmt.Sprintf("aggregates contain each other by value: %s", strings.Join(names, " -> ")),
		Site:    SiteOf(cycle[0]),
		Related: related,
	}
}

// NewMalformedVariadic reports a variadic tail of d that cannot be lowered.
func NewMalformedVariadic(d ir.Decl, format string, args ...any) *Error {
	return &Error{
		Kind:    KindMalformedVariadic,
		Message: fmt.Sprintf(format, args...),
		Site:    SiteOf(d),
	}
}

// NewInvalidInput collects validation problems into one error.
func NewInvalidInput(unit string, causes []error) *Error {
	return &Error{
		Kind:    KindInvalidInput,
		Message: fmt.Sprintf("unit %s has %d invalid declaration(s)", unit, len(causes)),
		Causes:  causes,
	}
}
