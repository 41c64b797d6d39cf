package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/flatc/internal/compiler"
	"github.com/roach88/flatc/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the listing to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Listing  string // Lowered output for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Listing != "" {
		fmt.Fprintf(&buf, "\nListing:\n")
		for _, line := range strings.Split(strings.TrimRight(e.Listing, "\n"), "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// parseEntry splits an emission_order entry such as "forward _ES1A".
func parseEntry(entry string) (compiler.Phase, string, error) {
	phase, flat, ok := strings.Cut(strings.TrimSpace(entry), " ")
	flat = strings.TrimSpace(flat)
	if !ok || flat == "" {
		return "", "", fmt.Errorf("entry %q: expected \"forward NAME\" or \"define NAME\"", entry)
	}
	switch p := compiler.Phase(phase); p {
	case compiler.PhaseForward, compiler.PhaseDefine:
		return p, flat, nil
	}
	return "", "", fmt.Errorf("entry %q: unknown phase %q", entry, phase)
}

func entryOf(e compiler.Emission) string {
	return string(e.Phase) + " " + e.Decl.FlatName()
}

// assertSymbol checks that the run recorded the flat name, and that its
// declaration name and signature match when the assertion gives them.
// The lookup goes through the store so the recorded rows are what is
// checked, not the in-memory table.
func assertSymbol(ctx context.Context, st *store.Store, runID string, result *Result, assertion Assertion) error {
	matches, err := st.Lookup(ctx, assertion.Flat)
	if err != nil {
		return fmt.Errorf("symbol lookup: %w", err)
	}

	var found *store.Match
	for i := range matches {
		if matches[i].RunID == runID {
			found = &matches[i]
			break
		}
	}
	if found == nil {
		return &AssertionError{
			Type:     AssertSymbol,
			Expected: fmt.Sprintf("symbol %s recorded", assertion.Flat),
			Actual:   "not recorded",
			Listing:  result.Listing,
		}
	}

	if assertion.Decl != "" && found.DeclName != assertion.Decl {
		return &AssertionError{
			Type:     AssertSymbol,
			Expected: fmt.Sprintf("%s declares %s", assertion.Flat, assertion.Decl),
			Actual:   fmt.Sprintf("%s declares %s", assertion.Flat, found.DeclName),
			Listing:  result.Listing,
		}
	}
	if assertion.Signature != "" && found.Signature != assertion.Signature {
		return &AssertionError{
			Type:     AssertSymbol,
			Expected: fmt.Sprintf("%s has signature %q", assertion.Flat, assertion.Signature),
			Actual:   fmt.Sprintf("signature %q", found.Signature),
			Listing:  result.Listing,
		}
	}
	return nil
}

// assertEmissionOrder checks that entries appear in the specified order.
// Entries don't need to be consecutive.
func assertEmissionOrder(result *Result, assertion Assertion) error {
	positions := make(map[string]int, len(result.Emissions))
	for i, e := range result.Emissions {
		positions[entryOf(e)] = i + 1 // 1-indexed so zero means missing
	}

	for _, entry := range assertion.Entries {
		if positions[entry] == 0 {
			return &AssertionError{
				Type:     AssertEmissionOrder,
				Expected: fmt.Sprintf("all entries present: %v", assertion.Entries),
				Actual:   fmt.Sprintf("missing entry: %s", entry),
				Listing:  result.Listing,
			}
		}
	}

	for i := 1; i < len(assertion.Entries); i++ {
		prev := assertion.Entries[i-1]
		curr := assertion.Entries[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertEmissionOrder,
				Expected: fmt.Sprintf("entries in order: %v", assertion.Entries),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Listing: result.Listing,
			}
		}
	}

	return nil
}

// assertForward checks that the flat name is forward declared.
func assertForward(result *Result, assertion Assertion) error {
	for _, e := range result.Emissions {
		if e.Phase == compiler.PhaseForward && e.Decl.FlatName() == assertion.Flat {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertForward,
		Expected: fmt.Sprintf("forward declaration of %s", assertion.Flat),
		Actual:   "not forward declared",
		Listing:  result.Listing,
	}
}

func statValue(s compiler.Stats, name string) (int, bool) {
	switch name {
	case "input_decls":
		return s.InputDecls, true
	case "output_decls":
		return s.OutputDecls, true
	case "forward":
		return s.Forward, true
	case "defined":
		return s.Defined, true
	case "temporaries":
		return s.Temporaries, true
	}
	return 0, false
}

// assertStat checks a pipeline counter.
func assertStat(result *Result, assertion Assertion) error {
	got, ok := statValue(result.Stats, assertion.Stat)
	if !ok {
		return fmt.Errorf("unknown stat %q", assertion.Stat)
	}
	if got != assertion.Count {
		return &AssertionError{
			Type:     AssertStat,
			Expected: fmt.Sprintf("%s = %d", assertion.Stat, assertion.Count),
			Actual:   fmt.Sprintf("%s = %d", assertion.Stat, got),
		}
	}
	return nil
}

// assertListingContains checks the listing for a substring.
func assertListingContains(result *Result, assertion Assertion) error {
	if strings.Contains(result.Listing, assertion.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertListingContains,
		Expected: fmt.Sprintf("listing contains %q", assertion.Text),
		Actual:   "not found",
		Listing:  result.Listing,
	}
}

// AssertionContext provides database access to assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for symbol assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertSymbol:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: symbol requires database context", i)
			} else {
				err = assertSymbol(actx.Ctx, actx.Store, result.RunID, result, assertion)
			}
		case AssertEmissionOrder:
			err = assertEmissionOrder(result, assertion)
		case AssertForward:
			err = assertForward(result, assertion)
		case AssertStat:
			err = assertStat(result, assertion)
		case AssertListingContains:
			err = assertListingContains(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
