package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/flatc/internal/diag"
)

// Scenario defines a conformance scenario: one unit, the outcome its
// lowering must have, and assertions over the lowered output.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Unit is the path to a .cue unit file or a CUE package directory.
	// Relative paths are resolved against the scenario file location.
	Unit string `yaml:"unit"`

	// Expect describes the outcome. The zero value expects success.
	Expect Expect `yaml:"expect,omitempty"`

	// Assertions validate the lowered output of a successful scenario.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect names the error a scenario must fail with.
type Expect struct {
	// Error is a diag kind such as UNRESOLVABLE_LAYOUT. Empty means the
	// unit must lower cleanly.
	Error string `yaml:"error,omitempty"`

	// Message is a substring the error text must contain.
	Message string `yaml:"message,omitempty"`
}

// Assertion validates part of the lowered output.
type Assertion struct {
	// Type specifies the assertion type:
	// - "symbol": Flat is recorded for the run, optionally with Decl and Signature
	// - "emission_order": Entries ("forward X" or "define X") appear in order
	// - "forward": Flat is forward declared
	// - "stat": the named Stats counter equals Count
	// - "listing_contains": the listing contains Text
	Type string `yaml:"type"`

	// Flat is a flat name (used by symbol, forward).
	Flat string `yaml:"flat,omitempty"`

	// Decl is the expected declaration name (used by symbol).
	Decl string `yaml:"decl,omitempty"`

	// Signature is the expected demangled signature (used by symbol).
	Signature string `yaml:"signature,omitempty"`

	// Entries is the expected emission order (used by emission_order).
	Entries []string `yaml:"entries,omitempty"`

	// Stat is a Stats counter name, e.g. "temporaries" (used by stat).
	Stat string `yaml:"stat,omitempty"`

	// Count is the expected counter value (used by stat).
	Count int `yaml:"count,omitempty"`

	// Text is the expected listing substring (used by listing_contains).
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertSymbol          = "symbol"
	AssertEmissionOrder   = "emission_order"
	AssertForward         = "forward"
	AssertStat            = "stat"
	AssertListingContains = "listing_contains"
)

var knownKinds = map[diag.Kind]bool{
	diag.KindNamingConflict:     true,
	diag.KindUnresolvedOverload: true,
	diag.KindUnresolvableLayout: true,
	diag.KindMalformedVariadic:  true,
	diag.KindInvalidInput:       true,
}

var knownStats = map[string]bool{
	"input_decls":  true,
	"output_decls": true,
	"forward":      true,
	"defined":      true,
	"temporaries":  true,
}

// LoadScenario reads and parses a scenario YAML file, resolving the unit
// path relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the unit path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Unit != "" && !filepath.IsAbs(scenario.Unit) && basePath != "" {
		scenario.Unit = filepath.Join(basePath, scenario.Unit)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Unit == "" {
		return fmt.Errorf("unit is required")
	}

	if _, err := os.Stat(s.Unit); os.IsNotExist(err) {
		return fmt.Errorf("unit not found: %s", s.Unit)
	}

	if s.Expect.Error != "" {
		if !knownKinds[diag.Kind(s.Expect.Error)] {
			return fmt.Errorf("expect.error: unknown error kind %q", s.Expect.Error)
		}
		if len(s.Assertions) > 0 {
			return fmt.Errorf("assertions require a successful lowering; remove expect.error or the assertions")
		}
		return nil
	}

	if s.Expect.Message != "" {
		return fmt.Errorf("expect.message requires expect.error")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSymbol, AssertForward:
		if a.Flat == "" {
			return fmt.Errorf("assertions[%d]: flat is required for %s", index, a.Type)
		}
	case AssertEmissionOrder:
		if len(a.Entries) < 2 {
			return fmt.Errorf("assertions[%d]: at least two entries are required for emission_order", index)
		}
		for j, e := range a.Entries {
			if _, _, err := parseEntry(e); err != nil {
				return fmt.Errorf("assertions[%d].entries[%d]: %w", index, j, err)
			}
		}
	case AssertStat:
		if !knownStats[a.Stat] {
			return fmt.Errorf("assertions[%d]: unknown stat %q", index, a.Stat)
		}
	case AssertListingContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for listing_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
