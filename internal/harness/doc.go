// Package harness provides conformance testing for flatc lowering.
//
// A scenario names a unit, the outcome its lowering must have, and
// assertions over the lowered output. The harness loads the unit through
// the CUE frontend, runs the compiler pipeline, records the run in a
// store and evaluates the assertions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: class_scenario
//	description: "What this scenario validates"
//	unit: ../units/class_scenario.cue
//	assertions:
//	  - type: symbol
//	    flat: _EC6PersonIB3intB3str
//	    decl: Person::Person
//	  - type: emission_order
//	    entries: ["define _EC6Person", "define main"]
//	  - type: stat
//	    stat: temporaries
//	    count: 1
//
// A scenario that must fail names the error kind instead of assertions:
//
//	name: value_cycle
//	description: "Aggregates containing each other by value"
//	unit: ../units/value_cycle.cue
//	expect:
//	  error: UNRESOLVABLE_LAYOUT
//
// # Assertion Types
//
//   - symbol: a flat name is recorded for the run, with optional decl and signature
//   - emission_order: "forward NAME" and "define NAME" entries appear in order
//   - forward: a flat name is forward declared
//   - stat: a pipeline counter has the given value
//   - listing_contains: the listing contains a substring
//
// # Deterministic Testing
//
// Every scenario runs in a fresh in-memory SQLite store with sequential
// run IDs (testutil.SequenceIDGenerator). Listings are deterministic, so
// they are compared against golden files with RunWithGolden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/class_scenario.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
