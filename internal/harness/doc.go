// Package harness provides conformance testing for audio sessions.
//
// The harness brings up a session against the simulated engine, runs a
// scenario's steps through the public session API, and checks the engine
// calls the session made.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	token: scenario-token
//	banks: [Master.bank, Master.strings.bank, SFX.bank]
//	steps:
//	  - op: event
//	    path: event:/Weapons/Explosion
//	    as: boom
//	  - op: create_instance
//	    event: boom
//	    as: i1
//	  - op: start
//	    instance: i1
//	  - op: playback_state
//	    instance: i1
//	    expect: { error: VALIDATION }
//	assertions:
//	  - type: trace_contains
//	    op: instance.start
//	    target: inst-1
//	  - type: final_state
//	    table: op_counts
//	    where: { session: scenario-token, op: system.update }
//	    expect: { n: 60 }
//
// A scenario whose bring-up is expected to fail sets expect_init_error to
// the error code and may omit steps.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - trace_contains: Verifies an engine call appears with matching target and args
//   - trace_order: Verifies engine calls first appear in the given order
//   - trace_count: Verifies an engine call appears exactly N times
//   - final_state: Queries a journal table or view and verifies expected values
//
// # Deterministic Testing
//
// Every scenario runs with a fixed session token, a logical clock starting
// at zero, a stepped simulated engine, and a private in-memory journal, so
// traces are identical across runs and can be compared to golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/fire_and_forget.yaml")
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
