// Package harness runs table view scenarios: a view definition, a record
// set and a list of user operations with expectations.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	view: ../viewdef/testdata/tasks.yaml   # or an inline `definition:`
//	records:
//	  generate: 45                          # or `inline:` / `file:`
//	source: memory                          # memory (default) or sqlite
//	steps:
//	  - op: set_page
//	    page: 2
//	    expect:
//	      status: ready
//	      rows: 15
//	assertions:
//	  - type: row_ids
//	    ids: ["31", "32"]
//
// # Determinism
//
// After every step the harness waits for all in-flight requests and applies
// their outcomes, so each step observes a settled view. Between a `gate`
// step and the following `release` step requests are held by the source and
// nothing is applied; `release` resolves the held requests in the listed
// order, which is how scenarios exercise out-of-order responses.
//
// Request tokens come from a sequence generator, so traces and golden
// snapshots are byte-identical across runs.
package harness
