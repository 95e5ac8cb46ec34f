// Package harness provides conformance testing for the prediction and
// reconciliation engine.
//
// A scenario wires an authority peer and a client peer, each running
// the same CUE-declared containers, over an in-process replication
// channel, then drives both through an explicit step list and asserts
// on the client's effective view along the way.
//
// # Scenario Format
//
// Scenarios are defined in YAML files:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	spec: path/to/containers.cue
//	steps:
//	  - op: predict_add
//	    container: wallet
//	    key: open
//	    payload: { owner: ada, coins: 100 }
//	  - op: approve
//	    key: open
//	  - op: sync
//	  - op: caught_up
//	    container: wallet
//	    key: open
//	  - op: expect_view
//	    container: wallet
//	    view:
//	      - { owner: ada, coins: 100 }
//
// # Step Operations
//
//   - predict_add / predict_change / predict_remove: the client records
//     a speculative operation under a named key
//   - approve: the authority replays every prediction recorded under a
//     key, in order
//   - authority_add / authority_change / authority_remove: the
//     authority performs an operation of its own (a foreign mutation,
//     from the client's perspective)
//   - reject / caught_up: the authority queues the key's terminal
//     signal
//   - sync: queued deltas and signals flush across the channel
//   - hold / release: delivery control for one entry's identity
//   - snapshot: the client's view is recorded into the trace
//   - expect_view: the client's view must equal the given entry list
//   - expect_pending: the client must have exactly count unresolved keys
//
// # Deterministic Testing
//
// Scenarios execute with a deterministic key generator (keys derived
// from their scenario-local names) and a step clock for delta
// sequencing, so identical scenarios produce identical traces for
// golden file comparison.
package harness
