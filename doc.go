// Package espalier coordinates units of work ("runs", derived from plan
// documents) through a multi-stage lifecycle shared by multiple cooperating
// agent processes. There is no central server: all coordination happens
// through a shared on-disk run store.
//
// The core pieces:
//
//   - pkg/lifecycle: the run state machine. Two-tier states (flat values
//     like "proposed" and hierarchical ones like "active/executing"), a
//     static adjacency table, and a structural pre-execution gate.
//   - pkg/adapters/file: the shared store. One JSON file per run, with an
//     optimistic compare-and-swap built on the file's modification
//     timestamp. Two writes inside one filesystem timestamp granularity
//     window are indistinguishable; the design accepts that bound.
//   - pkg/claim: time-bounded exclusive leases on runs, expiry sweeping,
//     and soft file-conflict detection between active runs.
//   - pkg/verify: an append-only verification event log per run, with a
//     pure snapshot projection over the currently declared checks.
//   - pkg/workflow and pkg/condition: declarative step graphs with guarded
//     edges, validated at load time and advanced deterministically.
//
// The Coordinator in this package ties those together for a single agent
// process; cmd/espalier wraps it in a CLI.
package espalier
