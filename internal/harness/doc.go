// Package harness runs YAML scenarios against the listing, favorite and chat
// services and records what each step observed.
//
// A scenario is a list of steps. Each step names one operation (create, list,
// toggle, send, ...) plus its arguments, and may carry an expect block that
// is checked after the step runs. The remote store is an in-memory store that
// a scenario can take down and bring back with remote_down / remote_up, which
// is how offline creation and later sync are exercised.
//
// Runs are deterministic: the clock starts at a fixed instant, local ids come
// from a fixed sequence, and remote ids are reported by the name a create
// step bound them to, so a run's trace can be snapshotted with goldie.
//
// Example scenario:
//
//	name: offline_then_sync
//	users:
//	  u1: Ayesha
//	steps:
//	  - op: remote_down
//	  - op: create
//	    user: u1
//	    as: house
//	    draft: {title: "3 bed house", location: "DHA", category: house-sale}
//	    expect: {local: true}
//	  - op: remote_up
//	  - op: sync
//	    expect: {synced: 1, pending: 0}
package harness
