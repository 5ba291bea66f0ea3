// Package testutil provides deterministic collaborators for tests: a
// stepping wall clock, a fixed request-id generator, and a scripted fetch
// function whose calls can be held open to exercise in-flight behavior.
package testutil
