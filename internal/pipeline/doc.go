// Package pipeline drives one triage cycle: concurrent collector fan-out
// with per-source failure isolation, one classification call, independent
// per-alert storage, and the cycle report returned to the scheduler.
package pipeline
