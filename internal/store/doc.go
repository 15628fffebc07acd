// Package store persists the commitments the scheduling engine plans around:
// recurring commitments with per-day completion marks, and time-bound
// objectives with a status lifecycle.
//
// It currently supports:
//   - "file": dependency-free backend (JSON snapshot + JSON Lines journal)
//   - "sqlite": SQLite database file (optional build tag)
//
// The engine never talks to this package directly; internal/app adapts a
// Store into the engine's Source and Recorder interfaces.
package store
