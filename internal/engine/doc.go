// Package engine packs a user's outstanding work into the free gaps of a
// single day.
//
// The pipeline is strictly top-down:
//   - FindSlots turns a working-hours window plus busy intervals into free slots
//   - a Source supplies outstanding recurring commitments and objectives
//   - Pack places items into slots, splitting oversized items when needed
//   - a CompletionRecorder writes the decision back to the underlying records
//
// The Planner composes these into the three public entry points
// (ScheduleToday, Preview, PlanItems). Nothing in this package persists
// state; persistence belongs to the Source/Recorder collaborators.
package engine
