// Package allocation assigns lanes to group reservations.
//
// A run processes a batch of reservations in slot order: reservations are
// grouped by identical start time, slots are handled chronologically, and
// inside a slot every reservation that continues a group's previous session
// is placed before any new reservation. Each reservation then goes through a
// fixed pipeline:
//
//  1. reject start times that are not on :00 or :30
//  2. reuse the group's previous lanes when continuity holds
//  3. otherwise take whole free facing pairs (never split)
//  4. fill the remainder with single free lanes in ascending order
//  5. book all lanes, or none when the requirement cannot be met
//
// The allocator is a single-pass greedy; it does not search for an assignment
// that minimises unmet demand. All state lives in one ConflictTracker and one
// ContinuityResolver per run, so a run is not safe for concurrent use.
//
// Diagnostics (invalid start times, invalid reservations, unmet demand) are
// emitted to an EventSink and never abort a run.
package allocation
