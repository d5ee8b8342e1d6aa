// Package history persists climate entity state snapshots in SQLite.
//
// Every state change the bridge observes (from polling or after a
// command) is stored as a JSON snapshot with its source and timestamp.
// The API layer serves these snapshots back for the per-entity history
// endpoint, and old rows can be pruned on a retention schedule.
package history
