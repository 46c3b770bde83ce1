// Package state holds the storefront snapshot shared between the background
// refresher and the UI.
//
// The refresher (and local catalog edits) write through Update and the
// Set* methods; the UI reads Snapshot on every tick. Each write swaps whole
// slices and bumps Version, so a reader never sees a half-applied refresh.
// Snapshot returns deep copies of the slices.
//
// A failed refresh keeps the previous data and increments
// ConsecutiveFailures; two in a row mark the snapshot offline.
//
// The zero Store is ready to use.
package state
