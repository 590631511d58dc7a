// Package dispatch fans detection events from any number of sources into the
// reconciliation engine.
//
// # Per-tag lanes
//
// Every tag with pending work owns a lane: a FIFO queue drained by a single
// goroutine. Two events for the same tag are therefore never reconciled at
// the same time, and they are reconciled in the order they were accepted.
// Lanes for different tags run fully in parallel; the dispatcher mutex only
// guards queue bookkeeping, never reconciliation. A lane disappears once its
// queue is empty.
//
// # Entry points
//
//   - Submit reconciles one event and waits for its Result (HTTP API, replay).
//   - Run supervises Sources, restarting any that fail after ReconnectDelay.
//
// # Shutdown
//
// Shutdown stops accepting events and waits for accepted ones. If its context
// expires first, events still queued are abandoned while commits already in
// progress are allowed to finish.
package dispatch
