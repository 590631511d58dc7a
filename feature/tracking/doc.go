// Package tracking exposes detection intake, item provisioning, room
// inventories and the movement ledger over HTTP.
//
// # Routes
//
//   - POST /detections: reconcile one detection and return its result.
//   - POST /readers/:reader/detections: queue a detection on the event bus.
//   - GET /items, GET /items/:tag, POST /items: the item directory.
//   - GET /rooms, GET /rooms/:room/items: room membership.
//   - GET /movements: the movement ledger, newest first.
//
// Detections answer 200 for every domain outcome (moved, noop, unknown_tag,
// conflict) and 503 when the directory or store could not be reached, so
// callers can tell "nothing changed" from "nothing could be checked".
package tracking
