// Package integrity provides consistency checks over the tracking data and
// the infrastructure around it.
//
// # Checks Provided
//
//   - Membership: every item is listed in exactly its current room (supports ?fix=true and ?dry_run=true).
//   - Ledger: each item's movements form an unbroken chain ending at its current location.
//   - Schema: the connected database has every table and column the SQL store uses.
//   - Structure: the archive bucket holds the ledger and inventory folders (supports ?fix=true).
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/membership
//   - GET /integrity/ledger
//   - GET /integrity/schema
//   - GET /integrity/structure
//
// Schema and structure report "skipped" when the service runs without a
// database or without storage.
package integrity
