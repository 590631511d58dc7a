// Package tracking defines the domain of the asset tracker: rooms, items,
// detection events, movement records and the contracts the reconciliation
// core consumes.
//
// # Data Model
//
//   - Item: a tracked asset with a unique RFID tag and a current location.
//   - DetectionEvent: an ephemeral observation of a tag by a reader in a room.
//   - MovementRecord: an immutable, append-only ledger entry for a committed move.
//   - Room membership: the derived set of item ids present in each room.
//
// # Contracts
//
// Store is the persistence boundary. Every primitive is individually atomic;
// a Store that also implements Transactor can group the four commit effects
// (location, ledger, remove-old, add-new) into one unit. Without it the
// reconcile package applies compensation and on-access membership repair.
//
// Outcomes of reconciliation are Result values. Expected domain outcomes
// (UnknownTag, NoOp, Conflict) are never errors; infrastructure failures are
// reported with the wrapped cause in Result.Err.
package tracking
