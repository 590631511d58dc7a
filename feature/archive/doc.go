// Package archive exports the movement ledger and room inventories to object
// storage.
//
// Ledger exports are JSON Lines, one movement record per line in ledger
// order, written to ledger/movements-<unix ms>.jsonl. Inventory snapshots
// are single JSON documents under inventory/. When a retention count is
// configured, older ledger exports are removed after each export.
//
// # HTTP Endpoints
//
//   - POST /archive/ledger : Export the ledger.
//   - POST /archive/inventory : Export an inventory snapshot.
//   - GET /archive : List exports.
//   - GET /archive/objects/* : Download an export.
package archive
