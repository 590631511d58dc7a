// Package database handles database connections and schema inspection.
//
// It wraps GORM to open MySQL (production) or sqlite (local runs, tests)
// connections from the application's configuration.
//
// # Connect
//
// Connect establishes the connection, applies pool settings and pings the
// server within the configured timeout. The returned *gorm.DB is owned by the
// caller and closed with Close at shutdown.
//
// # Schema Inspection
//
// GetTableColumns lists a table's columns. The integrity feature uses it to
// verify that the items, movements and room_members tables carry the columns
// the tracking store expects.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//	defer database.Close(db)
//
//	columns, err := database.GetTableColumns(db, "movements")
package database
