// Package config provides configuration management for the asset tracker.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file. Defaults come from `default` struct tags.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key)
//   - Database: MySQL or SQLite connection details
//   - Storage: S3/MinIO credentials and the ledger archive bucket
//   - Log: Logging level and format
//   - Tracking: rooms, store timeout, commit attempts, reconnect and shutdown timing
//   - Bus: event bus topics and buffering
//
// Environment keys are the upper-cased section and key joined by an
// underscore, e.g. TRACKING_ROOMS or DATABASE_DRIVER.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rooms, _ := cfg.Rooms()
//	fmt.Println(rooms.List())
package config
