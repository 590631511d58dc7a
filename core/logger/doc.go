// Package logger builds the zap logger shared by the service and the CLI.
//
// The debug level selects zap's development preset; every other level uses
// the production preset. Format chooses json or console encoding.
//
// Request handlers attach the request's ray_id with WithRayID so a detection
// can be followed from the HTTP log line through the reconciliation result:
//
//	l := logger.WithRayID(log, c)
//	l.Warn("Detection rejected", zap.Error(err))
package logger
