// Package loader registers the HTTP features of the tracker.
//
// A Feature reports whether its dependencies are configured (IsEnabled) and
// mounts its routes in Load. The Manager skips disabled features, so the
// archive routes only exist when object storage is enabled.
package loader
