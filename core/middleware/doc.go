// Package middleware groups the Fiber middleware mounted in front of the API.
//
// The rayid subpackage tags each request with an id, taken from the
// X-Ray-ID header when present. The auth subpackage checks the API key and
// leaves the health and metrics endpoints open.
package middleware
