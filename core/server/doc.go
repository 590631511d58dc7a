// Package server holds the HTTP listener settings: port, API key and request
// body limit. The start command reads them when building the Fiber app.
package server
