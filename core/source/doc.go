// Package source provides detection event sources for the dispatcher.
//
//   - File replays a recorded detection log (JSON lines or "tag,room" lines).
//   - Simulator emits random detections for a fixed set of tags.
//   - Bus streams detections published on the in-process event bus, which is
//     how reader HTTP endpoints feed the dispatcher.
package source
