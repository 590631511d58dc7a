package events

// Config holds configuration for the in-process event bus.
type Config struct {
	// DetectionsTopic carries raw detection events from HTTP readers.
	DetectionsTopic string `mapstructure:"detections_topic" default:"detections"`
	// ResultsTopic carries reconciliation results.
	ResultsTopic string `mapstructure:"results_topic" default:"results"`
	// Buffer is the per-subscriber output channel buffer.
	Buffer int64 `mapstructure:"buffer" default:"256"`
}
