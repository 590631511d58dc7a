package tracking

// Outcome classifies what reconciling a detection event did.
type Outcome string

const (
	// OutcomeMoved means a movement was committed.
	OutcomeMoved Outcome = "moved"
	// OutcomeNoOp means the item was already in the detected room.
	OutcomeNoOp Outcome = "noop"
	// OutcomeUnknownTag means no item claims the tag.
	OutcomeUnknownTag Outcome = "unknown_tag"
	// OutcomeRejected means the event named a room that is not configured.
	OutcomeRejected Outcome = "rejected"
	// OutcomeConflict means the compare-and-commit retry budget ran out.
	OutcomeConflict Outcome = "conflict"
	// OutcomeDirectoryUnavailable means the tag could not be resolved.
	OutcomeDirectoryUnavailable Outcome = "directory_unavailable"
	// OutcomeStoreUnavailable means the commit could not be performed.
	OutcomeStoreUnavailable Outcome = "store_unavailable"
)

// Result is emitted once per reconciled event.
type Result struct {
	Outcome  Outcome `json:"outcome"`
	Tag      string  `json:"tag"`
	ItemID   string  `json:"item_id,omitempty"`
	ItemName string  `json:"item_name,omitempty"`
	From     RoomID  `json:"from,omitempty"`
	To       RoomID  `json:"to,omitempty"`
	// Room is the room the item was already in for a NoOp.
	Room     RoomID   `json:"room,omitempty"`
	RecordID RecordID `json:"record_id,omitempty"`
	ReaderID string   `json:"reader_id,omitempty"`
	// Attempts is the number of compare-and-commit attempts used.
	Attempts int `json:"attempts"`
	// Err carries the cause for infra outcomes and for a Moved result whose
	// membership update was only partially applied.
	Err error `json:"-"`
}

// Infra reports whether the result means the system could not check or
// commit, as opposed to a domain decision.
func (r Result) Infra() bool {
	return r.Outcome == OutcomeDirectoryUnavailable || r.Outcome == OutcomeStoreUnavailable
}

// Error returns the error message, if any, for JSON responses.
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
