package tracking

import "errors"

var (
	// ErrItemNotFound is returned when no item claims a tag or id.
	ErrItemNotFound = errors.New("item not found")
	// ErrDuplicateTag is a directory integrity error: more than one item
	// claims the same tag.
	ErrDuplicateTag = errors.New("tag claimed by more than one item")
	// ErrPreconditionFailed is returned by a compare-and-set whose expected
	// location no longer matches.
	ErrPreconditionFailed = errors.New("location precondition failed")
	// ErrDirectoryUnavailable wraps failures of tag resolution.
	ErrDirectoryUnavailable = errors.New("item directory unavailable")
	// ErrStoreUnavailable wraps failures of the persistence store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConcurrentUpdate is reported when the commit retry budget is spent.
	ErrConcurrentUpdate = errors.New("concurrent update conflict")
	// ErrPartialCommit marks a commit where some effects were applied and
	// others were not.
	ErrPartialCommit = errors.New("partial commit")
	// ErrUnknownRoom is returned for a room that is not registered.
	ErrUnknownRoom = errors.New("unknown room")
	// ErrInvalidEvent is returned for detection events that fail validation.
	ErrInvalidEvent = errors.New("invalid detection event")
	// ErrDispatcherClosed is returned once shutdown has been signaled.
	ErrDispatcherClosed = errors.New("dispatcher closed")
	// ErrItemExists is returned when provisioning an item whose id or tag is
	// already registered.
	ErrItemExists = errors.New("item already exists")
)
