package reconcile

import (
	"context"
	"errors"
	"fmt"

	"asset-tracker/core/tracking"

	"go.uber.org/zap"
)

// Engine turns detection events into committed movements or documented
// no-ops. It is the only writer of item locations, the ledger and room
// membership.
//
// Engine is safe for concurrent use, but two events for the same tag must not
// be reconciled at the same time; the dispatch package guarantees that.
type Engine struct {
	store     tracking.Store
	directory Directory
	ledger    ledgerWriter
	members   membershipIndex
	logger    *zap.Logger
	opts      Options
}

// NewEngine creates an engine over store.
func NewEngine(store tracking.Store, logger *zap.Logger, opts Options) *Engine {
	opts = opts.withDefaults()
	dir := opts.Directory
	if dir == nil {
		dir = NewStoreDirectory(store, opts.StoreTimeout)
	}
	return &Engine{
		store:     store,
		directory: dir,
		members:   membershipIndex{logger: logger},
		logger:    logger,
		opts:      opts,
	}
}

// Reconcile resolves the event's tag, compares the item's location with the
// detected room and, when they differ, commits the movement with a bounded
// compare-and-commit loop. It always returns exactly one Result.
func (e *Engine) Reconcile(ctx context.Context, ev tracking.DetectionEvent) tracking.Result {
	res := tracking.Result{Tag: ev.Tag, ReaderID: ev.ReaderID}
	l := e.logger.With(
		zap.String("tag", ev.Tag),
		zap.String("room", string(ev.Room)),
		zap.String("reader_id", ev.ReaderID),
	)

	if err := e.opts.Rooms.Validate(ev.Room); err != nil {
		res.Outcome = tracking.OutcomeRejected
		res.Err = err
		l.Warn("Detection in unknown room, ignoring")
		return res
	}

	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		res.Attempts = attempt

		snap, err := e.directory.Lookup(ctx, ev.Tag)
		if errors.Is(err, tracking.ErrItemNotFound) {
			res.Outcome = tracking.OutcomeUnknownTag
			l.Info("Unknown tag detected, ignoring")
			return res
		}
		if err != nil {
			res.Outcome = tracking.OutcomeDirectoryUnavailable
			res.Err = err
			if errors.Is(err, tracking.ErrDuplicateTag) {
				l.Error("Tag directory integrity error", zap.Error(err))
			} else {
				l.Error("Item directory unavailable", zap.Error(err))
			}
			return res
		}
		res.ItemID = snap.ID
		res.ItemName = snap.Name
		l = l.With(zap.String("item_id", snap.ID))

		e.repairOnAccess(ctx, snap.ID, l)

		if snap.Location == ev.Room {
			res.Outcome = tracking.OutcomeNoOp
			res.Room = snap.Location
			l.Debug("Item already in detected room")
			return res
		}

		id, err := e.commit(ctx, snap, ev)
		switch {
		case err == nil:
			res.Outcome = tracking.OutcomeMoved
			res.From, res.To, res.RecordID = snap.Location, ev.Room, id
			l.Info("Movement recorded",
				zap.String("from", string(snap.Location)),
				zap.String("to", string(ev.Room)),
				zap.Uint64("record_id", uint64(id)),
			)
			return res

		case errors.Is(err, tracking.ErrPreconditionFailed):
			l.Debug("Location changed since lookup, re-evaluating",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue

		case errors.Is(err, tracking.ErrPartialCommit) && id != 0:
			// Location and ledger are authoritative; membership is re-derived
			// on the next access to this item.
			res.Outcome = tracking.OutcomeMoved
			res.From, res.To, res.RecordID = snap.Location, ev.Room, id
			res.Err = err
			l.Warn("Movement recorded with partial membership update",
				zap.String("from", string(snap.Location)),
				zap.String("to", string(ev.Room)),
				zap.Error(err),
			)
			return res

		default:
			res.Outcome = tracking.OutcomeStoreUnavailable
			res.Err = err
			l.Error("Failed to commit movement", zap.Error(err))
			return res
		}
	}

	res.Outcome = tracking.OutcomeConflict
	res.Err = fmt.Errorf("%w: tag %s gave up after %d attempts", tracking.ErrConcurrentUpdate, ev.Tag, e.opts.MaxAttempts)
	l.Warn("Concurrent update conflict, dropping event", zap.Int("attempts", e.opts.MaxAttempts))
	return res
}

// commitContext detaches from the caller's cancellation so an in-flight
// commit always finishes, bounded by the store timeout.
func (e *Engine) commitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), e.opts.StoreTimeout)
}

// repairOnAccess re-derives the item's membership from its location.
// Failures are logged; they never block reconciliation.
func (e *Engine) repairOnAccess(ctx context.Context, itemID string, l *zap.Logger) {
	ctx, cancel := e.commitContext(ctx)
	defer cancel()

	var err error
	if tx, ok := e.store.(tracking.Transactor); ok {
		err = tx.WithinTx(ctx, func(st tracking.Store) error {
			_, err := e.members.repair(ctx, st, itemID)
			return err
		})
	} else {
		_, err = e.members.repair(ctx, e.store, itemID)
	}
	if err != nil {
		l.Warn("Membership repair failed", zap.Error(err))
	}
}

func (e *Engine) commit(ctx context.Context, snap tracking.ItemSnapshot, ev tracking.DetectionEvent) (tracking.RecordID, error) {
	ctx, cancel := e.commitContext(ctx)
	defer cancel()

	rec := tracking.MovementRecord{
		ItemID:       snap.ID,
		ItemName:     snap.Name,
		Tag:          snap.Tag,
		FromLocation: snap.Location,
		ToLocation:   ev.Room,
		Timestamp:    e.opts.Clock(),
		ReaderID:     ev.ReaderID,
		DetectedAt:   ev.Timestamp,
	}

	if tx, ok := e.store.(tracking.Transactor); ok {
		var id tracking.RecordID
		err := tx.WithinTx(ctx, func(st tracking.Store) error {
			if err := st.CompareAndSetLocation(ctx, rec.ItemID, rec.FromLocation, rec.ToLocation, rec.Timestamp); err != nil {
				return err
			}
			var err error
			if id, err = e.ledger.append(ctx, st, rec); err != nil {
				return err
			}
			return e.members.move(ctx, st, rec.ItemID, rec.FromLocation, rec.ToLocation)
		})
		if err != nil {
			return 0, err
		}
		return id, nil
	}

	return e.commitSequential(ctx, rec)
}

// commitSequential applies the four effects one by one on a store without
// transactions. The location compare-and-set is the linearization point; a
// failed ledger append is compensated by moving the item back, and a failed
// membership update is left for on-access repair.
func (e *Engine) commitSequential(ctx context.Context, rec tracking.MovementRecord) (tracking.RecordID, error) {
	if err := e.store.CompareAndSetLocation(ctx, rec.ItemID, rec.FromLocation, rec.ToLocation, rec.Timestamp); err != nil {
		return 0, err
	}

	id, err := e.ledger.append(ctx, e.store, rec)
	if err != nil {
		if rerr := e.store.CompareAndSetLocation(ctx, rec.ItemID, rec.ToLocation, rec.FromLocation, rec.Timestamp); rerr != nil {
			return 0, fmt.Errorf("%w: item %s moved to %q without ledger record: %w (revert failed: %v)",
				tracking.ErrPartialCommit, rec.ItemID, rec.ToLocation, err, rerr)
		}
		return 0, err
	}

	if err := e.members.move(ctx, e.store, rec.ItemID, rec.FromLocation, rec.ToLocation); err != nil {
		return id, fmt.Errorf("%w: %w", tracking.ErrPartialCommit, err)
	}
	return id, nil
}
