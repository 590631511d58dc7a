package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"asset-tracker/core/tracking"
	"asset-tracker/core/validation"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultReconnectDelay is the pause before a failed source is restarted.
const DefaultReconnectDelay = time.Second

// Reconciler turns one event into one result.
type Reconciler interface {
	Reconcile(ctx context.Context, ev tracking.DetectionEvent) tracking.Result
}

// Observer receives dispatcher lifecycle signals. metrics.Metrics implements it.
type Observer interface {
	Accepted()
	Done(d time.Duration)
	Rejected(reason string)
	Reconnected(source string)
}

// Options configures a Dispatcher.
type Options struct {
	// Rooms is the set of valid rooms. Nil uses tracking.DefaultRooms.
	Rooms *tracking.Rooms
	// ReconnectDelay is the pause before restarting a failed source.
	ReconnectDelay time.Duration
	// Sinks receive every result.
	Sinks []Sink
	// Observer is optional.
	Observer Observer
}

type job struct {
	ctx      context.Context
	ev       tracking.DetectionEvent
	accepted time.Time
	reply    chan reply // nil for fire-and-forget events
}

type reply struct {
	res tracking.Result
	err error
}

func (j *job) finish(res tracking.Result, err error) {
	if j.reply != nil {
		j.reply <- reply{res: res, err: err}
	}
}

type lane struct {
	queue []*job
}

// Dispatcher routes events to a Reconciler with per-tag serialization.
type Dispatcher struct {
	engine Reconciler
	rooms  *tracking.Rooms
	sink   Sink
	obs    Observer
	logger *zap.Logger
	delay  time.Duration

	mu      sync.Mutex
	lanes   map[string]*lane
	closed  bool
	pending sync.WaitGroup

	stop      chan struct{}
	abort     chan struct{}
	abortOnce sync.Once
}

// New creates a dispatcher in front of engine.
func New(engine Reconciler, logger *zap.Logger, opts Options) *Dispatcher {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Rooms == nil {
		opts.Rooms = tracking.DefaultRooms()
	}
	return &Dispatcher{
		engine: engine,
		rooms:  opts.Rooms,
		sink:   MultiSink(opts.Sinks),
		obs:    opts.Observer,
		logger: logger,
		delay:  opts.ReconnectDelay,
		lanes:  make(map[string]*lane),
		stop:   make(chan struct{}),
		abort:  make(chan struct{}),
	}
}

// Validate normalizes ev and checks it against the struct rules and the room
// set. Failures wrap tracking.ErrInvalidEvent.
func (d *Dispatcher) Validate(ev *tracking.DetectionEvent) error {
	ev.Tag = strings.TrimSpace(ev.Tag)
	ev.ReaderID = strings.TrimSpace(ev.ReaderID)
	ev.Room = tracking.RoomID(strings.TrimSpace(string(ev.Room)))

	if err := validation.Validate(ev); err != nil {
		return fmt.Errorf("%w: %s", tracking.ErrInvalidEvent, validation.Summary(err))
	}
	if err := d.rooms.Validate(ev.Room); err != nil {
		return fmt.Errorf("%w: %w", tracking.ErrInvalidEvent, err)
	}
	return nil
}

// Submit reconciles ev and waits for its result. It returns an error wrapping
// tracking.ErrInvalidEvent for rejected events, tracking.ErrDispatcherClosed
// after shutdown, or ctx's error if ctx ends before the event is processed.
func (d *Dispatcher) Submit(ctx context.Context, ev tracking.DetectionEvent) (tracking.Result, error) {
	if err := d.Validate(&ev); err != nil {
		d.rejected("invalid")
		return tracking.Result{}, err
	}

	j := &job{ctx: ctx, ev: ev, accepted: time.Now(), reply: make(chan reply, 1)}
	if err := d.enqueue(j); err != nil {
		d.rejected("closed")
		return tracking.Result{}, err
	}

	select {
	case r := <-j.reply:
		return r.res, r.err
	case <-ctx.Done():
		return tracking.Result{}, ctx.Err()
	}
}

// Dispatch accepts ev for asynchronous reconciliation. The result is only
// delivered to the sinks.
func (d *Dispatcher) Dispatch(ctx context.Context, ev tracking.DetectionEvent) error {
	if err := d.Validate(&ev); err != nil {
		d.rejected("invalid")
		return err
	}
	j := &job{ctx: context.WithoutCancel(ctx), ev: ev, accepted: time.Now()}
	if err := d.enqueue(j); err != nil {
		d.rejected("closed")
		return err
	}
	return nil
}

func (d *Dispatcher) enqueue(j *job) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return tracking.ErrDispatcherClosed
	}
	d.pending.Add(1)
	if d.obs != nil {
		d.obs.Accepted()
	}

	tag := j.ev.Tag
	if l, ok := d.lanes[tag]; ok {
		l.queue = append(l.queue, j)
		d.mu.Unlock()
		return nil
	}
	l := &lane{}
	d.lanes[tag] = l
	d.mu.Unlock()

	go d.drain(tag, l, j)
	return nil
}

// drain processes j and then everything queued behind it on the same lane.
func (d *Dispatcher) drain(tag string, l *lane, j *job) {
	for {
		d.process(j)

		d.mu.Lock()
		if len(l.queue) == 0 {
			delete(d.lanes, tag)
			d.mu.Unlock()
			return
		}
		j = l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		d.mu.Unlock()
	}
}

func (d *Dispatcher) process(j *job) {
	defer d.pending.Done()
	if d.obs != nil {
		defer func() { d.obs.Done(time.Since(j.accepted)) }()
	}

	select {
	case <-d.abort:
		d.logger.Warn("Dropping queued event at shutdown",
			zap.String("tag", j.ev.Tag),
			zap.String("room", string(j.ev.Room)),
		)
		j.finish(tracking.Result{}, tracking.ErrDispatcherClosed)
		return
	default:
	}
	if err := j.ctx.Err(); err != nil {
		j.finish(tracking.Result{}, err)
		return
	}

	res := d.engine.Reconcile(j.ctx, j.ev)
	d.sink.Notify(context.WithoutCancel(j.ctx), res)
	j.finish(res, nil)
}

func (d *Dispatcher) rejected(reason string) {
	if d.obs != nil {
		d.obs.Rejected(reason)
	}
}

// Run streams events from every source until ctx is done or Shutdown is
// called. A source returning an error is restarted after the reconnect
// delay unless the error wraps ErrSourceExhausted; a source returning nil
// is finished. Run returns once all sources
// have stopped.
func (d *Dispatcher) Run(ctx context.Context, sources ...Source) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-d.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error {
			d.runSource(gctx, src)
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) runSource(ctx context.Context, src Source) {
	l := d.logger.With(zap.String("source", src.Name()))
	emit := func(ev tracking.DetectionEvent) {
		if err := d.Dispatch(ctx, ev); err != nil {
			if errors.Is(err, tracking.ErrDispatcherClosed) {
				l.Debug("Dispatcher closed, dropping event", zap.String("tag", ev.Tag))
				return
			}
			l.Warn("Rejected detection event",
				zap.String("tag", ev.Tag),
				zap.String("room", string(ev.Room)),
				zap.Error(err),
			)
		}
	}

	for {
		l.Info("Source started")
		err := src.Stream(ctx, emit)
		if ctx.Err() != nil {
			l.Info("Source stopped")
			return
		}
		if err == nil {
			l.Info("Source finished")
			return
		}
		if errors.Is(err, ErrSourceExhausted) {
			l.Error("Source failed and cannot be resumed", zap.Error(err))
			return
		}

		l.Warn("Source failed, reconnecting",
			zap.Duration("delay", d.delay),
			zap.Error(err),
		)
		if d.obs != nil {
			d.obs.Reconnected(src.Name())
		}
		select {
		case <-ctx.Done():
			l.Info("Source stopped")
			return
		case <-time.After(d.delay):
		}
	}
}

// Shutdown stops accepting events, stops Run, and waits for accepted events
// to finish. When ctx expires first, queued events are dropped and Shutdown
// still waits for commits in progress before returning ctx's error.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.stop)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.abortOnce.Do(func() { close(d.abort) })
		<-done
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}

// Closed reports whether Shutdown has been called.
func (d *Dispatcher) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
