package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"asset-tracker/core/reconcile"
	"asset-tracker/core/store/memstore"
	"asset-tracker/core/tracking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	roomA tracking.RoomID = "Room A"
	roomB tracking.RoomID = "Room B"
)

// fakeEngine records calls and flags overlapping work on the same tag.
type fakeEngine struct {
	mu      sync.Mutex
	active  map[string]int
	overlap bool
	calls   []tracking.DetectionEvent
	delay   time.Duration
	gate    chan struct{} // when non-nil, every call waits for a token
	started chan string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{active: make(map[string]int)}
}

func (f *fakeEngine) Reconcile(_ context.Context, ev tracking.DetectionEvent) tracking.Result {
	f.mu.Lock()
	f.active[ev.Tag]++
	if f.active[ev.Tag] > 1 {
		f.overlap = true
	}
	f.calls = append(f.calls, ev)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- ev.Tag
	}
	if f.gate != nil {
		<-f.gate
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	f.active[ev.Tag]--
	f.mu.Unlock()
	return tracking.Result{Outcome: tracking.OutcomeNoOp, Tag: ev.Tag, Room: ev.Room, Attempts: 1}
}

func (f *fakeEngine) roomsFor(tag string) []tracking.RoomID {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tracking.RoomID
	for _, ev := range f.calls {
		if ev.Tag == tag {
			out = append(out, ev.Room)
		}
	}
	return out
}

// fakeObserver counts lifecycle signals.
type fakeObserver struct {
	accepted, done, rejected, reconnected atomic.Int64
}

func (o *fakeObserver) Accepted()          { o.accepted.Add(1) }
func (o *fakeObserver) Done(time.Duration) { o.done.Add(1) }
func (o *fakeObserver) Rejected(string)    { o.rejected.Add(1) }
func (o *fakeObserver) Reconnected(string) { o.reconnected.Add(1) }

// collectSink stores results.
type collectSink struct {
	mu      sync.Mutex
	results []tracking.Result
}

func (c *collectSink) Notify(_ context.Context, res tracking.Result) {
	c.mu.Lock()
	c.results = append(c.results, res)
	c.mu.Unlock()
}

func (c *collectSink) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

func shutdown(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))
}

func TestDispatcher_Validate(t *testing.T) {
	d := New(newFakeEngine(), zap.NewNop(), Options{})

	tests := []struct {
		name    string
		ev      tracking.DetectionEvent
		wantErr error
	}{
		{"Valid", tracking.DetectionEvent{Tag: "RFID001", Room: roomA}, nil},
		{"Trimmed", tracking.DetectionEvent{Tag: "  RFID001 ", Room: " Room B "}, nil},
		{"Missing tag", tracking.DetectionEvent{Tag: "  ", Room: roomA}, tracking.ErrInvalidEvent},
		{"Missing room", tracking.DetectionEvent{Tag: "RFID001"}, tracking.ErrInvalidEvent},
		{"Unknown room", tracking.DetectionEvent{Tag: "RFID001", Room: "Basement"}, tracking.ErrUnknownRoom},
		{"Negative timestamp", tracking.DetectionEvent{Tag: "RFID001", Room: roomA, Timestamp: -1}, tracking.ErrInvalidEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := tt.ev
			err := d.Validate(&ev)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				assert.Equal(t, "RFID001", ev.Tag)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, tracking.ErrInvalidEvent)
		})
	}
}

func TestDispatcher_Submit(t *testing.T) {
	obs := &fakeObserver{}
	sink := &collectSink{}
	d := New(newFakeEngine(), zap.NewNop(), Options{Observer: obs, Sinks: []Sink{sink}})

	res, err := d.Submit(context.Background(), tracking.DetectionEvent{Tag: "RFID001", Room: roomB})
	require.NoError(t, err)
	assert.Equal(t, tracking.OutcomeNoOp, res.Outcome)
	assert.Equal(t, roomB, res.Room)

	_, err = d.Submit(context.Background(), tracking.DetectionEvent{Tag: "RFID001", Room: "Roof"})
	assert.ErrorIs(t, err, tracking.ErrInvalidEvent)

	shutdown(t, d)
	assert.Equal(t, 1, sink.len())
	assert.Equal(t, int64(1), obs.accepted.Load())
	assert.Equal(t, int64(1), obs.done.Load())
	assert.Equal(t, int64(1), obs.rejected.Load())
}

func TestDispatcher_SerializesPerTag(t *testing.T) {
	eng := newFakeEngine()
	eng.delay = time.Millisecond
	d := New(eng, zap.NewNop(), Options{})

	var want []tracking.RoomID
	for i := 0; i < 20; i++ {
		room := roomA
		if i%2 == 1 {
			room = roomB
		}
		want = append(want, room)
		require.NoError(t, d.Dispatch(context.Background(), tracking.DetectionEvent{Tag: "T1", Room: room}))
	}

	// Concurrent producers on other tags do not disturb T1.
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_, err := d.Submit(context.Background(), tracking.DetectionEvent{Tag: fmt.Sprintf("T%d", i%3+2), Room: roomA})
				assert.NoError(t, err)
			}
		}(p)
	}
	wg.Wait()
	shutdown(t, d)

	assert.False(t, eng.overlap, "two events for one tag were reconciled concurrently")
	assert.Equal(t, want, eng.roomsFor("T1"))
	assert.Len(t, eng.calls, 60)
}

func TestDispatcher_ParallelAcrossTags(t *testing.T) {
	const n = 4
	eng := newFakeEngine()
	eng.gate = make(chan struct{})
	eng.started = make(chan string, n)
	d := New(eng, zap.NewNop(), Options{})

	for i := 0; i < n; i++ {
		require.NoError(t, d.Dispatch(context.Background(), tracking.DetectionEvent{Tag: fmt.Sprintf("T%d", i), Room: roomA}))
	}

	// All tags must be in flight at the same time.
	seen := make(map[string]bool)
	for len(seen) < n {
		select {
		case tag := <-eng.started:
			seen[tag] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d tags started concurrently", len(seen), n)
		}
	}
	close(eng.gate)
	shutdown(t, d)
}

func TestDispatcher_LanesAreReleased(t *testing.T) {
	d := New(newFakeEngine(), zap.NewNop(), Options{})
	for i := 0; i < 5; i++ {
		_, err := d.Submit(context.Background(), tracking.DetectionEvent{Tag: fmt.Sprintf("T%d", i), Room: roomA})
		require.NoError(t, err)
	}
	shutdown(t, d)

	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Empty(t, d.lanes)
}

func TestDispatcher_SubmitContextCancelled(t *testing.T) {
	eng := newFakeEngine()
	eng.gate = make(chan struct{})
	eng.started = make(chan string, 2)
	d := New(eng, zap.NewNop(), Options{})

	require.NoError(t, d.Dispatch(context.Background(), tracking.DetectionEvent{Tag: "T1", Room: roomA}))
	<-eng.started

	// Queued behind the blocked event; the caller gives up first.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Submit(ctx, tracking.DetectionEvent{Tag: "T1", Room: roomB})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(eng.gate)
	shutdown(t, d)
	assert.Equal(t, []tracking.RoomID{roomA}, eng.roomsFor("T1"))
}

func TestDispatcher_Shutdown(t *testing.T) {
	t.Run("waits for in-flight events", func(t *testing.T) {
		eng := newFakeEngine()
		eng.gate = make(chan struct{})
		eng.started = make(chan string, 1)
		sink := &collectSink{}
		d := New(eng, zap.NewNop(), Options{Sinks: []Sink{sink}})

		require.NoError(t, d.Dispatch(context.Background(), tracking.DetectionEvent{Tag: "T1", Room: roomA}))
		<-eng.started

		done := make(chan error, 1)
		go func() { done <- d.Shutdown(context.Background()) }()

		select {
		case <-done:
			t.Fatal("shutdown returned before the in-flight event finished")
		case <-time.After(50 * time.Millisecond):
		}

		_, err := d.Submit(context.Background(), tracking.DetectionEvent{Tag: "T2", Room: roomA})
		assert.ErrorIs(t, err, tracking.ErrDispatcherClosed)
		assert.ErrorIs(t, d.Dispatch(context.Background(), tracking.DetectionEvent{Tag: "T2", Room: roomA}), tracking.ErrDispatcherClosed)
		assert.True(t, d.Closed())

		close(eng.gate)
		require.NoError(t, <-done)
		assert.Equal(t, 1, sink.len())
	})

	t.Run("deadline drops queued events", func(t *testing.T) {
		eng := newFakeEngine()
		eng.gate = make(chan struct{})
		eng.started = make(chan string, 2)
		d := New(eng, zap.NewNop(), Options{})

		require.NoError(t, d.Dispatch(context.Background(), tracking.DetectionEvent{Tag: "T1", Room: roomA}))
		<-eng.started

		queued := make(chan error, 1)
		go func() {
			_, err := d.Submit(context.Background(), tracking.DetectionEvent{Tag: "T1", Room: roomB})
			queued <- err
		}()
		require.Eventually(t, func() bool {
			d.mu.Lock()
			defer d.mu.Unlock()
			return len(d.lanes["T1"].queue) == 1
		}, time.Second, time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		go func() {
			<-d.abort
			close(eng.gate)
		}()

		err := d.Shutdown(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.ErrorIs(t, <-queued, tracking.ErrDispatcherClosed)
		assert.Equal(t, []tracking.RoomID{roomA}, eng.roomsFor("T1"))
	})

	t.Run("is idempotent", func(t *testing.T) {
		d := New(newFakeEngine(), zap.NewNop(), Options{})
		shutdown(t, d)
		shutdown(t, d)
	})
}

func TestDispatcher_SameItemRaceKeepsInvariants(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	require.NoError(t, st.CreateItem(ctx, tracking.Item{ID: "item_1", Name: "Glass Box #1", Tag: "T1", CurrentLocation: roomA}))
	require.NoError(t, st.AddMember(ctx, roomA, "item_1"))

	eng := reconcile.NewEngine(st, zap.NewNop(), reconcile.Options{})
	d := New(eng, zap.NewNop(), Options{})

	const readers = 8
	const perReader = 25
	var moved atomic.Int64
	var wg sync.WaitGroup
	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for i := 0; i < perReader; i++ {
				room := roomA
				if (r+i)%2 == 0 {
					room = roomB
				}
				res, err := d.Submit(ctx, tracking.DetectionEvent{Tag: "T1", Room: room, ReaderID: fmt.Sprintf("reader-%d", r)})
				if !assert.NoError(t, err) {
					return
				}
				assert.Contains(t, []tracking.Outcome{tracking.OutcomeMoved, tracking.OutcomeNoOp}, res.Outcome)
				if res.Outcome == tracking.OutcomeMoved {
					moved.Add(1)
				}
			}
		}(r)
	}
	wg.Wait()
	shutdown(t, d)

	item, err := st.GetItem(ctx, "item_1")
	require.NoError(t, err)
	rooms, err := st.RoomsOf(ctx, "item_1")
	require.NoError(t, err)
	assert.Equal(t, []tracking.RoomID{item.CurrentLocation}, rooms)

	recs, err := st.ListMovements(ctx, tracking.MovementFilter{})
	require.NoError(t, err)
	assert.Len(t, recs, int(moved.Load()))
	prev := roomA
	for _, rec := range recs {
		assert.NotEqual(t, rec.FromLocation, rec.ToLocation)
		assert.Equal(t, prev, rec.FromLocation)
		prev = rec.ToLocation
	}
	assert.Equal(t, item.CurrentLocation, prev)
}

// sliceSource emits a fixed list of events, optionally failing first.
type sliceSource struct {
	name     string
	events   []tracking.DetectionEvent
	failures atomic.Int32
	calls    atomic.Int32
}

func (s *sliceSource) Name() string { return s.name }

func (s *sliceSource) Stream(ctx context.Context, emit func(tracking.DetectionEvent)) error {
	s.calls.Add(1)
	if s.failures.Load() > 0 {
		s.failures.Add(-1)
		return errors.New("reader disconnected")
	}
	for _, ev := range s.events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		emit(ev)
	}
	return nil
}

// exhaustedSource emits its events once and then fails permanently.
type exhaustedSource struct {
	events []tracking.DetectionEvent
	calls  atomic.Int32
}

func (s *exhaustedSource) Name() string { return "file:dock.log" }

func (s *exhaustedSource) Stream(_ context.Context, emit func(tracking.DetectionEvent)) error {
	s.calls.Add(1)
	for _, ev := range s.events {
		emit(ev)
	}
	return Permanent(errors.New("read failed"))
}

// blockingSource emits nothing until it is stopped.
type blockingSource struct{}

func (blockingSource) Name() string { return "blocking" }

func (blockingSource) Stream(ctx context.Context, _ func(tracking.DetectionEvent)) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDispatcher_Run(t *testing.T) {
	eng := newFakeEngine()
	obs := &fakeObserver{}
	sink := &collectSink{}
	d := New(eng, zap.NewNop(), Options{ReconnectDelay: time.Millisecond, Observer: obs, Sinks: []Sink{sink}})

	good := &sliceSource{name: "door-1", events: []tracking.DetectionEvent{
		{Tag: "T1", Room: roomA},
		{Tag: "T1", Room: roomB},
		{Tag: "", Room: roomB},
	}}
	flaky := &sliceSource{name: "door-2", events: []tracking.DetectionEvent{{Tag: "T2", Room: roomB}}}
	flaky.failures.Store(2)

	require.NoError(t, d.Run(context.Background(), good, flaky))
	shutdown(t, d)

	assert.Equal(t, int32(1), good.calls.Load())
	assert.Equal(t, int32(3), flaky.calls.Load())
	assert.Equal(t, int64(2), obs.reconnected.Load())
	assert.Equal(t, int64(1), obs.rejected.Load())
	assert.Equal(t, 3, sink.len())
	assert.Equal(t, []tracking.RoomID{roomA, roomB}, eng.roomsFor("T1"))
}

func TestDispatcher_RunStopsOnShutdown(t *testing.T) {
	d := New(newFakeEngine(), zap.NewNop(), Options{})

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), blockingSource{}) }()

	shutdown(t, d)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

func TestDispatcher_RunStopsOnContext(t *testing.T) {
	d := New(newFakeEngine(), zap.NewNop(), Options{ReconnectDelay: time.Hour})
	failing := &sliceSource{name: "down"}
	failing.failures.Store(1000)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, d.Run(ctx, failing))
	assert.Equal(t, int32(1), failing.calls.Load())
	shutdown(t, d)
}

func TestDispatcher_RunDoesNotRestartExhaustedSource(t *testing.T) {
	eng := newFakeEngine()
	obs := &fakeObserver{}
	d := New(eng, zap.NewNop(), Options{ReconnectDelay: time.Millisecond, Observer: obs})

	src := &exhaustedSource{events: []tracking.DetectionEvent{
		{Tag: "T1", Room: roomB},
		{Tag: "T1", Room: roomA},
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Run(ctx, src))
	require.NoError(t, ctx.Err())
	shutdown(t, d)

	assert.Equal(t, int32(1), src.calls.Load())
	assert.Zero(t, obs.reconnected.Load())
	assert.Equal(t, []tracking.RoomID{roomB, roomA}, eng.roomsFor("T1"))
}

func TestPermanent(t *testing.T) {
	assert.NoError(t, Permanent(nil))

	cause := errors.New("token too long")
	err := Permanent(cause)
	assert.ErrorIs(t, err, ErrSourceExhausted)
	assert.ErrorIs(t, err, cause)
}
