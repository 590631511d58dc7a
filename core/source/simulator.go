package source

import (
	"context"
	"math/rand/v2"
	"time"

	"asset-tracker/core/tracking"
)

// Simulator emits random detections: a random tag seen in a random room every
// Interval. A tag is re-detected in its previous room with probability
// StayRatio, which exercises the no-op path.
type Simulator struct {
	Tags      []string
	Rooms     []tracking.RoomID
	Interval  time.Duration
	StayRatio float64
	// Count stops the simulator after that many events; zero runs until
	// cancelled.
	Count int
	// Seed makes runs reproducible when non-zero.
	Seed uint64
	Now  func() time.Time
}

// Name implements dispatch.Source.
func (s *Simulator) Name() string {
	return "simulator"
}

// Stream implements dispatch.Source.
func (s *Simulator) Stream(ctx context.Context, emit func(tracking.DetectionEvent)) error {
	if len(s.Tags) == 0 || len(s.Rooms) == 0 {
		return nil
	}
	seed := s.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1))
	now := s.Now
	if now == nil {
		now = time.Now
	}

	var ticker *time.Ticker
	if s.Interval > 0 {
		ticker = time.NewTicker(s.Interval)
		defer ticker.Stop()
	}

	last := make(map[string]tracking.RoomID, len(s.Tags))
	for n := 0; s.Count == 0 || n < s.Count; n++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		tag := s.Tags[rng.IntN(len(s.Tags))]
		room, seen := last[tag]
		if !seen || rng.Float64() >= s.StayRatio {
			room = s.Rooms[rng.IntN(len(s.Rooms))]
		}
		last[tag] = room

		emit(tracking.DetectionEvent{
			Tag:       tag,
			Room:      room,
			Timestamp: now().UnixMilli(),
			ReaderID:  "sim-" + string(room),
		})
	}
	return nil
}
