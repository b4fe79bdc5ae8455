package series

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"airmon/internal/gios"
)

var (
	// ErrNoData means a query was made for a sensor with no stored series.
	ErrNoData = errors.New("series: no data for sensor")

	// ErrSuperseded means a fetch completed after the store was reset or
	// wholesale-replaced and its result was discarded.
	ErrSuperseded = errors.New("series: fetch superseded")

	errClosed = errors.New("series: store closed")
)

// Sample is one timestamped reading. Value is nil when the provider
// reported no measurement for that hour.
type Sample struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// Series is the ordered sample sequence for one sensor, newest first:
// index 0 is the most recent reading.
type Series []Sample

// Fetcher retrieves the reading series for a sensor.
type Fetcher interface {
	SensorData(ctx context.Context, sensorID int) (gios.SensorData, error)
}

// Store maps sensor IDs to their fetched series. Every mutation is applied
// by a single owner goroutine consuming an update queue, so concurrent fetch
// completions never interleave mid-write; readers take consistent snapshots
// under a read lock. An epoch counter invalidates fetches still in flight
// when the store is reset or wholesale-replaced.
type Store struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu     sync.RWMutex
	series map[int]Series
	epoch  uint64

	updates chan func()
	changes chan struct{}
	quit    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func NewStore(fetcher Fetcher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		fetcher: fetcher,
		logger:  logger,
		series:  make(map[int]Series),
		updates: make(chan func(), 16),
		changes: make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Store) run() {
	defer s.wg.Done()
	for {
		select {
		case apply := <-s.updates:
			apply()
		case <-s.quit:
			return
		}
	}
}

// Close stops the owner goroutine. Mutations after Close are dropped.
func (s *Store) Close() {
	s.once.Do(func() { close(s.quit) })
	s.wg.Wait()
}

func (s *Store) post(apply func()) error {
	select {
	case s.updates <- apply:
		return nil
	case <-s.quit:
		return errClosed
	}
}

// notify signals a store change. The channel is buffered with capacity one,
// so rapid successive mutations coalesce into a single pending notification.
func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Changes delivers one signal per batch of store mutations.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

// Fetch requests the series for sensorID from the provider. The returned
// channel yields exactly one value: nil on success, ErrSuperseded when the
// result arrived for an outdated epoch, or the fetch error. On success the
// entry is replaced; on failure any existing entry for sensorID is removed.
func (s *Store) Fetch(ctx context.Context, sensorID int) <-chan error {
	result := make(chan error, 1)

	s.mu.RLock()
	epoch := s.epoch
	s.mu.RUnlock()

	go func() {
		data, err := s.fetcher.SensorData(ctx, sensorID)

		postErr := s.post(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			if s.epoch != epoch {
				s.logger.Debug("discarding superseded fetch", "sensor_id", sensorID)
				result <- ErrSuperseded
				return
			}

			if err != nil {
				// Failure is destructive for this one key: no stale entry
				// may survive a failed refresh.
				delete(s.series, sensorID)
				s.notify()
				result <- fmt.Errorf("fetch sensor %d: %w", sensorID, err)
				return
			}

			fetched := make(Series, 0, len(data.Values))
			for _, v := range data.Values {
				fetched = append(fetched, Sample{Date: v.Date, Value: v.Value})
			}
			s.series[sensorID] = fetched
			s.notify()
			result <- nil
		})
		if postErr != nil {
			result <- postErr
		}
	}()

	return result
}

// Remove deletes the entry for sensorID if present; removing an absent ID
// is a no-op. It returns once the removal has been applied.
func (s *Store) Remove(sensorID int) {
	done := make(chan struct{})
	err := s.post(func() {
		defer close(done)
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, ok := s.series[sensorID]; !ok {
			return
		}
		delete(s.series, sensorID)
		s.notify()
	})
	if err != nil {
		return
	}
	<-done
}

// ReplaceAll swaps the entire store content, used when loading an archived
// snapshot. In-flight fetches started before the call are invalidated.
func (s *Store) ReplaceAll(all map[int]Series) {
	done := make(chan struct{})
	err := s.post(func() {
		defer close(done)
		s.mu.Lock()
		defer s.mu.Unlock()

		s.epoch++
		s.series = make(map[int]Series, len(all))
		for id, sr := range all {
			cp := make(Series, len(sr))
			copy(cp, sr)
			s.series[id] = cp
		}
		s.notify()
	})
	if err != nil {
		return
	}
	<-done
}

// Reset clears all entries, invalidating in-flight fetches. Called when the
// selected station changes.
func (s *Store) Reset() {
	s.ReplaceAll(nil)
}

// Get returns a copy of the series for sensorID.
func (s *Store) Get(sensorID int) (Series, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sr, ok := s.series[sensorID]
	if !ok {
		return nil, false
	}
	cp := make(Series, len(sr))
	copy(cp, sr)
	return cp, true
}

// Snapshot returns a copy of the whole store.
func (s *Store) Snapshot() map[int]Series {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int]Series, len(s.series))
	for id, sr := range s.series {
		cp := make(Series, len(sr))
		copy(cp, sr)
		out[id] = cp
	}
	return out
}

// Len reports how many sensors currently have a stored series.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series)
}
