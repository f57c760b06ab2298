package history

import (
	"iter"
	"log/slog"
	"sort"
)

// TimeHistory is a history of values indexed by a unique float64 timestamp, kept sorted by time. It is used
// to keep per-tick snapshots and inputs so they can be looked up again when the simulation is rewound. A
// TimeHistory is not safe for concurrent use.
type TimeHistory[T any] struct {
	times  []float64
	values []T

	// maxAge is the maximum age, in seconds, an entry may have relative to the reference time before it is
	// evicted. Zero disables eviction.
	maxAge float64
	// reference returns the current time used for eviction. If nil, the newest key is used.
	reference func() float64

	log *slog.Logger
}

// Option configures a TimeHistory.
type Option func(*options)

type options struct {
	reference func() float64
	log       *slog.Logger
}

// WithReferenceClock sets the function returning the current time that retention is evaluated against.
func WithReferenceClock(now func() float64) Option {
	return func(o *options) {
		o.reference = now
	}
}

// WithLogger sets the logger duplicate insertions are reported to.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// New creates a TimeHistory that evicts entries older than maxAgeSeconds. A maxAgeSeconds of zero keeps
// every entry until it is removed explicitly.
func New[T any](maxAgeSeconds float64, opts ...Option) *TimeHistory[T] {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &TimeHistory[T]{
		maxAge:    maxAgeSeconds,
		reference: o.reference,
		log:       o.log,
	}
}

// Add inserts value at time. If an entry already exists at time, the existing entry is kept and returned and a
// warning is logged.
func (h *TimeHistory[T]) Add(time float64, value T) T {
	index, found := h.search(time)
	if found {
		h.log.Warn("duplicate time history entry ignored", "time", time)
		return h.values[index]
	}

	h.times = append(h.times, 0)
	h.values = append(h.values, value)
	copy(h.times[index+1:], h.times[index:])
	copy(h.values[index+1:], h.values[index:])
	h.times[index] = time
	h.values[index] = value

	h.evict()
	return value
}

// Set stores value at time, replacing any entry that was there.
func (h *TimeHistory[T]) Set(time float64, value T) T {
	h.Remove(time)
	return h.Add(time, value)
}

// Overwrite replaces the value at time if an entry exists there. Nothing is inserted otherwise.
func (h *TimeHistory[T]) Overwrite(time float64, value T) {
	if index, found := h.search(time); found {
		h.values[index] = value
	}
}

// Get returns the value of the newest entry at or before time. Times before the oldest entry return the oldest
// value, and an empty history returns the zero value of T.
func (h *TimeHistory[T]) Get(time float64) T {
	var zero T
	if len(h.times) == 0 {
		return zero
	}

	// The index of the first entry strictly after time.
	index := sort.Search(len(h.times), func(i int) bool {
		return h.times[i] > time
	})
	if index == 0 {
		return h.values[0]
	}
	return h.values[index-1]
}

// Has returns true if an entry exists at exactly time.
func (h *TimeHistory[T]) Has(time float64) bool {
	_, found := h.search(time)
	return found
}

// GetExact returns the value at exactly time, or the zero value of T if there is none.
func (h *TimeHistory[T]) GetExact(time float64) T {
	var zero T
	if index, found := h.search(time); found {
		return h.values[index]
	}
	return zero
}

// GetAround returns the values of the entries bracketing time. If time matches an entry exactly, before and
// after are both that entry. False is returned if there are less than two entries, or if time falls outside
// of the range of the history.
func (h *TimeHistory[T]) GetAround(time float64) (before, after T, ok bool) {
	lower, upper, ok := h.around(time)
	if !ok {
		return before, after, false
	}
	return h.values[lower], h.values[upper], true
}

// GetAroundTimes returns the keys of the entries bracketing time, following the same rules as GetAround.
func (h *TimeHistory[T]) GetAroundTimes(time float64) (before, after float64, ok bool) {
	lower, upper, ok := h.around(time)
	if !ok {
		return 0, 0, false
	}
	return h.times[lower], h.times[upper], true
}

func (h *TimeHistory[T]) around(time float64) (lower, upper int, ok bool) {
	if len(h.times) < 2 || time < h.times[0] {
		return 0, 0, false
	}
	index, found := h.search(time)
	if found {
		return index, index, true
	}
	if index == len(h.times) {
		return 0, 0, false
	}
	return index - 1, index, true
}

// GetAllAfter returns the values of every entry with a key strictly greater than time, oldest first.
func (h *TimeHistory[T]) GetAllAfter(time float64) []T {
	index := sort.Search(len(h.times), func(i int) bool {
		return h.times[i] > time
	})
	if index == len(h.times) {
		return []T{}
	}

	values := make([]T, len(h.values)-index)
	copy(values, h.values[index:])
	return values
}

// RemoveAt removes the entry at the index passed, where zero is the oldest entry.
func (h *TimeHistory[T]) RemoveAt(index int) {
	if index < 0 || index >= len(h.times) {
		return
	}
	h.times = append(h.times[:index], h.times[index+1:]...)

	var zero T
	copy(h.values[index:], h.values[index+1:])
	h.values[len(h.values)-1] = zero
	h.values = h.values[:len(h.values)-1]
}

// Remove removes the entry at exactly time, returning true if one existed.
func (h *TimeHistory[T]) Remove(time float64) bool {
	index, found := h.search(time)
	if found {
		h.RemoveAt(index)
	}
	return found
}

// Clear removes every entry from the history.
func (h *TimeHistory[T]) Clear() {
	h.times = h.times[:0]
	clear(h.values)
	h.values = h.values[:0]
}

// ClearAllBefore removes every entry with a key strictly less than time. An entry at exactly time is kept.
func (h *TimeHistory[T]) ClearAllBefore(time float64) {
	index := sort.SearchFloat64s(h.times, time)
	h.dropOldest(index)
}

// Len returns the amount of entries in the history.
func (h *TimeHistory[T]) Len() int {
	return len(h.times)
}

// Oldest returns the oldest entry of the history.
func (h *TimeHistory[T]) Oldest() (time float64, value T, ok bool) {
	if len(h.times) == 0 {
		return 0, value, false
	}
	return h.times[0], h.values[0], true
}

// Newest returns the newest entry of the history.
func (h *TimeHistory[T]) Newest() (time float64, value T, ok bool) {
	if len(h.times) == 0 {
		return 0, value, false
	}
	last := len(h.times) - 1
	return h.times[last], h.values[last], true
}

// All iterates over every entry of the history, oldest first.
func (h *TimeHistory[T]) All() iter.Seq2[float64, T] {
	return func(yield func(float64, T) bool) {
		for i := range h.times {
			if !yield(h.times[i], h.values[i]) {
				return
			}
		}
	}
}

// search returns the index of time in the history and whether it exists. If it does not exist, the index is
// where it would be inserted.
func (h *TimeHistory[T]) search(time float64) (int, bool) {
	index := sort.SearchFloat64s(h.times, time)
	return index, index < len(h.times) && h.times[index] == time
}

// evict drops the oldest entries while they are older than the maximum age relative to the reference time.
func (h *TimeHistory[T]) evict() {
	if h.maxAge <= 0 || len(h.times) == 0 {
		return
	}

	now := h.times[len(h.times)-1]
	if h.reference != nil {
		now = h.reference()
	}

	count := 0
	for count < len(h.times) && now-h.times[count] > h.maxAge {
		count++
	}
	h.dropOldest(count)
}

func (h *TimeHistory[T]) dropOldest(count int) {
	if count <= 0 {
		return
	}
	remaining := len(h.times) - count
	copy(h.times, h.times[count:])
	h.times = h.times[:remaining]

	copy(h.values, h.values[count:])
	clear(h.values[remaining:])
	h.values = h.values[:remaining]
}
