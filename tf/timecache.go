package tf

import (
	"sort"
	"sync"
	"time"
)

// Sample is a timestamped parent-link sample: it asserts that at Time, the
// pose of the owning child frame expressed in the frame ParentID is
// Transform.
type Sample struct {
	Time      time.Time
	Transform Transform
	ParentID  FrameID
}

// Mode classifies how a TimeCache answered a Get query.
type Mode int

const (
	ModeEmpty Mode = iota
	ModeOneValue
	ModeExact
	ModeInterpolated
	ModeExtrapolateBack
	ModeExtrapolateForward
)

func (m Mode) String() string {
	switch m {
	case ModeEmpty:
		return "EMPTY"
	case ModeOneValue:
		return "ONE_VALUE"
	case ModeExact:
		return "EXACT"
	case ModeInterpolated:
		return "INTERPOLATED"
	case ModeExtrapolateBack:
		return "EXTRAPOLATE_BACK"
	case ModeExtrapolateForward:
		return "EXTRAPOLATE_FORWARD"
	default:
		return "UNKNOWN"
	}
}

// TimeCache is a per-frame, time-ordered, bounded-history store of parent
// link samples. It is self-contained and safe for concurrent use: insert,
// get and clearList each take the cache's own mutex, which is always a
// leaf lock (the registry mutex is never held while this one is taken).
type TimeCache struct {
	mu               sync.Mutex
	samples          []Sample // kept sorted ascending by Time
	cacheTime        time.Duration
	maxExtrapolation time.Duration
}

// NewTimeCache returns an empty TimeCache with the given retention window
// and extrapolation tolerance. A zero maxExtrapolation forbids
// extrapolation entirely.
func NewTimeCache(cacheTime, maxExtrapolation time.Duration) *TimeCache {
	return &TimeCache{cacheTime: cacheTime, maxExtrapolation: maxExtrapolation}
}

// Insert adds s to the cache, preserving time order, and reports whether it
// was accepted. A sample strictly older than the current newest sample
// minus cacheTime is rejected as stale and leaves the cache unchanged. A
// sample whose timestamp exactly matches an existing one overwrites it in
// place.
func (c *TimeCache) Insert(s Sample) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.samples); n > 0 {
		newest := c.samples[n-1].Time
		if s.Time.Before(newest.Add(-c.cacheTime)) {
			return false
		}
	}

	idx := sort.Search(len(c.samples), func(i int) bool {
		return !c.samples[i].Time.Before(s.Time)
	})
	if idx < len(c.samples) && c.samples[idx].Time.Equal(s.Time) {
		c.samples[idx] = s
	} else {
		c.samples = append(c.samples, Sample{})
		copy(c.samples[idx+1:], c.samples[idx:])
		c.samples[idx] = s
	}

	c.evictLocked()
	return true
}

// evictLocked drops samples older than the current newest minus cacheTime.
// Callers must hold c.mu.
func (c *TimeCache) evictLocked() {
	if len(c.samples) == 0 {
		return
	}
	cutoff := c.samples[len(c.samples)-1].Time.Add(-c.cacheTime)
	i := 0
	for i < len(c.samples) && c.samples[i].Time.Before(cutoff) {
		i++
	}
	if i > 0 {
		c.samples = append(c.samples[:0], c.samples[i:]...)
	}
}

// SetTuning replaces the cache's retention window and extrapolation
// tolerance. internal/config uses this to apply a per-frame override on
// top of a cache that a concurrent SetTransform may have already created
// with the graph-wide default.
func (c *TimeCache) SetTuning(cacheTime, maxExtrapolation time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheTime = cacheTime
	c.maxExtrapolation = maxExtrapolation
}

// MaxExtrapolation reports the cache's configured extrapolation tolerance.
func (c *TimeCache) MaxExtrapolation() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxExtrapolation
}

// clearList empties the cache's sample list.
func (c *TimeCache) clearList() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = nil
}

// Get returns the effective sample for t along with its classification. ok
// is false only for ModeEmpty (no samples at all) or when an interpolated
// step would have to bridge two samples with different parent ids, in
// which case the caller treats the chain as broken at this step — a
// parent reassignment invalidates interpolation across the boundary.
//
// A zero t is the "latest" sentinel: it always returns the newest sample
// tagged ModeExact.
func (c *TimeCache) Get(t time.Time) (Sample, Mode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.samples)
	if n == 0 {
		return Sample{}, ModeEmpty, false
	}

	if t.IsZero() {
		return c.samples[n-1], ModeExact, true
	}

	if n == 1 {
		if c.samples[0].Time.Equal(t) {
			return c.samples[0], ModeExact, true
		}
		return c.samples[0], ModeOneValue, true
	}

	oldest, newest := c.samples[0], c.samples[n-1]
	if t.Before(oldest.Time) {
		return oldest, ModeExtrapolateBack, true
	}
	if t.After(newest.Time) {
		return newest, ModeExtrapolateForward, true
	}

	// t is within [oldest.Time, newest.Time]; find the bracketing pair.
	idx := sort.Search(n, func(i int) bool { return !c.samples[i].Time.Before(t) })
	if c.samples[idx].Time.Equal(t) {
		return c.samples[idx], ModeExact, true
	}

	s0, s1 := c.samples[idx-1], c.samples[idx]
	if s0.ParentID != s1.ParentID {
		return Sample{}, ModeInterpolated, false
	}

	frac := float64(t.Sub(s0.Time)) / float64(s1.Time.Sub(s0.Time))
	out := Sample{
		Time: t,
		Transform: Transform{
			Translation: Lerp(s0.Transform.Translation, s1.Transform.Translation, frac),
			Rotation:    Slerp(s0.Transform.Rotation, s1.Transform.Rotation, frac),
		},
		ParentID: s0.ParentID,
	}
	return out, ModeInterpolated, true
}

// Len reports the number of samples currently retained; used by
// diagnostics to chart cache depth over time.
func (c *TimeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

// NewestTime reports the timestamp of the newest retained sample, or the
// zero Time if the cache is empty.
func (c *TimeCache) NewestTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.samples) == 0 {
		return time.Time{}
	}
	return c.samples[len(c.samples)-1].Time
}
