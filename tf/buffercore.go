package tf

import (
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/tfgraph/internal/timeutil"
)

// Stamped pairs a resolved Transform with the query that produced it, for
// callers that want the frame names and timestamp alongside the result.
type Stamped struct {
	Transform Transform
	Stamp     time.Time
	Target    string
	Source    string
}

// BufferCore is a time-varying transform graph: a Registry of named
// frames, each holding a TimeCache of parent-link samples, queried by
// walking two frames toward their lowest common ancestor and composing
// the chain.
type BufferCore struct {
	registry         *Registry
	cacheTime        time.Duration
	maxExtrapolation time.Duration
	logf             func(format string, args ...any)
	clock            timeutil.Clock
}

// DefaultCacheTime is how much history a frame's TimeCache retains when no
// override is configured: ten seconds.
const DefaultCacheTime = 10 * time.Second

// New returns an empty BufferCore. cacheTime bounds how much history each
// frame's TimeCache retains; maxExtrapolation bounds how far a lookup may
// reach past the edge of a frame's retained history. A zero cacheTime
// defaults to DefaultCacheTime.
func New(cacheTime, maxExtrapolation time.Duration) *BufferCore {
	if cacheTime <= 0 {
		cacheTime = DefaultCacheTime
	}
	return &BufferCore{
		registry:         NewRegistry(),
		cacheTime:        cacheTime,
		maxExtrapolation: maxExtrapolation,
		logf:             func(string, ...any) {},
		clock:            timeutil.RealClock{},
	}
}

// SetLogger installs a sink for warnings SetTransform emits on rejected
// input (empty frame ids, self-parenting, NaN, old data). The default is
// silent.
func (b *BufferCore) SetLogger(logf func(format string, args ...any)) {
	if logf != nil {
		b.logf = logf
	}
}

// SetClock replaces the time source Stats uses for "now" when computing
// FrameStats.Age (SetTransform/LookupTransform take their timestamps as
// arguments and are unaffected, and GetLatestCommonTime on the same frame
// returns the unset time rather than "now"). Tests use this to pin
// staleness calculations to a fixed instant; production code leaves the
// default RealClock in place.
func (b *BufferCore) SetClock(clock timeutil.Clock) {
	if clock != nil {
		b.clock = clock
	}
}

// ConfigureFrame pre-registers frame with its own retention window and
// extrapolation tolerance, overriding the graph-wide defaults passed to
// New. If SetTransform has already created the frame's cache, its tuning
// is updated in place; otherwise the override is applied the moment the
// cache is created. internal/config's per-frame overrides are applied
// through this method during startup, before any ingest source begins
// publishing.
func (b *BufferCore) ConfigureFrame(frame string, cacheTime, maxExtrapolation time.Duration) {
	id := b.registry.LookupOrInsert(frame, func() *TimeCache {
		return NewTimeCache(cacheTime, maxExtrapolation)
	})
	if cache := b.registry.cacheFor(id); cache != nil {
		cache.SetTuning(cacheTime, maxExtrapolation)
		return
	}
	// frame was already registered as a parent only, so it has no cache
	// yet: create it now with the override.
	b.registry.mu.Lock()
	if b.registry.caches[id] == nil {
		b.registry.caches[id] = NewTimeCache(cacheTime, maxExtrapolation)
	}
	b.registry.mu.Unlock()
}

// Clear empties every frame's sample history while preserving all
// name<->id bindings, matching BufferCore::clear.
func (b *BufferCore) Clear() {
	b.registry.clearCaches()
}

// SetTransform inserts one parent-link sample, registering childFrame and
// parentFrame if either is new. It returns false, and logs instead of
// returning an error, for each input-validation failure: empty frame
// names, a frame naming itself as its own parent, a non-finite transform,
// or a sample rejected by the cache as too old.
func (b *BufferCore) SetTransform(childFrame, parentFrame string, t time.Time, tr Transform, authority string) bool {
	if childFrame == "" {
		b.logf("TF_NO_CHILD_FRAME_ID: ignoring transform with empty child frame id (parent=%q) from authority %q",
			parentFrame, authority)
		return false
	}
	if parentFrame == "" {
		b.logf("TF_NO_FRAME_ID: ignoring transform with empty parent frame id (child=%q) from authority %q",
			childFrame, authority)
		return false
	}
	if childFrame == "/" || parentFrame == "/" {
		b.logf("ignoring transform with frame id \"/\" from authority %q, see tf/#402", authority)
		return false
	}
	if childFrame == parentFrame {
		b.logf("TF_SELF_TRANSFORM: ignoring transform from authority %q with frame id %q and parent frame id %q, because they are the same",
			authority, childFrame, parentFrame)
		return false
	}
	if !tr.IsFinite() {
		b.logf("TF_NAN_INPUT: ignoring transform from authority %q from frame %q to frame %q because a NaN or Inf value was found",
			authority, parentFrame, childFrame)
		return false
	}

	parentID := b.registry.LookupOrInsert(parentFrame, func() *TimeCache { return nil })
	childID := b.registry.LookupOrInsert(childFrame, func() *TimeCache {
		return NewTimeCache(b.cacheTime, b.maxExtrapolation)
	})

	cache := b.registry.cacheFor(childID)
	if cache == nil {
		// childFrame already existed and was previously only ever seen as a
		// parent, so LookupOrInsert's newCache callback never ran for it.
		cache = NewTimeCache(b.cacheTime, b.maxExtrapolation)
		b.registry.mu.Lock()
		b.registry.caches[childID] = cache
		b.registry.mu.Unlock()
	}

	if !cache.Insert(Sample{Time: t, Transform: tr, ParentID: parentID}) {
		b.logf("TF_OLD_DATA: ignoring data from authority %q published to frame %q because it is more than the cache time %v in the past",
			authority, childFrame, b.cacheTime)
		return false
	}
	b.registry.setAuthority(childID, authority)
	return true
}

// LookupTransform returns the transform that carries a point expressed in
// source into target's frame, at time t. A zero t means "latest common
// time" for both frames.
func (b *BufferCore) LookupTransform(target, source string, t time.Time) (Stamped, error) {
	if target == source {
		return Stamped{Transform: Identity(), Stamp: t, Target: target, Source: source}, nil
	}

	targetID, err := b.registry.Lookup(target)
	if err != nil {
		return Stamped{}, err
	}
	sourceID, err := b.registry.Lookup(source)
	if err != nil {
		return Stamped{}, err
	}

	wantLatest := t.IsZero()
	if wantLatest {
		t, err = b.GetLatestCommonTime(target, source)
		if err != nil {
			return Stamped{}, err
		}
	}

	c, err := b.lookupLists(targetID, sourceID, t, target, source)
	if err != nil {
		return Stamped{}, err
	}

	if err := checkExtrapolation(c.forward, t); err != nil {
		return Stamped{}, extrapolationOrConnectivity(err, wantLatest, target, source)
	}
	if err := checkExtrapolation(c.inverse, t); err != nil {
		return Stamped{}, extrapolationOrConnectivity(err, wantLatest, target, source)
	}

	return Stamped{Transform: compose(c), Stamp: t, Target: target, Source: source}, nil
}

// extrapolationOrConnectivity passes an extrapolation failure through
// unchanged for an explicitly-timed query, but reclassifies it as a
// ConnectivityError for a "latest" query: the two frames individually have
// data, but resolving a single instant that satisfies every hop in the
// walk failed, which the unset-time sentinel treats as "no common time"
// rather than "bad timestamp".
func extrapolationOrConnectivity(err error, wantLatest bool, target, source string) error {
	if !wantLatest {
		return err
	}
	return &ConnectivityError{Msg: fmt.Sprintf(
		"could not find a common time between '%s' and '%s': %v", target, source, err)}
}

// LookupTransformFixed returns the transform from source (as it was at
// sourceTime) to target (as it will be at targetTime), bridged through a
// fixed frame whose own pose may itself vary with time. It is equivalent
// to two ordinary LookupTransform calls composed through fixed.
func (b *BufferCore) LookupTransformFixed(target string, targetTime time.Time, source string, sourceTime time.Time, fixed string) (Stamped, error) {
	sourceToFixed, err := b.LookupTransform(fixed, source, sourceTime)
	if err != nil {
		return Stamped{}, err
	}
	fixedToTarget, err := b.LookupTransform(target, fixed, targetTime)
	if err != nil {
		return Stamped{}, err
	}
	return Stamped{
		Transform: Compose(fixedToTarget.Transform, sourceToFixed.Transform),
		Stamp:     targetTime,
		Target:    target,
		Source:    source,
	}, nil
}

// CanTransform reports whether LookupTransform(target, source, t) would
// succeed, and if not, the error string it would have returned.
func (b *BufferCore) CanTransform(target, source string, t time.Time) (bool, string) {
	_, err := b.LookupTransform(target, source, t)
	if err != nil {
		return false, err.Error()
	}
	return true, ""
}

// GetLatestCommonTime returns the newest time at which both frames have
// samples on a connecting path. It walks both frames to their lowest
// common ancestor, taking each frame's newest sample, and returns the
// minimum sample time across every hop of both walks, or the zero (unset)
// Time with no error when the two names resolve to the same frame.
func (b *BufferCore) GetLatestCommonTime(target, source string) (time.Time, error) {
	targetID, err := b.registry.Lookup(target)
	if err != nil {
		return time.Time{}, err
	}
	sourceID, err := b.registry.Lookup(source)
	if err != nil {
		return time.Time{}, err
	}
	if targetID == sourceID {
		return time.Time{}, nil
	}

	c, err := b.lookupLists(targetID, sourceID, time.Time{}, target, source)
	if err != nil {
		return time.Time{}, err
	}

	latest := time.Time{}
	consider := func(steps []step) {
		for _, s := range steps {
			if latest.IsZero() || s.Time.Before(latest) {
				latest = s.Time
			}
		}
	}
	consider(c.forward)
	consider(c.inverse)
	return latest, nil
}

// AllFramesAsString renders every registered frame and its parent as one
// line each. Frames with no recorded parent (only ever seen as a parent
// themselves, never as a child) are omitted.
func (b *BufferCore) AllFramesAsString() string {
	b.registry.mu.RLock()
	names := append([]string(nil), b.registry.idToName...)
	caches := append([]*TimeCache(nil), b.registry.caches...)
	b.registry.mu.RUnlock()

	var sb strings.Builder
	for id := 1; id < len(names); id++ {
		cache := caches[id]
		if cache == nil {
			continue
		}
		newest := cache.NewestTime()
		if newest.IsZero() {
			continue
		}
		sample, _, ok := cache.Get(time.Time{})
		if !ok {
			continue
		}
		parentName := "unknown"
		if int(sample.ParentID) < len(names) {
			parentName = names[sample.ParentID]
		}
		fmt.Fprintf(&sb, "Frame %s exists with parent %s.\n", names[id], parentName)
	}
	return sb.String()
}

// FrameStats is one frame's cache depth and staleness, for diagnostics.
type FrameStats struct {
	Name       string
	ParentName string
	Samples    int
	Age        time.Duration // clock.Since(newest sample); zero if the cache is empty
}

// Stats returns FrameStats for every registered frame that has ever been
// set as a child (frames only ever referenced as a parent are omitted, as
// in AllFramesAsString).
func (b *BufferCore) Stats() []FrameStats {
	b.registry.mu.RLock()
	names := append([]string(nil), b.registry.idToName...)
	caches := append([]*TimeCache(nil), b.registry.caches...)
	b.registry.mu.RUnlock()

	var stats []FrameStats
	for id := 1; id < len(names); id++ {
		cache := caches[id]
		if cache == nil {
			continue
		}
		newest := cache.NewestTime()
		if newest.IsZero() {
			continue
		}
		sample, _, ok := cache.Get(time.Time{})
		if !ok {
			continue
		}
		parentName := "unknown"
		if int(sample.ParentID) < len(names) {
			parentName = names[sample.ParentID]
		}
		stats = append(stats, FrameStats{
			Name:       names[id],
			ParentName: parentName,
			Samples:    cache.Len(),
			Age:        b.clock.Since(newest),
		})
	}
	return stats
}
