package tf

import (
	"fmt"
	"time"
)

// MaxGraphDepth bounds upward traversal so a cycle introduced by a
// misbehaving publisher produces a LookupError instead of looping forever.
// Typical trees are under 20 deep; 1000 gives enormous headroom without
// risking unbounded work on the query path.
const MaxGraphDepth = 1000

// step is one hop of a one-sided walk toward the root: the sample read
// from ChildID's cache, the classification the cache assigned it, and the
// id of the frame the sample belongs to (needed to detect the lowest
// common ancestor when popping the shared suffix of two walks).
type step struct {
	Sample
	Mode      Mode
	ChildID   FrameID
	Tolerance time.Duration // ChildID's cache's own extrapolation tolerance
}

// walkToRoot repeatedly samples f's cache at t, following parent links,
// until a frame has no cache (a pure root, or NoParent itself) or the
// current cache has no data for t. It returns the hops taken and the
// frame the walk stopped at.
func (b *BufferCore) walkToRoot(f FrameID, t time.Time) ([]step, FrameID, error) {
	var steps []step
	hops := 0
	for {
		cache := b.registry.cacheFor(f)
		if cache == nil {
			// f has never been set as a child frame (it is only ever
			// referenced as somebody's parent): the walk stops here.
			return steps, f, nil
		}
		sample, mode, ok := cache.Get(t)
		if !ok {
			return steps, f, nil
		}
		steps = append(steps, step{Sample: sample, Mode: mode, ChildID: f, Tolerance: cache.MaxExtrapolation()})
		f = sample.ParentID
		if f == NoParent {
			return steps, f, nil
		}
		hops++
		if hops > MaxGraphDepth {
			return nil, 0, &LookupError{Msg: "The tf tree is invalid because it contains a loop.\n" + b.AllFramesAsString()}
		}
	}
}

// chains holds the result of a two-sided walk: the path from target toward
// the root and the path from source toward the root, with their shared
// suffix already popped.
type chains struct {
	forward []step // target -> ... -> LCA (exclusive)
	inverse []step // source -> ... -> LCA (exclusive)
}

// lookupLists walks both target and source toward the root at time t,
// validates that the walks actually meet, and pops the shared suffix up
// to (and including) the lowest common ancestor.
func (b *BufferCore) lookupLists(targetID, sourceID FrameID, t time.Time, targetName, sourceName string) (chains, error) {
	if targetID == sourceID {
		return chains{}, nil
	}

	inverse, lastInverse, err := b.walkToRoot(sourceID, t)
	if err != nil {
		return chains{}, err
	}
	forward, lastForward, err := b.walkToRoot(targetID, t)
	if err != nil {
		return chains{}, err
	}

	connectivityErr := &ConnectivityError{Msg: fmt.Sprintf(
		"Could not find a connection between '%s' and '%s' because they are not part of the same tree. Tf has two or more unconnected trees.",
		targetName, sourceName)}

	switch {
	case len(inverse) == 0 && len(forward) == 0:
		return chains{}, connectivityErr
	case len(inverse) == 0:
		if lastForward != sourceID {
			return chains{}, connectivityErr
		}
		return chains{forward: forward, inverse: inverse}, nil
	case len(forward) == 0:
		if lastInverse != targetID {
			return chains{}, connectivityErr
		}
		return chains{forward: forward, inverse: inverse}, nil
	}

	if lastForward != lastInverse {
		return chains{}, connectivityErr
	}

	if inverse[len(inverse)-1].ParentID == NoParent || forward[len(forward)-1].ParentID == NoParent {
		return chains{}, connectivityErr
	}

	for len(inverse) > 0 && len(forward) > 0 && inverse[len(inverse)-1].ChildID == forward[len(forward)-1].ChildID {
		inverse = inverse[:len(inverse)-1]
		forward = forward[:len(forward)-1]
	}

	return chains{forward: forward, inverse: inverse}, nil
}

// checkExtrapolation validates every step against its recorded mode and its
// own cache's extrapolation tolerance, which may carry a per-frame
// override applied through BufferCore.ConfigureFrame.
func checkExtrapolation(steps []step, t time.Time) error {
	for _, s := range steps {
		switch s.Mode {
		case ModeOneValue:
			if absDuration(t.Sub(s.Time)) > s.Tolerance {
				return &ExtrapolationError{Msg: fmt.Sprintf(
					"you requested a transform at time %v, but the buffer only contains a single transform at time %v",
					t, s.Time)}
			}
		case ModeExtrapolateBack:
			if s.Time.Sub(t) > s.Tolerance {
				return &ExtrapolationError{Msg: fmt.Sprintf(
					"extrapolating into the past: requested time %v is before the oldest cached sample at %v", t, s.Time)}
			}
		case ModeExtrapolateForward:
			if t.Sub(s.Time) > s.Tolerance {
				return &ExtrapolationError{Msg: fmt.Sprintf(
					"extrapolating into the future: requested time %v is after the newest cached sample at %v", t, s.Time)}
			}
		}
	}
	return nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// compose accumulates the inverse chain into T(LCA<-source), the forward
// chain into T(LCA<-target), and returns
// T(target<-source) = T(LCA<-target)^-1 . T(LCA<-source).
func compose(c chains) Transform {
	srcToLCA := Identity()
	for _, s := range c.inverse {
		srcToLCA = Compose(s.Transform, srcToLCA)
	}
	tgtToLCA := Identity()
	for _, s := range c.forward {
		tgtToLCA = Compose(s.Transform, tgtToLCA)
	}
	return Compose(tgtToLCA.Inverse(), srcToLCA)
}
