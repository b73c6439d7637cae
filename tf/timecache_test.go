package tf

import (
	"testing"
	"time"
)

func sampleAt(sec int, x float64, parent FrameID) Sample {
	return Sample{
		Time:      time.Unix(int64(sec), 0),
		Transform: Transform{Translation: Identity().Translation, Rotation: Identity().Rotation},
		ParentID:  parent,
	}.withX(x)
}

// withX is a tiny test helper to vary the translation so interpolation is
// visible without hand-building a Transform literal at every call site.
func (s Sample) withX(x float64) Sample {
	s.Transform.Translation.X = x
	return s
}

func TestTimeCacheEmptyGet(t *testing.T) {
	c := NewTimeCache(time.Minute, 0)
	_, mode, ok := c.Get(time.Unix(1, 0))
	if ok || mode != ModeEmpty {
		t.Fatalf("Get on empty cache = (%v, %v), want (_, EMPTY, false)", mode, ok)
	}
}

func TestTimeCacheOneValue(t *testing.T) {
	c := NewTimeCache(time.Minute, 0)
	s := sampleAt(10, 1, 1)
	c.Insert(s)

	got, mode, ok := c.Get(time.Unix(50, 0))
	if !ok || mode != ModeOneValue || got.Transform.Translation.X != 1 {
		t.Fatalf("Get = (%+v, %v, %v), want ONE_VALUE sample", got, mode, ok)
	}
}

func TestTimeCacheInterpolation(t *testing.T) {
	c := NewTimeCache(time.Minute, 0)
	c.Insert(sampleAt(0, 0, 1))
	c.Insert(sampleAt(10, 10, 1))

	got, mode, ok := c.Get(time.Unix(5, 0))
	if !ok || mode != ModeInterpolated {
		t.Fatalf("Get = (_, %v, %v), want INTERPOLATED", mode, ok)
	}
	if got.Transform.Translation.X != 5 {
		t.Fatalf("interpolated X = %v, want 5", got.Transform.Translation.X)
	}
}

func TestTimeCacheInterpolationBrokenOnParentMismatch(t *testing.T) {
	c := NewTimeCache(time.Minute, 0)
	c.Insert(sampleAt(0, 0, 1))
	c.Insert(sampleAt(10, 10, 2))

	_, mode, ok := c.Get(time.Unix(5, 0))
	if ok || mode != ModeInterpolated {
		t.Fatalf("Get across a parent change = (_, %v, %v), want (_, INTERPOLATED, false)", mode, ok)
	}
}

func TestTimeCacheExtrapolation(t *testing.T) {
	c := NewTimeCache(time.Minute, 0)
	c.Insert(sampleAt(0, 0, 1))
	c.Insert(sampleAt(10, 10, 1))

	if _, mode, ok := c.Get(time.Unix(-5, 0)); !ok || mode != ModeExtrapolateBack {
		t.Fatalf("Get before oldest = (_, %v, %v), want EXTRAPOLATE_BACK", mode, ok)
	}
	if _, mode, ok := c.Get(time.Unix(20, 0)); !ok || mode != ModeExtrapolateForward {
		t.Fatalf("Get after newest = (_, %v, %v), want EXTRAPOLATE_FORWARD", mode, ok)
	}
}

func TestTimeCacheExactOverwrite(t *testing.T) {
	c := NewTimeCache(time.Minute, 0)
	c.Insert(sampleAt(0, 1, 1))
	c.Insert(sampleAt(0, 2, 1))

	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (exact-time insert should overwrite)", c.Len())
	}
	got, mode, _ := c.Get(time.Unix(0, 0))
	if mode != ModeExact || got.Transform.Translation.X != 2 {
		t.Fatalf("Get after overwrite = %+v, want X=2", got)
	}
}

func TestTimeCacheRejectsOldData(t *testing.T) {
	c := NewTimeCache(5*time.Second, 0)
	c.Insert(sampleAt(100, 0, 1))

	if ok := c.Insert(sampleAt(90, 0, 1)); ok {
		t.Fatal("Insert of data older than cacheTime before newest should be rejected")
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d after rejected insert, want 1", c.Len())
	}
}

func TestTimeCacheEvictsOldSamples(t *testing.T) {
	c := NewTimeCache(5*time.Second, 0)
	c.Insert(sampleAt(0, 0, 1))
	c.Insert(sampleAt(3, 0, 1))
	c.Insert(sampleAt(10, 0, 1)) // now 0 and 3 are both older than 10-5=5

	if c.Len() != 1 {
		t.Fatalf("Len() = %d after eviction, want 1", c.Len())
	}
}

func TestTimeCacheZeroTimeIsLatest(t *testing.T) {
	c := NewTimeCache(time.Minute, 0)
	c.Insert(sampleAt(0, 1, 1))
	c.Insert(sampleAt(10, 2, 1))

	got, mode, ok := c.Get(time.Time{})
	if !ok || mode != ModeExact || got.Transform.Translation.X != 2 {
		t.Fatalf("Get(zero) = %+v, %v, %v, want newest sample tagged EXACT", got, mode, ok)
	}
}
