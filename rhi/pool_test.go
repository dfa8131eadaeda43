package rhi

import "testing"

// TestGenerationalReuse is scenario S1: create 3 buffers, destroy the
// middle one, create a 4th; the 4th reuses the freed slot with a
// bumped generation, and the destroyed handle no longer resolves.
func TestGenerationalReuse(t *testing.T) {
	pool := NewResourcePool[string](KindBuffer)

	a := pool.Insert("A")
	b := pool.Insert("B")
	c := pool.Insert("C")

	want := []Handle{
		{Kind: KindBuffer, Index: 0, Generation: 1},
		{Kind: KindBuffer, Index: 1, Generation: 1},
		{Kind: KindBuffer, Index: 2, Generation: 1},
	}
	for i, h := range []Handle{a, b, c} {
		if h != want[i] {
			t.Fatalf("handle %d = %+v, want %+v", i, h, want[i])
		}
	}

	if !pool.Remove(b) {
		t.Fatal("Remove(b) = false, want true")
	}

	d := pool.Insert("D")
	wantD := Handle{Kind: KindBuffer, Index: 1, Generation: 2}
	if d != wantD {
		t.Fatalf("d = %+v, want %+v", d, wantD)
	}

	if _, ok := pool.Get(b); ok {
		t.Error("Get(b) succeeded after destroy, want not-found")
	}
	if v, ok := pool.Get(d); !ok || v != "D" {
		t.Errorf("Get(d) = %q, %v, want \"D\", true", v, ok)
	}
	if v, ok := pool.Get(a); !ok || v != "A" {
		t.Errorf("Get(a) = %q, %v, want \"A\", true", v, ok)
	}
	if v, ok := pool.Get(c); !ok || v != "C" {
		t.Errorf("Get(c) = %q, %v, want \"C\", true", v, ok)
	}
}

// TestHandleRoundTrip covers invariant 1: create/destroy returns the
// pool to its initial occupancy and repeated cycles on a reused slot
// strictly increase the generation.
func TestHandleRoundTrip(t *testing.T) {
	pool := NewResourcePool[int](KindImage)

	if pool.Len() != 0 {
		t.Fatalf("initial Len() = %d, want 0", pool.Len())
	}

	var lastGen uint32
	for i := 0; i < 5; i++ {
		h := pool.Insert(i)
		if h.Generation <= lastGen {
			t.Fatalf("cycle %d: generation %d did not strictly increase from %d", i, h.Generation, lastGen)
		}
		lastGen = h.Generation

		if pool.Len() != 1 {
			t.Fatalf("cycle %d: Len() = %d, want 1", i, pool.Len())
		}
		if !pool.Remove(h) {
			t.Fatalf("cycle %d: Remove failed", i)
		}
		if pool.Len() != 0 {
			t.Fatalf("cycle %d: Len() after remove = %d, want 0", i, pool.Len())
		}
	}
}

// TestStaleHandleSafety covers invariant 2: a lookup by a destroyed
// handle never spuriously hits a slot later reused for something else.
func TestStaleHandleSafety(t *testing.T) {
	pool := NewResourcePool[string](KindBuffer)

	h1 := pool.Insert("first")
	pool.Remove(h1)
	h2 := pool.Insert("second")

	if h1.Index != h2.Index {
		t.Fatalf("expected slot reuse, h1.Index=%d h2.Index=%d", h1.Index, h2.Index)
	}
	if h1.Generation == h2.Generation {
		t.Fatalf("expected distinct generations, both were %d", h1.Generation)
	}
	if _, ok := pool.Get(h1); ok {
		t.Error("Get(h1) succeeded against a reused slot, want not-found")
	}
	if v, ok := pool.Get(h2); !ok || v != "second" {
		t.Errorf("Get(h2) = %q, %v, want \"second\", true", v, ok)
	}
}

// TestFreeListLIFO covers invariant 3: the most recently destroyed
// slot is the next one reused.
func TestFreeListLIFO(t *testing.T) {
	pool := NewResourcePool[int](KindBuffer)

	a := pool.Insert(1)
	b := pool.Insert(2)
	c := pool.Insert(3)

	pool.Remove(a)
	pool.Remove(b)
	pool.Remove(c)

	// LIFO: c's slot (most recently freed) should be reused first.
	d := pool.Insert(4)
	if d.Index != c.Index {
		t.Fatalf("first reuse took slot %d, want c's slot %d (LIFO)", d.Index, c.Index)
	}
	e := pool.Insert(5)
	if e.Index != b.Index {
		t.Fatalf("second reuse took slot %d, want b's slot %d (LIFO)", e.Index, b.Index)
	}
	f := pool.Insert(6)
	if f.Index != a.Index {
		t.Fatalf("third reuse took slot %d, want a's slot %d (LIFO)", f.Index, a.Index)
	}
}

// TestGrowStep verifies the pool grows in fixed steps of 64 once the
// free list is exhausted.
func TestGrowStep(t *testing.T) {
	pool := NewResourcePool[int](KindBuffer)
	for i := 0; i < growStep; i++ {
		pool.Insert(i)
	}
	if pool.Len() != growStep {
		t.Fatalf("Len() = %d, want %d", pool.Len(), growStep)
	}
	// The next insert must grow the pool rather than fail.
	h := pool.Insert(growStep)
	if int(h.Index) != growStep {
		t.Fatalf("growth insert got index %d, want %d", h.Index, growStep)
	}
}

func TestRemoveUnknownHandleFails(t *testing.T) {
	pool := NewResourcePool[int](KindBuffer)
	if pool.Remove(Handle{Kind: KindBuffer, Index: 0, Generation: 1}) {
		t.Error("Remove on empty pool succeeded, want false")
	}
}

// TestGenerationSaturationRetiresSlot covers the saturation clause of
// invariant 1: once a slot's generation reaches its maximum value,
// removal retires it instead of returning it to the free list.
func TestGenerationSaturationRetiresSlot(t *testing.T) {
	pool := NewResourcePool[int](KindBuffer)
	h := pool.Insert(42)
	pool.slots[h.Index].generation = ^uint32(0)
	h.Generation = ^uint32(0)

	if !pool.Remove(h) {
		t.Fatal("Remove at saturation = false, want true")
	}
	if len(pool.free) != 0 {
		t.Fatalf("slot was returned to the free list at saturation, free=%v", pool.free)
	}

	next := pool.Insert(43)
	if next.Index == h.Index {
		t.Error("a saturated slot was reused, want permanent retirement")
	}
}

func TestRangeVisitsLiveEntriesOnly(t *testing.T) {
	pool := NewResourcePool[string](KindBuffer)
	a := pool.Insert("a")
	_ = pool.Insert("b")
	pool.Remove(a)

	seen := map[string]bool{}
	pool.Range(func(h Handle, v string) { seen[v] = true })
	if seen["a"] {
		t.Error("Range visited a removed entry")
	}
	if !seen["b"] {
		t.Error("Range did not visit a live entry")
	}
}
