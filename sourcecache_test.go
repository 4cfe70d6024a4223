// License: GPLv3 or later

package afscore

import "testing"

// build420Frame returns a 4x4 planar 4:2:0 8-bit frame (pitch == width) with
// luma/U/V values chosen so the deinterleave destination offsets can be
// checked exactly.
func build420Frame() (FrameInfo, []byte) {
	w, h := 4, 4
	info := FrameInfo{Csp: Csp420_8, Width: w, Height: h, Pitch: w}
	data := make([]byte, 32)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			data[y*w+x] = byte(10 + y*4 + x)
		}
	}
	uBase := h * w
	vBase := (h + h/2) * w
	data[uBase+0] = 100
	data[uBase+1] = 101
	data[uBase+w+0] = 102
	data[uBase+w+1] = 103
	data[vBase+0] = 110
	data[vBase+1] = 111
	data[vBase+w+0] = 112
	data[vBase+w+1] = 113
	return info, data
}

func newTestSourceCache(t *testing.T) *SourceCache {
	t.Helper()
	c := NewSourceCache()
	if err := c.Alloc(FrameInfo{Csp: Csp420_8, Width: 4, Height: 4}); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	return c
}

func TestSourceCacheAllocRejectsBadDims(t *testing.T) {
	c := NewSourceCache()
	if err := c.Alloc(FrameInfo{Csp: Csp420_8, Width: 0, Height: 4}); err == nil {
		t.Fatal("expected error for zero width")
	}
}

func TestSourceCacheAddDeinterleave420(t *testing.T) {
	c := newTestSourceCache(t)
	info, data := build420Frame()

	if err := c.Add(&info, data); err != nil {
		t.Fatalf("Add: %v", err)
	}

	slot := c.Get(0)
	if slot.FrameIndex != 0 {
		t.Errorf("FrameIndex = %d, want 0", slot.FrameIndex)
	}

	// Luma is a straight copy.
	for i := 0; i < 16; i++ {
		if slot.data[i] != byte(10+i) {
			t.Errorf("luma[%d] = %d, want %d", i, slot.data[i], 10+i)
		}
	}

	// Chroma: destination rows per deinterleaveOffsets(4) = {4,5,6,7},
	// stride 4 bytes (the luma row width).
	want := map[int]byte{
		4*4 + 0: 100, 4*4 + 1: 101, // U even row 0
		5*4 + 0: 102, 5*4 + 1: 103, // U odd row 0
		6*4 + 0: 110, 6*4 + 1: 111, // V even row 0
		7*4 + 0: 112, 7*4 + 1: 113, // V odd row 0
	}
	for off, v := range want {
		if slot.data[off] != v {
			t.Errorf("data[%d] = %d, want %d", off, slot.data[off], v)
		}
	}
}

func TestSourceCacheGetWrapsRing(t *testing.T) {
	c := newTestSourceCache(t)
	for i := 0; i < 9; i++ {
		info, data := build420Frame()
		data[0] = byte(i) // distinguish each admitted frame
		if err := c.Add(&info, data); err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
	}
	// frame 8 occupies slot 8%7 == 1, same as frame 1 did.
	slot := c.Get(8)
	if slot.FrameIndex != 8 {
		t.Errorf("FrameIndex = %d, want 8", slot.FrameIndex)
	}
	if slot.data[0] != 8 {
		t.Errorf("data[0] = %d, want 8", slot.data[0])
	}
}

func TestSourceCacheAddRejectsUnallocated(t *testing.T) {
	c := NewSourceCache()
	info, data := build420Frame()
	if err := c.Add(&info, data); err == nil {
		t.Fatal("expected error adding to unallocated cache")
	}
}

func TestSourceCacheAdd444Passthrough(t *testing.T) {
	c := NewSourceCache()
	if err := c.Alloc(FrameInfo{Csp: Csp444_8, Width: 2, Height: 2}); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	info := FrameInfo{Csp: Csp444_8, Width: 2, Height: 2, Pitch: 2}
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if err := c.Add(&info, data); err != nil {
		t.Fatalf("Add: %v", err)
	}
	slot := c.Get(0)
	if len(slot.data) != len(data) {
		t.Fatalf("len(data) = %d, want %d", len(slot.data), len(data))
	}
	for i := range data {
		if slot.data[i] != data[i] {
			t.Errorf("data[%d] = %d, want %d", i, slot.data[i], data[i])
		}
	}
}
