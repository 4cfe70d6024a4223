// stripecache.go - merged two-frame stripe maps and the spatial filter pass
//
// License: GPLv3 or later

package afscore

// StripeCacheCapacity adds one scratch slot (at index SourceCacheCapacity)
// to SourceCacheCapacity for the spatial filter pass's output.
const StripeCacheCapacity = SourceCacheCapacity + 1

// StripeStatus distinguishes empty, freshly merged, and filtered slots.
type StripeStatus int

const (
	StripeEmpty StripeStatus = iota
	StripeMerged
	StripeFiltered
)

// StripeMap is the per-pixel merge of two adjacent ScanMaps, plus the
// scalar (count0, count1) reductions MotionCounters derives from it.
type StripeMap struct {
	Status StripeStatus
	Frame  int64
	Bits   []byte
	Width  int
	Height int
	Count0 int64
	Count1 int64
}

// StripeCache is a ring of StripeCacheCapacity StripeMaps; the final slot is
// scratch space used only by Filter.
type StripeCache struct {
	slots [StripeCacheCapacity]StripeMap
}

// NewStripeCache constructs an empty ring.
func NewStripeCache() *StripeCache { return &StripeCache{} }

func (c *StripeCache) slot(i int64) *StripeMap {
	idx := ((i % SourceCacheCapacity) + SourceCacheCapacity) % SourceCacheCapacity
	return &c.slots[idx]
}

// Invalidate marks the slot for frame i empty; Compute/Merge recomputes on
// next access. Called by ScanCache whenever the ScanMap it depends on is
// rewritten.
func (c *StripeCache) Invalidate(i int64) {
	if i < 0 {
		return
	}
	c.slot(i).Status = StripeEmpty
}

// Merge returns the StripeMap for frame i, merging scan[i] and scan[i+1] on
// a miss (or whenever the slot was invalidated).
func (c *StripeCache) Merge(i int64, a, b *ScanMap, clip Clip) *StripeMap {
	slot := c.slot(i)
	if slot.Status != StripeEmpty && slot.Frame == i {
		return slot
	}
	mergeScan(slot, a, b, i, clip)
	return slot
}

// mergeScan combines two adjacent scan bytes per pixel into one stripe byte
// (the bitwise OR, so either frame's motion/stripe marker survives for the
// synthesizer), then reduces the merged map into (count0, count1) via
// countStripe, the scalar pair CadenceClassifier sub-step B compares
// against threshold.
func mergeScan(dst *StripeMap, a, b *ScanMap, frame int64, clip Clip) {
	w, h := a.Width, a.Height
	if dst.Bits == nil || dst.Width != w || dst.Height != h {
		dst.Bits = make([]byte, w*h)
	}
	dst.Width, dst.Height = w, h
	dst.Status = StripeMerged
	dst.Frame = frame

	for idx := range dst.Bits {
		dst.Bits[idx] = a.Bits[idx] | b.Bits[idx]
	}
	dst.Count0, dst.Count1 = countStripe(dst.Bits, w, h, clip)
}

// Filter runs a spatial cleanup pass into the scratch slot (index
// SourceCacheCapacity) when
// analyzeLevel >= 2, and returns the scratch slot; otherwise it returns the
// merged slot for i unchanged. The scratch slot's status goes
// merged -> filtered.
func (c *StripeCache) Filter(i int64, analyzeLevel int, clip Clip) *StripeMap {
	merged := c.slot(i)
	if analyzeLevel < 2 {
		return merged
	}
	scratch := &c.slots[SourceCacheCapacity]
	w, h := merged.Width, merged.Height
	if scratch.Bits == nil || scratch.Width != w || scratch.Height != h {
		scratch.Bits = make([]byte, w*h)
	}
	scratch.Width, scratch.Height = w, h
	scratch.Frame = merged.Frame

	// Neighbour-agreement cleanup: a pixel's stripe/motion bits are kept only
	// if at least one of its four orthogonal neighbours shares one of them,
	// suppressing isolated single-pixel noise.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			b := merged.Bits[idx]
			agree := 0
			for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				if merged.Bits[ny*w+nx]&b != 0 {
					agree++
				}
			}
			if agree == 0 {
				b = 0
			}
			scratch.Bits[idx] = b
		}
	}
	scratch.Status = StripeFiltered
	scratch.Count0, scratch.Count1 = countStripe(scratch.Bits, w, h, clip)
	return scratch
}
