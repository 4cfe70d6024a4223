// scancache.go - per-frame field-difference / motion scan maps
//
// License: GPLv3 or later

package afscore

// Scan bit layout within a ScanMap's per-pixel byte map.
const (
	scanBitMotion     byte = 0x40
	scanBitStripeEven byte = 0x10
	scanBitStripeOdd  byte = 0x20
)

// ScanStatus distinguishes an empty (never computed) slot from a valid one.
type ScanStatus int

const (
	ScanEmpty ScanStatus = iota
	ScanValid
)

// Clip describes the active analysis rectangle.
type Clip struct {
	Top, Bottom, Left, Right int
}

// ScanParams is the parameter signature a ScanMap is computed against;
// ScanCache.Compute is a cache hit iff every field here matches the map
// already in the slot.
type ScanParams struct {
	TbOrder                                       int // 0 = bff, 1 = tff
	Mode                                           int // 0 = motion-only, 1 = motion+stripe
	ThreShift, ThreDeint, ThreYMotion, ThreCMotion int
	Clip                                           Clip
}

func (p ScanParams) equal(o ScanParams) bool { return p == o }

// ScanMap is a byte map of per-pixel classification bits, one byte per luma
// pixel, produced by analyzeStripe, plus the scalar reductions
// MotionCounters folds it down to.
type ScanMap struct {
	Status    ScanStatus
	Frame     int64
	Params    ScanParams
	Bits      []byte // width*height bytes, one per luma pixel
	Width     int
	Height    int
	FfMotion  int64
	LfMotion  int64
}

// ScanCache is a ring of SourceCacheCapacity ScanMaps.
type ScanCache struct {
	slots  [SourceCacheCapacity]ScanMap
	stripe *StripeCache // invalidated on writes, may be nil in isolated use
}

// NewScanCache constructs an empty ring. AttachStripeCache wires the
// invalidation side effect Compute performs on a cache miss.
func NewScanCache() *ScanCache { return &ScanCache{} }

// AttachStripeCache wires the StripeCache that must be invalidated whenever
// a ScanMap write occurs (spec.md §3: "Writing ScanMap i invalidates
// StripeMap i-1 and StripeMap i").
func (c *ScanCache) AttachStripeCache(s *StripeCache) { c.stripe = s }

// hit reports whether the slot already satisfies (frame, params).
func (m *ScanMap) hit(frame int64, p ScanParams) bool {
	return m.Status == ScanValid && m.Frame == frame && m.Params.equal(p)
}

// Compute returns the ScanMap for frame i, computing it from curr/prev on a
// cache miss. On miss, invalidates the StripeCache slots that depended on
// the old ScanMap (i-1 and i).
func (c *ScanCache) Compute(i int64, curr, prev *SourceFrame, p ScanParams) *ScanMap {
	slot := &c.slots[((i%SourceCacheCapacity)+SourceCacheCapacity)%SourceCacheCapacity]
	if slot.hit(i, p) {
		return slot
	}
	analyzeStripe(slot, curr, prev, i, p)
	if c.stripe != nil {
		c.stripe.Invalidate(i - 1)
		c.stripe.Invalidate(i)
	}
	return slot
}

// Get returns the slot for frame i without recomputation; callers that need
// freshness guarantees should use Compute.
func (c *ScanCache) Get(i int64) *ScanMap {
	return &c.slots[((i%SourceCacheCapacity)+SourceCacheCapacity)%SourceCacheCapacity]
}

// analyzeStripe fills dst in place for frame i from curr against prev. Per
// pixel: temporal motion is |curr_luma - prev_luma| vs ThreYMotion and, when
// p.Mode is not 0, vertical stripe is |curr_row_n - curr_row_{n+1}| vs
// ThreDeint, written as bits 0x40 (motion), 0x10 (stripe, even field row),
// 0x20 (stripe, odd field row). Only luma is compared: chroma is not read,
// and ThreCMotion is part of the cache signature but of no comparison.
func analyzeStripe(dst *ScanMap, curr, prev *SourceFrame, i int64, p ScanParams) {
	w, h := curr.Width, curr.Height
	if dst.Bits == nil || dst.Width != w || dst.Height != h {
		dst.Bits = make([]byte, w*h)
	} else {
		for i := range dst.Bits {
			dst.Bits[i] = 0
		}
	}
	dst.Width, dst.Height = w, h
	dst.Status = ScanValid
	dst.Frame = i
	dst.Params = p

	currLuma := curr.Data()[:w*h]
	var prevLuma []byte
	if prev != nil {
		prevLuma = prev.Data()[:w*h]
	}

	for y := p.Clip.Top; y < h-p.Clip.Bottom; y++ {
		rowBase := y * w
		for x := p.Clip.Left; x < w-p.Clip.Right; x++ {
			idx := rowBase + x
			var b byte

			if prevLuma != nil {
				d := int(currLuma[idx]) - int(prevLuma[idx])
				if absInt(d) > p.ThreYMotion {
					b |= scanBitMotion
				}
			}

			if p.Mode != 0 && y+1 < h-p.Clip.Bottom {
				d := int(currLuma[idx]) - int(currLuma[idx+w])
				if absInt(d) > p.ThreDeint {
					if y%2 == 0 {
						b |= scanBitStripeEven
					} else {
						b |= scanBitStripeOdd
					}
				}
			}

			dst.Bits[idx] = b
		}
	}
	dst.FfMotion, dst.LfMotion = countMotion(dst.Bits, w, h, p.Clip, p.TbOrder)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
