// sourcecache.go - ring of source frames with 4:2:0 field de-interleave
//
// License: GPLv3 or later

package afscore

// SourceCacheCapacity is the ring size SourceCache, ScanCache and
// StripeCache all share. CadenceClassifier.AnalyzeFrame reads a
// ScanMap window spanning iframe-1 .. iframe+5 (seven distinct frames,
// per detect_telecine_cross's four shifted sub-windows), so the ring
// must hold at least that many frames simultaneously or the oldest
// entries alias newer ones before AnalyzeFrame reads them; seven is
// the minimum that satisfies this, with (for StripeCache) one
// additional scratch slot for the spatial filter pass.
const SourceCacheCapacity = 7

// SourceCache is a ring of SourceCacheCapacity past source frames, keyed by
// input index. 4:2:0 admissions are de-interleaved into even/odd field
// planes so ScanCache can treat each field as a contiguous half-height
// plane.
type SourceCache struct {
	slots        [SourceCacheCapacity]SourceFrame
	template     FrameInfo
	allocated    bool
	inputCounter int64
}

// NewSourceCache constructs an empty cache; Alloc must be called before Add.
func NewSourceCache() *SourceCache { return &SourceCache{} }

// Alloc reserves SourceCacheCapacity slots matching template's csp/width/
// height. Slot backing storage persists for the cache's lifetime.
func (c *SourceCache) Alloc(template FrameInfo) error {
	if template.Width <= 0 || template.Height <= 0 {
		return paramErr("SourceCache.Alloc", "width/height")
	}
	size, err := storageSize(template)
	if err != nil {
		return err
	}
	for i := range c.slots {
		c.slots[i] = SourceFrame{data: make([]byte, size)}
	}
	c.template = template
	c.allocated = true
	return nil
}

// storageSize computes the destination byte size for a de-interleaved (or
// plain, for 4:4:4) planar frame of the given template.
func storageSize(t FrameInfo) (int, error) {
	bps := t.Csp.BytesPerSample()
	if bps == 0 {
		return 0, &Error{Op: "SourceCache.Alloc", Kind: KindUnsupportedCsp}
	}
	lumaPlane := t.Width * t.Height * bps
	switch {
	case t.Csp.Is420():
		// luma [0,H) + four half-height-quarter-height chroma fields,
		// i.e. total chroma rows == H (matches spec.md's [H,2H) span).
		chromaPlane := t.Width / 2 * t.Height * bps
		return lumaPlane + 2*chromaPlane, nil
	case t.Csp.Is444():
		return lumaPlane * 3, nil
	default:
		return 0, &Error{Op: "SourceCache.Alloc", Kind: KindUnsupportedCsp}
	}
}

// Add copies src into slot (inputCounter mod capacity), de-interleaving
// 4:2:0 chroma fields per the layout documented on deinterleaveOffsets.
// 4:4:4 variants are copied plain. Increments inputCounter.
func (c *SourceCache) Add(src *FrameInfo, data []byte) error {
	if !c.allocated {
		return newErr("SourceCache.Add", KindOutOfMemory)
	}
	if !src.Csp.Is420() && !src.Csp.Is444() {
		return &Error{Op: "SourceCache.Add", Kind: KindUnsupportedCsp}
	}
	idx := c.inputCounter % SourceCacheCapacity
	slot := &c.slots[idx]
	slot.FrameInfo = *src
	slot.FrameIndex = c.inputCounter

	if src.Csp.Is444() {
		n := copy(slot.data, data)
		_ = n
	} else {
		c.deinterleave420(slot, src, data)
	}

	c.inputCounter++
	return nil
}

// deinterleave420 writes luma plain, then splits the interleaved source
// chroma rows (stride src.Pitch, U at offset H*Pitch, V at 3H/2*Pitch) into
// even/odd destination rows per deinterleaveOffsets.
func (c *SourceCache) deinterleave420(slot *SourceFrame, src *FrameInfo, data []byte) {
	w, h, bps := src.Width, src.Height, src.Csp.BytesPerSample()
	rowBytes := w * bps
	dstPitch := rowBytes // chroma field rows share the luma row stride
	off := deinterleaveOffsets(h)

	// luma: straight copy, row by row, honoring source pitch.
	for y := 0; y < h; y++ {
		srcRow := data[y*src.Pitch : y*src.Pitch+rowBytes]
		copy(slot.data[y*rowBytes:(y+1)*rowBytes], srcRow)
	}

	chromaRowBytes := (w / 2) * bps
	uBase := h * src.Pitch
	vBase := (h + h/2) * src.Pitch
	for row := 0; row < h/2; row++ {
		srcU := data[uBase+row*src.Pitch : uBase+row*src.Pitch+chromaRowBytes]
		srcV := data[vBase+row*src.Pitch : vBase+row*src.Pitch+chromaRowBytes]

		var dstRow int
		if row%2 == 0 {
			dstRow = off.UEven + row/2
		} else {
			dstRow = off.UOdd + row/2
		}
		dstOff := dstRow * dstPitch
		copy(slot.data[dstOff:dstOff+chromaRowBytes], srcU)

		if row%2 == 0 {
			dstRow = off.VEven + row/2
		} else {
			dstRow = off.VOdd + row/2
		}
		dstOff = dstRow * dstPitch
		copy(slot.data[dstOff:dstOff+chromaRowBytes], srcV)
	}
}

// Get returns slot (i mod capacity). Caller contract: i must be in
// [inputCounter-capacity, inputCounter); the cache does not validate this,
// mirroring spec.md's "undefined, rejected by the orchestrator" contract.
func (c *SourceCache) Get(i int64) *SourceFrame {
	return &c.slots[((i%SourceCacheCapacity)+SourceCacheCapacity)%SourceCacheCapacity]
}

// Inframe returns the running input counter.
func (c *SourceCache) Inframe() int64 { return c.inputCounter }
