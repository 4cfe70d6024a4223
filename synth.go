// synth.go - per-output-frame pixel composition (weave / shift / smooth)
//
// License: GPLv3 or later

package afscore

// SynthesizedFrame is a fully reinterleaved progressive frame ready for
// submission to EncodePipeline.
type SynthesizedFrame struct {
	FrameInfo
	Data []byte
}

// FrameSynthesizer composes output frame i from SourceCache[i],
// SourceCache[i-1] and a (possibly filtered) StripeMap, per spec.md §4.7.
type FrameSynthesizer struct {
	source  *SourceCache
	inFps   int64 // input frames-per-second numerator, denominator 1
	outTb   int64 // output timebase units per second
}

// NewFrameSynthesizer wires the synthesizer to the cache it reads source
// pixels from and the rescale factors rescale() needs for duration.
func NewFrameSynthesizer(source *SourceCache, inFps, outTb int64) *FrameSynthesizer {
	return &FrameSynthesizer{source: source, inFps: inFps, outTb: outTb}
}

// Synthesize composes output frame i. quarterJitterDuration is the duration
// get_duration(i) returned, expressed in quarter-field units of the input
// timebase; it is rescaled into the output timebase and stamped onto the
// result.
func (f *FrameSynthesizer) Synthesize(i int64, stripe *StripeMap, quarterJitterDuration int64) (*SynthesizedFrame, error) {
	curr := f.source.Get(i)
	w, h, bps := curr.Width, curr.Height, curr.Csp.BytesPerSample()

	var data []byte
	var err error
	if curr.Progressive() {
		data, err = f.bitCopy(curr)
	} else {
		prev := f.source.Get(i - 1)
		data, err = f.weaveShiftSmooth(curr, prev, stripe)
	}
	if err != nil {
		return nil, err
	}

	out := &SynthesizedFrame{
		FrameInfo: FrameInfo{
			Csp:       curr.Csp,
			Width:     w,
			Height:    h,
			Pitch:     w * bps,
			PicStruct: PicStructFrame,
			Flags:     0, // RFF flags cleared per spec.md §4.7
			Timestamp: curr.Timestamp,
			Duration:  f.rescale(quarterJitterDuration),
		},
		Data: data,
	}
	return out, nil
}

// rescale converts a duration in input quarter-field units into output
// timebase units: duration * outTb / (inFps * 4).
func (f *FrameSynthesizer) rescale(quarterJitterDuration int64) int64 {
	denom := f.inFps * 4
	if denom == 0 {
		return 0
	}
	return quarterJitterDuration * f.outTb / denom
}

// bitCopy reinterleaves a progressive SourceFrame's de-interleaved 4:2:0
// chroma back into standard planar form; it is the exact inverse of
// SourceCache.deinterleave420.
func (f *FrameSynthesizer) bitCopy(src *SourceFrame) ([]byte, error) {
	if src.Csp.Is444() {
		out := make([]byte, len(src.Data()))
		copy(out, src.Data())
		return out, nil
	}
	return reinterleave420(src, src, nil, false)
}

// weaveShiftSmooth runs the interlaced synthesis path row by row: a luma
// row whose StripeMap row carries the stripe marker of its own field parity
// anywhere is replaced by the average of curr's and prev's same row; every
// other luma row is copied from curr. Chroma is copied from curr without
// blending. There is no per-pixel choice and no weave of prev's field into
// curr.
func (f *FrameSynthesizer) weaveShiftSmooth(curr, prev *SourceFrame, stripe *StripeMap) ([]byte, error) {
	return reinterleave420(curr, prev, stripe, true)
}

// reinterleave420 writes luma row by row, then rebuilds a standard-planar
// chroma pair from the de-interleaved even/odd field rows SourceCache
// produced. Only 4:2:0 variants are accepted; anything else returns a
// KindUnsupportedParam error. When blend is true and stripe and prev are
// non-nil, a luma row whose stripe row carries the marker for its field
// anywhere is averaged with prev's same row (the "smooth" half of spec.md
// §4.7); otherwise rows are copied straight from curr.
func reinterleave420(curr, prev *SourceFrame, stripe *StripeMap, blend bool) ([]byte, error) {
	if !curr.Csp.Is420() {
		return nil, paramErr("reinterleave420", "csp")
	}
	w, h, bps := curr.Width, curr.Height, curr.Csp.BytesPerSample()
	rowBytes := w * bps
	lumaSize := w * h * bps
	chromaRowBytes := (w / 2) * bps
	chromaPlaneSize := (w / 2) * (h / 2) * bps

	out := make([]byte, lumaSize+2*chromaPlaneSize)

	// Luma: curr's own plane, optionally smoothed against prev on
	// stripe-flagged rows.
	currData := curr.Data()
	var prevData []byte
	if prev != nil {
		prevData = prev.Data()
	}
	for y := 0; y < h; y++ {
		rowBase := y * rowBytes
		srcRow := currData[rowBase : rowBase+rowBytes]
		dstRow := out[rowBase : rowBase+rowBytes]
		if blend && stripe != nil && prevData != nil && rowFlagged(stripe, y, w) {
			blendRow(dstRow, srcRow, prevData[rowBase:rowBase+rowBytes])
		} else {
			copy(dstRow, srcRow)
		}
	}

	off := deinterleaveOffsets(h)
	dstUBase := lumaSize
	dstVBase := lumaSize + chromaPlaneSize
	for row := 0; row < h/2; row++ {
		var srcURow, srcVRow int
		if row%2 == 0 {
			srcURow = off.UEven + row/2
			srcVRow = off.VEven + row/2
		} else {
			srcURow = off.UOdd + row/2
			srcVRow = off.VOdd + row/2
		}
		dstU := out[dstUBase+row*chromaRowBytes : dstUBase+(row+1)*chromaRowBytes]
		dstV := out[dstVBase+row*chromaRowBytes : dstVBase+(row+1)*chromaRowBytes]
		copy(dstU, currData[srcURow*rowBytes:srcURow*rowBytes+chromaRowBytes])
		copy(dstV, currData[srcVRow*rowBytes:srcVRow*rowBytes+chromaRowBytes])
	}
	return out, nil
}

// rowFlagged reports whether row y carries a stripe marker matching its own
// field parity anywhere across the row.
func rowFlagged(stripe *StripeMap, y, w int) bool {
	if y >= stripe.Height {
		return false
	}
	var bit byte
	if y%2 == 0 {
		bit = scanBitStripeEven
	} else {
		bit = scanBitStripeOdd
	}
	rowBase := y * stripe.Width
	for x := 0; x < w && x < stripe.Width; x++ {
		if stripe.Bits[rowBase+x]&bit != 0 {
			return true
		}
	}
	return false
}

func blendRow(dst, a, b []byte) {
	for i := range dst {
		dst[i] = byte((int(a[i]) + int(b[i]) + 1) / 2)
	}
}
