// decodecoupler.go - GPU-decoded path: decode producer + orchestrator consumer
//
// License: GPLv3 or later

package afscore

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DeinterlaceMode selects DecodeCoupler's emit pattern (spec.md §4.9).
type DeinterlaceMode int

const (
	DeinterlaceWeave DeinterlaceMode = iota
	DeinterlaceBob
	DeinterlaceAdaptive
)

// DecodedEmit is one emitted picture handed to the orchestrator's encode
// submission path.
type DecodedEmit struct {
	PictureIndex    int64
	Timestamp       int64
	UnpairedField   bool
	ProgressiveFrame bool
	SecondField     int // 0 or 1, meaningful only for DeinterlaceBob
}

// DecodeCoupler runs the GPU-decoded path: a producer goroutine reads
// encoded packets and queues one DisplayInfo per packet, while a consumer
// goroutine drains the queue and registers, maps and submits each picture.
// decoderLock is held across each of the consumer's emits, mirroring
// spec.md §5's shared resource policy; the two goroutines are joined
// through an errgroup.Group so either side's error cancels the other via ctx.
type DecodeCoupler struct {
	src     BitstreamSource
	backend CodecBackend
	pipe    *EncodePipeline
	source  *SourceCache
	mode    DeinterlaceMode

	decoderLock sync.Mutex
	queue       chan DisplayInfo
}

// NewDecodeCoupler wires the coupler to the bitstream source it reads
// packets from, the backend each picture is registered, mapped and
// submitted to, and the source cache the pictures are read from. pipe is
// stored on the coupler; emitOne submits straight to the backend and does
// not go through it.
func NewDecodeCoupler(src BitstreamSource, backend CodecBackend, pipe *EncodePipeline, source *SourceCache, mode DeinterlaceMode) *DecodeCoupler {
	return &DecodeCoupler{
		src:     src,
		backend: backend,
		pipe:    pipe,
		source:  source,
		mode:    mode,
		queue:   make(chan DisplayInfo, EncodePipelineCapacity),
	}
}

// Run starts the producer and consumer goroutines and waits for both, until
// ctx is cancelled or the producer reaches EOF and the queue is drained.
// It replaces the shared error flag spec.md §9 describes with an errgroup:
// a decoder error cancels ctx, observed by the consumer loop at its next
// dequeue.
func (c *DecodeCoupler) Run(ctx context.Context, synth *FrameSynthesizer, status *StreamStatus) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(c.queue)
		return c.produce(gctx)
	})

	g.Go(func() error {
		return c.consume(gctx, synth, status)
	})

	return g.Wait()
}

// produce is the single producer goroutine (spec.md §4.9): it reads encoded
// packets and enqueues one DisplayInfo per packet for the consumer to drain.
// No decoding happens here: picture indices count up from 0, the timestamp
// is the packet's pts, and every picture is marked top-field-first and not
// progressive.
func (c *DecodeCoupler) produce(ctx context.Context) error {
	const op = "DecodeCoupler.produce"
	var pictureIndex int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		packet, pts, err := c.src.NextBitstream(ctx)
		if err != nil {
			return wrapErr(op, KindDecoderError, err)
		}
		if packet == nil {
			return nil // EOF
		}

		info := DisplayInfo{
			PictureIndex:  pictureIndex,
			Timestamp:     pts,
			TopFieldFirst: true,
			Progressive:   false,
		}
		pictureIndex++

		select {
		case c.queue <- info:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// consume drains the decode-output queue; for each DisplayInfo it runs one
// or two emits (weave/bob/adaptive, spec.md §4.9), each run entirely under
// decoderLock.
func (c *DecodeCoupler) consume(ctx context.Context, synth *FrameSynthesizer, status *StreamStatus) error {
	for {
		select {
		case info, ok := <-c.queue:
			if !ok {
				return nil
			}
			if err := c.emit(ctx, info, synth, status); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *DecodeCoupler) emit(ctx context.Context, info DisplayInfo, synth *FrameSynthesizer, status *StreamStatus) error {
	switch c.mode {
	case DeinterlaceWeave:
		return c.emitOne(ctx, DecodedEmit{
			PictureIndex:     info.PictureIndex,
			Timestamp:        info.Timestamp,
			UnpairedField:    true,
			ProgressiveFrame: info.Progressive,
		})
	case DeinterlaceBob:
		for field := 0; field < 2; field++ {
			if err := c.emitOne(ctx, DecodedEmit{
				PictureIndex:     info.PictureIndex,
				Timestamp:        info.Timestamp,
				ProgressiveFrame: false,
				SecondField:      field,
			}); err != nil {
				return err
			}
		}
		return nil
	default: // DeinterlaceAdaptive
		return c.emitOne(ctx, DecodedEmit{
			PictureIndex:     info.PictureIndex,
			Timestamp:        info.Timestamp,
			ProgressiveFrame: false,
		})
	}
}

// emitOne registers the source slot's device pointer, maps it as an input
// surface, and submits it straight to the backend with a freshly registered
// completion event and bitstream buffer, all under decoderLock. There is no
// frame copy step, the mapped surface is never unmapped, and the submission
// does not pass through c.pipe, so its bitstream is not written to the sink.
func (c *DecodeCoupler) emitOne(ctx context.Context, e DecodedEmit) error {
	const op = "DecodeCoupler.emitOne"
	c.decoderLock.Lock()
	defer c.decoderLock.Unlock()

	src := c.source.Get(e.PictureIndex)
	reg, err := c.backend.RegisterResource(src.Ptr, src.Width, src.Height, src.Pitch)
	if err != nil {
		return wrapErr(op, KindDecoderError, err)
	}
	surface, err := c.backend.MapInputResource(reg)
	if err != nil {
		return wrapErr(op, KindDecoderError, err)
	}

	event, err := c.backend.RegisterAsyncEvent()
	if err != nil {
		return wrapErr(op, KindDeviceUnavailable, err)
	}
	bitstream, err := c.backend.CreateBitstreamBuffer(0)
	if err != nil {
		return wrapErr(op, KindOutOfMemory, err)
	}

	picStruct := PicStructFrame
	if !e.ProgressiveFrame {
		picStruct = PicStructTopFieldFirst
	}
	_, err = c.backend.EncodePicture(PicParams{
		Input:     surface,
		Output:    bitstream,
		Event:     event,
		PTS:       e.Timestamp,
		PicStruct: picStruct,
	})
	if err != nil {
		return wrapErr(op, KindEncoderError, err)
	}
	return nil
}
