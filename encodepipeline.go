// encodepipeline.go - ring of buffer triples feeding the encoder backend
//
// License: GPLv3 or later

package afscore

import (
	"context"
	"time"
)

// EncodePipelineCapacity is N in spec.md §4.8: 32 buffer triples plus one
// dedicated EOS triple.
const EncodePipelineCapacity = 32

// FlushTimeout is the maximum time the EOS event may take to signal during
// Flush before it is reported as a fatal timeout (spec.md §4.8, §5).
const FlushTimeout = 500 * time.Millisecond

// bufferTriple is {input_surface, output_bitstream, completion_event,
// wait_flag, eos_flag} from spec.md §4.8.
type bufferTriple struct {
	input    InputSurface
	output   Bitstream
	event    CompletionEvent
	waitFlag bool
	eos      bool
}

// EncodePipeline owns EncodePipelineCapacity buffer triples plus one EOS
// triple, submitting pictures to a CodecBackend and draining completed
// bitstreams to a BitstreamSink in submission order.
type EncodePipeline struct {
	backend CodecBackend
	sink    BitstreamSink

	available []*bufferTriple
	pending   []*bufferTriple
	eosTriple *bufferTriple

	width, height int
	csp           Csp
	bitstreamSize int
}

// NewEncodePipeline allocates EncodePipelineCapacity input/output buffers
// plus the EOS triple against an already-OpenSession'd backend.
func NewEncodePipeline(backend CodecBackend, sink BitstreamSink, w, h int, csp Csp, bitstreamSize int) (*EncodePipeline, error) {
	p := &EncodePipeline{
		backend:       backend,
		sink:          sink,
		width:         w,
		height:        h,
		csp:           csp,
		bitstreamSize: bitstreamSize,
	}
	for i := 0; i < EncodePipelineCapacity; i++ {
		t, err := p.newTriple()
		if err != nil {
			return nil, err
		}
		p.available = append(p.available, t)
	}
	eos, err := p.newTriple()
	if err != nil {
		return nil, err
	}
	eos.eos = true
	p.eosTriple = eos
	return p, nil
}

func (p *EncodePipeline) newTriple() (*bufferTriple, error) {
	const op = "EncodePipeline.newTriple"
	input, err := p.backend.CreateInputBuffer(p.width, p.height, p.csp)
	if err != nil {
		return nil, wrapErr(op, KindOutOfMemory, err)
	}
	output, err := p.backend.CreateBitstreamBuffer(p.bitstreamSize)
	if err != nil {
		return nil, wrapErr(op, KindOutOfMemory, err)
	}
	event, err := p.backend.RegisterAsyncEvent()
	if err != nil {
		return nil, wrapErr(op, KindDeviceUnavailable, err)
	}
	return &bufferTriple{input: input, output: output, event: event, waitFlag: true}, nil
}

// drainOne waits on the head of pending (if wait_flag), locks its
// bitstream, writes the bytes to the sink, unlocks, and returns the triple
// to available. This is spec.md §4.8's backpressure point.
func (p *EncodePipeline) drainOne(ctx context.Context) error {
	const op = "EncodePipeline.drainOne"
	if len(p.pending) == 0 {
		return nil
	}
	t := p.pending[0]
	p.pending = p.pending[1:]

	if t.waitFlag {
		if err := t.event.Wait(ctx); err != nil {
			return wrapErr(op, KindTimeout, err)
		}
	}
	bytes, err := p.backend.LockBitstream(t.output)
	if err != nil {
		return wrapErr(op, KindEncoderError, err)
	}
	if len(bytes) > 0 {
		if _, err := p.sink.Write(bytes); err != nil {
			return wrapErr(op, KindIoError, err)
		}
	}
	if err := p.backend.UnlockBitstream(t.output); err != nil {
		return wrapErr(op, KindEncoderError, err)
	}
	p.available = append(p.available, t)
	return nil
}

// Submit runs one full per-frame cycle of spec.md §4.8: pop an available
// triple (draining the oldest pending one first if none is free), copy the
// synthesized frame into its input surface, and submit encode_picture.
// NeedMoreInput is not an error.
func (p *EncodePipeline) Submit(ctx context.Context, frame *SynthesizedFrame) error {
	const op = "EncodePipeline.Submit"
	if len(p.available) == 0 {
		if err := p.drainOne(ctx); err != nil {
			return err
		}
		if len(p.available) == 0 {
			return newErr(op, KindOutOfMemory)
		}
	}
	t := p.available[len(p.available)-1]
	p.available = p.available[:len(p.available)-1]

	if err := p.copyIntoSurface(t, frame); err != nil {
		return err
	}

	result, err := p.backend.EncodePicture(PicParams{
		Input:     t.input,
		Output:    t.output,
		Event:     t.event,
		PTS:       frame.Timestamp,
		PicStruct: frame.PicStruct,
	})
	if err != nil {
		return wrapErr(op, KindEncoderError, err)
	}
	_ = result // NeedMoreInput and Success both mean "submitted"
	p.pending = append(p.pending, t)
	return nil
}

// copyIntoSurface stages the synthesized frame's bytes into the triple's
// input surface via the backend's WriteInputSurface, so every CodecBackend
// (host-memory or device-memory) receives the real pixel data, not just the
// software backend.
func (p *EncodePipeline) copyIntoSurface(t *bufferTriple, frame *SynthesizedFrame) error {
	const op = "EncodePipeline.copyIntoSurface"
	if err := p.backend.WriteInputSurface(t.input, frame.Data); err != nil {
		return wrapErr(op, KindEncoderError, err)
	}
	return nil
}

// Flush submits an EOS picture, drains all pending triples, then waits on
// the EOS event for at most FlushTimeout.
func (p *EncodePipeline) Flush(ctx context.Context) error {
	const op = "EncodePipeline.Flush"
	if _, err := p.backend.EncodePicture(PicParams{
		Input:  p.eosTriple.input,
		Output: p.eosTriple.output,
		Event:  p.eosTriple.event,
		EOS:    true,
	}); err != nil {
		return wrapErr(op, KindEncoderError, err)
	}

	for len(p.pending) > 0 {
		if err := p.drainOne(ctx); err != nil {
			return err
		}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, FlushTimeout)
	defer cancel()
	if err := p.eosTriple.event.Wait(timeoutCtx); err != nil {
		return wrapErr(op, KindTimeout, err)
	}
	if err := p.sink.Flush(); err != nil {
		return wrapErr(op, KindIoError, err)
	}
	return p.sink.Close()
}
