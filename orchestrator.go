// orchestrator.go - main encode loop (spec.md §4.10)
//
// License: GPLv3 or later

package afscore

import (
	"context"
	"log"
)

// Orchestrator drives the non-GPU-decoded path: admits source frames,
// maintains the scan/stripe/cadence lookahead, and submits synthesized
// frames to the EncodePipeline in output order.
type Orchestrator struct {
	src    FrameSource
	source *SourceCache
	scan   *ScanCache
	stripe *StripeCache
	cadence *CadenceClassifier
	status *StreamStatus
	synth  *FrameSynthesizer
	pipe   *EncodePipeline
	cfg    *AFSConfig

	log *log.Logger

	droppedFrames int64
}

// NewOrchestrator wires every collaborator the main loop needs. cfg is
// shared with CadenceClassifier (read-only after construction).
func NewOrchestrator(src FrameSource, source *SourceCache, scan *ScanCache, stripe *StripeCache,
	cadence *CadenceClassifier, status *StreamStatus, synth *FrameSynthesizer, pipe *EncodePipeline,
	cfg *AFSConfig, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		src: src, source: source, scan: scan, stripe: stripe, cadence: cadence,
		status: status, synth: synth, pipe: pipe, cfg: cfg, log: logger,
	}
}

// Encode runs the main loop of spec.md §4.10 to completion: admits frames
// from FrameSource until EOF, maintains the five-frame cadence lookahead,
// and submits each non-dropped synthesized frame to EncodePipeline. Once the
// loop ends it flushes the pipeline, which closes the sink; an error return
// from inside the loop skips the flush.
func (o *Orchestrator) Encode(ctx context.Context) error {
	const op = "Orchestrator.Encode"
	var iframe int64
	var nframe int64
	primed := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		info, data, err := o.src.Read(ctx)
		if err != nil {
			return wrapErr(op, KindIoError, err)
		}
		eof := info == nil

		if !eof {
			if err := o.source.Add(info, data); err != nil {
				return err
			}
			src := o.source.Get(iframe)

			params := o.scanParams()
			if iframe == 0 {
				o.scan.Compute(-1, src, nil, params)
			}
			prev := o.source.Get(iframe - 1)
			o.scan.Compute(iframe, src, prev, params)
			o.populateStripe(iframe)

			if iframe >= 5 {
				o.classify(iframe - 5)
			}
		}

		if iframe >= 8 || eof {
			if !primed && iframe >= 8 {
				// Initial priming: seed status for nframe 0..2 from the
				// first computed status values (spec.md §4.10).
				for n := int64(0); n <= 2; n++ {
					o.classify(n)
					st := o.cadence.AnalyzeFrame(n, o.source.Get(n).Progressive())
					if err := o.status.Set(n, st, false, o.source.Get(n).Timestamp); err != nil {
						return err
					}
				}
				primed = true
			}

			for n := nframe; n <= nframe+3 && n <= iframe; n++ {
				o.classify(n)
			}

			setIdx := nframe + 3
			if setIdx <= iframe {
				st := o.cadence.AnalyzeFrame(setIdx, o.source.Get(setIdx).Progressive())
				ts := o.source.Get(setIdx).Timestamp
				if err := o.status.Set(setIdx, st, false, ts); err != nil {
					return err
				}
			}

			dur, err := o.status.GetDuration(nframe)
			if err != nil {
				if eof {
					break
				}
				return err
			}
			if dur == StreamDropPTS {
				o.droppedFrames++
				if o.log != nil {
					o.log.Printf("orchestrator: dropped frame %d (total %d)", nframe, o.droppedFrames)
				}
			} else {
				stripe := o.stripe.Filter(nframe, o.cfg.Analyze, o.cfg.Clip)
				frame, err := o.synth.Synthesize(nframe, stripe, dur)
				if err != nil {
					return err
				}
				if err := o.pipe.Submit(ctx, frame); err != nil {
					return err
				}
			}
			nframe++
		}

		if !eof {
			iframe++
		}
	}

	if err := o.pipe.Flush(ctx); err != nil {
		return err
	}
	if o.log != nil {
		o.log.Printf("orchestrator: done, %d frames dropped", o.droppedFrames)
	}
	return nil
}

func (o *Orchestrator) scanParams() ScanParams {
	return ScanParams{
		TbOrder:     o.cfg.TbOrder,
		Mode:        1,
		ThreShift:   o.cfg.ThreShift,
		ThreDeint:   o.cfg.ThreDeint,
		ThreYMotion: o.cfg.ThreYMotion,
		ThreCMotion: o.cfg.ThreCMotion,
		Clip:        o.cfg.Clip,
	}
}

// populateStripe keeps StripeCache current for the newly admitted frame:
// merging scan[i-1] and scan[i] mirrors spec.md §3's "StripeMap i is the
// merge of ScanMap i and ScanMap i+1" relation from the perspective of the
// older frame.
func (o *Orchestrator) populateStripe(i int64) {
	if i < 1 {
		return
	}
	a := o.scan.Get(i - 1)
	b := o.scan.Get(i)
	o.stripe.Merge(i-1, a, b, o.cfg.Clip)
}

func (o *Orchestrator) classify(i int64) {
	if i < 0 {
		return
	}
	src := o.source.Get(i)
	st := o.cadence.AnalyzeFrame(i, src.Progressive())
	o.cadence.ApplyRFF(i, src.Flags)
	_ = st
}
