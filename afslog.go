// afslog.go - AFS per-frame CSV log
//
// License: GPLv3 or later

package afscore

import (
	"bufio"
	"fmt"
	"io"
)

// afsLogHeader is the documented, positionally-stable header (spec.md §6).
// AFSLogWriter appends one trailing "dropped_total" column beyond it; see
// the doc comment on Write.
const afsLogHeader = " iframe,  sts,       ,        pos,   orig_pts, q_jit, prevjit, pos24, phase24, rff_smooth"

// AFSLogWriter is the optional per-frame CSV trace of StreamStatus state.
type AFSLogWriter struct {
	w *bufio.Writer
}

// NewAFSLogWriter wraps w and writes the header line immediately.
func NewAFSLogWriter(w io.Writer) (*AFSLogWriter, error) {
	l := &AFSLogWriter{w: bufio.NewWriter(w)}
	if _, err := l.w.WriteString(afsLogHeader + ", dropped_total\n"); err != nil {
		return nil, wrapErr("NewAFSLogWriter", KindIoError, err)
	}
	return l, nil
}

// Write appends one row: the decoded flag string, the numeric StreamStatus
// state at the time of this frame, and a trailing running total of dropped
// frames. The trailing column is a supplement over the documented header
// (kept for companion tooling that wants a running sanity count) and is not
// part of the positionally-parsed columns up to "rff_smooth".
func (l *AFSLogWriter) Write(iframe int64, status Status, pos, origPTS, qJit, prevJitter, pos24, phase24, rffSmooth, droppedTotal int64) error {
	_, err := fmt.Fprintf(l.w, "%7d, %s, %10d, %10d, %5d, %7d, %5d, %7d, %10d, %d\n",
		iframe, status.String(), pos, origPTS, qJit, prevJitter, pos24, phase24, rffSmooth, droppedTotal)
	if err != nil {
		return wrapErr("AFSLogWriter.Write", KindIoError, err)
	}
	return nil
}

// Close flushes the buffered writer.
func (l *AFSLogWriter) Close() error {
	if err := l.w.Flush(); err != nil {
		return wrapErr("AFSLogWriter.Close", KindIoError, err)
	}
	return nil
}
