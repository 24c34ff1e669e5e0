// Package progress tracks bytes copied by the pack and unpack engines.
package progress

import (
	"io"

	"github.com/meigma/parcel/core"
)

// Tracker accumulates bytes across the entries of one operation and reports
// them to a callback. A Tracker with a nil callback does nothing.
type Tracker struct {
	operation string
	total     int64
	done      int64
	callback  core.ProgressFunc
}

// NewTracker creates a tracker for operation. total is the expected byte
// count, or -1 when unknown.
func NewTracker(operation string, total int64, callback core.ProgressFunc) *Tracker {
	return &Tracker{operation: operation, total: total, callback: callback}
}

// Reader wraps r so that bytes read from it are attributed to entry.
// A nil Tracker returns r unchanged.
func (t *Tracker) Reader(r io.Reader, entry string) io.Reader {
	if t == nil || t.callback == nil {
		return r
	}
	return &Reader{reader: r, entry: entry, tracker: t}
}

// Transferred returns the cumulative bytes reported so far.
func (t *Tracker) Transferred() int64 {
	if t == nil {
		return 0
	}
	return t.done
}

func (t *Tracker) add(entry string, n int) {
	t.done += int64(n)
	t.callback(core.ProgressEvent{
		Operation:        t.operation,
		Entry:            entry,
		BytesTransferred: t.done,
		TotalBytes:       t.total,
	})
}

// Reader reports each successful read to its Tracker.
type Reader struct {
	reader  io.Reader
	entry   string
	tracker *Tracker
}

// Read implements io.Reader and reports progress after each read.
func (r *Reader) Read(p []byte) (n int, err error) {
	n, err = r.reader.Read(p)
	if n > 0 {
		r.tracker.add(r.entry, n)
	}
	return n, err
}
