package telemetry

import (
	"fmt"
	"io"
	"sync"
)

// Emitter writes encoded records to a single output stream. It may be used from any number
// of goroutines: each record is encoded and written whole while holding one lock, so
// records from different goroutines never interleave below record granularity.
//
// The first write error is sticky; all later calls to Emit return it without writing.
type Emitter struct {
	out     io.Writer
	buf     []byte
	err     error
	written int
	lock    sync.Mutex
}

// NewEmitter creates an Emitter that writes to out.
func NewEmitter(out io.Writer) *Emitter {
	return &Emitter{out: out, buf: make([]byte, 0, RecordSize)}
}

// Emit encodes and writes one record.
func (e *Emitter) Emit(r Record) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.err != nil {
		return e.err
	}
	buf, err := AppendRecord(e.buf[:0], r)
	if err != nil {
		return err
	}
	e.buf = buf
	n, err := e.out.Write(buf)
	if err == nil && n < len(buf) {
		err = io.ErrShortWrite
	}
	if err != nil {
		e.err = fmt.Errorf("writing %s record for %q: %w", r.Kind(), r.Source().Function, err)
		return e.err
	}
	e.written++
	return nil
}

// Err returns the write error that stopped the emitter, if any.
func (e *Emitter) Err() error {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.err
}

// Written returns the number of records written so far.
func (e *Emitter) Written() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.written
}
