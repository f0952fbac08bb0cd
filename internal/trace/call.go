// Package trace records the engine calls an audio session makes.
//
// Every call that crosses into the engine is described by a Call, stamped
// with a logical sequence number and the session token. Traces feed the
// conformance harness, golden snapshots, and the SQLite journal.
package trace

import "sync"

// Call is one engine call as observed by the session layer.
type Call struct {
	Seq     int64          `json:"seq"`
	Session string         `json:"session,omitempty"`
	Op      string         `json:"op"`
	Target  string         `json:"target"`
	Args    map[string]any `json:"args,omitempty"`
	Result  string         `json:"result"`
}

// Recorder receives calls.
type Recorder interface {
	Record(c Call)
}

// Buffer is an in-memory Recorder.
type Buffer struct {
	mu    sync.Mutex
	calls []Call
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Record appends c.
func (b *Buffer) Record(c Call) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, c)
}

// Calls returns a copy of everything recorded so far.
func (b *Buffer) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// Ops returns the op names in record order.
func (b *Buffer) Ops() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ops := make([]string, len(b.calls))
	for i, c := range b.calls {
		ops[i] = c.Op
	}
	return ops
}

// Count returns how many recorded calls have the given op.
func (b *Buffer) Count(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset drops all recorded calls.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

// Tee fans one call out to several recorders in order.
type Tee []Recorder

// Record forwards c to every non-nil recorder.
func (t Tee) Record(c Call) {
	for _, r := range t {
		if r != nil {
			r.Record(c)
		}
	}
}
