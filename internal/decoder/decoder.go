package decoder

import (
	"github.com/muurk/defmt-print/internal/table"
)

// State is the position of a Decoder within the current frame.
type State int

const (
	// StateAwaitingIndex means no byte of the next frame has been decoded.
	StateAwaitingIndex State = iota
	// StateAwaitingArguments means the index is buffered but its arguments
	// are not yet complete.
	StateAwaitingArguments
	// StateFatal means the buffered frame cannot be decoded. The caller must
	// Discard or Reset before decoding makes progress.
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateAwaitingIndex:
		return "awaiting index"
	case StateAwaitingArguments:
		return "awaiting arguments"
	case StateFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Decoder decodes frames from one byte stream. It is not safe for concurrent
// use; the Table it reads from may be shared by any number of Decoders.
type Decoder struct {
	table *table.Table
	buf   []byte
	state State
}

// New creates a Decoder reading format metadata from t.
func New(t *table.Table) *Decoder {
	return &Decoder{table: t}
}

// Table returns the table the decoder was created with.
func (d *Decoder) Table() *table.Table {
	return d.table
}

// Received appends bytes read from the stream.
func (d *Decoder) Received(p []byte) {
	d.buf = append(d.buf, p...)
}

// Decode decodes the next frame from the buffered bytes.
//
// On success the frame's bytes are consumed and the rest stay buffered. On
// ErrStarved or a fatal error nothing is consumed: the buffer is
// byte-identical to what it was before the call.
func (d *Decoder) Decode() (*Frame, error) {
	f, indexRead, err := decodeFrame(d.table, d.buf)
	switch {
	case err == nil:
		n := copy(d.buf, d.buf[f.Size:])
		d.buf = d.buf[:n]
		d.state = StateAwaitingIndex
		return f, nil
	case IsStarved(err) && indexRead:
		d.state = StateAwaitingArguments
	case IsStarved(err):
		d.state = StateAwaitingIndex
	default:
		d.state = StateFatal
	}
	return nil, err
}

// State reports the outcome of the last Decode call.
func (d *Decoder) State() State {
	return d.state
}

// Buffered returns the number of bytes not yet consumed.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Pending returns a copy of the bytes not yet consumed.
func (d *Decoder) Pending() []byte {
	return append([]byte(nil), d.buf...)
}

// Discard drops up to n leading bytes, for callers resynchronizing after a
// fatal error. It returns the number of bytes dropped.
func (d *Decoder) Discard(n int) int {
	if n > len(d.buf) {
		n = len(d.buf)
	}
	if n < 0 {
		n = 0
	}
	rest := copy(d.buf, d.buf[n:])
	d.buf = d.buf[:rest]
	d.state = StateAwaitingIndex
	return n
}

// Reset drops all buffered bytes.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.state = StateAwaitingIndex
}
