package decoder

import (
	"github.com/muurk/defmt-print/internal/format"
	"github.com/muurk/defmt-print/internal/table"
)

// Frame is one fully decoded log event.
type Frame struct {
	// Index is the table entry the frame was emitted with
	Index uint64 `json:"index"`

	Level    table.Level     `json:"level,omitempty"`
	Location *table.Location `json:"location,omitempty"`

	// Timestamp is nil when the firmware declares no timestamp format or
	// the entry is not a top-level log statement
	Timestamp *Timestamp `json:"timestamp,omitempty"`

	// Message is the rendered text
	Message string `json:"message"`

	// Args are the decoded arguments in slot order
	Args []Value `json:"-"`

	// Format is the parsed format Message was rendered from
	Format *format.Format `json:"-"`

	// Size is the number of wire bytes the frame occupied
	Size int `json:"-"`
}

// Timestamp holds the raw decoded timestamp arguments. Converting ticks to
// wall time is up to the caller.
type Timestamp struct {
	Args    []Value        `json:"-"`
	Display string         `json:"display"`
	Format  *format.Format `json:"-"`
}

// DecodeFrame decodes one frame from the start of data and returns it with
// the number of bytes it occupied. It returns ErrStarved if data holds only
// part of a frame. data is never modified or retained.
func DecodeFrame(t *table.Table, data []byte) (*Frame, int, error) {
	f, _, err := decodeFrame(t, data)
	if err != nil {
		return nil, 0, err
	}
	return f, f.Size, nil
}

// decodeFrame also reports whether the leading index was read, which the
// Decoder uses to track its state across starved attempts.
func decodeFrame(t *table.Table, data []byte) (*Frame, bool, error) {
	c := &cursor{table: t, data: data}

	index, err := c.uleb(format.Type{Kind: format.KindU64})
	if err != nil {
		return nil, false, err
	}
	entry, ok := t.Get(index)
	if !ok {
		return nil, true, &table.UnknownIndexError{Index: index}
	}
	f, err := t.Format(index)
	if err != nil {
		return nil, true, err
	}

	var ts *Timestamp
	if tsEntry := t.Timestamp(); tsEntry != nil && entry.HasLevel() {
		tf, err := t.Format(tsEntry.Index)
		if err != nil {
			return nil, true, err
		}
		args, err := c.args(tf)
		if err != nil {
			return nil, true, err
		}
		ts = &Timestamp{Args: args, Format: tf}
	}

	args, err := c.args(f)
	if err != nil {
		return nil, true, err
	}

	frame := &Frame{
		Index:     index,
		Level:     entry.Level,
		Location:  entry.Location,
		Timestamp: ts,
		Args:      args,
		Format:    f,
		Size:      c.pos,
	}
	if frame.Message, err = Render(t, f, args); err != nil {
		return nil, true, err
	}
	if ts != nil {
		if ts.Display, err = Render(t, ts.Format, ts.Args); err != nil {
			return nil, true, err
		}
	}
	return frame, true, nil
}
