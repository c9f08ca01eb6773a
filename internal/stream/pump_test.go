package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/muurk/defmt-print/internal/decoder"
	"github.com/muurk/defmt-print/internal/rzcobs"
	"github.com/muurk/defmt-print/internal/table"
)

func testTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New([]*table.Entry{
		{Index: 0, Format: "{} items, {}", Kind: table.KindLog, Level: table.LevelInfo, Args: []string{"u8", "fmt#1"}},
		{Index: 1, Format: "tag={=str}", Kind: table.KindFormat},
		{Index: 2, Format: "boot", Kind: table.KindLog, Level: table.LevelWarn},
		{Index: 3, Format: "big={=u64}", Kind: table.KindLog, Level: table.LevelInfo},
	}, "0.3.0", "0.3.0")
	if err != nil {
		t.Fatalf("table.New() error = %v", err)
	}
	return tbl
}

var (
	itemsFrame = []byte{0x00, 0x03, 0x02, 'o', 'k'}
	bootFrame  = []byte{0x02}
)

type collector struct {
	messages []string
}

func (c *collector) handle(f *decoder.Frame) error {
	c.messages = append(c.messages, f.Message)
	return nil
}

func TestParseFraming(t *testing.T) {
	for _, s := range []string{"raw", "rzcobs"} {
		if _, err := ParseFraming(s); err != nil {
			t.Errorf("ParseFraming(%q) error = %v", s, err)
		}
	}
	if _, err := ParseFraming("cobs"); err == nil {
		t.Error("ParseFraming(\"cobs\") should fail")
	}
}

func TestPumpRawChunks(t *testing.T) {
	var c collector
	p := NewPump("test", testTable(t), FramingRaw, c.handle)

	stream := append(append(append([]byte{}, itemsFrame...), bootFrame...), itemsFrame...)
	for _, chunk := range [][]byte{stream[:3], stream[3:7], stream[7:]} {
		if err := p.Feed(chunk); err != nil {
			t.Fatalf("Feed() error = %v", err)
		}
	}

	want := []string{"3 items, tag=ok", "boot", "3 items, tag=ok"}
	if diff := cmp.Diff(want, c.messages); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	if p.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", p.Buffered())
	}
}

func TestPumpRawFatalStops(t *testing.T) {
	var c collector
	p := NewPump("test", testTable(t), FramingRaw, c.handle)

	err := p.Feed(append(append([]byte{}, bootFrame...), 0x7f, 0x01))
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("Feed() error = %v, want *DecodeError", err)
	}
	var unknown *table.UnknownIndexError
	if !errors.As(err, &unknown) {
		t.Errorf("error does not wrap *table.UnknownIndexError: %v", err)
	}
	if diff := cmp.Diff([]byte{0x7f, 0x01}, decErr.Pending); diff != "" {
		t.Errorf("Pending mismatch (-want +got):\n%s", diff)
	}
	if len(c.messages) != 1 {
		t.Errorf("got %d frames before the error, want 1", len(c.messages))
	}
}

func TestPumpRZCOBSSkipsBadFrames(t *testing.T) {
	var c collector
	p := NewPump("test", testTable(t), FramingRZCOBS, c.handle)

	var wire []byte
	wire = rzcobs.AppendFrame(wire, itemsFrame)
	wire = append(wire, 0x01, 0x00)                    // corrupt rzCOBS
	wire = rzcobs.AppendFrame(wire, []byte{0x05})      // unknown index
	wire = rzcobs.AppendFrame(wire, []byte{0x03, 0x01}) // truncated u64
	wire = rzcobs.AppendFrame(wire, bootFrame)

	for _, b := range wire {
		if err := p.Feed([]byte{b}); err != nil {
			t.Fatalf("Feed() error = %v", err)
		}
	}

	want := []string{"3 items, tag=ok", "boot"}
	if diff := cmp.Diff(want, c.messages); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestPumpHandlerErrorStops(t *testing.T) {
	stop := errors.New("stop")
	p := NewPump("test", testTable(t), FramingRaw, func(*decoder.Frame) error { return stop })
	if err := p.Feed(bootFrame); !errors.Is(err, stop) {
		t.Errorf("Feed() error = %v, want handler error", err)
	}
}

func TestPumpRunToEOF(t *testing.T) {
	var c collector
	p := NewPump("test", testTable(t), FramingRaw, c.handle)
	p.BufferSize = 2

	input := append(append([]byte{}, itemsFrame...), bootFrame...)
	if err := p.Run(context.Background(), bytes.NewReader(input)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(c.messages) != 2 {
		t.Errorf("got %d frames, want 2", len(c.messages))
	}
}

func TestPumpRunCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	var c collector
	p := NewPump("test", testTable(t), FramingRaw, c.handle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, pr)
	}()

	if _, err := pw.Write(bootFrame); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestPumpRunCancelUnclosableSource(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	defer pr.Close()
	src := &readerSource{Reader: pr, name: "stdin"}

	var c collector
	p := NewPump(src.Name(), testTable(t), FramingRaw, c.handle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, src)
	}()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() still blocked on a source that cannot be closed")
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{rzcobs.ErrCorrupted, "framing"},
		{decoder.ErrStarved, "truncated"},
		{&table.UnknownIndexError{Index: 1}, "unknown_index"},
		{&table.MalformedDirectiveError{Index: 1}, "malformed_directive"},
		{&decoder.MalformedValueError{}, "malformed_value"},
		{errors.New("other"), "other"},
	}
	for _, tt := range tests {
		if got := reason(tt.err); got != tt.want {
			t.Errorf("reason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
