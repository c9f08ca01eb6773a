package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/muurk/defmt-print/internal/decoder"
	"github.com/muurk/defmt-print/internal/logging"
	"github.com/muurk/defmt-print/internal/metrics"
	"github.com/muurk/defmt-print/internal/rzcobs"
	"github.com/muurk/defmt-print/internal/table"
	"go.uber.org/zap"
)

// DefaultReadBufferSize is the size of each read from a source.
const DefaultReadBufferSize = 1024

// Framing is the transport framing around defmt frames.
type Framing string

const (
	// FramingRaw means frames follow each other with no delimiters.
	FramingRaw Framing = "raw"
	// FramingRZCOBS means each frame is rzCOBS encoded and 0x00 terminated.
	FramingRZCOBS Framing = "rzcobs"
)

// ParseFraming validates a framing name.
func ParseFraming(s string) (Framing, error) {
	switch f := Framing(s); f {
	case FramingRaw, FramingRZCOBS:
		return f, nil
	}
	return "", fmt.Errorf("unknown framing %q (expected raw or rzcobs)", s)
}

// Handler receives each decoded frame. Returning an error stops the pump.
type Handler func(*decoder.Frame) error

// DecodeError is returned by Feed when the stream is corrupt and cannot be
// resynchronized.
type DecodeError struct {
	Source  string
	Pending []byte
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode defmt data from %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Pump feeds bytes from one stream into its own Decoder and hands every
// decoded frame to a Handler.
//
// With raw framing a fatal decode error ends the stream, since there is no
// boundary to resynchronize at. With rzCOBS framing a bad frame is logged
// and skipped and decoding resumes at the next delimiter.
type Pump struct {
	name    string
	framing Framing
	dec     *decoder.Decoder
	framer  rzcobs.Framer
	handle  Handler

	// BufferSize is the read size used by Run
	BufferSize int
}

// NewPump creates a pump for one stream. t may be shared with other pumps.
func NewPump(name string, t *table.Table, framing Framing, handle Handler) *Pump {
	return &Pump{
		name:       name,
		framing:    framing,
		dec:        decoder.New(t),
		handle:     handle,
		BufferSize: DefaultReadBufferSize,
	}
}

// Feed pushes a chunk of stream bytes and emits every frame it completes.
func (p *Pump) Feed(chunk []byte) error {
	if p.framing == FramingRZCOBS {
		return p.feedFramed(chunk)
	}

	p.dec.Received(chunk)
	for {
		f, err := p.dec.Decode()
		if decoder.IsStarved(err) {
			return nil
		}
		if err != nil {
			logging.LogDecodeError(p.name, err, p.dec.Pending())
			metrics.RecordDecodeError(p.name, reason(err))
			return &DecodeError{Source: p.name, Pending: p.dec.Pending(), Err: err}
		}
		if err := p.emit(f); err != nil {
			return err
		}
	}
}

func (p *Pump) feedFramed(chunk []byte) error {
	p.framer.Received(chunk)
	for {
		raw, ok := p.framer.Next()
		if !ok {
			return nil
		}
		msg, err := rzcobs.Decode(raw)
		if err != nil {
			logging.Error("Malformed rzCOBS frame", zap.String("source", p.name), zap.Int("length", len(raw)))
			metrics.RecordDecodeError(p.name, reason(err))
			continue
		}

		// Each frame is self-contained; anything after the decoded frame
		// is zero padding.
		p.dec.Reset()
		p.dec.Received(msg)
		f, err := p.dec.Decode()
		p.dec.Reset()
		if err != nil {
			logging.LogDecodeError(p.name, err, msg)
			metrics.RecordDecodeError(p.name, reason(err))
			continue
		}
		if err := p.emit(f); err != nil {
			return err
		}
	}
}

func (p *Pump) emit(f *decoder.Frame) error {
	metrics.RecordFrame(p.name, f.Level.String())
	return p.handle(f)
}

// Buffered returns the number of bytes held back waiting for the rest of a
// frame.
func (p *Pump) Buffered() int {
	if p.framing == FramingRZCOBS {
		return p.framer.Buffered()
	}
	return p.dec.Buffered()
}

type readResult struct {
	data []byte
	err  error
}

// Run reads src until EOF, a fatal error, or ctx is cancelled. Reads happen
// on their own goroutine so cancellation returns at once even when src cannot
// be closed, as with standard input. Cancelling is not an error.
func (p *Pump) Run(ctx context.Context, src io.Reader) error {
	metrics.StreamOpened()
	defer metrics.StreamClosed()

	size := p.BufferSize
	if size <= 0 {
		size = DefaultReadBufferSize
	}

	stop := make(chan struct{})
	defer close(stop)
	results := make(chan readResult)
	go func() {
		for {
			buf := make([]byte, size)
			n, err := src.Read(buf)
			select {
			case results <- readResult{data: buf[:n], err: err}:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		var r readResult
		select {
		case <-ctx.Done():
			if c, ok := src.(io.Closer); ok {
				_ = c.Close()
			}
			return nil
		case r = <-results:
		}

		if len(r.data) > 0 {
			metrics.RecordBytes(p.name, len(r.data))
			logging.LogRawBytes("Received bytes", r.data)
			if ferr := p.Feed(r.data); ferr != nil {
				return ferr
			}
		}
		if r.err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(r.err, io.EOF) {
				if left := p.Buffered(); left > 0 {
					logging.Warn("Stream ended inside a frame",
						zap.String("source", p.name),
						zap.Int("pending", left),
					)
				}
				return nil
			}
			return fmt.Errorf("failed to read from %s: %w", p.name, r.err)
		}
	}
}

// reason labels an error for metrics.
func reason(err error) string {
	var (
		unknown   *table.UnknownIndexError
		directive *table.MalformedDirectiveError
		value     *decoder.MalformedValueError
	)
	switch {
	case errors.Is(err, rzcobs.ErrCorrupted):
		return "framing"
	case decoder.IsStarved(err):
		return "truncated"
	case errors.As(err, &unknown):
		return "unknown_index"
	case errors.As(err, &directive):
		return "malformed_directive"
	case errors.As(err, &value):
		return "malformed_value"
	}
	return "other"
}
