package stream

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/muurk/defmt-print/internal/logging"
	"go.bug.st/serial"
)

// DefaultBaudRate is used for serial sources when none is configured.
const DefaultBaudRate = 115200

// dialTimeout bounds connection setup for network sources.
const dialTimeout = 10 * time.Second

// readySignal is written to a serial port once it is open, telling the
// target the host is ready for data.
var readySignal = []byte{'c'}

// Source is a stream of defmt bytes.
type Source interface {
	io.ReadCloser
	// Name identifies the source in logs and metrics
	Name() string
}

// Options configure how a source is opened.
type Options struct {
	// Follow keeps reading a file as it grows instead of stopping at EOF
	Follow bool
	// BaudRate for serial ports; 0 means DefaultBaudRate
	BaudRate int
}

// Open opens the source named by target:
//
//	-, ""                    standard input
//	tcp://host:port          TCP client connection
//	ws://..., wss://...      WebSocket, binary messages only
//	serial:///dev/ttyACM0    serial port
//	anything else            a file path
func Open(ctx context.Context, target string, opts Options) (Source, error) {
	switch {
	case target == "" || target == "-":
		return Stdin(), nil
	case strings.HasPrefix(target, "tcp://"):
		return DialTCP(ctx, strings.TrimPrefix(target, "tcp://"))
	case strings.HasPrefix(target, "ws://"), strings.HasPrefix(target, "wss://"):
		return DialWebSocket(ctx, target)
	case strings.HasPrefix(target, "serial://"):
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("invalid serial target %q: %w", target, err)
		}
		port := u.Path
		if u.Host != "" {
			// serial://COM3
			port = u.Host + u.Path
		}
		return OpenSerial(port, opts.BaudRate)
	case opts.Follow:
		return Follow(ctx, target)
	default:
		return OpenFile(target)
	}
}

type readerSource struct {
	io.Reader
	closer io.Closer
	name   string
}

func (s *readerSource) Name() string { return s.name }

func (s *readerSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Stdin reads from standard input. Closing it does not close os.Stdin.
func Stdin() Source {
	return &readerSource{Reader: os.Stdin, name: "stdin"}
}

// NewSource wraps an arbitrary reader.
func NewSource(name string, r io.Reader) Source {
	s := &readerSource{Reader: r, name: name}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenFile reads a capture file once, to EOF.
func OpenFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &readerSource{Reader: f, closer: f, name: path}, nil
}

// DialTCP connects to a TCP endpoint streaming raw defmt bytes, such as a
// debug probe's RTT server.
func DialTCP(ctx context.Context, addr string) (Source, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	logging.LogConnection(addr, "connected")
	return &readerSource{Reader: conn, closer: conn, name: "tcp://" + addr}, nil
}

// OpenSerial opens a serial port, discards stale input and signals the
// target that the host is ready.
func OpenSerial(port string, baudRate int) (Source, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	p, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	if err := p.ResetInputBuffer(); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to clear serial port %s: %w", port, err)
	}
	if _, err := p.Write(readySignal); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to signal target on %s: %w", port, err)
	}
	logging.LogConnection(port, "serial port opened")
	return &readerSource{Reader: p, closer: p, name: "serial://" + port}, nil
}
