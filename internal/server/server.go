package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/muurk/defmt-print/internal/decoder"
	"github.com/muurk/defmt-print/internal/discovery"
	"github.com/muurk/defmt-print/internal/logging"
	"github.com/muurk/defmt-print/internal/stream"
	"github.com/muurk/defmt-print/internal/table"
	"go.uber.org/zap"
)

// shutdownTimeout bounds how long Shutdown waits for connections to drain.
const shutdownTimeout = 10 * time.Second

// Config holds the listener configuration
type Config struct {
	Host    string
	Port    int
	Framing stream.Framing
	// Instance, if set, is advertised over mDNS as a _defmt._tcp service
	Instance string
}

// Handler receives every frame decoded on any connection, tagged with the
// remote address it came from. Calls are serialized.
type Handler func(source string, f *decoder.Frame) error

// Server accepts TCP connections carrying defmt streams. Every connection
// gets its own decoder; all of them share one table.
type Server struct {
	config      *Config
	table       *table.Table
	handle      Handler
	listener    net.Listener
	advert      *discovery.Advertisement
	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]net.Conn
	outMu       sync.Mutex
}

// New creates a new Server instance
func New(config *Config, t *table.Table, handle Handler) (*Server, error) {
	if t == nil {
		return nil, errors.New("server needs a symbol table")
	}
	if handle == nil {
		return nil, errors.New("server needs a frame handler")
	}
	if config.Framing == "" {
		config.Framing = stream.FramingRaw
	}
	if _, err := stream.ParseFraming(string(config.Framing)); err != nil {
		return nil, err
	}
	if config.Port < 0 || config.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", config.Port)
	}
	return &Server{
		config:      config,
		table:       t,
		handle:      handle,
		activeConns: make(map[string]net.Conn),
	}, nil
}

// Listen binds the listening socket. Serve calls it if needed.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled, then shuts down.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	logging.Info("Listening for defmt streams",
		zap.String("addr", s.listener.Addr().String()),
		zap.String("framing", string(s.config.Framing)),
	)

	if s.config.Instance != "" {
		port := s.listener.Addr().(*net.TCPAddr).Port
		advert, err := discovery.Advertise(s.config.Instance, port, map[string]string{
			discovery.TxtFraming: string(s.config.Framing),
			discovery.TxtVersion: s.table.Version(),
		})
		if err != nil {
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			s.mu.Lock()
			s.advert = advert
			s.mu.Unlock()
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.acceptConnections(ctx)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Stopping listener")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// acceptConnections accepts and handles incoming connections
func (s *Server) acceptConnections(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// handleConnection decodes one connection until it closes or fails.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "connection_closed")
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")

	pump := stream.NewPump(remoteAddr, s.table, s.config.Framing, func(f *decoder.Frame) error {
		s.outMu.Lock()
		defer s.outMu.Unlock()
		return s.handle(remoteAddr, f)
	})
	if err := pump.Run(ctx, conn); err != nil {
		var decErr *stream.DecodeError
		if errors.As(err, &decErr) {
			logging.Warn("Dropping connection after decode failure",
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
			return
		}
		logging.Error("Stream error",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
	}
}

// Shutdown stops accepting connections, closes the open ones and waits for
// their decoders to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	advert := s.advert
	s.advert = nil
	s.mu.Unlock()
	advert.Shutdown()

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Debug("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Debug("All connections closed")
	case <-ctx.Done():
		logging.Warn("Shutdown cancelled, forcing close")
	case <-time.After(shutdownTimeout):
		logging.Warn("Shutdown timeout, forcing close", zap.Duration("timeout", shutdownTimeout))
	}
	return nil
}

// ActiveConnections returns the number of open connections
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}
