package stream

import (
	"context"
	"fmt"
	"io"

	"github.com/gorilla/websocket"
	"github.com/muurk/defmt-print/internal/logging"
	"go.uber.org/zap"
)

// wsSource concatenates the binary messages of a WebSocket connection into
// one byte stream. Text messages are ignored.
type wsSource struct {
	conn *websocket.Conn
	r    io.Reader
	url  string
}

// DialWebSocket connects to a WebSocket endpoint that relays defmt bytes in
// binary messages.
func DialWebSocket(ctx context.Context, url string) (Source, error) {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = dialTimeout
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to %s (HTTP %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	logging.LogConnection(url, "websocket connected")
	return &wsSource{conn: conn, url: url}, nil
}

func (s *wsSource) Name() string { return s.url }

func (s *wsSource) Read(p []byte) (int, error) {
	for {
		if s.r == nil {
			mt, r, err := s.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if mt != websocket.BinaryMessage {
				logging.Debug("Ignoring non-binary WebSocket message", zap.Int("type", mt))
				continue
			}
			s.r = r
		}
		n, err := s.r.Read(p)
		if err == io.EOF {
			s.r = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (s *wsSource) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteMessage(websocket.CloseMessage, msg)
	return s.conn.Close()
}
