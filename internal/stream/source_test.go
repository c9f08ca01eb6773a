package stream

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func readN(t *testing.T, r io.Reader, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	done := make(chan error, 1)
	go func() {
		_, err := io.ReadFull(r, buf)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ReadFull() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out reading from source")
	}
	return buf
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	src, err := Open(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	if src.Name() != path {
		t.Errorf("Name() = %q, want %q", src.Name(), path)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Errorf("read %x, want 010203", data)
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{}); err == nil {
		t.Error("Open() of a missing file should fail")
	}
}

func TestOpenStdin(t *testing.T) {
	for _, target := range []string{"", "-"} {
		src, err := Open(context.Background(), target, Options{})
		if err != nil {
			t.Fatalf("Open(%q) error = %v", target, err)
		}
		if src.Name() != "stdin" {
			t.Errorf("Name() = %q, want stdin", src.Name())
		}
		if err := src.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}
}

func TestFollowGrowingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	if err := os.WriteFile(path, []byte{1}, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src, err := Open(ctx, path, Options{Follow: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	if got := readN(t, src, 1); got[0] != 1 {
		t.Fatalf("first byte = %x, want 01", got)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if _, err := f.Write([]byte{2, 3}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	_ = f.Close()

	if got := readN(t, src, 2); !bytes.Equal(got, []byte{2, 3}) {
		t.Errorf("appended bytes = %x, want 0203", got)
	}
}

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte{0x02, 0x02})
	}()

	src, err := Open(context.Background(), "tcp://"+ln.Addr().String(), Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	if !strings.HasPrefix(src.Name(), "tcp://") {
		t.Errorf("Name() = %q", src.Name())
	}
	if got := readN(t, src, 2); !bytes.Equal(got, []byte{0x02, 0x02}) {
		t.Errorf("read %x, want 0202", got)
	}
}

func TestDialWebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{0x00, 0x03})
		_ = conn.WriteMessage(websocket.TextMessage, []byte("ignored"))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{0x02, 'o', 'k'})
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	src, err := Open(context.Background(), url, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(data, itemsFrame) {
		t.Errorf("read %x, want %x", data, itemsFrame)
	}
}
