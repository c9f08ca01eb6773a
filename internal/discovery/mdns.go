package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/defmt-print/internal/logging"
	"go.uber.org/zap"
)

const (
	// ServiceType is the mDNS service type for defmt streams
	ServiceType = "_defmt._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for endpoint discovery
	DefaultScanTimeout = 5 * time.Second

	// TXT record keys
	TxtFraming = "framing"
	TxtVersion = "version"
	TxtELF     = "elf"
)

// Scanner browses the local network for defmt endpoints.
type Scanner struct {
	// Timeout is the maximum time to wait for endpoints
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan collects every endpoint that answers before the timeout.
func (s *Scanner) Scan(ctx context.Context) ([]*Endpoint, error) {
	var (
		mu        sync.Mutex
		endpoints []*Endpoint
	)
	err := s.browse(ctx, func(e *Endpoint) bool {
		mu.Lock()
		endpoints = append(endpoints, e)
		mu.Unlock()
		return true
	})
	if err != nil {
		return nil, err
	}
	mu.Lock()
	defer mu.Unlock()
	return endpoints, nil
}

// Find waits for the endpoint with the given instance name.
func (s *Scanner) Find(ctx context.Context, instance string) (*Endpoint, error) {
	var found *Endpoint
	err := s.browse(ctx, func(e *Endpoint) bool {
		if e.Instance != instance {
			return true
		}
		found = e
		return false
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("defmt endpoint %q not found within %s", instance, s.Timeout)
	}
	return found, nil
}

// browse feeds parsed endpoints to visit until the timeout expires or visit
// returns false.
func (s *Scanner) browse(ctx context.Context, visit func(*Endpoint) bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				e := parseServiceEntry(entry)
				if e == nil {
					continue
				}
				logging.Debug("Discovered defmt endpoint", zap.Stringer("endpoint", e))
				if !visit(e) {
					cancel()
					return
				}
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		cancel()
		<-done
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done
	return nil
}

// parseServiceEntry converts a zeroconf service entry to an Endpoint.
// Returns nil if the entry has no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Endpoint {
	if entry == nil || entry.Port == 0 {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	metadata := make(map[string]string, len(entry.Text))
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		if key != "" {
			metadata[key] = value
		}
	}

	return &Endpoint{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Advertisement is a registered mDNS service. Shutdown withdraws it.
type Advertisement struct {
	server *zeroconf.Server
}

// Advertise announces a defmt stream listening on port.
func Advertise(instance string, port int, metadata map[string]string) (*Advertisement, error) {
	txt := make([]string, 0, len(metadata))
	for k, v := range metadata {
		txt = append(txt, k+"="+v)
	}
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	logging.Info("Advertising defmt endpoint",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertisement) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}
