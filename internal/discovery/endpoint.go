package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Endpoint is a defmt stream advertised on the local network, typically a
// debug probe relay or another defmt-print instance running with --listen.
type Endpoint struct {
	// Instance is the mDNS instance name (e.g., "nrf52-bench")
	Instance string

	// Hostname is the mDNS hostname (e.g., "probe-01.local.")
	Hostname string

	// IP is the address to connect to, IPv4 preferred
	IP string

	// Port is the TCP port of the stream
	Port int

	// Metadata contains the TXT records, e.g. "framing=rzcobs"
	Metadata map[string]string

	// DiscoveredAt is when the endpoint was seen
	DiscoveredAt time.Time
}

func (e *Endpoint) String() string {
	return fmt.Sprintf("%s (%s) at %s", e.Instance, e.Hostname, e.Address())
}

// Address returns host:port, bracketing IPv6 addresses.
func (e *Endpoint) Address() string {
	return net.JoinHostPort(e.IP, strconv.Itoa(e.Port))
}

// Target returns the stream target understood by stream.Open.
func (e *Endpoint) Target() string {
	return "tcp://" + e.Address()
}

// Framing returns the advertised framing, or "" if the endpoint did not say.
func (e *Endpoint) Framing() string {
	return e.GetMetadata(TxtFraming)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (e *Endpoint) GetMetadata(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}
