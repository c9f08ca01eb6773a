package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/grandcat/zeroconf"
)

func serviceEntry(instance, host string, port int) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	e.HostName = host
	e.Port = port
	return e
}

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    func() *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
	}{
		{
			name: "IPv4 endpoint",
			entry: func() *zeroconf.ServiceEntry {
				e := serviceEntry("bench", "probe-01.local.", 19021)
				e.AddrIPv4 = []net.IP{net.ParseIP("192.168.4.16")}
				return e
			},
			wantIP:   "192.168.4.16",
			wantPort: 19021,
		},
		{
			name: "IPv6 only endpoint",
			entry: func() *zeroconf.ServiceEntry {
				e := serviceEntry("bench", "probe-01.local.", 19021)
				e.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}
				return e
			},
			wantIP:   "fe80::1",
			wantPort: 19021,
		},
		{
			name: "prefers IPv4",
			entry: func() *zeroconf.ServiceEntry {
				e := serviceEntry("bench", "probe-01.local.", 19021)
				e.AddrIPv4 = []net.IP{net.ParseIP("10.0.0.5")}
				e.AddrIPv6 = []net.IP{net.ParseIP("fe80::2")}
				return e
			},
			wantIP:   "10.0.0.5",
			wantPort: 19021,
		},
		{
			name: "no address",
			entry: func() *zeroconf.ServiceEntry {
				return serviceEntry("bench", "probe-01.local.", 19021)
			},
			wantNil: true,
		},
		{
			name: "no port",
			entry: func() *zeroconf.ServiceEntry {
				e := serviceEntry("bench", "probe-01.local.", 0)
				e.AddrIPv4 = []net.IP{net.ParseIP("10.0.0.5")}
				return e
			},
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   func() *zeroconf.ServiceEntry { return nil },
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := tt.entry()
			ep := parseServiceEntry(entry)

			if tt.wantNil {
				if ep != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", ep)
				}
				return
			}
			if ep == nil {
				t.Fatal("parseServiceEntry() = nil, want endpoint")
			}
			if ep.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", ep.IP, tt.wantIP)
			}
			if ep.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", ep.Port, tt.wantPort)
			}
			if ep.Instance != entry.Instance {
				t.Errorf("Instance = %v, want %v", ep.Instance, entry.Instance)
			}
			if time.Since(ep.DiscoveredAt) > time.Second {
				t.Errorf("DiscoveredAt is not recent: %v", ep.DiscoveredAt)
			}
		})
	}
}

func TestParseServiceEntryMetadata(t *testing.T) {
	e := serviceEntry("bench", "probe-01.local.", 19021)
	e.AddrIPv4 = []net.IP{net.ParseIP("192.168.4.16")}
	e.Text = []string{"framing=rzcobs", "version=0.3.0", "flag", "elf=fw=v2.elf", "=orphan"}

	ep := parseServiceEntry(e)
	if ep == nil {
		t.Fatal("parseServiceEntry() = nil, want endpoint")
	}

	want := map[string]string{
		"framing": "rzcobs",
		"version": "0.3.0",
		"flag":    "",
		"elf":     "fw=v2.elf",
	}
	if diff := cmp.Diff(want, ep.Metadata); diff != "" {
		t.Errorf("Metadata mismatch (-want +got):\n%s", diff)
	}
	if ep.Framing() != "rzcobs" {
		t.Errorf("Framing() = %q, want rzcobs", ep.Framing())
	}
}

func TestEndpointAddress(t *testing.T) {
	tests := []struct {
		name       string
		endpoint   *Endpoint
		wantTarget string
	}{
		{
			name:       "IPv4",
			endpoint:   &Endpoint{IP: "192.168.4.16", Port: 19021},
			wantTarget: "tcp://192.168.4.16:19021",
		},
		{
			name:       "IPv6",
			endpoint:   &Endpoint{IP: "fe80::1", Port: 19021},
			wantTarget: "tcp://[fe80::1]:19021",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.endpoint.Target(); got != tt.wantTarget {
				t.Errorf("Target() = %q, want %q", got, tt.wantTarget)
			}
		})
	}
}

func TestEndpointString(t *testing.T) {
	ep := &Endpoint{Instance: "bench", Hostname: "probe-01.local.", IP: "10.0.0.5", Port: 19021}
	want := "bench (probe-01.local.) at 10.0.0.5:19021"
	if ep.String() != want {
		t.Errorf("String() = %q, want %q", ep.String(), want)
	}
}

func TestGetMetadataNil(t *testing.T) {
	ep := &Endpoint{}
	if got := ep.GetMetadata(TxtFraming); got != "" {
		t.Errorf("GetMetadata() = %q, want empty", got)
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

func TestAdvertisementShutdownNil(t *testing.T) {
	var a *Advertisement
	a.Shutdown()
}
