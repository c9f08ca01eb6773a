// Package discovery finds and announces defmt streams on the local network
// over mDNS.
//
// Endpoints advertise the "_defmt._tcp" service type. TXT records carry
// optional hints: "framing" (raw or rzcobs), "version" (the defmt wire
// format version) and "elf" (the firmware image the stream belongs to).
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	endpoints, err := scanner.Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, ep := range endpoints {
//	    fmt.Println(ep.Instance, ep.Target(), ep.Framing())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Endpoints must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
