// Package server accepts defmt streams over TCP.
//
// Each accepted connection is decoded by its own stream.Pump, so a corrupt
// or truncated stream on one connection never disturbs another. All
// connections share a single read-only table.Table. Decoded frames from
// every connection are handed to one Handler, one call at a time, so output
// lines never interleave.
//
// The listener can advertise itself over mDNS (see package discovery) so
// that other hosts find it with "defmt-print scan".
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{Port: 19021, Framing: stream.FramingRZCOBS}, tbl,
//	    func(source string, f *decoder.Frame) error {
//	        fmt.Println(source, f.Message)
//	        return nil
//	    })
//	if err != nil {
//	    return err
//	}
//	return srv.Serve(ctx)
package server
