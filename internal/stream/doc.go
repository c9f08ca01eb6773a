// Package stream connects byte sources to the defmt decoder.
//
// A Source is anything that yields defmt bytes: standard input, a capture
// file (optionally followed as it grows), a TCP connection, a WebSocket
// relay or a serial port. A Pump owns one decoder.Decoder per stream and
// turns the bytes it reads into frames.
//
// # Framing
//
// Raw streams carry frames back to back. rzCOBS streams wrap each frame in
// rzCOBS and terminate it with 0x00, which lets the pump skip a corrupt
// frame and carry on at the next delimiter.
//
// # Usage Example
//
//	src, err := stream.Open(ctx, "serial:///dev/ttyACM0", stream.Options{BaudRate: 115200})
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
//	pump := stream.NewPump(src.Name(), tbl, stream.FramingRZCOBS, func(f *decoder.Frame) error {
//	    fmt.Println(f.Message)
//	    return nil
//	})
//	return pump.Run(ctx, src)
package stream
