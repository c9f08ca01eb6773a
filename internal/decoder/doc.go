// Package decoder turns defmt wire bytes into log frames.
//
// A frame on the wire is the LEB128 table index of its format string,
// followed by the timestamp arguments (when the firmware declares a timestamp
// format and the entry is a log statement), followed by the entry's own
// arguments in slot order. The table supplies every width; nothing on the
// wire describes itself.
//
// # Streaming
//
// A Decoder owns the bytes of one stream. Bytes may arrive in chunks of any
// size, including one at a time:
//
//	dec := decoder.New(tbl)
//	for chunk := range chunks {
//	    dec.Received(chunk)
//	    for {
//	        frame, err := dec.Decode()
//	        if decoder.IsStarved(err) {
//	            break
//	        }
//	        if err != nil {
//	            return err // or Discard/Reset and carry on
//	        }
//	        fmt.Println(frame.Message)
//	    }
//	}
//
// A Decode call either consumes exactly one frame or consumes nothing.
// ErrStarved means more bytes are needed; any other error means the buffered
// bytes cannot form a frame, and the caller decides how to resynchronize.
//
// # Values
//
// Decoded arguments are Values: Uint, Int, Float32, Float64, Bool, Char, Str,
// Bytes, Nested and Bitfield. Render turns a format and its values back into
// text and is safe to call repeatedly on the same frame.
package decoder
