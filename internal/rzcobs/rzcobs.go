// Package rzcobs implements rzCOBS, the reverse zero-compressing COBS
// framing defmt uses on byte-oriented transports.
//
// Encoded frames never contain a zero byte, so a single 0x00 delimits
// frames on the wire and a receiver can always resynchronize at the next
// delimiter. Encoding runs forward; decoding walks the frame backwards.
//
// Encoded control bytes, as seen by the decoder:
//
//	0x00        invalid inside a frame
//	0x01-0x7f   group of 7 bytes; a set bit (bit 6 first) is a zero,
//	            a clear bit takes the next raw byte
//	0x80-0xfe   a zero followed by (x&0x7f)+7 raw bytes
//	0xff        134 raw bytes with no zero
//
// Decoded frames may carry trailing zero padding from the final group.
package rzcobs

import (
	"errors"
)

// ErrCorrupted means a frame is not valid rzCOBS.
var ErrCorrupted = errors.New("corrupted rzCOBS frame")

const (
	groupLen   = 7
	maxRun     = 134
	runFlag    = 0x80
	fullRunTag = 0xff
)

// Decode decodes one frame, without its 0x00 delimiter.
func Decode(frame []byte) ([]byte, error) {
	out := make([]byte, 0, len(frame)+len(frame)/7+groupLen)
	i := len(frame) - 1
	next := func() (byte, error) {
		if i < 0 {
			return 0, ErrCorrupted
		}
		b := frame[i]
		i--
		return b, nil
	}

	for i >= 0 {
		x, _ := next()
		switch {
		case x == 0:
			return nil, ErrCorrupted
		case x < runFlag:
			for bit := 0; bit < groupLen; bit++ {
				if x&(1<<(groupLen-1-bit)) != 0 {
					out = append(out, 0)
					continue
				}
				b, err := next()
				if err != nil {
					return nil, err
				}
				out = append(out, b)
			}
		case x < fullRunTag:
			out = append(out, 0)
			for n := int(x&^runFlag) + groupLen; n > 0; n-- {
				b, err := next()
				if err != nil {
					return nil, err
				}
				out = append(out, b)
			}
		default:
			for n := maxRun; n > 0; n-- {
				b, err := next()
				if err != nil {
					return nil, err
				}
				out = append(out, b)
			}
		}
	}

	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out, nil
}

// Encode encodes data as one frame, without the trailing 0x00 delimiter.
func Encode(data []byte) []byte {
	out := make([]byte, 0, len(data)+len(data)/7+2)
	var run, zeros byte

	for _, b := range data {
		switch {
		case run < groupLen:
			if b == 0 {
				zeros |= 1 << run
			} else {
				out = append(out, b)
			}
			run++
			if run == groupLen && zeros != 0 {
				out = append(out, zeros)
				run, zeros = 0, 0
			}
		case b == 0:
			out = append(out, (run-groupLen)|runFlag)
			run, zeros = 0, 0
		default:
			out = append(out, b)
			run++
			if run == maxRun {
				out = append(out, fullRunTag)
				run, zeros = 0, 0
			}
		}
	}

	switch {
	case run == 0:
	case run < groupLen:
		// Pad the open group with zeros.
		out = append(out, zeros|(0x7f<<run)&0x7f)
	default:
		out = append(out, (run-groupLen)|runFlag)
	}
	return out
}

// AppendFrame appends the encoding of data and the 0x00 delimiter to dst.
func AppendFrame(dst, data []byte) []byte {
	return append(append(dst, Encode(data)...), 0)
}

// Framer splits a byte stream into 0x00 delimited frames.
type Framer struct {
	buf []byte
}

// Received appends stream bytes.
func (f *Framer) Received(p []byte) {
	f.buf = append(f.buf, p...)
}

// Next returns the next complete encoded frame without its delimiter. Empty
// frames between consecutive delimiters are skipped.
func (f *Framer) Next() ([]byte, bool) {
	for {
		end := -1
		for i, b := range f.buf {
			if b == 0 {
				end = i
				break
			}
		}
		if end < 0 {
			return nil, false
		}
		frame := append([]byte(nil), f.buf[:end]...)
		n := copy(f.buf, f.buf[end+1:])
		f.buf = f.buf[:n]
		if len(frame) > 0 {
			return frame, true
		}
	}
}

// Buffered returns the number of bytes waiting for a delimiter.
func (f *Framer) Buffered() int {
	return len(f.buf)
}
