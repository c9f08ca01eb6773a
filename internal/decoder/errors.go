package decoder

import (
	"errors"
	"fmt"

	"github.com/muurk/defmt-print/internal/format"
)

// ErrStarved means the buffer does not yet hold a complete frame. It is the
// normal outcome while waiting on a live stream, not a failure: nothing was
// consumed and the caller should append more bytes and retry.
var ErrStarved = errors.New("not enough bytes to decode a frame")

// MaxNesting is the deepest chain of nested formatted values a frame may carry.
const MaxNesting = 32

// MalformedValueError means a decoded value violates a hard constraint of the
// wire format.
type MalformedValueError struct {
	// Offset is the byte offset of the value within the frame
	Offset int
	// Type is the type being decoded
	Type format.Type
	// Msg describes the violation
	Msg string
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("malformed %s value at offset %d: %s", e.Type, e.Offset, e.Msg)
}

// IsStarved reports whether err means more bytes are needed.
func IsStarved(err error) bool {
	return errors.Is(err, ErrStarved)
}

// IsFatal reports whether err means the current frame cannot be decoded from
// the buffered bytes no matter how many more arrive.
func IsFatal(err error) bool {
	return err != nil && !IsStarved(err)
}
