package protocol

import "fmt"

// MaxDatagramSize is the largest payload a peer accepts.
const MaxDatagramSize = 8000

// ClearPayload is the exact wire literal of a clear command.
const ClearPayload = "clear"

// Kind names a message variant.
type Kind string

const (
	KindSegment Kind = "segment"
	KindClear   Kind = "clear"
)

// Point is one canvas coordinate. Values outside the surface are legal.
type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// RGB is an opaque packed color, 0xAARRGGBB or 0x00RRGGBB.
type RGB uint32

// Opaque returns c with the alpha byte forced to 0xff.
func (c RGB) Opaque() RGB {
	return c | 0xff000000
}

// Components splits c into its red, green and blue bytes.
func (c RGB) Components() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Message is the sum type of everything a peer transmits.
// Only Segment and Clear implement it.
type Message interface {
	Kind() Kind
	isMessage()
}

// Segment is one straight stroke increment.
type Segment struct {
	Start     Point `json:"start"`
	End       Point `json:"end"`
	Color     RGB   `json:"color"`
	Thickness int32 `json:"thickness"`
}

func (Segment) Kind() Kind { return KindSegment }
func (Segment) isMessage() {}

// Validate reports whether s satisfies the segment invariants.
func (s Segment) Validate() error {
	if s.Thickness < 1 {
		return fmt.Errorf("%w: thickness %d < 1", ErrInvalidSegment, s.Thickness)
	}
	return nil
}

// Clear resets the remote canvas to blank.
type Clear struct{}

func (Clear) Kind() Kind { return KindClear }
func (Clear) isMessage() {}
