// Package canvas defines the drawing surface a peer dispatches into, plus
// headless implementations used by the drawsync binary and tests.
package canvas

import "github.com/danmuck/drawsync/internal/protocol"

// MaxUIThickness caps thickness on local input paths. The wire protocol
// does not enforce it.
const MaxUIThickness = 50

// Canvas is the surface inbound messages are applied to.
//
// Remote strokes arrive on the listener goroutine while local input may
// mutate the same surface from another goroutine. Implementations must
// serialize their own state; callers provide no locking.
type Canvas interface {
	ApplyStroke(start, end protocol.Point, color protocol.RGB, thickness int32)
	ResetToBlank()
}

// Apply routes a decoded message to the matching Canvas call.
func Apply(c Canvas, msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.Segment:
		c.ApplyStroke(m.Start, m.End, m.Color, m.Thickness)
	case *protocol.Segment:
		c.ApplyStroke(m.Start, m.End, m.Color, m.Thickness)
	case protocol.Clear, *protocol.Clear:
		c.ResetToBlank()
	}
}

type multi []Canvas

// Multi fans every call out to each non-nil canvas in order.
func Multi(canvases ...Canvas) Canvas {
	out := make(multi, 0, len(canvases))
	for _, c := range canvases {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (m multi) ApplyStroke(start, end protocol.Point, color protocol.RGB, thickness int32) {
	for _, c := range m {
		c.ApplyStroke(start, end, color, thickness)
	}
}

func (m multi) ResetToBlank() {
	for _, c := range m {
		c.ResetToBlank()
	}
}
