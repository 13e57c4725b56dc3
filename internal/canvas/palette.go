package canvas

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/drawsync/internal/protocol"
	"github.com/lucasb-eyer/go-colorful"
)

var ErrUnknownColor = errors.New("canvas: unknown color")

// Named colors offered by the local toolbar. Values match the classic AWT
// constants so strokes look the same on either kind of peer.
var palette = map[string]protocol.RGB{
	"black":     0xff000000,
	"white":     0xffffffff,
	"red":       0xffff0000,
	"orange":    0xffffc800,
	"yellow":    0xffffff00,
	"green":     0xff00ff00,
	"cyan":      0xff00ffff,
	"blue":      0xff0000ff,
	"magenta":   0xffff00ff,
	"pink":      0xffffafaf,
	"gray":      0xff808080,
	"lightgray": 0xffc0c0c0,
	"darkgray":  0xff404040,
}

var aliases = map[string]string{
	"eraser":     "white",
	"grey":       "gray",
	"light_gray": "lightgray",
	"dark_gray":  "darkgray",
}

// LookupColor resolves a toolbar color name, case-insensitively.
func LookupColor(name string) (protocol.RGB, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	rgb, ok := palette[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownColor, name)
	}
	return rgb, nil
}

// ParseColor accepts a palette name or a #rrggbb / #rgb hex string.
func ParseColor(raw string) (protocol.RGB, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "#") {
		return LookupColor(raw)
	}
	c, err := colorful.Hex(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownColor, raw)
	}
	r, g, b := c.RGB255()
	return protocol.RGB(0xff000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)), nil
}

// Hex formats the color bytes of rgb as #rrggbb, ignoring alpha.
func Hex(rgb protocol.RGB) string {
	r, g, b := rgb.Components()
	return colorful.Color{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
	}.Hex()
}

// ColorNames lists the palette in stable order.
func ColorNames() []string {
	names := make([]string, 0, len(palette))
	for name := range palette {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
