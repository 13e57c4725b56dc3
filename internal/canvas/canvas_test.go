package canvas

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"math"
	"sync"
	"testing"

	"github.com/danmuck/drawsync/internal/protocol"
	"github.com/danmuck/drawsync/internal/testutil/testlog"
)

var (
	black = color.RGBA{A: 0xff}
	red   = color.RGBA{R: 0xff, A: 0xff}
)

func TestRasterStartsBlank(t *testing.T) {
	testlog.Start(t)
	r := NewRaster(20, 10)
	if got := r.At(5, 5); got != blank {
		t.Fatalf("expected blank pixel, got %+v", got)
	}
	stats := r.Stats()
	if stats.Width != 20 || stats.Height != 10 || stats.Strokes != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRasterDefaultsSize(t *testing.T) {
	testlog.Start(t)
	stats := NewRaster(0, -1).Stats()
	if stats.Width != DefaultWidth || stats.Height != DefaultHeight {
		t.Fatalf("unexpected default size: %+v", stats)
	}
}

func TestRasterApplyStrokePaintsLine(t *testing.T) {
	testlog.Start(t)
	r := NewRaster(50, 50)
	r.ApplyStroke(protocol.Point{X: 5, Y: 10}, protocol.Point{X: 40, Y: 10}, 0xffff0000, 1)

	for x := 5; x <= 40; x++ {
		if got := r.At(x, 10); got != red {
			t.Fatalf("pixel (%d,10) = %+v, want red", x, got)
		}
	}
	if got := r.At(5, 12); got != blank {
		t.Fatalf("thin stroke bled to (5,12): %+v", got)
	}
	if got := r.At(45, 10); got != blank {
		t.Fatalf("stroke overshot end: %+v", got)
	}
	if r.Stats().Strokes != 1 {
		t.Fatalf("expected stroke count 1")
	}
}

func TestRasterThicknessWidensStroke(t *testing.T) {
	testlog.Start(t)
	r := NewRaster(50, 50)
	r.ApplyStroke(protocol.Point{X: 10, Y: 25}, protocol.Point{X: 40, Y: 25}, 0xff000000, 10)
	if got := r.At(20, 29); got != black {
		t.Fatalf("expected thick stroke to cover (20,29), got %+v", got)
	}
	if got := r.At(20, 31); got != blank {
		t.Fatalf("stroke too wide at (20,31): %+v", got)
	}
}

func TestRasterIgnoresAlphaByte(t *testing.T) {
	testlog.Start(t)
	r := NewRaster(10, 10)
	r.ApplyStroke(protocol.Point{X: 2, Y: 2}, protocol.Point{X: 2, Y: 2}, 0x00ff0000, 1)
	if got := r.At(2, 2); got != red {
		t.Fatalf("expected opaque red, got %+v", got)
	}
}

func TestRasterClipsOutOfBoundsCoordinates(t *testing.T) {
	testlog.Start(t)
	r := NewRaster(30, 30)
	r.ApplyStroke(
		protocol.Point{X: math.MinInt32, Y: 15},
		protocol.Point{X: math.MaxInt32, Y: 15},
		0xff000000,
		math.MaxInt32,
	)
	if got := r.At(0, 0); got != black {
		t.Fatalf("huge stroke should cover the surface, got %+v", got)
	}

	r.ResetToBlank()
	r.ApplyStroke(protocol.Point{X: -100, Y: -100}, protocol.Point{X: -50, Y: -50}, 0xff000000, 3)
	if got := r.At(0, 0); got != blank {
		t.Fatalf("off-surface stroke must not paint, got %+v", got)
	}
	if r.Stats().Strokes != 2 {
		t.Fatalf("clipped strokes still count as applied")
	}
}

func TestRasterResetToBlank(t *testing.T) {
	testlog.Start(t)
	r := NewRaster(10, 10)
	r.ApplyStroke(protocol.Point{X: 0, Y: 0}, protocol.Point{X: 9, Y: 9}, 0xff000000, 3)
	r.ResetToBlank()
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if got := r.At(x, y); got != blank {
				t.Fatalf("pixel (%d,%d) not blank after reset: %+v", x, y, got)
			}
		}
	}
	if r.Stats().Clears != 1 {
		t.Fatalf("expected clear count 1")
	}
}

func TestRasterConcurrentMutation(t *testing.T) {
	testlog.Start(t)
	r := NewRaster(100, 100)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if i%10 == 0 {
					r.ResetToBlank()
					continue
				}
				r.ApplyStroke(protocol.Point{X: int32(g), Y: int32(i)}, protocol.Point{X: 99, Y: int32(i)}, 0xff0000ff, 2)
				_ = r.Snapshot()
			}
		}(g)
	}
	wg.Wait()
	stats := r.Stats()
	if stats.Strokes+stats.Clears != 200 {
		t.Fatalf("lost updates: %+v", stats)
	}
}

func TestApplyAndMulti(t *testing.T) {
	testlog.Start(t)
	a := NewRaster(10, 10)
	b := NewRaster(10, 10)
	m := Multi(a, nil, b)

	Apply(m, protocol.Segment{Start: protocol.Point{X: 1, Y: 1}, End: protocol.Point{X: 1, Y: 1}, Color: 0xffff0000, Thickness: 1})
	if a.At(1, 1) != red || b.At(1, 1) != red {
		t.Fatalf("segment not fanned out")
	}
	Apply(m, protocol.Clear{})
	if a.Stats().Clears != 1 || b.Stats().Clears != 1 {
		t.Fatalf("clear not fanned out")
	}
}

func TestLookupColor(t *testing.T) {
	testlog.Start(t)
	cases := map[string]protocol.RGB{
		"Black":   0xff000000,
		"red":     0xffff0000,
		"ORANGE":  0xffffc800,
		"pink":    0xffffafaf,
		"Eraser":  0xffffffff,
		" cyan ":  0xff00ffff,
		"magenta": 0xffff00ff,
	}
	for name, want := range cases {
		got, err := LookupColor(name)
		if err != nil || got != want {
			t.Fatalf("LookupColor(%q) = %#x,%v want %#x", name, got, err, want)
		}
	}
	if _, err := LookupColor("chartreuse"); !errors.Is(err, ErrUnknownColor) {
		t.Fatalf("expected ErrUnknownColor, got %v", err)
	}
	if len(ColorNames()) != len(palette) {
		t.Fatalf("ColorNames length mismatch")
	}
}

func TestParseColorAndHex(t *testing.T) {
	testlog.Start(t)
	got, err := ParseColor("#1a2b3c")
	if err != nil {
		t.Fatalf("parse hex: %v", err)
	}
	if got != 0xff1a2b3c {
		t.Fatalf("unexpected rgb: %#x", got)
	}
	if Hex(got) != "#1a2b3c" {
		t.Fatalf("unexpected hex: %q", Hex(got))
	}
	if Hex(0xff0000ff) != "#0000ff" {
		t.Fatalf("unexpected blue hex: %q", Hex(0xff0000ff))
	}
	named, err := ParseColor("blue")
	if err != nil || named != 0xff0000ff {
		t.Fatalf("parse named: %#x %v", named, err)
	}
	if _, err := ParseColor("#zzzzzz"); !errors.Is(err, ErrUnknownColor) {
		t.Fatalf("expected ErrUnknownColor, got %v", err)
	}
}

func TestRasterExports(t *testing.T) {
	testlog.Start(t)
	r := NewRaster(40, 30)
	r.ApplyStroke(protocol.Point{X: 0, Y: 0}, protocol.Point{X: 39, Y: 29}, 0xff00ff00, 4)

	var pngBuf bytes.Buffer
	if err := r.WritePNG(&pngBuf); err != nil {
		t.Fatalf("write png: %v", err)
	}
	img, err := png.Decode(&pngBuf)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Fatalf("unexpected png bounds: %v", b)
	}

	var pdfBuf bytes.Buffer
	if err := r.WritePDF(&pdfBuf); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	if !bytes.HasPrefix(pdfBuf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a pdf (%d bytes)", pdfBuf.Len())
	}
}
