package canvas

import (
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/danmuck/drawsync/internal/protocol"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

var blank = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Stats summarizes what a Raster has applied.
type Stats struct {
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Strokes   uint64    `json:"strokes"`
	Clears    uint64    `json:"clears"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Raster is an in-memory RGBA surface. All access goes through one mutex.
type Raster struct {
	mu      sync.Mutex
	img     *image.RGBA
	strokes uint64
	clears  uint64
	updated time.Time
}

var _ Canvas = (*Raster)(nil)

func NewRaster(width, height int) *Raster {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	r := &Raster{img: image.NewRGBA(image.Rect(0, 0, width, height))}
	r.fillLocked(blank)
	return r
}

// ApplyStroke draws a round-capped line. Coordinates outside the surface
// are clipped, never rejected.
func (r *Raster) ApplyStroke(start, end protocol.Point, rgb protocol.RGB, thickness int32) {
	if thickness < 1 {
		thickness = 1
	}
	red, green, blue := rgb.Components()
	c := color.RGBA{R: red, G: green, B: blue, A: 0xff}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.strokeLocked(start, end, c, float64(thickness)/2)
	r.strokes++
	r.updated = time.Now()
}

func (r *Raster) ResetToBlank() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fillLocked(blank)
	r.clears++
	r.updated = time.Now()
}

// Snapshot returns a copy of the surface.
func (r *Raster) Snapshot() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := image.NewRGBA(r.img.Rect)
	copy(out.Pix, r.img.Pix)
	return out
}

// At reads one pixel.
func (r *Raster) At(x, y int) color.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.img.RGBAAt(x, y)
}

func (r *Raster) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.img.Rect
	return Stats{
		Width:     b.Dx(),
		Height:    b.Dy(),
		Strokes:   r.strokes,
		Clears:    r.clears,
		UpdatedAt: r.updated,
	}
}

func (r *Raster) fillLocked(c color.RGBA) {
	pix := r.img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
}

// strokeLocked paints every pixel whose center lies within radius of the
// segment. Work is bounded by the surface size, not the coordinates.
func (r *Raster) strokeLocked(start, end protocol.Point, c color.RGBA, radius float64) {
	if radius < 0.5 {
		radius = 0.5
	}
	x1, y1 := float64(start.X), float64(start.Y)
	x2, y2 := float64(end.X), float64(end.Y)

	loX, hiX := math.Min(x1, x2)-radius, math.Max(x1, x2)+radius
	loY, hiY := math.Min(y1, y2)-radius, math.Max(y1, y2)+radius
	b := r.img.Rect
	if hiX < float64(b.Min.X) || loX > float64(b.Max.X-1) || hiY < float64(b.Min.Y) || loY > float64(b.Max.Y-1) {
		return
	}
	minX := clampInt(math.Floor(loX), b.Min.X, b.Max.X-1)
	maxX := clampInt(math.Ceil(hiX), b.Min.X, b.Max.X-1)
	minY := clampInt(math.Floor(loY), b.Min.Y, b.Max.Y-1)
	maxY := clampInt(math.Ceil(hiY), b.Min.Y, b.Max.Y-1)

	r2 := radius * radius
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if distSqToSegment(float64(x), float64(y), x1, y1, x2, y2) <= r2 {
				r.img.SetRGBA(x, y, c)
			}
		}
	}
}

func distSqToSegment(px, py, x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	lenSq := dx*dx + dy*dy
	t := 0.0
	if lenSq > 0 {
		t = ((px-x1)*dx + (py-y1)*dy) / lenSq
		t = math.Max(0, math.Min(1, t))
	}
	cx, cy := x1+t*dx-px, y1+t*dy-py
	return cx*cx + cy*cy
}

func clampInt(v float64, lo, hi int) int {
	if v < float64(lo) {
		return lo
	}
	if v > float64(hi) {
		return hi
	}
	return int(v)
}
