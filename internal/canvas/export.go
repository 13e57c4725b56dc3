package canvas

import (
	"bytes"
	"fmt"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// WritePNG encodes the current surface.
func (r *Raster) WritePNG(w io.Writer) error {
	return png.Encode(w, r.Snapshot())
}

// WritePDF writes a single page sized to the surface in points with the
// snapshot as its only content.
func (r *Raster) WritePDF(w io.Writer) error {
	snap := r.Snapshot()
	var encoded bytes.Buffer
	if err := png.Encode(&encoded, snap); err != nil {
		return fmt.Errorf("canvas: encode snapshot: %w", err)
	}

	width := float64(snap.Rect.Dx())
	height := float64(snap.Rect.Dy())
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("drawsync canvas", true)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("canvas", opts, &encoded)
	pdf.ImageOptions("canvas", 0, 0, width, height, false, opts, 0, "")
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("canvas: write pdf: %w", err)
	}
	return nil
}
