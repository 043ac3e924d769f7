package lobby

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// WritePNG encodes a canvas snapshot as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// WritePDF lays a canvas snapshot out on a single page sized to the canvas,
// one point per pixel.
func WritePDF(w io.Writer, img image.Image, title string) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode canvas: %w", err)
	}

	width := float64(img.Bounds().Dx())
	height := float64(img.Bounds().Dy())

	p := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: width, Ht: height},
	})
	p.SetTitle(title, true)
	p.SetCreator("sketchbox", true)
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	p.RegisterImageOptionsReader("canvas", opts, &buf)
	p.ImageOptions("canvas", 0, 0, width, height, false, opts, 0, "")

	if err := p.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}

	return nil
}
