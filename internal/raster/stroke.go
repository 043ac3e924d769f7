package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// kappa places cubic control points so that a quarter curve approximates a
// circular arc.
const kappa = 0.5522847498

// Pen describes how a path is painted.
type Pen struct {
	Color color.NRGBA
	Size  float64
	Erase bool
}

// Stroker renders one path at a time onto a surface as a sequence of
// round-capped segments, one per pointer sample.
type Stroker struct {
	surface *Surface
	z       *vector.Rasterizer
	cov     *image.Alpha

	pen    Pen
	x, y   float64
	active bool
	moved  bool
}

func NewStroker(s *Surface) *Stroker {
	return &Stroker{
		surface: s,
		z:       vector.NewRasterizer(0, 0),
	}
}

func (k *Stroker) Active() bool {
	return k.active
}

func (k *Stroker) Pen() Pen {
	return k.pen
}

// Start anchors a new path at (x, y). Nothing is painted yet. A non-finite
// anchor leaves no path active.
func (k *Stroker) Start(x, y float64, pen Pen) {
	if !finite(x) || !finite(y) {
		k.Cancel()
		return
	}
	if pen.Size < 1 {
		pen.Size = 1
	}
	pen.Color.A = 255

	k.pen = pen
	k.x, k.y = x, y
	k.active = true
	k.moved = false
}

// Continue paints a segment from the anchor to (x, y) and moves the anchor.
// It reports false when no path is active.
func (k *Stroker) Continue(x, y float64) bool {
	if !k.active || !finite(x) || !finite(y) {
		return false
	}

	k.segment(k.x, k.y, x, y)
	k.x, k.y = x, y
	k.moved = true

	return true
}

// End finishes the path. A path that never moved becomes a dot of the pen's
// diameter. The whole surface is then solidified.
func (k *Stroker) End() bool {
	if !k.active {
		return false
	}

	if !k.moved {
		k.segment(k.x, k.y, k.x, k.y)
	}

	k.active = false
	k.moved = false
	k.surface.Solidify()

	return true
}

// Cancel drops the active path without painting or solidifying.
func (k *Stroker) Cancel() {
	k.active = false
	k.moved = false
}

func (k *Stroker) paint() color.NRGBA {
	if k.pen.Erase {
		return k.surface.Background()
	}
	return k.pen.Color
}

func (k *Stroker) segment(x0, y0, x1, y1 float64) {
	r := k.pen.Size / 2

	box := image.Rect(
		int(math.Floor(math.Min(x0, x1)-r))-1,
		int(math.Floor(math.Min(y0, y1)-r))-1,
		int(math.Ceil(math.Max(x0, x1)+r))+1,
		int(math.Ceil(math.Max(y0, y1)+r))+1,
	).Intersect(k.surface.Bounds())
	if box.Empty() {
		return
	}

	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	k.z.Reset(box.Dx(), box.Dy())
	k.z.DrawOp = draw.Src
	capsule(k.z, x0-ox, y0-oy, x1-ox, y1-oy, r)

	if k.cov == nil || k.cov.Rect.Dx() < box.Dx() || k.cov.Rect.Dy() < box.Dy() {
		k.cov = image.NewAlpha(image.Rect(0, 0, box.Dx(), box.Dy()))
	}
	cov := k.cov.SubImage(image.Rect(0, 0, box.Dx(), box.Dy())).(*image.Alpha)
	k.z.Draw(cov, cov.Rect, image.Opaque, image.Point{})

	c := k.paint()
	for y := 0; y < box.Dy(); y++ {
		for x := 0; x < box.Dx(); x++ {
			a := cov.AlphaAt(x, y).A
			if a == 0 {
				continue
			}
			k.blend(box.Min.X+x, box.Min.Y+y, c, a)
		}
	}
}

// blend composites c at coverage a over the pixel at (x, y) with
// non-premultiplied integer source-over.
func (k *Stroker) blend(x, y int, c color.NRGBA, a uint8) {
	if a == 255 {
		k.surface.set(x, y, c)
		return
	}

	d, _ := k.surface.Pixel(x, y)

	sa := uint32(a)
	da := uint32(d.A) * (255 - sa) / 255
	oa := sa + da
	if oa == 0 {
		return
	}

	mix := func(s, d uint8) uint8 {
		return uint8((uint32(s)*sa + uint32(d)*da + oa/2) / oa)
	}

	k.surface.set(x, y, color.NRGBA{
		R: mix(c.R, d.R),
		G: mix(c.G, d.G),
		B: mix(c.B, d.B),
		A: uint8(oa),
	})
}

// capsule adds a round-capped segment outline of radius r to z. A zero-length
// segment becomes a circle.
func capsule(z *vector.Rasterizer, x0, y0, x1, y1, r float64) {
	dx, dy := x1-x0, y1-y0
	l := math.Hypot(dx, dy)

	if l < 1e-9 {
		ux, uy := 1.0, 0.0
		vx, vy := 0.0, 1.0
		moveTo(z, x1+ux*r, y1+uy*r)
		quarter(z, x1, y1, r, ux, uy, vx, vy)
		quarter(z, x1, y1, r, vx, vy, -ux, -uy)
		quarter(z, x1, y1, r, -ux, -uy, -vx, -vy)
		quarter(z, x1, y1, r, -vx, -vy, ux, uy)
		z.ClosePath()
		return
	}

	ux, uy := dx/l, dy/l
	nx, ny := -uy, ux

	moveTo(z, x0+nx*r, y0+ny*r)
	lineTo(z, x1+nx*r, y1+ny*r)
	quarter(z, x1, y1, r, nx, ny, ux, uy)
	quarter(z, x1, y1, r, ux, uy, -nx, -ny)
	lineTo(z, x0-nx*r, y0-ny*r)
	quarter(z, x0, y0, r, -nx, -ny, -ux, -uy)
	quarter(z, x0, y0, r, -ux, -uy, nx, ny)
	z.ClosePath()
}

// quarter appends a 90 degree arc around (cx, cy) from direction a to
// direction b, which must be orthogonal unit vectors.
func quarter(z *vector.Rasterizer, cx, cy, r, ax, ay, bx, by float64) {
	z.CubeTo(
		float32(cx+r*(ax+kappa*bx)), float32(cy+r*(ay+kappa*by)),
		float32(cx+r*(bx+kappa*ax)), float32(cy+r*(by+kappa*ay)),
		float32(cx+r*bx), float32(cy+r*by),
	)
}

func moveTo(z *vector.Rasterizer, x, y float64) {
	z.MoveTo(float32(x), float32(y))
}

func lineTo(z *vector.Rasterizer, x, y float64) {
	z.LineTo(float32(x), float32(y))
}
