// Package raster holds the pixel-level drawing primitives shared by every
// participant: the surface itself, bucket fill, brush strokes and undo
// snapshots. All operations are deterministic, so two surfaces fed the same
// operations end up byte-identical.
package raster

import (
	"hash/fnv"
	"image"
	"image/color"
)

// White is the default surface background.
var White = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Surface is a fixed-size grid of non-premultiplied RGBA pixels.
//
// Coordinates outside the grid are clamped away: reads yield transparent
// pixels and writes are silently dropped.
type Surface struct {
	img *image.NRGBA
	bg  color.NRGBA
}

func NewSurface(width, height int, bg color.NRGBA) *Surface {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	s := &Surface{
		img: image.NewNRGBA(image.Rect(0, 0, width, height)),
		bg:  bg,
	}
	s.Clear()

	return s
}

func (s *Surface) Width() int {
	return s.img.Rect.Dx()
}

func (s *Surface) Height() int {
	return s.img.Rect.Dy()
}

func (s *Surface) Bounds() image.Rectangle {
	return s.img.Rect
}

func (s *Surface) Background() color.NRGBA {
	return s.bg
}

// Image exposes the backing image for encoders. Callers must not hold on to it
// across mutations.
func (s *Surface) Image() *image.NRGBA {
	return s.img
}

func (s *Surface) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.img.Rect.Dx() && y < s.img.Rect.Dy()
}

// Pixel returns the color at (x, y) and whether the point lies on the surface.
func (s *Surface) Pixel(x, y int) (color.NRGBA, bool) {
	if !s.inBounds(x, y) {
		return color.NRGBA{}, false
	}

	i := s.img.PixOffset(x, y)
	p := s.img.Pix[i : i+4 : i+4]

	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}, true
}

func (s *Surface) set(x, y int, c color.NRGBA) {
	i := s.img.PixOffset(x, y)
	p := s.img.Pix[i : i+4 : i+4]
	p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
}

// PixelRegion copies a w*h block starting at (x, y) into a new RGBA buffer of
// w*h*4 bytes. Pixels of the block that fall outside the surface read as zero.
func (s *Surface) PixelRegion(x, y, w, h int) []uint8 {
	if w <= 0 || h <= 0 {
		return nil
	}

	buf := make([]uint8, w*h*4)

	r := image.Rect(x, y, x+w, y+h).Intersect(s.img.Rect)
	for py := r.Min.Y; py < r.Max.Y; py++ {
		src := s.img.PixOffset(r.Min.X, py)
		dst := ((py-y)*w + (r.Min.X - x)) * 4
		copy(buf[dst:dst+r.Dx()*4], s.img.Pix[src:src+r.Dx()*4])
	}

	return buf
}

// SetPixelRegion writes a w*h RGBA block at (x, y). The part of the block that
// falls outside the surface is ignored, as is a buffer shorter than w*h*4.
func (s *Surface) SetPixelRegion(x, y, w, h int, buf []uint8) {
	if w <= 0 || h <= 0 || len(buf) < w*h*4 {
		return
	}

	r := image.Rect(x, y, x+w, y+h).Intersect(s.img.Rect)
	for py := r.Min.Y; py < r.Max.Y; py++ {
		dst := s.img.PixOffset(r.Min.X, py)
		src := ((py-y)*w + (r.Min.X - x)) * 4
		copy(s.img.Pix[dst:dst+r.Dx()*4], buf[src:src+r.Dx()*4])
	}
}

// Clear resets every pixel to the background color. History is untouched.
func (s *Surface) Clear() {
	pix := s.img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = s.bg.R, s.bg.G, s.bg.B, s.bg.A
	}
}

// Solidify forces every partially transparent pixel fully opaque, leaving
// only alpha 0 or 255 on the surface.
func (s *Surface) Solidify() {
	pix := s.img.Pix
	for i := 3; i < len(pix); i += 4 {
		if pix[i] != 0 {
			pix[i] = 255
		}
	}
}

// Snapshot returns a copy of the whole pixel buffer.
func (s *Surface) Snapshot() []uint8 {
	out := make([]uint8, len(s.img.Pix))
	copy(out, s.img.Pix)

	return out
}

// Restore overwrites the surface with a buffer taken by Snapshot. Buffers of
// the wrong size are rejected.
func (s *Surface) Restore(pix []uint8) bool {
	if len(pix) != len(s.img.Pix) {
		return false
	}

	copy(s.img.Pix, pix)

	return true
}

// Checksum is an FNV-1a digest of the pixel buffer, used to compare surfaces
// across participants.
func (s *Surface) Checksum() uint64 {
	h := fnv.New64a()
	_, _ = h.Write(s.img.Pix)

	return h.Sum64()
}
