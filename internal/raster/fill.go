package raster

import (
	"image/color"
	"math"
)

const (
	// fillNoopTolerance treats a fill onto (almost) the same color as a no-op.
	fillNoopTolerance = 1
	// fillRegionTolerance admits pixels into the flood region.
	fillRegionTolerance = 10
	// fillLeakTolerance flags near-matching pixels just outside the region,
	// usually the anti-aliased fringe of a stroke.
	fillLeakTolerance = 20
)

// ColorsMatch reports whether every RGBA channel of a and b differs by at most
// tolerance.
func ColorsMatch(a, b color.NRGBA, tolerance int) bool {
	return absDiff(a.R, b.R) <= tolerance &&
		absDiff(a.G, b.G) <= tolerance &&
		absDiff(a.B, b.B) <= tolerance &&
		absDiff(a.A, b.A) <= tolerance
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// FillMask computes the set of pixels a bucket fill at (x, y) with color c
// would paint, as a row-major w*h slice. It returns nil when the fill would
// change nothing: the seed is off the surface, or the seed color already
// matches c.
//
// The mask depends only on the surface contents and the seed, never on
// traversal order.
func FillMask(s *Surface, x, y int, c color.NRGBA) []bool {
	target, ok := s.Pixel(x, y)
	if !ok {
		return nil
	}

	paint := c
	paint.A = 255
	if ColorsMatch(paint, target, fillNoopTolerance) {
		return nil
	}

	w, h := s.Width(), s.Height()
	mask := make([]bool, w*h)

	// 4-connected growth. A pixel is marked only once it matches, so the
	// region never includes its own border.
	stack := []int{y*w + x}
	mask[y*w+x] = true

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		px, py := i%w, i/w
		for _, n := range [4][2]int{{px - 1, py}, {px + 1, py}, {px, py - 1}, {px, py + 1}} {
			nx, ny := n[0], n[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}

			ni := ny*w + nx
			if mask[ni] {
				continue
			}

			nc, _ := s.Pixel(nx, ny)
			if !ColorsMatch(nc, target, fillRegionTolerance) {
				continue
			}

			mask[ni] = true
			stack = append(stack, ni)
		}
	}

	if leaks(s, mask, target) {
		mask = dilate(mask, w, h)
	}

	return mask
}

// leaks reports whether any 8-neighbor just outside the mask is close enough
// to the target color to be left-over fringe.
func leaks(s *Surface, mask []bool, target color.NRGBA) bool {
	w, h := s.Width(), s.Height()

	for y := range h {
		for x := range w {
			if !mask[y*w+x] {
				continue
			}

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h || mask[ny*w+nx] {
						continue
					}

					nc, _ := s.Pixel(nx, ny)
					if ColorsMatch(nc, target, fillLeakTolerance) {
						return true
					}
				}
			}
		}
	}

	return false
}

// dilate grows the mask by exactly one 8-connected ring.
func dilate(mask []bool, w, h int) []bool {
	out := make([]bool, len(mask))
	copy(out, mask)

	for y := range h {
		for x := range w {
			if !mask[y*w+x] {
				continue
			}

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					out[ny*w+nx] = true
				}
			}
		}
	}

	return out
}

// PaintMask paints every masked pixel with c at full opacity in a single pass.
func PaintMask(s *Surface, mask []bool, c color.NRGBA) {
	w := s.Width()
	c.A = 255

	for i, m := range mask {
		if m {
			s.set(i%w, i/w, c)
		}
	}
}

// FloodFill runs a bucket fill at (x, y) and reports whether it took effect.
// Fractional seeds are floored.
func FloodFill(s *Surface, x, y float64, c color.NRGBA) bool {
	if !finite(x) || !finite(y) {
		return false
	}

	mask := FillMask(s, int(math.Floor(x)), int(math.Floor(y)), c)
	if mask == nil {
		return false
	}

	PaintMask(s, mask, c)

	return true
}

// WouldFill reports whether FloodFill at (x, y) with c would change the
// surface, without touching it.
func WouldFill(s *Surface, x, y float64, c color.NRGBA) bool {
	if !finite(x) || !finite(y) {
		return false
	}

	target, ok := s.Pixel(int(math.Floor(x)), int(math.Floor(y)))
	if !ok {
		return false
	}

	c.A = 255

	return !ColorsMatch(c, target, fillNoopTolerance)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && math.Abs(v) < 1<<30
}
