package raster

import (
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pixel(t *testing.T, s *Surface, x, y int) color.NRGBA {
	t.Helper()

	c, ok := s.Pixel(x, y)
	require.True(t, ok)

	return c
}

func TestFloodFillWholeSurface(t *testing.T) {
	s := NewSurface(100, 100, White)

	require.True(t, FloodFill(s, 50, 50, black))

	for y := range 100 {
		for x := range 100 {
			if c := pixel(t, s, x, y); c != black {
				t.Fatalf("pixel (%d,%d) = %v, want black", x, y, c)
			}
		}
	}
}

func TestFloodFillIsIdempotent(t *testing.T) {
	s := NewSurface(40, 40, White)
	require.True(t, FloodFill(s, 5, 5, red))
	first := s.Snapshot()

	assert.False(t, FloodFill(s, 5, 5, red))

	if d := cmp.Diff(first, s.Snapshot()); d != "" {
		t.Errorf("second fill changed the surface (-want +got):\n%s", d)
	}
}

func TestFloodFillNoopWithinTolerance(t *testing.T) {
	s := NewSurface(10, 10, White)

	assert.False(t, FloodFill(s, 1, 1, color.NRGBA{R: 254, G: 255, B: 254, A: 255}))
	assert.False(t, WouldFill(s, 1, 1, White))
	assert.True(t, WouldFill(s, 1, 1, red))
}

func TestFloodFillOutsideSurface(t *testing.T) {
	s := NewSurface(10, 10, White)
	before := s.Snapshot()

	assert.False(t, FloodFill(s, -1, 3, red))
	assert.False(t, FloodFill(s, 3, 10, red))
	assert.Equal(t, before, s.Snapshot())
}

func TestFloodFillStaysInsideClosedBoundary(t *testing.T) {
	s := NewSurface(60, 60, White)
	for i := 20; i <= 40; i++ {
		s.set(i, 20, black)
		s.set(i, 40, black)
		s.set(20, i, black)
		s.set(40, i, black)
	}

	require.True(t, FloodFill(s, 30, 30, red))

	assert.Equal(t, red, pixel(t, s, 21, 21))
	assert.Equal(t, red, pixel(t, s, 39, 39))
	assert.Equal(t, black, pixel(t, s, 20, 30))
	assert.Equal(t, black, pixel(t, s, 40, 30))
	assert.Equal(t, White, pixel(t, s, 19, 30))
	assert.Equal(t, White, pixel(t, s, 0, 0))
	assert.Equal(t, White, pixel(t, s, 59, 59))
}

func TestFloodFillDilatesOverFringeOnce(t *testing.T) {
	s := NewSurface(30, 10, White)
	fringe := color.NRGBA{R: 235, G: 235, B: 235, A: 255}
	for y := range 10 {
		s.set(15, y, fringe)
		s.set(16, y, black)
	}

	mask := FillMask(s, 2, 2, red)
	require.NotNil(t, mask)

	assert.True(t, mask[5*30+15], "fringe column joins the region")
	assert.False(t, mask[5*30+16], "boundary column stays out")
	assert.False(t, mask[5*30+20], "far side stays out")

	PaintMask(s, mask, red)
	assert.Equal(t, red, pixel(t, s, 15, 5))
	assert.Equal(t, black, pixel(t, s, 16, 5))
	assert.Equal(t, White, pixel(t, s, 17, 5))
}

func TestFillMaskIsDeterministic(t *testing.T) {
	s := NewSurface(50, 50, White)
	for i := range 50 {
		s.set(i, 49-i, black)
	}

	a := FillMask(s, 1, 1, red)
	b := FillMask(s, 1, 1, red)

	require.NotNil(t, a)
	assert.Equal(t, a, b)
}

func TestFloodFillPaintsOpaque(t *testing.T) {
	s := NewSurface(10, 10, color.NRGBA{})

	require.True(t, FloodFill(s, 4, 4, color.NRGBA{B: 200, A: 10}))
	assert.Equal(t, color.NRGBA{B: 200, A: 255}, pixel(t, s, 9, 9))
}
