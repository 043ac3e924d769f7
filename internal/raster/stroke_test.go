package raster

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func near(t *testing.T, want, got color.NRGBA) {
	t.Helper()
	assert.True(t, ColorsMatch(want, got, 2), "want %v, got %v", want, got)
}

func assertSolid(t *testing.T, s *Surface) {
	t.Helper()

	pix := s.Snapshot()
	for i := 3; i < len(pix); i += 4 {
		if pix[i] != 0 && pix[i] != 255 {
			t.Fatalf("pixel %d has partial alpha %d", i/4, pix[i])
		}
	}
}

func TestStrokeSegmentPaintsLine(t *testing.T) {
	s := NewSurface(100, 100, White)
	k := NewStroker(s)

	k.Start(10, 50, Pen{Color: red, Size: 4})
	require.True(t, k.Continue(90, 50))
	require.True(t, k.End())

	near(t, red, pixel(t, s, 50, 49))
	near(t, red, pixel(t, s, 50, 50))
	assert.Equal(t, White, pixel(t, s, 50, 40))
	assert.Equal(t, White, pixel(t, s, 95, 50))
	assert.False(t, k.Active())
}

func TestStrokeClickDrawsDot(t *testing.T) {
	s := NewSurface(100, 100, White)
	k := NewStroker(s)

	k.Start(50, 50, Pen{Color: black, Size: 10})
	require.True(t, k.End())

	near(t, black, pixel(t, s, 50, 50))
	near(t, black, pixel(t, s, 47, 50))
	assert.Equal(t, White, pixel(t, s, 50, 57))
	assert.Equal(t, White, pixel(t, s, 42, 50))
}

func TestZeroLengthSegmentMatchesClick(t *testing.T) {
	a := NewSurface(40, 40, White)
	b := NewSurface(40, 40, White)
	pen := Pen{Color: red, Size: 8}

	ka := NewStroker(a)
	ka.Start(20, 20, pen)
	ka.End()

	kb := NewStroker(b)
	kb.Start(20, 20, pen)
	kb.Continue(20, 20)
	kb.End()

	assert.Equal(t, a.Snapshot(), b.Snapshot())
}

func TestStrokeSolidifiesOnEnd(t *testing.T) {
	s := NewSurface(64, 64, color.NRGBA{})
	k := NewStroker(s)

	k.Start(5.3, 7.9, Pen{Color: red, Size: 5})
	k.Continue(40.1, 33.7)
	k.Continue(60.5, 2.2)
	k.End()

	assertSolid(t, s)

	c := pixel(t, s, 0, 63)
	assert.Equal(t, uint8(0), c.A)
}

func TestEraserPaintsBackground(t *testing.T) {
	s := NewSurface(50, 50, White)
	require.True(t, FloodFill(s, 0, 0, black))

	k := NewStroker(s)
	k.Start(10, 25, Pen{Color: red, Size: 6, Erase: true})
	k.Continue(40, 25)
	k.End()

	near(t, White, pixel(t, s, 25, 25))
	assert.Equal(t, black, pixel(t, s, 25, 10))
}

func TestStrokeOffSurfaceIsClamped(t *testing.T) {
	s := NewSurface(20, 20, White)
	before := s.Snapshot()
	k := NewStroker(s)

	k.Start(-100, -100, Pen{Color: red, Size: 4})
	k.Continue(-50, -80)
	k.End()

	assert.Equal(t, before, s.Snapshot())
}

func TestContinueWithoutStartIsIgnored(t *testing.T) {
	s := NewSurface(20, 20, White)
	k := NewStroker(s)

	assert.False(t, k.Continue(5, 5))
	assert.False(t, k.End())
}
