package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestFrameRoundTrip(t *testing.T) {
	frames := []Frame{
		{Seq: 1, From: "p1", Event: StartPath{X: 10.25, Y: -3, Size: 8, Color: Color{R: 1, G: 2, B: 3}, Tool: ToolFill}},
		{Seq: 2, From: "p1", Event: DrawPoint{X: 640, Y: 480}},
		{Seq: 3, Event: EndPath{}},
		{Event: Fill{X: 1, Y: 2, Color: Color{B: 255}}},
		{Seq: 9, From: "p2", Event: Undo{}},
		{Seq: 10, From: "p2", Event: Clear{}},
	}

	for _, f := range frames {
		b, err := AppendFrame(nil, f)
		require.NoError(t, err)

		got, err := DecodeFrame(b)
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
}

func TestFrameEnvelopeConversion(t *testing.T) {
	f := Frame{Seq: 5, From: "abc", Event: Fill{X: 3, Y: 4, Color: Color{R: 9}}}

	env, err := f.Envelope()
	require.NoError(t, err)
	assert.Equal(t, TypeFill, env.Type)

	back, err := FrameOf(env)
	require.NoError(t, err)
	assert.Equal(t, f, back)
}

func TestDecodeFrameSkipsUnknownFields(t *testing.T) {
	b, err := AppendFrame(nil, Frame{Event: DrawPoint{X: 1, Y: 2}})
	require.NoError(t, err)

	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "future")

	got, err := DecodeFrame(b)
	require.NoError(t, err)
	assert.Equal(t, DrawPoint{X: 1, Y: 2}, got.Event)
}

func TestDecodeFrameRejectsGarbage(t *testing.T) {
	_, err := DecodeFrame([]byte{0xff})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeFrame(nil)
	assert.ErrorIs(t, err, ErrUnknownType)

	b := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, kindStartPath)
	_, err = DecodeFrame(b)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeFrameRequiresFields(t *testing.T) {
	frame := func(kind uint64, fields ...protowire.Number) []byte {
		b := protowire.AppendTag(nil, fieldKind, protowire.VarintType)
		b = protowire.AppendVarint(b, kind)
		for _, num := range fields {
			switch num {
			case fieldX, fieldY:
				b = protowire.AppendTag(b, num, protowire.Fixed64Type)
				b = protowire.AppendFixed64(b, 0)
			default:
				b = protowire.AppendTag(b, num, protowire.VarintType)
				b = protowire.AppendVarint(b, 1)
			}
		}
		return b
	}

	_, err := DecodeFrame(frame(kindDraw))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeFrame(frame(kindDraw, fieldX))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeFrame(frame(kindFill, fieldX, fieldY))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeFrame(frame(kindStartPath, fieldX, fieldY, fieldColor))
	assert.ErrorIs(t, err, ErrMalformed)

	got, err := DecodeFrame(frame(kindFill, fieldX, fieldY, fieldColor))
	require.NoError(t, err)
	assert.Equal(t, Fill{Color: Color{B: 1}}, got.Event)

	got, err = DecodeFrame(frame(kindStartPath, fieldX, fieldY, fieldSize, fieldColor))
	require.NoError(t, err)
	assert.Equal(t, StartPath{Size: 1, Color: Color{B: 1}, Tool: ToolBrush}, got.Event)

	// A known field number with the wrong wire type does not count.
	b := frame(kindDraw, fieldY)
	b = protowire.AppendTag(b, fieldX, protowire.BytesType)
	b = protowire.AppendString(b, "x")
	_, err = DecodeFrame(b)
	assert.ErrorIs(t, err, ErrMalformed)
}
