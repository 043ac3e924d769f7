package protocol

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Binary drawing frames are hand-rolled protobuf messages, so the hot path of
// a stroke never goes through JSON:
//
//	1 kind  varint
//	2 seq   varint
//	3 from  bytes
//	4 x     fixed64 (float64 bits)
//	5 y     fixed64 (float64 bits)
//	6 size  varint
//	7 color varint (0xRRGGBB)
//	8 tool  varint
const (
	fieldKind  protowire.Number = 1
	fieldSeq   protowire.Number = 2
	fieldFrom  protowire.Number = 3
	fieldX     protowire.Number = 4
	fieldY     protowire.Number = 5
	fieldSize  protowire.Number = 6
	fieldColor protowire.Number = 7
	fieldTool  protowire.Number = 8
)

const (
	kindStartPath uint64 = iota + 1
	kindDraw
	kindEndPath
	kindFill
	kindUndo
	kindClear
)

var tools = []Tool{ToolBrush, ToolEraser, ToolFill}

// Frame is a drawing event together with its envelope metadata.
type Frame struct {
	Seq   uint64
	From  string
	Event DrawEvent
}

// FrameOf extracts a frame from a drawing envelope.
func FrameOf(env Envelope) (Frame, error) {
	ev, err := DecodeDrawEvent(env)
	if err != nil {
		return Frame{}, err
	}

	return Frame{Seq: env.Seq, From: env.From, Event: ev}, nil
}

// Envelope converts the frame back to its JSON envelope form.
func (f Frame) Envelope() (Envelope, error) {
	env, err := Wrap(f.Event)
	if err != nil {
		return Envelope{}, err
	}
	env.Seq = f.Seq
	env.From = f.From

	return env, nil
}

func appendPoint(b []byte, x, y float64) []byte {
	b = protowire.AppendTag(b, fieldX, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(x))
	b = protowire.AppendTag(b, fieldY, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(y))
	return b
}

func appendColor(b []byte, c Color) []byte {
	b = protowire.AppendTag(b, fieldColor, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(c.R)<<16|uint64(c.G)<<8|uint64(c.B))
}

// AppendFrame appends the binary encoding of f to b.
func AppendFrame(b []byte, f Frame) ([]byte, error) {
	var kind uint64
	switch f.Event.(type) {
	case StartPath:
		kind = kindStartPath
	case DrawPoint:
		kind = kindDraw
	case EndPath:
		kind = kindEndPath
	case Fill:
		kind = kindFill
	case Undo:
		kind = kindUndo
	case Clear:
		kind = kindClear
	default:
		return b, fmt.Errorf("%w: %T", ErrUnknownType, f.Event)
	}

	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, kind)

	if f.Seq != 0 {
		b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
		b = protowire.AppendVarint(b, f.Seq)
	}
	if f.From != "" {
		b = protowire.AppendTag(b, fieldFrom, protowire.BytesType)
		b = protowire.AppendString(b, f.From)
	}

	switch ev := f.Event.(type) {
	case StartPath:
		b = appendPoint(b, ev.X, ev.Y)
		b = protowire.AppendTag(b, fieldSize, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(max(ev.Size, 0)))
		b = appendColor(b, ev.Color)

		tool := uint64(0)
		for i, t := range tools {
			if t == ev.Tool {
				tool = uint64(i)
			}
		}
		b = protowire.AppendTag(b, fieldTool, protowire.VarintType)
		b = protowire.AppendVarint(b, tool)
	case DrawPoint:
		b = appendPoint(b, ev.X, ev.Y)
	case Fill:
		b = appendPoint(b, ev.X, ev.Y)
		b = appendColor(b, ev.Color)
	}

	return b, nil
}

// DecodeFrame parses a binary drawing frame. Unknown fields are skipped.
func DecodeFrame(b []byte) (Frame, error) {
	var (
		f                 Frame
		kind, size, color uint64
		tool              uint64
		x, y              float64
		seen              uint16
	)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Frame{}, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		known := true
		switch {
		case num == fieldKind && typ == protowire.VarintType:
			kind, n = protowire.ConsumeVarint(b)
		case num == fieldSeq && typ == protowire.VarintType:
			f.Seq, n = protowire.ConsumeVarint(b)
		case num == fieldFrom && typ == protowire.BytesType:
			f.From, n = protowire.ConsumeString(b)
		case num == fieldX && typ == protowire.Fixed64Type:
			var v uint64
			v, n = protowire.ConsumeFixed64(b)
			x = math.Float64frombits(v)
		case num == fieldY && typ == protowire.Fixed64Type:
			var v uint64
			v, n = protowire.ConsumeFixed64(b)
			y = math.Float64frombits(v)
		case num == fieldSize && typ == protowire.VarintType:
			size, n = protowire.ConsumeVarint(b)
		case num == fieldColor && typ == protowire.VarintType:
			color, n = protowire.ConsumeVarint(b)
		case num == fieldTool && typ == protowire.VarintType:
			tool, n = protowire.ConsumeVarint(b)
		default:
			known = false
			n = protowire.ConsumeFieldValue(num, typ, b)
		}

		if n < 0 {
			return Frame{}, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		if known {
			seen |= 1 << num
		}
	}

	has := func(nums ...protowire.Number) bool {
		for _, num := range nums {
			if seen&(1<<num) == 0 {
				return false
			}
		}
		return true
	}

	c := Color{R: uint8(color >> 16), G: uint8(color >> 8), B: uint8(color)}

	switch kind {
	case kindStartPath:
		if !has(fieldX, fieldY, fieldSize, fieldColor) {
			return Frame{}, fmt.Errorf("%w: startPath: missing field", ErrMalformed)
		}
		if tool >= uint64(len(tools)) {
			return Frame{}, fmt.Errorf("%w: tool %d", ErrMalformed, tool)
		}
		if size == 0 || size > math.MaxInt32 {
			return Frame{}, fmt.Errorf("%w: size %d", ErrMalformed, size)
		}
		f.Event = StartPath{X: x, Y: y, Size: int(size), Color: c, Tool: tools[tool]}
	case kindDraw:
		if !has(fieldX, fieldY) {
			return Frame{}, fmt.Errorf("%w: draw: missing point", ErrMalformed)
		}
		f.Event = DrawPoint{X: x, Y: y}
	case kindEndPath:
		f.Event = EndPath{}
	case kindFill:
		if !has(fieldX, fieldY, fieldColor) {
			return Frame{}, fmt.Errorf("%w: fill: missing field", ErrMalformed)
		}
		f.Event = Fill{X: x, Y: y, Color: c}
	case kindUndo:
		f.Event = Undo{}
	case kindClear:
		f.Event = Clear{}
	default:
		return Frame{}, fmt.Errorf("%w: kind %d", ErrUnknownType, kind)
	}

	if !finite(x, y) {
		return Frame{}, fmt.Errorf("%w: point", ErrMalformed)
	}

	return f, nil
}
