package protocol

import (
	"fmt"
	"math"
)

// DrawEvent is one of StartPath, DrawPoint, EndPath, Fill, Undo or Clear.
type DrawEvent interface {
	Message
	drawEvent()
}

type StartPath struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  int     `json:"size"`
	Color Color   `json:"color"`
	Tool  Tool    `json:"tool"`
}

type DrawPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type EndPath struct{}

type Fill struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color Color   `json:"color"`
}

type Undo struct{}

type Clear struct{}

func (StartPath) MessageType() string { return TypeStartPath }
func (DrawPoint) MessageType() string { return TypeDraw }
func (EndPath) MessageType() string   { return TypeEndPath }
func (Fill) MessageType() string      { return TypeFill }
func (Undo) MessageType() string      { return TypeUndo }
func (Clear) MessageType() string     { return TypeClear }

func (StartPath) drawEvent() {}
func (DrawPoint) drawEvent() {}
func (EndPath) drawEvent()   {}
func (Fill) drawEvent()      {}
func (Undo) drawEvent()      {}
func (Clear) drawEvent()     {}

// IsDrawType reports whether typ names a drawing event.
func IsDrawType(typ string) bool {
	switch typ {
	case TypeStartPath, TypeDraw, TypeEndPath, TypeFill, TypeUndo, TypeClear:
		return true
	}
	return false
}

// drawFields is the union of drawing payload fields. Pointers tell a missing
// field apart from a zero one.
type drawFields struct {
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	Size  *int     `json:"size"`
	Color *Color   `json:"color"`
	Tool  Tool     `json:"tool"`
}

func (d drawFields) point(typ string) (float64, float64, error) {
	if d.X == nil || d.Y == nil {
		return 0, 0, fmt.Errorf("%w: %s: missing point", ErrMalformed, typ)
	}
	if !finite(*d.X, *d.Y) {
		return 0, 0, fmt.Errorf("%w: %s: point", ErrMalformed, typ)
	}
	return *d.X, *d.Y, nil
}

func (d drawFields) color(typ string) (Color, error) {
	if d.Color == nil {
		return Color{}, fmt.Errorf("%w: %s: missing color", ErrMalformed, typ)
	}
	return *d.Color, nil
}

// DecodeDrawEvent extracts the drawing event carried by env. Every field an
// event needs must be present; only the startPath tool defaults to brush.
func DecodeDrawEvent(env Envelope) (DrawEvent, error) {
	switch env.Type {
	case TypeEndPath:
		return EndPath{}, nil
	case TypeUndo:
		return Undo{}, nil
	case TypeClear:
		return Clear{}, nil
	case TypeStartPath, TypeDraw, TypeFill:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	var d drawFields
	if err := env.Into(&d); err != nil {
		return nil, err
	}

	x, y, err := d.point(env.Type)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case TypeStartPath:
		c, err := d.color(env.Type)
		if err != nil {
			return nil, err
		}
		if d.Size == nil || *d.Size <= 0 {
			return nil, fmt.Errorf("%w: startPath: size", ErrMalformed)
		}
		tool := d.Tool
		if tool == "" {
			tool = ToolBrush
		}
		if !tool.Valid() {
			return nil, fmt.Errorf("%w: tool %q", ErrMalformed, tool)
		}
		return StartPath{X: x, Y: y, Size: *d.Size, Color: c, Tool: tool}, nil

	case TypeFill:
		c, err := d.color(env.Type)
		if err != nil {
			return nil, err
		}
		return Fill{X: x, Y: y, Color: c}, nil
	}

	return DrawPoint{X: x, Y: y}, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
