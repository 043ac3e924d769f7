// Package drawing translates between local drawing actions and wire events.
//
// Every local action mutates the surface and emits exactly one event; Apply
// runs the same primitives for events received from the wire. Fed the same
// ordered events, two channels over equally sized surfaces converge to
// identical pixels.
package drawing

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Seednode/sketchbox/internal/protocol"
	"github.com/Seednode/sketchbox/internal/raster"
)

// Emitter sends one outgoing envelope.
type Emitter interface {
	Emit(env protocol.Envelope) error
}

type EmitterFunc func(env protocol.Envelope) error

func (f EmitterFunc) Emit(env protocol.Envelope) error {
	return f(env)
}

// State is the local tool selection.
type State struct {
	Tool  protocol.Tool
	Color protocol.Color
	Size  int
}

// DefaultState is a small black brush.
var DefaultState = State{Tool: protocol.ToolBrush, Size: 5}

type Channel struct {
	surface *raster.Surface
	history *raster.History
	local   *raster.Stroker
	remote  *raster.Stroker

	state   State
	emitter Emitter
	seq     protocol.Sequencer

	log zerolog.Logger
}

// New binds a channel to s. A nil emitter makes the channel apply-only.
func New(s *raster.Surface, emitter Emitter, log zerolog.Logger) *Channel {
	return &Channel{
		surface: s,
		history: raster.NewHistory(),
		local:   raster.NewStroker(s),
		remote:  raster.NewStroker(s),
		state:   DefaultState,
		emitter: emitter,
		log:     log,
	}
}

func (c *Channel) Surface() *raster.Surface {
	return c.surface
}

func (c *Channel) History() *raster.History {
	return c.history
}

func (c *Channel) State() State {
	return c.state
}

func (c *Channel) SetTool(t protocol.Tool) {
	if t.Valid() {
		c.state.Tool = t
	}
}

func (c *Channel) SetColor(col protocol.Color) {
	c.state.Color = col
}

func (c *Channel) SetSize(size int) {
	if size > 0 {
		c.state.Size = size
	}
}

// Drawing reports whether a local path is in progress.
func (c *Channel) Drawing() bool {
	return c.local.Active()
}

func (c *Channel) emit(ev protocol.DrawEvent) error {
	if c.emitter == nil {
		return nil
	}

	env, err := protocol.Wrap(ev)
	if err != nil {
		return err
	}
	env.Seq = c.seq.Next()

	if err := c.emitter.Emit(env); err != nil {
		return fmt.Errorf("emit %s: %w", env.Type, err)
	}

	return nil
}

func pen(size int, col protocol.Color, tool protocol.Tool) raster.Pen {
	return raster.Pen{
		Color: col.NRGBA(),
		Size:  float64(size),
		Erase: tool == protocol.ToolEraser,
	}
}

// StartPath begins a local path at (x, y), or runs a fill there when the fill
// tool is selected. A non-finite point is ignored.
func (c *Channel) StartPath(x, y float64) error {
	if c.state.Tool == protocol.ToolFill {
		return c.Fill(x, y)
	}

	c.local.Start(x, y, pen(c.state.Size, c.state.Color, c.state.Tool))
	if !c.local.Active() {
		return nil
	}
	c.history.Push(c.surface)

	return c.emit(protocol.StartPath{
		X:     x,
		Y:     y,
		Size:  c.state.Size,
		Color: c.state.Color,
		Tool:  c.state.Tool,
	})
}

// MoveTo extends the active local path. Without one it does nothing.
func (c *Channel) MoveTo(x, y float64) error {
	if !c.local.Continue(x, y) {
		return nil
	}

	return c.emit(protocol.DrawPoint{X: x, Y: y})
}

// EndPath finishes the active local path. Without one it does nothing.
func (c *Channel) EndPath() error {
	if !c.local.End() {
		return nil
	}

	return c.emit(protocol.EndPath{})
}

// Fill bucket-fills at (x, y) with the current color. A fill that would
// change nothing records no history and emits nothing.
func (c *Channel) Fill(x, y float64) error {
	col := c.state.Color.NRGBA()
	if !raster.WouldFill(c.surface, x, y, col) {
		return nil
	}

	c.history.Push(c.surface)
	raster.FloodFill(c.surface, x, y, col)

	return c.emit(protocol.Fill{X: x, Y: y, Color: c.state.Color})
}

// Undo restores the previous snapshot, if any, and always emits an undo.
func (c *Channel) Undo() error {
	c.local.Cancel()
	c.history.Undo(c.surface)

	return c.emit(protocol.Undo{})
}

// Clear wipes the surface after recording a snapshot, so it can be undone.
func (c *Channel) Clear() error {
	c.local.Cancel()
	c.history.Push(c.surface)
	c.surface.Clear()

	return c.emit(protocol.Clear{})
}

// Apply runs a received event against the local surface.
func (c *Channel) Apply(ev protocol.DrawEvent) {
	switch ev := ev.(type) {
	case protocol.StartPath:
		c.history.Push(c.surface)
		c.remote.Start(ev.X, ev.Y, pen(ev.Size, ev.Color, ev.Tool))

	case protocol.DrawPoint:
		if !c.remote.Continue(ev.X, ev.Y) {
			c.log.Debug().Msg("draw without an open path")
		}

	case protocol.EndPath:
		c.remote.End()

	case protocol.Fill:
		col := ev.Color.NRGBA()
		if !raster.WouldFill(c.surface, ev.X, ev.Y, col) {
			return
		}
		c.history.Push(c.surface)
		raster.FloodFill(c.surface, ev.X, ev.Y, col)

	case protocol.Undo:
		c.remote.Cancel()
		c.history.Undo(c.surface)

	case protocol.Clear:
		c.remote.Cancel()
		c.history.Push(c.surface)
		c.surface.Clear()

	default:
		c.log.Warn().Str("type", fmt.Sprintf("%T", ev)).Msg("dropping unsupported drawing event")
	}
}

// ResetHistory forgets every snapshot, as happens at round boundaries.
func (c *Channel) ResetHistory() {
	c.history.Reset()
}

// ResetSequence restarts outgoing sequence numbers at 1.
func (c *Channel) ResetSequence() {
	c.seq.Reset()
}

// Reset cancels open paths and forgets history and sequencing, leaving the
// pixels alone.
func (c *Channel) Reset() {
	c.local.Cancel()
	c.remote.Cancel()
	c.ResetHistory()
	c.ResetSequence()
}
