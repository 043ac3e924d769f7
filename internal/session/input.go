package session

import "github.com/Seednode/sketchbox/internal/protocol"

// Input is a local action: pointer, tool or chat.
type Input interface {
	input()
}

type (
	PointerDown  struct{ X, Y float64 }
	PointerMove  struct{ X, Y float64 }
	PointerUp    struct{}
	PointerLeave struct{}

	SelectTool  struct{ Tool protocol.Tool }
	SelectColor struct{ Color protocol.Color }
	SelectSize  struct{ Size int }

	PressUndo  struct{}
	PressClear struct{}

	SendChat struct{ Text string }
)

func (PointerDown) input()  {}
func (PointerMove) input()  {}
func (PointerUp) input()    {}
func (PointerLeave) input() {}
func (SelectTool) input()   {}
func (SelectColor) input()  {}
func (SelectSize) input()   {}
func (PressUndo) input()    {}
func (PressClear) input()   {}
func (SendChat) input()     {}

// drawInput reports whether in mutates the surface and so needs drawing
// rights.
func drawInput(in Input) bool {
	switch in.(type) {
	case PointerDown, PointerMove, PointerUp, PointerLeave, PressUndo, PressClear:
		return true
	}
	return false
}
