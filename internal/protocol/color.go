package protocol

import (
	"encoding/json"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Color is an opaque RGB color. On the wire it is a "#rrggbb" string; CSS
// color names, "#rgb" and "rgb(r, g, b)" are accepted on input.
type Color struct {
	R, G, B uint8
}

func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch {
	case strings.HasPrefix(s, "#"):
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			break
		}

		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			break
		}

		return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil

	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		parts := strings.Split(s[4:len(s)-1], ",")
		if len(parts) != 3 {
			break
		}

		var ch [3]uint8
		for i, p := range parts {
			v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
			if err != nil {
				return Color{}, fmt.Errorf("%w: color %q", ErrMalformed, s)
			}
			ch[i] = uint8(v)
		}

		return Color{R: ch[0], G: ch[1], B: ch[2]}, nil

	default:
		if named, ok := colornames.Map[s]; ok {
			return Color{R: named.R, G: named.G, B: named.B}, nil
		}
	}

	return Color{}, fmt.Errorf("%w: color %q", ErrMalformed, s)
}

func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: color: %v", ErrMalformed, err)
	}

	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed

	return nil
}

// Tool selects what a pointer press does.
type Tool string

const (
	ToolBrush  Tool = "brush"
	ToolEraser Tool = "eraser"
	ToolFill   Tool = "fill"
)

func (t Tool) Valid() bool {
	switch t {
	case ToolBrush, ToolEraser, ToolFill:
		return true
	}
	return false
}
