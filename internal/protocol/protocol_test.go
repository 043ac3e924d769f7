package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
	}{
		{"#ff0000", Color{R: 255}},
		{"#0F0", Color{G: 255}},
		{"  rgb(1, 2, 3) ", Color{R: 1, G: 2, B: 3}},
		{"black", Color{}},
		{"CornflowerBlue", Color{R: 100, G: 149, B: 237}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "#12", "#gggggg", "rgb(1,2)", "rgb(1,2,300)", "notacolor"} {
		_, err := ParseColor(bad)
		assert.ErrorIs(t, err, ErrMalformed, bad)
	}
}

func TestColorJSON(t *testing.T) {
	raw, err := json.Marshal(Color{R: 0x12, G: 0xab, B: 0x03})
	require.NoError(t, err)
	assert.JSONEq(t, `"#12ab03"`, string(raw))

	var c Color
	require.NoError(t, json.Unmarshal([]byte(`"red"`), &c))
	assert.Equal(t, Color{R: 255}, c)
}

func TestDecodeDrawEvent(t *testing.T) {
	env, err := Parse([]byte(`{"type":"startPath","seq":4,"data":{"x":1.5,"y":2,"size":6,"color":"#00ff00","tool":"eraser"}}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), env.Seq)

	ev, err := DecodeDrawEvent(env)
	require.NoError(t, err)
	assert.Equal(t, StartPath{X: 1.5, Y: 2, Size: 6, Color: Color{G: 255}, Tool: ToolEraser}, ev)

	ev, err = DecodeDrawEvent(Envelope{Type: TypeEndPath})
	require.NoError(t, err)
	assert.Equal(t, EndPath{}, ev)
}

func TestDecodeDrawEventRejectsBadInput(t *testing.T) {
	_, err := DecodeDrawEvent(Envelope{Type: "sparkle"})
	assert.ErrorIs(t, err, ErrUnknownType)

	bad := []struct {
		typ  string
		data string
	}{
		{TypeStartPath, `{"x":1,"y":1,"size":3,"color":"#000000","tool":"laser"}`},
		{TypeStartPath, `{"x":1,"y":1,"size":0,"color":"#000000"}`},
		{TypeStartPath, `{"size":5,"color":"#000000"}`},
		{TypeStartPath, `{"x":1,"y":1,"color":"#000000"}`},
		{TypeStartPath, `{"x":1,"y":1,"size":5}`},
		{TypeDraw, `{"x":"left"}`},
		{TypeDraw, `{}`},
		{TypeDraw, `{"x":2}`},
		{TypeDraw, `null`},
		{TypeFill, `{"x":3,"y":4}`},
		{TypeFill, `{"y":4,"color":"#ff0000"}`},
	}

	for _, tt := range bad {
		ev, err := DecodeDrawEvent(Envelope{Type: tt.typ, Data: []byte(tt.data)})
		assert.ErrorIs(t, err, ErrMalformed, "%s %s", tt.typ, tt.data)
		assert.Nil(t, ev, "%s %s", tt.typ, tt.data)
	}
}

func TestDecodeDrawEventKeepsZeroValues(t *testing.T) {
	ev, err := DecodeDrawEvent(Envelope{Type: TypeFill, Data: []byte(`{"x":0,"y":0,"color":"#000000"}`)})
	require.NoError(t, err)
	assert.Equal(t, Fill{}, ev)

	ev, err = DecodeDrawEvent(Envelope{Type: TypeStartPath, Data: []byte(`{"x":0,"y":0,"size":1,"color":"#000000"}`)})
	require.NoError(t, err)
	assert.Equal(t, StartPath{Size: 1, Tool: ToolBrush}, ev)
}

func TestParseRejectsMissingType(t *testing.T) {
	_, err := Parse([]byte(`{"data":{}}`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Parse([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestGuesserPromptCarriesOnlyLength(t *testing.T) {
	env := MustWrap(RoundPrompt{Role: RoleGuesser, Length: 5})

	var fields map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &fields))

	assert.Equal(t, map[string]any{"role": "guesser", "length": float64(5)}, fields)
}

func TestEmptyPlayerListEncodesAsArray(t *testing.T) {
	env := MustWrap(PlayerList(nil))
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestRoundStartedStart(t *testing.T) {
	at := time.Unix(1700000000, 250_000_000)
	rs := RoundStarted{StartTime: UnixSeconds(at)}

	assert.WithinDuration(t, at, rs.Start(), time.Millisecond)
}

func TestJoinValidate(t *testing.T) {
	assert.NoError(t, Join{Name: "ana", Avatar: Avatar{Color: "#ff0000"}}.Validate())
	assert.ErrorIs(t, Join{Avatar: Avatar{Color: "#ff0000"}}.Validate(), ErrMalformed)
	assert.ErrorIs(t, Join{Name: "ana"}.Validate(), ErrMalformed)
}
