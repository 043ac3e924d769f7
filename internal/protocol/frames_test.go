package protocol

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageCodec(t *testing.T) {
	draw := MustWrap(DrawPoint{X: 4, Y: 5})
	draw.Seq = 3
	draw.From = "a"

	kind, b, err := EncodeMessage(draw, true)
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)

	back, err := DecodeMessage(kind, b)
	require.NoError(t, err)
	ev, err := DecodeDrawEvent(back)
	require.NoError(t, err)
	assert.Equal(t, DrawPoint{X: 4, Y: 5}, ev)
	assert.Equal(t, uint64(3), back.Seq)
	assert.Equal(t, "a", back.From)

	kind, b, err = EncodeMessage(draw, false)
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)

	back, err = DecodeMessage(kind, b)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), back.Seq)

	chat := MustWrap(ChatMessage{Message: "hi"})
	kind, b, err = EncodeMessage(chat, true)
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind, "only drawing events go binary")

	back, err = DecodeMessage(kind, b)
	require.NoError(t, err)
	assert.Equal(t, TypeChatMessage, back.Type)

	_, err = DecodeMessage(websocket.PingMessage, nil)
	assert.ErrorIs(t, err, ErrMalformed)
}
