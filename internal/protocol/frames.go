package protocol

import (
	"fmt"

	"github.com/gorilla/websocket"
)

// EncodeMessage picks the websocket frame for env. Drawing events go out as
// binary frames when binary is set; everything else is JSON text.
func EncodeMessage(env Envelope, binary bool) (int, []byte, error) {
	if binary && IsDrawType(env.Type) {
		f, err := FrameOf(env)
		if err != nil {
			return 0, nil, err
		}
		b, err := AppendFrame(nil, f)
		return websocket.BinaryMessage, b, err
	}

	b, err := env.Marshal()
	return websocket.TextMessage, b, err
}

// DecodeMessage turns a text or binary websocket frame into an envelope.
func DecodeMessage(kind int, b []byte) (Envelope, error) {
	switch kind {
	case websocket.TextMessage:
		return Parse(b)
	case websocket.BinaryMessage:
		f, err := DecodeFrame(b)
		if err != nil {
			return Envelope{}, err
		}
		return f.Envelope()
	}

	return Envelope{}, fmt.Errorf("%w: frame kind %d", ErrMalformed, kind)
}
