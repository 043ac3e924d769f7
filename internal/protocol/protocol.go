// Package protocol defines the messages exchanged between participants and the
// relay hub, their JSON envelope and the compact binary framing used for
// drawing events.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message types.
const (
	TypeJoin              = "join"
	TypePlayerList        = "playerList"
	TypeRoundStarting     = "roundStarting"
	TypeRoundStarted      = "roundStarted"
	TypeRoundPrompt       = "roundPrompt"
	TypeLetterReveal      = "letterReveal"
	TypeForceRoundEnd     = "forceRoundEnd"
	TypeLobbyReset        = "lobbyReset"
	TypeWaitingForPlayers = "waitingForPlayers"
	TypeChatMessage       = "chatMessage"

	TypeStartPath = "startPath"
	TypeDraw      = "draw"
	TypeEndPath   = "endPath"
	TypeFill      = "fill"
	TypeUndo      = "undo"
	TypeClear     = "clear"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

// Message is anything that can travel inside an Envelope.
type Message interface {
	MessageType() string
}

// Envelope wraps every message on the wire. Seq is a per-sender sequence
// number for drawing events (0 means unsequenced) and From is stamped by the
// hub with the sender's player id.
type Envelope struct {
	Type string          `json:"type"`
	Seq  uint64          `json:"seq,omitempty"`
	From string          `json:"from,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Wrap encodes m into an envelope.
func Wrap(m Message) (Envelope, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", m.MessageType(), err)
	}

	return Envelope{Type: m.MessageType(), Data: data}, nil
}

// MustWrap is Wrap for messages whose encoding cannot fail.
func MustWrap(m Message) Envelope {
	env, err := Wrap(m)
	if err != nil {
		panic(err)
	}

	return env
}

// Parse decodes a raw JSON text frame into an envelope.
func Parse(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	return env, nil
}

// Into decodes the envelope payload into v.
func (e Envelope) Into(v any) error {
	data := e.Data
	if len(data) == 0 || string(data) == "null" {
		data = []byte("{}")
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, e.Type, err)
	}

	return nil
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
