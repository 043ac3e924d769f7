package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Roles within a round.
const (
	RoleDrawer  = "drawer"
	RoleGuesser = "guesser"
)

// Chat zones: players still guessing talk among themselves, while the drawer
// and players who already guessed see everything.
const (
	ZoneGuessing = 1
	ZoneSolved   = 2
)

// Chat echo types.
const (
	ChatPlain   = "chat"
	ChatCorrect = "correct"
	ChatLeave   = "leave"
	ChatReveal  = "reveal"
)

type Avatar struct {
	Eye   int    `json:"eye"`
	Mouth int    `json:"mouth"`
	Color string `json:"color"`
}

type Join struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Avatar Avatar `json:"avatar"`
}

type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar Avatar `json:"avatar"`
	Score  int    `json:"score"`
	Zone   int    `json:"zone"`
}

// PlayerList is sent as a bare JSON array.
type PlayerList []Player

type RoundStarting struct{}

// RoundStarted moves a participant into the active round. Prompt is only ever
// set in the drawer's copy.
type RoundStarted struct {
	Role      string  `json:"role"`
	StartTime float64 `json:"startTime"`
	Duration  int     `json:"duration"`
	Prompt    string  `json:"prompt,omitempty"`
}

// RoundPrompt carries the prompt text to the drawer and only its length to
// guessers.
type RoundPrompt struct {
	Role   string `json:"role"`
	Prompt string `json:"prompt,omitempty"`
	Length int    `json:"length,omitempty"`
}

type LetterReveal struct {
	Mask string `json:"mask"`
}

type ForceRoundEnd struct{}

type LobbyReset struct{}

type WaitingForPlayers struct {
	Message string `json:"message"`
}

// ChatMessage is sent by a client with only Message set and echoed by the hub
// with the remaining fields filled in.
type ChatMessage struct {
	Name       string `json:"name,omitempty"`
	Message    string `json:"message"`
	SenderZone int    `json:"sender_zone,omitempty"`
	Type       string `json:"type,omitempty"`
	Word       string `json:"word,omitempty"`
}

func (Join) MessageType() string              { return TypeJoin }
func (PlayerList) MessageType() string        { return TypePlayerList }
func (RoundStarting) MessageType() string     { return TypeRoundStarting }
func (RoundStarted) MessageType() string      { return TypeRoundStarted }
func (RoundPrompt) MessageType() string       { return TypeRoundPrompt }
func (LetterReveal) MessageType() string      { return TypeLetterReveal }
func (ForceRoundEnd) MessageType() string     { return TypeForceRoundEnd }
func (LobbyReset) MessageType() string        { return TypeLobbyReset }
func (WaitingForPlayers) MessageType() string { return TypeWaitingForPlayers }
func (ChatMessage) MessageType() string       { return TypeChatMessage }

// MarshalJSON keeps an empty roster encoded as [] rather than null.
func (l PlayerList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Player(l))
}

// Start converts the wire start time to a time.Time.
func (r RoundStarted) Start() time.Time {
	sec := int64(r.StartTime)
	nsec := int64((r.StartTime - float64(sec)) * 1e9)

	return time.Unix(sec, nsec)
}

// UnixSeconds is the wire encoding of an authoritative round start.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func (j Join) Validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return fmt.Errorf("%w: join without name", ErrMalformed)
	}
	if j.Avatar.Color == "" {
		return fmt.Errorf("%w: join without avatar", ErrMalformed)
	}
	return nil
}
