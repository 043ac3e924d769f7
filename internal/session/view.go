package session

import (
	"github.com/rs/zerolog"

	"github.com/Seednode/sketchbox/internal/protocol"
)

// View is whatever presents the session to a person: a browser bridge, a
// terminal, or nothing at all.
type View interface {
	ShowTimer(seconds int)
	ClearTimer()
	ShowPrompt(prompt string)
	ShowBlanks(mask string)
	ClearPrompt()
	SetToolsVisible(visible bool)
	ShowRoster(players []protocol.Player)
	ShowChat(msg protocol.ChatMessage)
	ShowNotice(text string)
}

type NopView struct{}

func (NopView) ShowTimer(int)                 {}
func (NopView) ClearTimer()                   {}
func (NopView) ShowPrompt(string)             {}
func (NopView) ShowBlanks(string)             {}
func (NopView) ClearPrompt()                  {}
func (NopView) SetToolsVisible(bool)          {}
func (NopView) ShowRoster([]protocol.Player)  {}
func (NopView) ShowChat(protocol.ChatMessage) {}
func (NopView) ShowNotice(string)             {}

// LogView writes everything a person would see to a logger. The timer is
// only logged on whole-ten boundaries.
type LogView struct {
	Log zerolog.Logger
}

func (v LogView) ShowTimer(seconds int) {
	if seconds%10 == 0 {
		v.Log.Info().Int("remaining", seconds).Msg("timer")
	}
}

func (v LogView) ClearTimer() {}

func (v LogView) ShowPrompt(prompt string) {
	v.Log.Info().Str("prompt", prompt).Msg("you are drawing")
}

func (v LogView) ShowBlanks(mask string) {
	v.Log.Info().Str("mask", mask).Msg("guess the word")
}

func (v LogView) ClearPrompt() {}

func (v LogView) SetToolsVisible(visible bool) {
	v.Log.Debug().Bool("visible", visible).Msg("tools")
}

func (v LogView) ShowRoster(players []protocol.Player) {
	ev := v.Log.Info().Int("players", len(players))
	for _, p := range players {
		ev = ev.Int(p.Name, p.Score)
	}
	ev.Msg("roster")
}

func (v LogView) ShowChat(msg protocol.ChatMessage) {
	switch msg.Type {
	case protocol.ChatCorrect:
		v.Log.Info().Str("name", msg.Name).Msg("guessed the word")
	case protocol.ChatReveal:
		v.Log.Info().Str("word", msg.Word).Msg("the word was")
	default:
		v.Log.Info().Str("name", msg.Name).Int("zone", msg.SenderZone).Msg(msg.Message)
	}
}

func (v LogView) ShowNotice(text string) {
	v.Log.Info().Msg(text)
}
