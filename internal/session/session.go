// Package session runs one participant: its surface, drawing channel, round
// state and roster, driven by a single event loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Seednode/sketchbox/internal/drawing"
	"github.com/Seednode/sketchbox/internal/protocol"
	"github.com/Seednode/sketchbox/internal/raster"
	"github.com/Seednode/sketchbox/internal/round"
)

var ErrDisconnected = errors.New("disconnected")

// Transport carries envelopes to and from the hub.
type Transport interface {
	Send(env protocol.Envelope) error
	Receive(ctx context.Context) (protocol.Envelope, error)
}

// Ticker is the part of *time.Ticker the session needs.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) Chan() <-chan time.Time {
	return t.C
}

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

type Config struct {
	Width      int
	Height     int
	Background color.NRGBA

	Join protocol.Join

	// RoundDuration is assumed when roundStarted carries no duration.
	RoundDuration time.Duration

	ReorderLimit int

	Clock     func() time.Time
	NewTicker func(time.Duration) Ticker

	Logger zerolog.Logger
}

func (c *Config) defaults() {
	if c.Width <= 0 {
		c.Width = 800
	}
	if c.Height <= 0 {
		c.Height = 600
	}
	if c.Background == (color.NRGBA{}) {
		c.Background = raster.White
	}
	if c.Join.ID == "" {
		c.Join.ID = uuid.NewString()
	}
	if c.RoundDuration <= 0 {
		c.RoundDuration = 100 * time.Second
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.NewTicker == nil {
		c.NewTicker = NewTimeTicker
	}
}

type Session struct {
	cfg       Config
	transport Transport
	view      View
	log       zerolog.Logger

	canvas  *drawing.Channel
	round   *round.Machine
	roster  protocol.PlayerList
	reorder *protocol.Reorderer

	ticker    Ticker
	lastShown int

	inputs chan Input
}

func New(t Transport, v View, cfg Config) *Session {
	cfg.defaults()
	if v == nil {
		v = NopView{}
	}

	s := &Session{
		cfg:       cfg,
		transport: t,
		view:      v,
		log:       cfg.Logger.With().Str("player", cfg.Join.ID).Logger(),
		round:     round.New(),
		reorder:   protocol.NewReorderer(cfg.ReorderLimit),
		lastShown: -1,
		inputs:    make(chan Input, 64),
	}

	surface := raster.NewSurface(cfg.Width, cfg.Height, cfg.Background)
	s.canvas = drawing.New(surface, drawing.EmitterFunc(t.Send), s.log)

	return s
}

func (s *Session) ID() string {
	return s.cfg.Join.ID
}

func (s *Session) Canvas() *drawing.Channel {
	return s.canvas
}

func (s *Session) Round() *round.Machine {
	return s.round
}

func (s *Session) Roster() []protocol.Player {
	return s.roster
}

func (s *Session) Surface() *raster.Surface {
	return s.canvas.Surface()
}

// Input queues a local action for the event loop.
func (s *Session) Input(ctx context.Context, in Input) error {
	select {
	case s.inputs <- in:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type inbound struct {
	env protocol.Envelope
	err error
}

// Run joins the game and processes inbound envelopes, local inputs and timer
// ticks one at a time until ctx ends or the transport fails.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.stopTicker()

	if err := s.send(s.cfg.Join); err != nil {
		return fmt.Errorf("%w: join: %v", ErrDisconnected, err)
	}

	recv := make(chan inbound)
	go func() {
		for {
			env, err := s.transport.Receive(ctx)
			select {
			case recv <- inbound{env: env, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		var tick <-chan time.Time
		if s.ticker != nil {
			tick = s.ticker.Chan()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case in := <-recv:
			if in.err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.Disconnected()
				return fmt.Errorf("%w: %v", ErrDisconnected, in.err)
			}
			s.Handle(in.env)

		case in := <-s.inputs:
			if err := s.HandleInput(in); err != nil {
				s.log.Warn().Err(err).Msg("input failed")
			}

		case now := <-tick:
			s.Tick(now)
		}
	}
}

func (s *Session) send(m protocol.Message) error {
	env, err := protocol.Wrap(m)
	if err != nil {
		return err
	}

	return s.transport.Send(env)
}

// Handle dispatches one inbound envelope. Malformed or unknown envelopes are
// logged and dropped.
func (s *Session) Handle(env protocol.Envelope) {
	if protocol.IsDrawType(env.Type) {
		for _, ready := range s.reorder.Push(env) {
			ev, err := protocol.DecodeDrawEvent(ready)
			if err != nil {
				s.log.Warn().Err(err).Msg("dropping drawing event")
				continue
			}
			s.canvas.Apply(ev)
		}
		return
	}

	if err := s.dispatch(env); err != nil {
		s.log.Warn().Err(err).Str("type", env.Type).Msg("dropping message")
	}
}

func (s *Session) dispatch(env protocol.Envelope) error {
	switch env.Type {
	case protocol.TypePlayerList:
		var players protocol.PlayerList
		if err := env.Into(&players); err != nil {
			return err
		}
		s.roster = players
		s.view.ShowRoster(players)

	case protocol.TypeRoundStarting:
		s.round.Prepare()
		s.leaveRound()

	case protocol.TypeRoundStarted:
		var msg protocol.RoundStarted
		if err := env.Into(&msg); err != nil {
			return err
		}
		if msg.Role != protocol.RoleDrawer && msg.Role != protocol.RoleGuesser {
			return fmt.Errorf("%w: role %q", protocol.ErrMalformed, msg.Role)
		}

		s.round.Start(msg, s.cfg.RoundDuration)
		s.view.SetToolsVisible(s.round.IsDrawer())
		if s.round.IsDrawer() && s.round.Prompt() != "" {
			s.view.ShowPrompt(s.round.Prompt())
		}
		s.startTicker()

	case protocol.TypeRoundPrompt:
		var msg protocol.RoundPrompt
		if err := env.Into(&msg); err != nil {
			return err
		}

		s.round.SetPrompt(msg)
		if msg.Role == protocol.RoleDrawer {
			s.view.ShowPrompt(s.round.Prompt())
		} else {
			s.view.ShowBlanks(s.round.Mask())
		}

	case protocol.TypeLetterReveal:
		var msg protocol.LetterReveal
		if err := env.Into(&msg); err != nil {
			return err
		}
		if s.round.IsDrawer() {
			return nil
		}

		s.round.SetMask(msg.Mask)
		s.view.ShowBlanks(s.round.Mask())

	case protocol.TypeLobbyReset:
		s.round.Reset()
		s.leaveRound()

	case protocol.TypeWaitingForPlayers:
		var msg protocol.WaitingForPlayers
		if err := env.Into(&msg); err != nil {
			return err
		}
		s.view.ShowNotice(msg.Message)

	case protocol.TypeChatMessage:
		var msg protocol.ChatMessage
		if err := env.Into(&msg); err != nil {
			return err
		}
		s.view.ShowChat(msg)

	default:
		return fmt.Errorf("%w: %q", protocol.ErrUnknownType, env.Type)
	}

	return nil
}

// leaveRound tears down everything tied to the previous round: the timer,
// open paths, undo history and sequencing.
func (s *Session) leaveRound() {
	s.stopTicker()
	s.canvas.Reset()
	s.reorder.Reset()

	s.view.ClearTimer()
	s.view.ClearPrompt()
	s.view.SetToolsVisible(false)
}

// Disconnected degrades to the same state as a lobby reset.
func (s *Session) Disconnected() {
	s.round.Reset()
	s.leaveRound()
	s.view.ShowNotice("disconnected")
}

// HandleInput applies one local action. Drawing actions are ignored unless
// this participant is the active drawer.
func (s *Session) HandleInput(in Input) error {
	if drawInput(in) && !s.round.DrawingEnabled() {
		s.log.Debug().Str("input", fmt.Sprintf("%T", in)).Msg("drawing disabled")
		return nil
	}

	switch in := in.(type) {
	case PointerDown:
		return s.canvas.StartPath(in.X, in.Y)
	case PointerMove:
		return s.canvas.MoveTo(in.X, in.Y)
	case PointerUp, PointerLeave:
		return s.canvas.EndPath()
	case PressUndo:
		return s.canvas.Undo()
	case PressClear:
		return s.canvas.Clear()
	case SelectTool:
		s.canvas.SetTool(in.Tool)
	case SelectColor:
		s.canvas.SetColor(in.Color)
	case SelectSize:
		s.canvas.SetSize(in.Size)
	case SendChat:
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return nil
		}
		return s.send(protocol.ChatMessage{Message: text})
	}

	return nil
}

func (s *Session) startTicker() {
	s.stopTicker()
	s.lastShown = -1
	s.ticker = s.cfg.NewTicker(round.Tick)
	s.Tick(s.cfg.Clock())
}

func (s *Session) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

// Tick recomputes the displayed countdown from the round's start time. The
// drawer signals the end of the round once it reaches zero; the ticker stops
// there for everyone.
func (s *Session) Tick(now time.Time) {
	if s.round.Phase() != round.Active {
		return
	}

	remaining, signalEnd := s.round.Tick(now)
	if remaining != s.lastShown {
		s.lastShown = remaining
		s.view.ShowTimer(remaining)
	}

	if signalEnd {
		if err := s.send(protocol.ForceRoundEnd{}); err != nil {
			s.log.Warn().Err(err).Msg("round end signal failed")
		}
	}

	if remaining == 0 {
		s.stopTicker()
	}
}
