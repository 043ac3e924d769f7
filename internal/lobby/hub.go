// Package lobby runs games: one hub per game relays drawing, scores guesses
// and drives rounds for every connected player.
package lobby

import (
	"context"
	"errors"
	"image"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Seednode/sketchbox/internal/drawing"
	"github.com/Seednode/sketchbox/internal/prompts"
	"github.com/Seednode/sketchbox/internal/protocol"
	"github.com/Seednode/sketchbox/internal/raster"
	"github.com/Seednode/sketchbox/internal/round"
)

const waitingMessage = "Waiting for one more person..."

var ErrHubClosed = errors.New("game closed")

// Prompter supplies prompt words.
type Prompter interface {
	Random(pack string) (string, error)
}

type Config struct {
	RoundDuration time.Duration
	PrepareDelay  time.Duration

	// EndGrace is how long past the round timer the hub waits for the
	// drawer's forceRoundEnd before ending the round itself.
	EndGrace time.Duration

	Pack string

	Width  int
	Height int

	ChatRate  rate.Limit
	ChatBurst int

	Clock func() time.Time
	Intn  func(int) int

	Logger zerolog.Logger
}

func (c *Config) defaults() {
	if c.RoundDuration <= 0 {
		c.RoundDuration = 100 * time.Second
	}
	if c.PrepareDelay < 0 {
		c.PrepareDelay = 0
	}
	if c.EndGrace <= 0 {
		c.EndGrace = 5 * time.Second
	}
	if c.Pack == "" {
		c.Pack = prompts.DefaultPack
	}
	if c.Width <= 0 {
		c.Width = 800
	}
	if c.Height <= 0 {
		c.Height = 600
	}
	if c.ChatRate <= 0 {
		c.ChatRate = 2
	}
	if c.ChatBurst <= 0 {
		c.ChatBurst = 5
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Intn == nil {
		c.Intn = rand.IntN
	}
}

type player struct {
	protocol.Player
	client *Client
}

type message struct {
	client *Client
	env    protocol.Envelope
}

// Hub owns one game. All game state is touched only by the goroutine in Run;
// pumps and HTTP handlers reach it through channels.
type Hub struct {
	id      string
	cfg     Config
	prompts Prompter
	log     zerolog.Logger

	register chan *Client
	unreg    chan *Client
	inbound  chan message
	queries  chan func()
	done     chan struct{}

	mu         sync.RWMutex
	createdAt  time.Time
	lastActive time.Time

	clients map[*Client]bool
	players []*player
	drawer  int

	phase        round.Phase
	word         string
	prepareUntil time.Time
	started      time.Time

	correct      map[string]bool
	revealed     map[int]bool
	maxReveals   int
	timeReveals  int
	guessReveals int

	// strokes is the replay log for the current round: one entry per
	// undoable operation.
	strokes [][]protocol.Envelope
	mirror  *drawing.Channel

	// relay numbers the drawing events forwarded this round, so receivers
	// see an unbroken sequence whatever the hub turned away.
	relay protocol.Sequencer

	// evicted holds clients cut off for falling behind, waiting to leave.
	evicted []*Client
}

func NewHub(id string, p Prompter, cfg Config) *Hub {
	cfg.defaults()
	now := cfg.Clock()

	log := cfg.Logger.With().Str("game", id).Logger()

	return &Hub{
		id:         id,
		cfg:        cfg,
		prompts:    p,
		log:        log,
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		inbound:    make(chan message, 64),
		queries:    make(chan func()),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
		clients:    make(map[*Client]bool),
		correct:    make(map[string]bool),
		revealed:   make(map[int]bool),
		mirror:     drawing.New(raster.NewSurface(cfg.Width, cfg.Height, raster.White), nil, log),
	}
}

func (h *Hub) ID() string {
	return h.id
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) LastActive() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive
}

func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = h.cfg.Clock()
	h.mu.Unlock()
}

// Run processes joins, leaves, messages and timer ticks until ctx ends.
func (h *Hub) Run(ctx context.Context, ticks <-chan time.Time) {
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.touch()
			h.connect(c)

		case c := <-h.unreg:
			h.touch()
			h.disconnect(c)

		case m := <-h.inbound:
			h.touch()
			h.receive(m.client, m.env)

		case now := <-ticks:
			h.tick(now)

		case q := <-h.queries:
			q()
		}

		h.evict()
	}
}

// do runs fn on the hub goroutine and waits for it.
func (h *Hub) do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})

	select {
	case h.queries <- func() { fn(); close(ran) }:
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	<-ran
	return nil
}

// Snapshot copies the current canvas.
func (h *Hub) Snapshot(ctx context.Context) (*image.NRGBA, error) {
	var img *image.NRGBA
	err := h.do(ctx, func() {
		src := h.mirror.Surface().Image()
		img = image.NewNRGBA(src.Rect)
		copy(img.Pix, src.Pix)
	})

	return img, err
}

// Players lists the roster in join order.
func (h *Hub) Players(ctx context.Context) (protocol.PlayerList, error) {
	var out protocol.PlayerList
	err := h.do(ctx, func() { out = h.roster() })

	return out, err
}

func (h *Hub) closeAll() {
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.players = nil
}

func (h *Hub) connect(c *Client) {
	h.clients[c] = true
	h.log.Debug().Str("player", c.id).Msg("connected")
}

func (h *Hub) disconnect(c *Client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)

	h.leave(c)
}

func (h *Hub) receive(c *Client, env protocol.Envelope) {
	if !h.clients[c] {
		return
	}

	if protocol.IsDrawType(env.Type) {
		h.draw(c, env)
		return
	}

	switch env.Type {
	case protocol.TypeJoin:
		var msg protocol.Join
		if err := env.Into(&msg); err != nil {
			h.log.Warn().Err(err).Str("player", c.id).Msg("bad join")
			return
		}
		h.join(c, msg)

	case protocol.TypeChatMessage:
		var msg protocol.ChatMessage
		if err := env.Into(&msg); err != nil {
			h.log.Warn().Err(err).Str("player", c.id).Msg("bad chat message")
			return
		}
		h.chat(c, msg)

	case protocol.TypeForceRoundEnd:
		if h.phase == round.Active && h.isDrawer(c) {
			h.endRound()
		}

	default:
		h.log.Warn().Str("player", c.id).Str("type", env.Type).Msg("dropping message")
	}
}

// deliver queues env for c. A client whose buffer is full is disconnected
// rather than silently missing a message.
func (h *Hub) deliver(c *Client, env protocol.Envelope) {
	if !h.clients[c] {
		return
	}

	select {
	case c.send <- env:
	default:
		h.log.Warn().Str("player", c.id).Str("type", env.Type).Msg("send buffer full, disconnecting")
		delete(h.clients, c)
		close(c.send)
		h.evicted = append(h.evicted, c)
	}
}

// evict removes disconnected slow clients from the game.
func (h *Hub) evict() {
	for len(h.evicted) > 0 {
		c := h.evicted[0]
		h.evicted = h.evicted[1:]
		h.leave(c)
	}
}

func (h *Hub) send(p *player, m protocol.Message) {
	h.deliver(p.client, protocol.MustWrap(m))
}

func (h *Hub) broadcast(m protocol.Message) {
	env := protocol.MustWrap(m)
	for _, p := range h.players {
		h.deliver(p.client, env)
	}
}

func (h *Hub) roster() protocol.PlayerList {
	out := make(protocol.PlayerList, 0, len(h.players))
	for _, p := range h.players {
		out = append(out, p.Player)
	}
	return out
}

func (h *Hub) broadcastRoster() {
	h.broadcast(h.roster())
}

func (h *Hub) find(c *Client) (int, *player) {
	for i, p := range h.players {
		if p.client == c {
			return i, p
		}
	}
	return -1, nil
}

func (h *Hub) current() *player {
	if len(h.players) == 0 {
		return nil
	}
	return h.players[h.drawer%len(h.players)]
}

func (h *Hub) isDrawer(c *Client) bool {
	d := h.current()
	return d != nil && d.client == c
}

func (h *Hub) join(c *Client, msg protocol.Join) {
	if err := msg.Validate(); err != nil {
		h.log.Warn().Err(err).Str("player", c.id).Msg("rejecting join")
		return
	}
	if _, p := h.find(c); p != nil {
		return
	}

	p := &player{
		Player: protocol.Player{
			ID:     c.id,
			Name:   strings.TrimSpace(msg.Name),
			Avatar: msg.Avatar,
			Zone:   protocol.ZoneGuessing,
		},
		client: c,
	}
	h.players = append(h.players, p)
	h.log.Info().Str("player", p.ID).Str("name", p.Name).Int("players", len(h.players)).Msg("joined")

	h.broadcastRoster()

	switch {
	case len(h.players) == 1:
		h.send(p, protocol.WaitingForPlayers{Message: waitingMessage})

	case h.phase == round.Idle:
		h.startRound()

	case h.phase == round.Active:
		h.catchUp(p)
	}
}

// catchUp brings a player who joined mid-round up to date: role, prompt
// length, revealed letters and the drawing so far.
func (h *Hub) catchUp(p *player) {
	h.send(p, protocol.RoundStarted{
		Role:      protocol.RoleGuesser,
		StartTime: protocol.UnixSeconds(h.started),
		Duration:  int(h.cfg.RoundDuration / time.Second),
	})
	h.send(p, protocol.RoundPrompt{Role: protocol.RoleGuesser, Length: len([]rune(h.word))})

	if len(h.revealed) > 0 {
		h.send(p, protocol.LetterReveal{Mask: round.BuildMask(h.word, h.revealed)})
	}

	from := h.current().ID
	for _, stroke := range h.strokes {
		for _, env := range stroke {
			env.Seq = 0
			env.From = from
			h.deliver(p.client, env)
		}
	}
}

func (h *Hub) pickWord() string {
	word, err := h.prompts.Random(h.cfg.Pack)
	if err == nil {
		return word
	}

	h.log.Error().Err(err).Str("pack", h.cfg.Pack).Msg("picking prompt, falling back to default pack")

	word, err = h.prompts.Random(prompts.DefaultPack)
	if err != nil {
		h.log.Error().Err(err).Msg("picking prompt from default pack")
		return "sketch"
	}

	return word
}

func (h *Hub) clearCanvas() {
	h.strokes = nil
	h.relay.Reset()
	h.mirror.Reset()
	h.mirror.Surface().Clear()
}

// startRound picks the next prompt and enters the preparation delay.
func (h *Hub) startRound() {
	if len(h.players) < 2 {
		h.resetLobby()
		return
	}

	h.drawer %= len(h.players)
	h.word = h.pickWord()
	clear(h.correct)
	clear(h.revealed)
	h.maxReveals = round.MaxReveals(len([]rune(h.word)))
	h.timeReveals = 0
	h.guessReveals = 0

	for i, p := range h.players {
		p.Zone = protocol.ZoneGuessing
		if i == h.drawer {
			p.Zone = protocol.ZoneSolved
		}
	}

	h.clearCanvas()
	h.broadcast(protocol.Clear{})
	h.broadcast(protocol.RoundStarting{})

	h.phase = round.Preparing
	h.prepareUntil = h.cfg.Clock().Add(h.cfg.PrepareDelay)

	h.log.Info().Str("drawer", h.current().ID).Msg("round starting")

	if h.cfg.PrepareDelay == 0 {
		h.beginRound(h.cfg.Clock())
	}
}

func (h *Hub) beginRound(now time.Time) {
	h.phase = round.Active
	h.started = now

	length := len([]rune(h.word))
	for i, p := range h.players {
		msg := protocol.RoundStarted{
			Role:      protocol.RoleGuesser,
			StartTime: protocol.UnixSeconds(now),
			Duration:  int(h.cfg.RoundDuration / time.Second),
		}
		prompt := protocol.RoundPrompt{Role: protocol.RoleGuesser, Length: length}

		if i == h.drawer {
			msg.Role = protocol.RoleDrawer
			msg.Prompt = h.word
			prompt = protocol.RoundPrompt{Role: protocol.RoleDrawer, Prompt: h.word}
		}

		h.send(p, msg)
		h.send(p, prompt)
	}

	h.broadcastRoster()
}

// endRound reveals the prompt and moves on to the next drawer.
func (h *Hub) endRound() {
	if h.phase != round.Active {
		return
	}

	h.log.Info().Str("word", h.word).Int("correct", len(h.correct)).Msg("round over")

	h.drawer++
	h.broadcast(protocol.ChatMessage{Type: protocol.ChatReveal, Word: h.word, SenderZone: protocol.ZoneSolved})
	h.phase = round.Idle
	h.startRound()
}

// resetLobby returns to waiting with the canvas cleared.
func (h *Hub) resetLobby() {
	h.phase = round.Idle
	h.word = ""
	clear(h.correct)
	clear(h.revealed)
	for _, p := range h.players {
		p.Zone = protocol.ZoneGuessing
	}

	h.clearCanvas()
	h.broadcast(protocol.Clear{})
	h.broadcast(protocol.LobbyReset{})
}

func (h *Hub) tick(now time.Time) {
	switch h.phase {
	case round.Preparing:
		if !now.Before(h.prepareUntil) {
			h.beginRound(now)
		}

	case round.Active:
		elapsed := now.Sub(h.started)

		for h.timeReveals < 3 && elapsed >= h.cfg.RoundDuration*time.Duration(h.timeReveals+1)/4 {
			h.timeReveals++
			h.reveal(timeRevealCount(h.timeReveals, len([]rune(h.word)), len(h.correct) > 0))
		}

		if elapsed >= h.cfg.RoundDuration+h.cfg.EndGrace {
			h.log.Warn().Msg("round timer expired without an end signal")
			h.endRound()
		}
	}
}

// reveal uncovers up to n more letters and sends the mask to guessers.
func (h *Hub) reveal(n int) {
	if pickLetters(h.word, h.revealed, n, h.maxReveals, h.cfg.Intn) == 0 {
		return
	}

	mask := protocol.LetterReveal{Mask: round.BuildMask(h.word, h.revealed)}
	for i, p := range h.players {
		if i != h.drawer {
			h.send(p, mask)
		}
	}
}

func (h *Hub) chat(c *Client, msg protocol.ChatMessage) {
	idx, p := h.find(c)
	if p == nil {
		return
	}
	if !c.limiter.Allow() {
		h.log.Debug().Str("player", p.ID).Msg("chat rate limited")
		return
	}

	text := strings.TrimSpace(msg.Message)
	if text == "" {
		return
	}

	active := h.phase == round.Active
	if active && idx != h.drawer && !h.correct[p.ID] && strings.EqualFold(text, h.word) {
		h.guessed(p)
		return
	}

	out := protocol.ChatMessage{Name: p.Name, Message: text, SenderZone: p.Zone, Type: protocol.ChatPlain}
	if !active || p.Zone == protocol.ZoneGuessing {
		h.broadcast(out)
		return
	}

	env := protocol.MustWrap(out)
	for _, q := range h.players {
		if q.Zone == protocol.ZoneSolved {
			h.deliver(q.client, env)
		}
	}
}

func (h *Hub) guessed(p *player) {
	remaining := h.cfg.RoundDuration - h.cfg.Clock().Sub(h.started)

	h.correct[p.ID] = true
	p.Zone = protocol.ZoneSolved
	p.Score += Points(remaining, h.cfg.RoundDuration)
	h.current().Score += DrawerBonus

	h.log.Info().Str("player", p.ID).Int("score", p.Score).Msg("correct guess")

	h.broadcast(protocol.ChatMessage{Type: protocol.ChatCorrect, Name: p.Name, SenderZone: protocol.ZoneSolved})
	h.broadcastRoster()

	guessers := len(h.players) - 1
	if stage := guessRevealStage(len(h.correct), guessers); stage > h.guessReveals {
		h.guessReveals = stage
		h.reveal(1)
	}

	if len(h.correct) >= guessers {
		h.endRound()
	}
}

func (h *Hub) draw(c *Client, env protocol.Envelope) {
	if h.phase != round.Active || !h.isDrawer(c) {
		h.log.Debug().Str("player", c.id).Str("type", env.Type).Msg("drawing rejected")
		return
	}

	ev, err := protocol.DecodeDrawEvent(env)
	if err != nil {
		h.log.Warn().Err(err).Str("player", c.id).Msg("dropping drawing event")
		return
	}

	h.record(env, ev)
	h.mirror.Apply(ev)

	env.From = c.id
	env.Seq = h.relay.Next()
	for _, p := range h.players {
		if p.client != c {
			h.deliver(p.client, env)
		}
	}
}

// record updates the replay log. Every accepted event is kept, even one that
// changes nothing on the hub's own canvas.
func (h *Hub) record(env protocol.Envelope, ev protocol.DrawEvent) {
	switch ev.(type) {
	case protocol.StartPath, protocol.Fill, protocol.Clear:
		h.strokes = append(h.strokes, []protocol.Envelope{env})

	case protocol.DrawPoint, protocol.EndPath:
		if len(h.strokes) > 0 {
			last := len(h.strokes) - 1
			h.strokes[last] = append(h.strokes[last], env)
		}

	case protocol.Undo:
		if len(h.strokes) > 0 {
			h.strokes = slices.Delete(h.strokes, len(h.strokes)-1, len(h.strokes))
		}
	}
}

// leave removes a departed player and repairs the round around them.
func (h *Hub) leave(c *Client) {
	idx, p := h.find(c)
	if p == nil {
		return
	}

	wasDrawer := idx == h.drawer%len(h.players)
	h.players = slices.Delete(h.players, idx, idx+1)
	delete(h.correct, p.ID)

	if idx < h.drawer {
		h.drawer--
	}
	if len(h.players) > 0 {
		h.drawer %= len(h.players)
	} else {
		h.drawer = 0
	}

	h.log.Info().Str("player", p.ID).Int("players", len(h.players)).Msg("left")

	h.broadcast(protocol.ChatMessage{Type: protocol.ChatLeave, Message: p.Name + " left the game.", SenderZone: protocol.ZoneSolved})
	h.broadcastRoster()

	switch {
	case len(h.players) == 0:
		h.phase = round.Idle
		h.word = ""
		h.clearCanvas()

	case len(h.players) == 1:
		if h.phase == round.Active {
			h.broadcast(protocol.ChatMessage{Type: protocol.ChatReveal, Word: h.word, SenderZone: protocol.ZoneSolved})
		}
		h.resetLobby()
		h.send(h.players[0], protocol.WaitingForPlayers{Message: waitingMessage})

	case wasDrawer && h.phase != round.Idle:
		if h.phase == round.Active {
			h.broadcast(protocol.ChatMessage{Type: protocol.ChatReveal, Word: h.word, SenderZone: protocol.ZoneSolved})
		}
		h.phase = round.Idle
		h.startRound()
	}
}
