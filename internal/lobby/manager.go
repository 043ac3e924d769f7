package lobby

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/Seednode/sketchbox/internal/round"
)

const idLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Manager holds a set of hubs keyed by game ID, so each game is its own
// isolated session.
type Manager struct {
	mu          sync.Mutex
	hubs        map[string]*managed
	idleTimeout time.Duration

	prompts Prompter
	cfg     Config

	ctx    context.Context
	cancel context.CancelFunc
}

type managed struct {
	hub    *Hub
	cancel context.CancelFunc
}

// NewManager starts a manager whose hubs live until ctx ends or they sit idle
// for longer than idleTimeout. A zero idleTimeout keeps hubs forever.
func NewManager(ctx context.Context, p Prompter, cfg Config, idleTimeout time.Duration) *Manager {
	cfg.defaults()
	ctx, cancel := context.WithCancel(ctx)

	m := &Manager{
		hubs:        make(map[string]*managed),
		idleTimeout: idleTimeout,
		prompts:     p,
		cfg:         cfg,
		ctx:         ctx,
		cancel:      cancel,
	}
	if idleTimeout > 0 {
		go m.reaperLoop()
	}

	return m
}

// Hub returns the hub for gameID, starting it if needed.
func (m *Manager) Hub(gameID string) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.hubs[gameID]; ok {
		return g.hub
	}

	hub := NewHub(gameID, m.prompts, m.cfg)
	ctx, cancel := context.WithCancel(m.ctx)
	m.hubs[gameID] = &managed{hub: hub, cancel: cancel}

	go func() {
		ticker := time.NewTicker(round.Tick)
		defer ticker.Stop()

		hub.Run(ctx, ticker.C)
	}()

	return hub
}

// Lookup returns a running hub without creating one.
func (m *Manager) Lookup(gameID string) (*Hub, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.hubs[gameID]
	if !ok {
		return nil, false
	}
	return g.hub, true
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.hubs)
}

// NewGameID generates a crypto-random game ID that doesn't collide with
// existing games.
func (m *Manager) NewGameID() string {
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = idLetters[int(buf[i])%len(idLetters)]
		}
		id := string(out)

		m.mu.Lock()
		_, exists := m.hubs[id]
		m.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// Reap stops every hub idle since before cutoff and returns how many were
// stopped.
func (m *Manager) Reap(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	reaped := 0
	for id, g := range m.hubs {
		if g.hub.LastActive().Before(cutoff) {
			delete(m.hubs, id)
			g.cancel()
			reaped++
		}
	}

	return reaped
}

func (m *Manager) reaperLoop() {
	ticker := time.NewTicker(m.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if n := m.Reap(m.cfg.Clock().Add(-m.idleTimeout)); n > 0 {
				m.cfg.Logger.Info().Int("games", n).Msg("reaped idle games")
			}
		}
	}
}

// Close stops every hub.
func (m *Manager) Close() {
	m.cancel()
}
