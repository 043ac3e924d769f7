// Package round tracks a participant's view of the round lifecycle:
// Idle, Preparing, then Active until the round ends or the lobby resets.
package round

import (
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/Seednode/sketchbox/internal/protocol"
)

type Phase int

const (
	Idle Phase = iota
	Preparing
	Active
)

func (p Phase) String() string {
	switch p {
	case Preparing:
		return "preparing"
	case Active:
		return "active"
	}
	return "idle"
}

// Tick is the recompute interval of the round timer.
const Tick = 100 * time.Millisecond

// Remaining is the whole number of seconds left in a round that started at
// start and lasts duration, as seen at now. It is never negative.
func Remaining(start time.Time, duration time.Duration, now time.Time) int {
	left := (duration - now.Sub(start)).Seconds()

	return int(math.Max(0, math.Ceil(left)))
}

// Machine is the round state for one participant.
type Machine struct {
	phase    Phase
	role     string
	start    time.Time
	duration time.Duration

	prompt string
	length int
	mask   string

	ended bool
}

func New() *Machine {
	return &Machine{}
}

func (m *Machine) Phase() Phase { return m.phase }

func (m *Machine) Role() string { return m.role }

func (m *Machine) StartTime() time.Time { return m.start }

func (m *Machine) Duration() time.Duration { return m.duration }

// Prompt is the prompt text, known only to the drawer.
func (m *Machine) Prompt() string { return m.prompt }

// Length is the prompt length as disclosed to guessers.
func (m *Machine) Length() int { return m.length }

// Mask is the latest letter reveal mask, or blanks if nothing was revealed.
func (m *Machine) Mask() string {
	if m.mask != "" {
		return m.mask
	}
	return Blanks(m.length)
}

func (m *Machine) IsDrawer() bool {
	return m.phase == Active && m.role == protocol.RoleDrawer
}

// DrawingEnabled reports whether local input may mutate the surface.
func (m *Machine) DrawingEnabled() bool {
	return m.IsDrawer()
}

// Prepare enters Preparing from any phase and forgets the previous round.
func (m *Machine) Prepare() {
	*m = Machine{phase: Preparing}
}

// Start enters Active with the authoritative start time.
func (m *Machine) Start(msg protocol.RoundStarted, fallback time.Duration) {
	duration := time.Duration(msg.Duration) * time.Second
	if duration <= 0 {
		duration = fallback
	}

	prompt := ""
	if msg.Role == protocol.RoleDrawer {
		prompt = msg.Prompt
	}

	*m = Machine{
		phase:    Active,
		role:     msg.Role,
		start:    msg.Start(),
		duration: duration,
		prompt:   prompt,
		length:   len([]rune(prompt)),
	}
}

// SetPrompt applies a roundPrompt message. A guesser's copy only ever sets
// the length.
func (m *Machine) SetPrompt(msg protocol.RoundPrompt) {
	if msg.Role == protocol.RoleDrawer {
		m.prompt = msg.Prompt
		m.length = len([]rune(msg.Prompt))
		return
	}

	m.prompt = ""
	m.length = msg.Length
}

func (m *Machine) SetMask(mask string) {
	m.mask = mask
}

// Reset returns to Idle from any phase.
func (m *Machine) Reset() {
	*m = Machine{}
}

// Remaining is the seconds left in the active round, or 0 outside it.
func (m *Machine) Remaining(now time.Time) int {
	if m.phase != Active {
		return 0
	}
	return Remaining(m.start, m.duration, now)
}

// Tick recomputes the timer. It returns the seconds left and whether this
// participant must now signal the end of the round, which happens at most
// once per round and only for the drawer.
func (m *Machine) Tick(now time.Time) (remaining int, signalEnd bool) {
	if m.phase != Active {
		return 0, false
	}

	remaining = Remaining(m.start, m.duration, now)
	if remaining > 0 || m.ended {
		return remaining, false
	}

	m.ended = true

	return 0, m.role == protocol.RoleDrawer
}

// Expired reports whether the active round's timer has reached zero.
func (m *Machine) Expired(now time.Time) bool {
	return m.phase == Active && m.Remaining(now) == 0
}

// Blanks renders a prompt length as "_ _ _".
func Blanks(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSpace(strings.Repeat("_ ", n))
}

// BuildMask renders prompt with every alphabetic rune hidden unless its index
// is in revealed. Other runes are always shown.
func BuildMask(prompt string, revealed map[int]bool) string {
	runes := []rune(prompt)
	parts := make([]string, len(runes))

	for i, r := range runes {
		if !unicode.IsLetter(r) || revealed[i] {
			parts[i] = string(r)
		} else {
			parts[i] = "_"
		}
	}

	return strings.Join(parts, " ")
}

// MaxReveals caps how many letters may be revealed for a prompt of n runes.
func MaxReveals(n int) int {
	switch {
	case n <= 4:
		return 2
	case n == 5:
		return 3
	case n <= 7:
		return 4
	case n == 8:
		return 5
	case n <= 10:
		return 6
	}
	return 7
}
