package protocol

import (
	"maps"
	"slices"
)

// Sequencer hands out per-sender sequence numbers starting at 1.
type Sequencer struct {
	last uint64
}

func (s *Sequencer) Next() uint64 {
	s.last++
	return s.last
}

func (s *Sequencer) Reset() {
	s.last = 0
}

// DefaultReorderLimit bounds how many early events are held per sender before
// a gap is given up on.
const DefaultReorderLimit = 256

// Reorderer restores per-sender order of sequenced envelopes. Envelopes with
// seq 0 pass straight through. Duplicates are dropped, early arrivals are
// held until the gap closes, and a sender whose backlog exceeds the limit has
// its gap skipped.
type Reorderer struct {
	limit   int
	senders map[string]*senderQueue
}

type senderQueue struct {
	expected uint64
	pending  map[uint64]Envelope
}

func NewReorderer(limit int) *Reorderer {
	if limit <= 0 {
		limit = DefaultReorderLimit
	}

	return &Reorderer{
		limit:   limit,
		senders: make(map[string]*senderQueue),
	}
}

// Push accepts one envelope and returns every envelope now ready for
// delivery, in order.
func (r *Reorderer) Push(env Envelope) []Envelope {
	if env.Seq == 0 {
		return []Envelope{env}
	}

	q, ok := r.senders[env.From]
	if !ok {
		// The first envelope seen from a sender sets its baseline, so a
		// participant joining mid-round does not wait for events it will
		// never receive.
		q = &senderQueue{expected: env.Seq, pending: make(map[uint64]Envelope)}
		r.senders[env.From] = q
	}

	if env.Seq < q.expected {
		return nil
	}
	if _, dup := q.pending[env.Seq]; dup {
		return nil
	}
	q.pending[env.Seq] = env

	out := q.drain()

	if len(q.pending) > r.limit {
		q.expected = q.lowest()
		out = append(out, q.drain()...)
	}

	return out
}

func (q *senderQueue) drain() []Envelope {
	var out []Envelope
	for {
		env, ok := q.pending[q.expected]
		if !ok {
			return out
		}
		delete(q.pending, q.expected)
		out = append(out, env)
		q.expected++
	}
}

func (q *senderQueue) lowest() uint64 {
	return slices.Min(slices.Collect(maps.Keys(q.pending)))
}

// Pending reports how many envelopes are held back across all senders.
func (r *Reorderer) Pending() int {
	n := 0
	for _, q := range r.senders {
		n += len(q.pending)
	}
	return n
}

// Forget drops all state for one sender.
func (r *Reorderer) Forget(sender string) {
	delete(r.senders, sender)
}

// Reset drops all state, typically at a round boundary when senders restart
// their sequences.
func (r *Reorderer) Reset() {
	clear(r.senders)
}
