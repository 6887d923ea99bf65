// Package event implements the per-subject event bus feeding websocket
// subscribers.
package event

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind addresses one class of event sources.
type Kind string

// Event kinds.
const (
	KindBrowser  Kind = "browser"
	KindPlayer   Kind = "player"
	KindPlaylist Kind = "playlist"
)

// ParseKind converts a path segment to a kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindBrowser, KindPlayer, KindPlaylist:
		return Kind(s), true
	}
	return "", false
}

// Sink receives an event payload. Returning an error rejects delivery and
// removes the listener.
type Sink func(payload []byte) error

// Token identifies one registered listener.
type Token string

type listener struct {
	subject string
	sink    Sink
}

// Bus fans events out to listeners. A listener subscribed with an empty
// subject receives every event of its kind.
type Bus struct {
	log *zap.Logger

	mu        sync.Mutex
	listeners map[Kind]map[Token]listener
}

// NewBus creates an empty bus.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{log: log, listeners: map[Kind]map[Token]listener{}}
}

// AddListener subscribes a sink to events of (kind, subject) and returns its
// removal token. Events emitted before the subscription are not replayed.
func (b *Bus) AddListener(kind Kind, subject string, sink Sink) Token {
	token := Token(uuid.NewString())
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners[kind] == nil {
		b.listeners[kind] = map[Token]listener{}
	}
	b.listeners[kind][token] = listener{subject: subject, sink: sink}
	return token
}

// RemoveListener drops a listener. Unknown tokens are ignored.
func (b *Bus) RemoveListener(kind Kind, token Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners[kind], token)
}

// Emit delivers payload to every listener matching (kind, subject), exactly
// once each. Sinks run outside the bus lock; a sink that rejects delivery is
// removed.
func (b *Bus) Emit(kind Kind, subject string, payload []byte) {
	type delivery struct {
		token Token
		sink  Sink
	}
	b.mu.Lock()
	matched := make([]delivery, 0, len(b.listeners[kind]))
	for token, l := range b.listeners[kind] {
		if l.subject == "" || l.subject == subject {
			matched = append(matched, delivery{token: token, sink: l.sink})
		}
	}
	b.mu.Unlock()

	for _, d := range matched {
		if err := d.sink(payload); err != nil {
			b.log.Debug("listener rejected event",
				zap.String("kind", string(kind)),
				zap.String("subject", subject),
				zap.Error(err))
			b.RemoveListener(kind, d.token)
		}
	}
}
