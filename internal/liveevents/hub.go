package liveevents

import (
	"errors"
	"strings"
	"sync"

	ticketdomain "github.com/smallbiznis/sorteos/internal/ticket/domain"
)

const (
	EventTypeUpdate = "UPDATE"
)

const (
	DefaultBufferSize       = 50
	DefaultSubscriberBuffer = 16
)

var (
	ErrHubUnavailable = errors.New("hub_unavailable")
	ErrInvalidRaffle  = errors.New("invalid_raffle")
)

// TicketEvent is a ticket snapshot published after a state change.
type TicketEvent struct {
	Type     string              `json:"type"`
	RaffleID string              `json:"raffle_id"`
	Ticket   ticketdomain.Ticket `json:"ticket"`
	Source   string              `json:"source,omitempty"`
}

// Publisher fans ticket changes out to subscribers of a raffle.
type Publisher interface {
	PublishTickets(source string, tickets ...ticketdomain.Ticket)
}

type Hub struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	bufferSize       int
	subscriberBuffer int
	relay            func(TicketEvent)
}

type stream struct {
	mu     sync.Mutex
	buffer []TicketEvent
	subs   map[uint64]chan TicketEvent
	nextID uint64
}

type Subscription struct {
	hub      *Hub
	raffleID string
	id       uint64
	ch       chan TicketEvent
	once     sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[string]*stream),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

// PublishTickets emits one UPDATE event per ticket to its raffle stream and
// forwards it to the relay when one is attached.
func (h *Hub) PublishTickets(source string, tickets ...ticketdomain.Ticket) {
	if h == nil {
		return
	}
	for _, ticket := range tickets {
		event := TicketEvent{
			Type:     EventTypeUpdate,
			RaffleID: ticket.RaffleID.String(),
			Ticket:   ticket,
			Source:   source,
		}
		h.Publish(event.RaffleID, event)

		h.mu.RLock()
		relay := h.relay
		h.mu.RUnlock()
		if relay != nil {
			relay(event)
		}
	}
}

// Publish delivers an event to local subscribers without blocking.
func (h *Hub) Publish(raffleID string, event TicketEvent) {
	if h == nil {
		return
	}
	key := strings.TrimSpace(raffleID)
	if key == "" {
		return
	}
	h.mu.RLock()
	stream := h.streams[key]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	stream.buffer = append(stream.buffer, event)
	if len(stream.buffer) > h.bufferSize {
		stream.buffer = stream.buffer[len(stream.buffer)-h.bufferSize:]
	}
	subs := make([]chan TicketEvent, 0, len(stream.subs))
	for _, ch := range stream.subs {
		subs = append(subs, ch)
	}
	stream.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe opens a raffle stream and returns the buffered backlog.
func (h *Hub) Subscribe(raffleID string) (*Subscription, []TicketEvent, error) {
	if h == nil {
		return nil, nil, ErrHubUnavailable
	}
	key := strings.TrimSpace(raffleID)
	if key == "" {
		return nil, nil, ErrInvalidRaffle
	}

	stream := h.ensureStream(key)
	stream.mu.Lock()
	id := stream.nextID
	stream.nextID++
	ch := make(chan TicketEvent, h.subscriberBuffer)
	stream.subs[id] = ch
	backlog := append([]TicketEvent(nil), stream.buffer...)
	stream.mu.Unlock()

	return &Subscription{
		hub:      h,
		raffleID: key,
		id:       id,
		ch:       ch,
	}, backlog, nil
}

func (h *Hub) setRelay(fn func(TicketEvent)) {
	h.mu.Lock()
	h.relay = fn
	h.mu.Unlock()
}

func (h *Hub) ensureStream(raffleID string) *stream {
	h.mu.RLock()
	current := h.streams[raffleID]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.streams[raffleID]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan TicketEvent)}
		h.streams[raffleID] = current
	}
	return current
}

func (h *Hub) unsubscribe(raffleID string, id uint64) {
	h.mu.RLock()
	stream := h.streams[raffleID]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	delete(stream.subs, id)
	remaining := len(stream.subs)
	stream.mu.Unlock()
	if remaining != 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streams[raffleID] != stream {
		return
	}
	stream.mu.Lock()
	empty := len(stream.subs) == 0
	stream.mu.Unlock()
	if empty {
		delete(h.streams, raffleID)
	}
}

func (s *Subscription) Events() <-chan TicketEvent {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.raffleID, s.id)
	})
}
