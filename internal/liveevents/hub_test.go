package liveevents

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	ticketdomain "github.com/smallbiznis/sorteos/internal/ticket/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ticket(raffleID snowflake.ID, number int) ticketdomain.Ticket {
	return ticketdomain.Ticket{
		ID:       snowflake.ID(int64(raffleID)*10 + int64(number)),
		RaffleID: raffleID,
		Number:   number,
		Status:   ticketdomain.TicketStatusReserved,
	}
}

func TestHubDeliversToRaffleSubscribers(t *testing.T) {
	hub := NewHub()
	sub, backlog, err := hub.Subscribe("1")
	require.NoError(t, err)
	require.Empty(t, backlog)
	defer sub.Close()

	other, _, err := hub.Subscribe("2")
	require.NoError(t, err)
	defer other.Close()

	hub.PublishTickets("reservation", ticket(1, 1001))

	select {
	case ev := <-sub.Events():
		require.Equal(t, EventTypeUpdate, ev.Type)
		require.Equal(t, "1", ev.RaffleID)
		require.Equal(t, 1001, ev.Ticket.Number)
		require.Equal(t, "reservation", ev.Source)
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}

	select {
	case ev := <-other.Events():
		t.Fatalf("unexpected event for other raffle: %+v", ev)
	default:
	}
}

func TestHubBacklogIsBounded(t *testing.T) {
	hub := NewHub()
	first, _, err := hub.Subscribe("7")
	require.NoError(t, err)
	defer first.Close()

	for i := 0; i < DefaultBufferSize+5; i++ {
		hub.PublishTickets("test", ticket(7, 1001+i))
	}

	late, backlog, err := hub.Subscribe("7")
	require.NoError(t, err)
	defer late.Close()
	require.Len(t, backlog, DefaultBufferSize)
	require.Equal(t, 1006, backlog[0].Ticket.Number)
}

func TestHubDropsWhenSubscriberIsSlow(t *testing.T) {
	hub := NewHub()
	sub, _, err := hub.Subscribe("3")
	require.NoError(t, err)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < DefaultSubscriberBuffer*3; i++ {
			hub.PublishTickets("test", ticket(3, 1001+i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	require.Len(t, sub.Events(), DefaultSubscriberBuffer)
}

func TestHubRemovesEmptyStreams(t *testing.T) {
	hub := NewHub()
	sub, _, err := hub.Subscribe("9")
	require.NoError(t, err)
	sub.Close()
	sub.Close()

	hub.mu.RLock()
	_, ok := hub.streams["9"]
	hub.mu.RUnlock()
	require.False(t, ok)
}

func TestHubRejectsBadInput(t *testing.T) {
	var nilHub *Hub
	_, _, err := nilHub.Subscribe("1")
	require.ErrorIs(t, err, ErrHubUnavailable)

	_, _, err = NewHub().Subscribe("  ")
	require.ErrorIs(t, err, ErrInvalidRaffle)
}

func TestHubForwardsToRelay(t *testing.T) {
	hub := NewHub()
	var relayed []TicketEvent
	hub.setRelay(func(ev TicketEvent) { relayed = append(relayed, ev) })

	hub.PublishTickets("admin", ticket(4, 1001), ticket(4, 1002))
	require.Len(t, relayed, 2)
	require.Equal(t, "4", relayed[1].RaffleID)
}

func TestRelaySkipsOwnOrigin(t *testing.T) {
	hub := NewHub()
	sub, _, err := hub.Subscribe("5")
	require.NoError(t, err)
	defer sub.Close()

	relay := &RedisRelay{hub: hub, log: zap.NewNop(), origin: "self"}

	own, err := json.Marshal(relayMessage{Origin: "self", Event: TicketEvent{Type: EventTypeUpdate, RaffleID: "5"}})
	require.NoError(t, err)
	relay.handle(string(own))
	require.Len(t, sub.Events(), 0)

	remote, err := json.Marshal(relayMessage{Origin: "peer", Event: TicketEvent{Type: EventTypeUpdate, RaffleID: "5"}})
	require.NoError(t, err)
	relay.handle(string(remote))
	require.Len(t, sub.Events(), 1)

	relay.handle("not json")
	require.Len(t, sub.Events(), 1)
}
