package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/sorteos/internal/liveevents"
)

const streamHeartbeat = 15 * time.Second

// StreamTicketEvents pushes ticket state changes of one raffle as SSE.
func (s *Server) StreamTicketEvents(c *gin.Context) {
	if s.liveTickets == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	raffleID := strings.TrimSpace(c.Param("id"))
	if raffleID == "" {
		AbortWithError(c, invalidRequestError())
		return
	}
	c.Set(contextRaffleKey, raffleID)

	raffle, err := s.raffleSvc.GetByID(c.Request.Context(), raffleID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	subscription, backlog, err := s.liveTickets.Subscribe(raffle.ID.String())
	if err != nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	defer subscription.Close()

	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}

	for _, event := range backlog {
		if err := writeTicketEvent(writer, event); err != nil {
			return
		}
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-subscription.Events():
			if !ok {
				return
			}
			if err := writeTicketEvent(writer, event); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeTicketEvent(w io.Writer, event liveevents.TicketEvent) error {
	event.Ticket.UserID = nil
	event.Ticket.PromoterCode = nil
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
