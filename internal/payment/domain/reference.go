package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// BuildExternalReference formats raffle_<raffle>_<unixMillis>_tickets_<id>_<id>...
func BuildExternalReference(raffleID snowflake.ID, at time.Time, ticketIDs []snowflake.ID) string {
	var b strings.Builder
	b.WriteString("raffle_")
	b.WriteString(raffleID.String())
	b.WriteString("_")
	b.WriteString(strconv.FormatInt(at.UnixMilli(), 10))
	b.WriteString("_tickets")
	for _, id := range ticketIDs {
		b.WriteString("_")
		b.WriteString(id.String())
	}
	return b.String()
}

// ParseExternalReference extracts the raffle and ticket ids from a reference
// built by BuildExternalReference. ok is false for foreign references.
func ParseExternalReference(ref string) (raffleID string, ticketIDs []string, ok bool) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, "raffle_") {
		return "", nil, false
	}
	head, tail, found := strings.Cut(strings.TrimPrefix(ref, "raffle_"), "_tickets_")
	if !found {
		return "", nil, false
	}
	raffleID, _, _ = strings.Cut(head, "_")
	for _, part := range strings.Split(tail, "_") {
		if part = strings.TrimSpace(part); part != "" {
			ticketIDs = append(ticketIDs, part)
		}
	}
	if raffleID == "" || len(ticketIDs) == 0 {
		return "", nil, false
	}
	return raffleID, ticketIDs, true
}
