package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	buyerdomain "github.com/smallbiznis/sorteos/internal/buyer/domain"
	ticketdomain "github.com/smallbiznis/sorteos/internal/ticket/domain"
)

// Reservation is the outcome of a successful hold.
type Reservation struct {
	RaffleID     snowflake.ID          `json:"raffle_id"`
	Buyer        buyerdomain.Buyer     `json:"buyer"`
	Tickets      []ticketdomain.Ticket `json:"tickets"`
	PromoterCode string                `json:"promoter_code,omitempty"`
	ReservedAt   time.Time             `json:"reserved_at"`
	ExpiresAt    time.Time             `json:"expires_at"`
	Warnings     []Warning             `json:"warnings,omitempty"`
}

func (r Reservation) TicketIDs() []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(r.Tickets))
	for _, ticket := range r.Tickets {
		ids = append(ids, ticket.ID)
	}
	return ids
}

// Warning reports a non-fatal side effect failure, such as a promoter sale
// that could not be registered.
type Warning struct {
	TicketID snowflake.ID `json:"ticket_id"`
	Code     string       `json:"code"`
	Message  string       `json:"message,omitempty"`
}

type PurchaseResult struct {
	Purchased        []ticketdomain.Ticket `json:"purchased"`
	AlreadyPurchased []snowflake.ID        `json:"already_purchased,omitempty"`
	Skipped          []snowflake.ID        `json:"skipped,omitempty"`
	Warnings         []Warning             `json:"warnings,omitempty"`
}

type ReleaseResult struct {
	Released []ticketdomain.Ticket `json:"released"`
}

// Hold is the countdown state of one ticket, recomputed from reserved_at.
type Hold struct {
	TicketID         snowflake.ID              `json:"ticket_id"`
	Number           int                       `json:"number"`
	Status           ticketdomain.TicketStatus `json:"status"`
	ReservedAt       *time.Time                `json:"reserved_at,omitempty"`
	ExpiresAt        *time.Time                `json:"expires_at,omitempty"`
	RemainingSeconds int64                     `json:"remaining_seconds"`
	Remaining        string                    `json:"remaining"`
	Expired          bool                      `json:"expired"`
}
