package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type TicketStatus string

const (
	TicketStatusAvailable TicketStatus = "available"
	TicketStatusReserved  TicketStatus = "reserved"
	TicketStatusPurchased TicketStatus = "purchased"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusAvailable, TicketStatusReserved, TicketStatusPurchased:
		return true
	default:
		return false
	}
}

type Ticket struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	RaffleID     snowflake.ID  `gorm:"not null;index" json:"raffle_id"`
	Number       int           `gorm:"not null" json:"number"`
	Status       TicketStatus  `gorm:"not null" json:"status"`
	UserID       *snowflake.ID `gorm:"column:user_id" json:"user_id,omitempty"`
	PromoterCode *string       `gorm:"column:promoter_code" json:"promoter_code,omitempty"`
	ReservedAt   *time.Time    `gorm:"column:reserved_at" json:"reserved_at,omitempty"`
	PurchasedAt  *time.Time    `gorm:"column:purchased_at" json:"purchased_at,omitempty"`
	CreatedAt    time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null" json:"updated_at"`
}

func (Ticket) TableName() string { return "tickets" }

// AdminTicket is a ticket joined with its buyer for back-office listings.
type AdminTicket struct {
	Ticket
	BuyerFirstName *string `gorm:"column:first_name" json:"buyer_first_name,omitempty"`
	BuyerLastName  *string `gorm:"column:last_name" json:"buyer_last_name,omitempty"`
	BuyerPhone     *string `gorm:"column:phone" json:"buyer_phone,omitempty"`
	BuyerEmail     *string `gorm:"column:email" json:"buyer_email,omitempty"`
	BuyerState     *string `gorm:"column:state" json:"buyer_state,omitempty"`
}

// Verification is the public view of a ticket on the verification page.
type Verification struct {
	Number      int          `json:"number"`
	RaffleID    snowflake.ID `json:"raffle_id"`
	RaffleName  string       `json:"raffle_name"`
	Status      TicketStatus `json:"status"`
	BuyerName   string       `json:"buyer_name,omitempty"`
	BuyerPhone  string       `json:"buyer_phone,omitempty"`
	PurchasedAt *time.Time   `json:"purchased_at,omitempty"`
}

// RandomPickResult carries picked tickets; NoTicketsAvailable is a result
// state rather than an error.
type RandomPickResult struct {
	Tickets            []Ticket `json:"tickets"`
	NoTicketsAvailable bool     `json:"no_tickets_available"`
}
