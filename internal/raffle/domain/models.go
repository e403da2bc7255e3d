package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type RaffleStatus string

const (
	RaffleStatusDraft     RaffleStatus = "draft"
	RaffleStatusActive    RaffleStatus = "active"
	RaffleStatusCompleted RaffleStatus = "completed"
)

// FirstTicketNumber is the number printed on the first ticket of every raffle.
const FirstTicketNumber = 1001

type Raffle struct {
	ID           snowflake.ID                `gorm:"primaryKey" json:"id"`
	Slug         string                      `gorm:"not null;uniqueIndex" json:"slug"`
	Name         string                      `gorm:"not null" json:"name"`
	Description  string                      `json:"description"`
	ImageURL     string                      `gorm:"column:image_url" json:"image_url,omitempty"`
	VideoURL     string                      `gorm:"column:video_url" json:"video_url,omitempty"`
	Price        int64                       `gorm:"not null" json:"price"`
	Currency     string                      `gorm:"not null" json:"currency"`
	DrawDate     time.Time                   `gorm:"not null" json:"draw_date"`
	Status       RaffleStatus                `gorm:"not null" json:"status"`
	TotalTickets int                         `gorm:"not null" json:"total_tickets"`
	PrizeItems   datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"prize_items"`
	CreatedAt    time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time                   `gorm:"not null" json:"updated_at"`
}

func (Raffle) TableName() string { return "raffles" }

// LastTicketNumber returns the highest valid ticket number.
func (r Raffle) LastTicketNumber() int {
	return FirstTicketNumber + r.TotalTickets - 1
}

// Stats summarises ticket states for one raffle.
type Stats struct {
	RaffleID   snowflake.ID `json:"raffle_id"`
	Total      int64        `json:"total"`
	Available  int64        `json:"available"`
	Reserved   int64        `json:"reserved"`
	Purchased  int64        `json:"purchased"`
	TotalSales int64        `json:"total_sales"`
}

// CanTransition reports whether an admin may move a raffle between states.
func CanTransition(from, to RaffleStatus) bool {
	switch from {
	case RaffleStatusDraft:
		return to == RaffleStatusActive
	case RaffleStatusActive:
		return to == RaffleStatusCompleted || to == RaffleStatusDraft
	default:
		return false
	}
}
