package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Promoter struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Code      string       `gorm:"not null;uniqueIndex" json:"code"`
	Active    bool         `gorm:"not null" json:"active"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Promoter) TableName() string { return "promoters" }

// Sale attributes one ticket to a promoter. Confirmed is set once paid.
type Sale struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	PromoterID  snowflake.ID `gorm:"not null;index" json:"promoter_id"`
	TicketID    snowflake.ID `gorm:"not null;uniqueIndex" json:"ticket_id"`
	Confirmed   bool         `gorm:"not null" json:"confirmed"`
	ConfirmedAt *time.Time   `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (Sale) TableName() string { return "promoter_sales" }

// StatsRow is one row of the promoter_stats view.
type StatsRow struct {
	PromoterID     snowflake.ID `gorm:"column:promoter_id"`
	Name           string       `gorm:"column:name"`
	Code           string       `gorm:"column:code"`
	Active         bool         `gorm:"column:active"`
	CreatedAt      time.Time    `gorm:"column:created_at"`
	TotalSales     int64        `gorm:"column:total_sales"`
	TicketsSold    int64        `gorm:"column:tickets_sold"`
	ConfirmedSales int64        `gorm:"column:confirmed_sales"`
}

// Stats is a promoter with its affiliate performance.
type Stats struct {
	ID               snowflake.ID `json:"id"`
	Name             string       `json:"name"`
	Code             string       `json:"code"`
	Active           bool         `json:"active"`
	CreatedAt        time.Time    `json:"created_at"`
	TotalSales       int64        `json:"total_sales"`
	TicketsSold      int64        `json:"tickets_sold"`
	ConfirmedSales   int64        `json:"confirmed_sales"`
	AccumulatedBonus int64        `json:"accumulated_bonus"`
	ExtraPrize       bool         `json:"extra_prize"`
	Link             string       `json:"link"`
}

// RegisterSaleResult reports the outcome of a sale registration.
type RegisterSaleResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
