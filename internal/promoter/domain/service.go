package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreatePromoterRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type UpdatePromoterRequest struct {
	ID   string  `json:"-"`
	Name *string `json:"name"`
	Code *string `json:"code"`
}

type RegisterSaleRequest struct {
	TicketID  string
	Code      string
	Confirmed bool
}

// CommissionPreview is the bonus shown to a buyer who used a promoter code.
type CommissionPreview struct {
	Code       string `json:"code"`
	Tickets    int    `json:"tickets"`
	Commission int64  `json:"commission"`
}

type Service interface {
	Create(ctx context.Context, req CreatePromoterRequest) (Promoter, error)
	Update(ctx context.Context, req UpdatePromoterRequest) (Promoter, error)
	ToggleActive(ctx context.Context, id string) (Promoter, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Promoter, error)
	// GetActiveByCode resolves a ?promo= code for the storefront.
	GetActiveByCode(ctx context.Context, code string) (Promoter, error)
	ListStats(ctx context.Context) ([]Stats, error)
	RegisterSale(ctx context.Context, req RegisterSaleRequest) RegisterSaleResult
	// DiscardSales drops the attribution of tickets that went back to available.
	DiscardSales(ctx context.Context, db *gorm.DB, ticketIDs []snowflake.ID) error
	Preview(code string, tickets int) CommissionPreview
	Link(code string) string
	QRCode(ctx context.Context, id string, size int) ([]byte, error)
}

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidCode   = errors.New("invalid_code")
	ErrInvalidTicket = errors.New("invalid_ticket")
	ErrDuplicateCode = errors.New("duplicate_code")
	ErrInactive      = errors.New("promoter_inactive")
	ErrNotFound      = errors.New("not_found")
)
