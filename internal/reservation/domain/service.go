package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	buyerdomain "github.com/smallbiznis/sorteos/internal/buyer/domain"
)

type ReserveRequest struct {
	RaffleID     string           `json:"raffle_id"`
	TicketIDs    []string         `json:"ticket_ids"`
	Buyer        buyerdomain.Form `json:"buyer"`
	PromoterCode string           `json:"promoter_code"`
}

// Holder names the buyer a hold must belong to. BuyerID takes precedence
// over Phone. The zero Holder matches any buyer.
type Holder struct {
	BuyerID string `json:"buyer_id,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

func (h Holder) IsZero() bool {
	return strings.TrimSpace(h.BuyerID) == "" && strings.TrimSpace(h.Phone) == ""
}

type PurchaseRequest struct {
	TicketIDs []string
	At        time.Time
	// Source labels the caller in events and metrics (webhook, admin).
	Source string
	// Holder restricts the purchase to tickets still held by that buyer.
	Holder Holder
	// ConfirmSales marks promoter sales of the purchased tickets as confirmed.
	ConfirmSales bool
	// PromoterCode applies to tickets that were reserved without one.
	PromoterCode string
}

type ReleaseRequest struct {
	TicketIDs     []string `json:"ticket_ids"`
	Holder        Holder   `json:"-"`
	ClearPromoter bool     `json:"-"`
	Source        string   `json:"-"`
}

type Service interface {
	// Reserve holds the tickets for the buyer as one all-or-nothing batch.
	Reserve(ctx context.Context, req ReserveRequest) (Reservation, error)
	// Purchase confirms unexpired reserved tickets of the holder. Tickets the
	// holder already purchased count as success.
	Purchase(ctx context.Context, req PurchaseRequest) (PurchaseResult, error)
	// Release returns the holder's reserved tickets to available. Other
	// states and other buyers' holds are untouched.
	Release(ctx context.Context, req ReleaseRequest) (ReleaseResult, error)
	// ForceRelease returns any non-available ticket to available and clears its promoter code.
	ForceRelease(ctx context.Context, ticketIDs []string) (ReleaseResult, error)
	// ReleaseExpired releases holds older than the reservation window.
	ReleaseExpired(ctx context.Context, now time.Time) (int, error)
	Status(ctx context.Context, ticketIDs []string) ([]Hold, error)
	Window() time.Duration
}

var (
	ErrInvalidRaffle        = errors.New("invalid_raffle")
	ErrRaffleNotActive      = errors.New("raffle_not_active")
	ErrTicketsUnavailable   = errors.New("tickets_unavailable")
	ErrTicketRaffleMismatch = errors.New("ticket_raffle_mismatch")
	ErrSelectionTooLarge    = errors.New("selection_limit_reached")
	ErrNotFound             = errors.New("not_found")
)
