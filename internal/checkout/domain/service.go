package domain

import (
	"context"
	"errors"

	buyerdomain "github.com/smallbiznis/sorteos/internal/buyer/domain"
)

type InitiateRequest struct {
	Method       Method           `json:"method"`
	RaffleID     string           `json:"raffle_id"`
	TicketIDs    []string         `json:"ticket_ids"`
	Buyer        buyerdomain.Form `json:"buyer"`
	PromoterCode string           `json:"promoter_code"`

	// Attempt is the 1-based provider attempt counter kept by the storefront.
	Attempt int `json:"attempt"`
}

type ReceiptRequest struct {
	TicketIDs []string
	Method    Method
}

type Service interface {
	Initiate(ctx context.Context, req InitiateRequest) (Checkout, error)
	Receipt(ctx context.Context, req ReceiptRequest) (ReceiptFile, error)
}

var (
	ErrInvalidMethod        = errors.New("invalid_method")
	ErrInvalidRaffle        = errors.New("invalid_raffle")
	ErrTicketsNotFound      = errors.New("tickets_not_found")
	ErrTicketsNotReserved   = errors.New("tickets_not_reserved")
	ErrTicketRaffleMismatch = errors.New("ticket_raffle_mismatch")
	ErrReceiptUnavailable   = errors.New("receipt_unavailable")
)
