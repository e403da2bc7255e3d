package domain

import (
	"context"
	"errors"
)

const (
	RandomPickMin = 1
	RandomPickMax = 100
)

type RandomPickRequest struct {
	RaffleID string   `json:"-"`
	Count    int      `json:"count"`
	Exclude  []string `json:"exclude"`
}

type VerifyRequest struct {
	Number   int
	RaffleID string
}

type ListTicketsRequest struct {
	RaffleID string
	Status   string
}

type Service interface {
	ListByRaffle(ctx context.Context, req ListTicketsRequest) ([]Ticket, error)
	ListAdmin(ctx context.Context, req ListTicketsRequest) ([]AdminTicket, error)
	GetByIDs(ctx context.Context, ids []string) ([]Ticket, error)
	RandomPick(ctx context.Context, req RandomPickRequest) (RandomPickResult, error)
	Verify(ctx context.Context, req VerifyRequest) (Verification, error)
}

var (
	ErrInvalidID             = errors.New("invalid_id")
	ErrInvalidRaffle         = errors.New("invalid_raffle")
	ErrInvalidNumber         = errors.New("invalid_ticket_number")
	ErrInvalidStatus         = errors.New("invalid_status")
	ErrNoTickets             = errors.New("no_tickets_selected")
	ErrTicketNotAvailable    = errors.New("ticket_not_available")
	ErrSelectionLimitReached = errors.New("selection_limit_reached")
	ErrNotFound              = errors.New("not_found")
)
