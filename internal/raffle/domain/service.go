package domain

import (
	"context"
	"errors"
	"time"
)

type CreateRaffleRequest struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"image_url"`
	VideoURL     string    `json:"video_url"`
	Price        int64     `json:"price"`
	DrawDate     time.Time `json:"draw_date"`
	TotalTickets int       `json:"total_tickets"`
	PrizeItems   []string  `json:"prize_items"`
	Status       string    `json:"status"`
}

// UpdateRaffleRequest leaves fields untouched when nil.
type UpdateRaffleRequest struct {
	ID          string     `json:"-"`
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	ImageURL    *string    `json:"image_url"`
	VideoURL    *string    `json:"video_url"`
	Price       *int64     `json:"price"`
	DrawDate    *time.Time `json:"draw_date"`
	PrizeItems  []string   `json:"prize_items"`
}

type SetStatusRequest struct {
	ID     string `json:"-"`
	Status string `json:"status"`
}

type ListRafflesRequest struct {
	Status string
}

type Service interface {
	Create(ctx context.Context, req CreateRaffleRequest) (Raffle, error)
	Update(ctx context.Context, req UpdateRaffleRequest) (Raffle, error)
	SetStatus(ctx context.Context, req SetStatusRequest) (Raffle, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Raffle, error)
	GetBySlug(ctx context.Context, slug string) (Raffle, error)
	List(ctx context.Context, req ListRafflesRequest) ([]Raffle, error)
	ListActive(ctx context.Context) ([]Raffle, error)
	Stats(ctx context.Context, id string) (Stats, error)
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidPrice        = errors.New("invalid_price")
	ErrInvalidTotalTickets = errors.New("invalid_total_tickets")
	ErrInvalidDrawDate     = errors.New("invalid_draw_date")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidTransition   = errors.New("invalid_status_transition")
	ErrRaffleCompleted     = errors.New("raffle_completed")
	ErrRaffleNotActive     = errors.New("raffle_not_active")
	ErrNotFound            = errors.New("not_found")
)
