package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*AdminUser, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Authenticate(ctx context.Context, rawToken string) (*Session, error)
	CurrentUser(ctx context.Context, id snowflake.ID) (*AdminUser, error)
	// EnsureAdmin creates the bootstrap admin when no account with that
	// email exists. Existing accounts are left untouched.
	EnsureAdmin(ctx context.Context, email, password string) error
}

type CreateUserRequest struct {
	Email    string
	Password string
	Role     Role
}

type LoginRequest struct {
	Email    string
	Password string
}

type LoginResult struct {
	User      *AdminUser
	RawToken  string
	ExpiresAt time.Time
}
