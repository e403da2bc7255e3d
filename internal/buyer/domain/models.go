package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/bwmarrin/snowflake"
)

// Buyer is a ticket purchaser, identified by phone number.
type Buyer struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	FirstName string       `gorm:"not null" json:"first_name"`
	LastName  string       `gorm:"not null" json:"last_name"`
	Phone     string       `gorm:"not null;uniqueIndex" json:"phone"`
	State     string       `json:"state,omitempty"`
	Email     string       `gorm:"not null" json:"email"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Buyer) TableName() string { return "users" }

func (b Buyer) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}

// Form is the buyer data collected at checkout.
type Form struct {
	FirstName     string `json:"first_name" validate:"required"`
	LastName      string `json:"last_name" validate:"required"`
	Phone         string `json:"phone" validate:"required,mxphone"`
	Email         string `json:"email" validate:"required,email"`
	State         string `json:"state"`
	AcceptedTerms bool   `json:"accepted_terms"`
}

// Normalize trims the form and reduces the phone to digits.
func (f Form) Normalize() Form {
	return Form{
		FirstName:     strings.TrimSpace(f.FirstName),
		LastName:      strings.TrimSpace(f.LastName),
		Phone:         DigitsOnly(f.Phone),
		Email:         strings.ToLower(strings.TrimSpace(f.Email)),
		State:         strings.TrimSpace(f.State),
		AcceptedTerms: f.AcceptedTerms,
	}
}

func DigitsOnly(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MaskPhone keeps the last four digits visible.
func MaskPhone(phone string) string {
	digits := DigitsOnly(phone)
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}
