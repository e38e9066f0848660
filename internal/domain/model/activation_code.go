package model

import (
	"time"
)

// ActivationCode represents a single-use code that can be redeemed for points.
type ActivationCode struct {
	ID        string
	Code      string
	Points    int
	ExpireAt  time.Time
	IsUsed    bool
	UsedBy    *string // Pointer to allow for NULL
	CreatedAt time.Time
}

// Expired reports whether the code's validity window has passed at t.
func (c *ActivationCode) Expired(t time.Time) bool {
	return !t.Before(c.ExpireAt)
}
