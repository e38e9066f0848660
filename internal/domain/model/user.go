package model

import (
	"time"

	"kiro-flight-backend/internal/domain"

	"github.com/google/uuid"
)

// User is a domain entity identified solely by an opaque device id.
// There is no password flow: first contact from a device creates the record.
type User struct {
	ID            string
	DeviceID      string
	Points        int
	ActivatedCode *string    // Pointer to allow for NULL
	ExpireAt      *time.Time // Pointer to allow for NULL
	CreatedAt     time.Time
}

// MaxDeviceIDLen matches the VARCHAR(32) column bound.
const MaxDeviceIDLen = 32

func NewUser(id string, deviceID string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if deviceID == "" || len(deviceID) > MaxDeviceIDLen {
		return nil, domain.ErrInvalidInput
	}
	u := &User{
		ID:        id,
		DeviceID:  deviceID,
		Points:    0,
		CreatedAt: time.Now(),
	}
	return u, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// IsActivated mirrors the client-facing display flag: a user counts as
// activated while they hold points or a remembered activation code.
func (u *User) IsActivated() bool {
	return u.Points > 0 || u.ActivatedCode != nil
}
