package model

import (
	"time"

	"kiro-flight-backend/internal/domain"
)

// AccountSource enumerates the supported credential pools.
type AccountSource string

const (
	SourceGoogle AccountSource = "google"
	SourceGithub AccountSource = "github"
)

// ParseSource validates a source tag coming from the outside.
func ParseSource(s string) (AccountSource, error) {
	switch AccountSource(s) {
	case SourceGoogle:
		return SourceGoogle, nil
	case SourceGithub:
		return SourceGithub, nil
	default:
		return "", domain.ErrInvalidInput
	}
}

// Credentials is the source-specific bundle attached to an account.
// Which fields are populated depends on the source; the ledger treats
// the bundle as opaque.
type Credentials struct {
	Email        string `json:"email,omitempty"`
	Password     string `json:"password,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	Login        string `json:"login,omitempty"`
	ProfileURL   string `json:"profile_url,omitempty"`
}

// Account is a pooled credential record. UserID is empty only while the
// account sits unclaimed in the pre-seeded pool; once assigned it never
// changes. Hidden accounts are retained for audit, never deleted.
type Account struct {
	ID          string
	UserID      string
	Source      AccountSource
	Credentials Credentials
	IsHidden    bool
	CreatedAt   time.Time
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }
