package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"kiro-flight-backend/internal/domain"
	"kiro-flight-backend/internal/domain/model"
)

// Envelope is the wire contract shared by every operation: code=0 success,
// code=1 handled failure, code=404/500 transport-level. Callers check the
// envelope's code, never the HTTP status alone.
type Envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Envelope{Code: 0, Data: data})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, Envelope{Code: 0, Message: msg})
}

// writeFailure maps a taxonomy error to its code=1 message. Unrecognized
// errors are a store/infrastructure problem: same envelope shape, generic
// message, nothing fatal to the process.
func writeFailure(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusOK, Envelope{Code: 1, Message: failureMessage(err)})
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "missing or invalid parameters"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user not found"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account not found"
	case errors.Is(err, domain.ErrCodeInvalidOrUsed):
		return "activation code is invalid or already used"
	case errors.Is(err, domain.ErrCodeExpired):
		return "activation code has expired"
	case errors.Is(err, domain.ErrInsufficientPoints):
		return "insufficient points"
	case errors.Is(err, domain.ErrAlreadyExists):
		return "already exists"
	case errors.Is(err, domain.ErrRateLimited):
		return "too many requests, try again later"
	case errors.Is(err, domain.ErrUnauthorized):
		return "permission denied"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "service temporarily unavailable"
	default:
		return "server error"
	}
}

// ---- response views ----

type activatedCodeView struct {
	Code     string    `json:"code"`
	ExpireAt time.Time `json:"expire_at"`
}

type accountView struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Email        string    `json:"email,omitempty"`
	Password     string    `json:"password,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	AccessToken  string    `json:"access_token,omitempty"`
	ClientID     string    `json:"client_id,omitempty"`
	ClientSecret string    `json:"client_secret,omitempty"`
	Login        string    `json:"login,omitempty"`
	ProfileURL   string    `json:"profile_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func newAccountView(a *model.Account) accountView {
	return accountView{
		ID:           a.ID,
		Source:       string(a.Source),
		Email:        a.Credentials.Email,
		Password:     a.Credentials.Password,
		RefreshToken: a.Credentials.RefreshToken,
		AccessToken:  a.Credentials.AccessToken,
		ClientID:     a.Credentials.ClientID,
		ClientSecret: a.Credentials.ClientSecret,
		Login:        a.Credentials.Login,
		ProfileURL:   a.Credentials.ProfileURL,
		CreatedAt:    a.CreatedAt,
	}
}

func newAccountViews(accounts []*model.Account) []accountView {
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, newAccountView(a))
	}
	return views
}

func newActivatedCodeView(u *model.User) *activatedCodeView {
	if u.ActivatedCode == nil {
		return nil
	}
	v := &activatedCodeView{Code: *u.ActivatedCode}
	if u.ExpireAt != nil {
		v.ExpireAt = *u.ExpireAt
	}
	return v
}
