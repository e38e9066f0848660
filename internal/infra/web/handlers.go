package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"kiro-flight-backend/internal/domain"
	"kiro-flight-backend/internal/domain/model"
)

const serverVersion = "1.0.0"

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"message":   "Kiro Flight Mode Server",
		"version":   serverVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ---- public device API ----

type deviceRequest struct {
	DeviceID string `json:"device_id"`
}

type activateRequest struct {
	DeviceID string `json:"device_id"`
	Code     string `json:"code"`
}

type accountRequest struct {
	DeviceID  string `json:"device_id"`
	AccountID string `json:"account_id"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, err)
		return
	}

	user, accounts, err := s.identityUC.ResolveOrCreate(r.Context(), req.DeviceID)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeData(w, map[string]interface{}{
		"points":         user.Points,
		"is_activated":   user.IsActivated(),
		"accounts":       newAccountViews(accounts),
		"activated_code": newActivatedCodeView(user),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, err)
		return
	}

	if _, err := s.activationUC.Logout(r.Context(), req.DeviceID); err != nil {
		writeFailure(w, err)
		return
	}
	writeMessage(w, "logged out")
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if req.DeviceID != "" && !s.allow(r, req.DeviceID, "activate", s.rateLimits.ActivatePerMinute) {
		writeFailure(w, domain.ErrRateLimited)
		return
	}

	res, err := s.activationUC.Redeem(r.Context(), req.DeviceID, req.Code)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeData(w, map[string]interface{}{
		"current_points": res.CurrentPoints,
		"expire_at":      res.ExpireAt,
		"accounts":       newAccountViews(res.Accounts),
	})
}

type exchangeView struct {
	AccountID string `json:"account_id"`
	model.Credentials
	RemainingPoints int `json:"remaining_points"`
}

func (s *Server) exchangeHandler(source model.AccountSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deviceRequest
		if err := decodeBody(r, &req); err != nil {
			writeFailure(w, err)
			return
		}
		if req.DeviceID != "" && !s.allow(r, req.DeviceID, "exchange", s.rateLimits.ExchangePerMinute) {
			writeFailure(w, domain.ErrRateLimited)
			return
		}

		res, err := s.exchangeUC.Exchange(r.Context(), req.DeviceID, source)
		if err != nil {
			writeFailure(w, err)
			return
		}

		writeData(w, exchangeView{
			AccountID:       res.Account.ID,
			Credentials:     res.Account.Credentials,
			RemainingPoints: res.RemainingPoints,
		})
	}
}

func (s *Server) tokenHandler(source model.AccountSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accountRequest
		if err := decodeBody(r, &req); err != nil {
			writeFailure(w, err)
			return
		}

		account, err := s.accountUC.GetToken(r.Context(), req.DeviceID, req.AccountID, source)
		if err != nil {
			writeFailure(w, err)
			return
		}
		writeData(w, account.Credentials)
	}
}

func (s *Server) handleHideAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, err)
		return
	}

	if err := s.accountUC.Hide(r.Context(), req.DeviceID, req.AccountID); err != nil {
		writeFailure(w, err)
		return
	}
	writeMessage(w, "account removed")
}

func (s *Server) handleAnnouncement(w http.ResponseWriter, _ *http.Request) {
	writeData(w, map[string]string{"announcement": s.announcement})
}

// ---- admin surface ----

type adminLoginRequest struct {
	AdminToken string `json:"admin_token"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if s.adminToken == "" ||
		subtle.ConstantTimeCompare([]byte(req.AdminToken), []byte(s.adminToken)) != 1 {
		writeFailure(w, domain.ErrUnauthorized)
		return
	}
	if _, err := s.auth.Mint(w); err != nil {
		s.log.Error().Err(err).Msg("mint admin session")
		writeFailure(w, err)
		return
	}
	writeMessage(w, "session created")
}

type createCodeRequest struct {
	Code       string `json:"code"`
	Points     int    `json:"points"`
	ExpireDays int    `json:"expire_days"`
}

func (s *Server) handleCreateCode(w http.ResponseWriter, r *http.Request) {
	var req createCodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, err)
		return
	}

	ac, err := s.activationUC.CreateCode(r.Context(), req.Code, req.Points, req.ExpireDays)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, map[string]interface{}{
		"code":      ac.Code,
		"points":    ac.Points,
		"expire_at": ac.ExpireAt,
	})
}

type seedAccountsRequest struct {
	Source   string              `json:"source"`
	Accounts []model.Credentials `json:"accounts"`
}

func (s *Server) handleSeedAccounts(w http.ResponseWriter, r *http.Request) {
	var req seedAccountsRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	source, err := model.ParseSource(req.Source)
	if err != nil {
		writeFailure(w, err)
		return
	}

	n, err := s.accountUC.Seed(r.Context(), source, req.Accounts)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, map[string]int{"seeded": n})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	users, accounts, codes, err := s.statsUC.Totals(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, map[string]int{
		"total_users":    users,
		"total_accounts": accounts,
		"unused_codes":   codes,
	})
}

func paging(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}

func (s *Server) handleListCodes(w http.ResponseWriter, r *http.Request) {
	offset, limit := paging(r)
	codes, err := s.activationUC.List(r.Context(), offset, limit)
	if err != nil {
		writeFailure(w, err)
		return
	}

	type codeView struct {
		Code      string    `json:"code"`
		Points    int       `json:"points"`
		ExpireAt  time.Time `json:"expire_at"`
		IsUsed    bool      `json:"is_used"`
		UsedBy    *string   `json:"used_by"`
		CreatedAt time.Time `json:"created_at"`
	}
	views := make([]codeView, 0, len(codes))
	for _, c := range codes {
		views = append(views, codeView{
			Code: c.Code, Points: c.Points, ExpireAt: c.ExpireAt,
			IsUsed: c.IsUsed, UsedBy: c.UsedBy, CreatedAt: c.CreatedAt,
		})
	}
	writeData(w, views)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	offset, limit := paging(r)
	users, err := s.identityUC.List(r.Context(), offset, limit)
	if err != nil {
		writeFailure(w, err)
		return
	}

	type userView struct {
		ID            string     `json:"id"`
		DeviceID      string     `json:"device_id"`
		Points        int        `json:"points"`
		ActivatedCode *string    `json:"activated_code"`
		ExpireAt      *time.Time `json:"expire_at"`
		CreatedAt     time.Time  `json:"created_at"`
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{
			ID: u.ID, DeviceID: u.DeviceID, Points: u.Points,
			ActivatedCode: u.ActivatedCode, ExpireAt: u.ExpireAt, CreatedAt: u.CreatedAt,
		})
	}
	writeData(w, views)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	offset, limit := paging(r)
	accounts, err := s.accountUC.List(r.Context(), offset, limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, newAccountViews(accounts))
}
