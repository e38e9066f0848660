package web_test

import (
	"context"
	"time"

	"kiro-flight-backend/internal/config"
	"kiro-flight-backend/internal/domain/model"
	red "kiro-flight-backend/internal/infra/redis"
	"kiro-flight-backend/internal/infra/web"
	"kiro-flight-backend/internal/usecase"

	"github.com/rs/zerolog"
)

// Stub use cases with overridable function fields. Handlers are exercised
// through the router, so only the functions a test touches need filling in.

type stubIdentityUC struct {
	ResolveOrCreateFn func(ctx context.Context, deviceID string) (*model.User, []*model.Account, error)
	ListFn            func(ctx context.Context, offset, limit int) ([]*model.User, error)
}

func (s *stubIdentityUC) ResolveOrCreate(ctx context.Context, deviceID string) (*model.User, []*model.Account, error) {
	return s.ResolveOrCreateFn(ctx, deviceID)
}

func (s *stubIdentityUC) Resolve(ctx context.Context, deviceID string) (*model.User, error) {
	u, _, err := s.ResolveOrCreateFn(ctx, deviceID)
	return u, err
}

func (s *stubIdentityUC) Count(ctx context.Context) (int, error) { return 0, nil }

func (s *stubIdentityUC) List(ctx context.Context, offset, limit int) ([]*model.User, error) {
	return s.ListFn(ctx, offset, limit)
}

type stubActivationUC struct {
	RedeemFn     func(ctx context.Context, deviceID, code string) (*usecase.RedeemResult, error)
	LogoutFn     func(ctx context.Context, deviceID string) (bool, error)
	CreateCodeFn func(ctx context.Context, code string, points, expireDays int) (*model.ActivationCode, error)
	ListFn       func(ctx context.Context, offset, limit int) ([]*model.ActivationCode, error)
}

func (s *stubActivationUC) Redeem(ctx context.Context, deviceID, code string) (*usecase.RedeemResult, error) {
	return s.RedeemFn(ctx, deviceID, code)
}

func (s *stubActivationUC) Logout(ctx context.Context, deviceID string) (bool, error) {
	return s.LogoutFn(ctx, deviceID)
}

func (s *stubActivationUC) CreateCode(ctx context.Context, code string, points, expireDays int) (*model.ActivationCode, error) {
	return s.CreateCodeFn(ctx, code, points, expireDays)
}

func (s *stubActivationUC) CountUnused(ctx context.Context) (int, error) { return 0, nil }

func (s *stubActivationUC) List(ctx context.Context, offset, limit int) ([]*model.ActivationCode, error) {
	return s.ListFn(ctx, offset, limit)
}

type stubExchangeUC struct {
	ExchangeFn func(ctx context.Context, deviceID string, source model.AccountSource) (*usecase.ExchangeResult, error)
}

func (s *stubExchangeUC) Exchange(ctx context.Context, deviceID string, source model.AccountSource) (*usecase.ExchangeResult, error) {
	return s.ExchangeFn(ctx, deviceID, source)
}

func (s *stubExchangeUC) Price() int { return 100 }

type stubAccountUC struct {
	GetTokenFn func(ctx context.Context, deviceID, accountID string, source model.AccountSource) (*model.Account, error)
	HideFn     func(ctx context.Context, deviceID, accountID string) error
	SeedFn     func(ctx context.Context, source model.AccountSource, creds []model.Credentials) (int, error)
	ListFn     func(ctx context.Context, offset, limit int) ([]*model.Account, error)
}

func (s *stubAccountUC) GetToken(ctx context.Context, deviceID, accountID string, source model.AccountSource) (*model.Account, error) {
	return s.GetTokenFn(ctx, deviceID, accountID, source)
}

func (s *stubAccountUC) Hide(ctx context.Context, deviceID, accountID string) error {
	return s.HideFn(ctx, deviceID, accountID)
}

func (s *stubAccountUC) Seed(ctx context.Context, source model.AccountSource, creds []model.Credentials) (int, error) {
	return s.SeedFn(ctx, source, creds)
}

func (s *stubAccountUC) CountVisible(ctx context.Context) (int, error) { return 0, nil }

func (s *stubAccountUC) List(ctx context.Context, offset, limit int) ([]*model.Account, error) {
	return s.ListFn(ctx, offset, limit)
}

type stubStatsUC struct {
	TotalsFn func(ctx context.Context) (int, int, int, error)
}

func (s *stubStatsUC) Totals(ctx context.Context) (int, int, int, error) {
	return s.TotalsFn(ctx)
}

// denyLimiter rejects every request; the noop limiter covers the allow path.
type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, nil
}

var _ usecase.IdentityUseCase = (*stubIdentityUC)(nil)
var _ usecase.ActivationUseCase = (*stubActivationUC)(nil)
var _ usecase.ExchangeUseCase = (*stubExchangeUC)(nil)
var _ usecase.AccountUseCase = (*stubAccountUC)(nil)
var _ usecase.StatsUseCase = (*stubStatsUC)(nil)

const testAdminToken = "test-admin-token"

type serverDeps struct {
	identity   *stubIdentityUC
	activation *stubActivationUC
	exchange   *stubExchangeUC
	account    *stubAccountUC
	stats      *stubStatsUC
	limiter    red.Limiter
}

func newTestServer(deps serverDeps) *web.Server {
	if deps.identity == nil {
		deps.identity = &stubIdentityUC{}
	}
	if deps.activation == nil {
		deps.activation = &stubActivationUC{}
	}
	if deps.exchange == nil {
		deps.exchange = &stubExchangeUC{}
	}
	if deps.account == nil {
		deps.account = &stubAccountUC{}
	}
	if deps.stats == nil {
		deps.stats = &stubStatsUC{}
	}

	cfg := &config.Config{}
	cfg.Admin.Token = testAdminToken
	cfg.Server.Announcement = "scheduled maintenance tonight"
	cfg.RateLimit.ActivatePerMinute = 10
	cfg.RateLimit.ExchangePerMinute = 5

	auth := web.NewAuthManager("test-session-secret", false, 30*time.Minute)
	logger := zerolog.Nop()

	var limiter red.Limiter = red.NoopLimiter{}
	if deps.limiter != nil {
		limiter = deps.limiter
	}

	return web.NewServer(deps.identity, deps.activation, deps.exchange, deps.account, deps.stats, auth, limiter, cfg, &logger)
}
