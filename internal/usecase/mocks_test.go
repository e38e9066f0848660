// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"kiro-flight-backend/internal/domain"
	"kiro-flight-backend/internal/domain/model"
	"kiro-flight-backend/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// MockTxManager simply invokes the callback. The mock repos below make each
// critical mutation atomic under their own mutex, mirroring the conditional
// updates the Postgres implementation relies on.
type MockTxManager struct{}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// memUserRepo is a small in-memory implementation used by unit tests.
type memUserRepo struct {
	mu      sync.Mutex
	store   map[string]*model.User // map by ID
	saveErr error                  // used by tests to simulate save failures
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[string]*model.User)}
}

func (m *memUserRepo) Save(ctx context.Context, _ repository.Tx, u *model.User) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.store {
		if other.DeviceID == u.DeviceID && other.ID != u.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *memUserRepo) FindByDeviceID(ctx context.Context, _ repository.Tx, deviceID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.store {
		if u.DeviceID == deviceID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUserRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) CreditActivation(ctx context.Context, _ repository.Tx, userID string, points int, code string, expireAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[userID]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	u.Points += points
	c := code
	e := expireAt
	u.ActivatedCode = &c
	u.ExpireAt = &e
	return u.Points, nil
}

// DebitPoints reproduces the conditional-update semantics of the Postgres
// repo: check and decrement under one lock.
func (m *memUserRepo) DebitPoints(ctx context.Context, _ repository.Tx, userID string, price int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[userID]
	if !ok {
		return 0, domain.ErrInsufficientPoints
	}
	if u.Points < price {
		return 0, domain.ErrInsufficientPoints
	}
	u.Points -= price
	return u.Points, nil
}

func (m *memUserRepo) ClearActivation(ctx context.Context, _ repository.Tx, deviceID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.store {
		if u.DeviceID == deviceID {
			u.ActivatedCode = nil
			u.ExpireAt = nil
			return true, nil
		}
	}
	return false, nil
}

func (m *memUserRepo) CountUsers(ctx context.Context, _ repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store), nil
}

func (m *memUserRepo) List(ctx context.Context, _ repository.Tx, offset, limit int) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, u := range m.store {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ repository.UserRepository = (*memUserRepo)(nil)

// memCodeRepo holds activation codes; MarkUsed is the one-shot CAS.
type memCodeRepo struct {
	mu    sync.Mutex
	store map[string]*model.ActivationCode // map by code string
}

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{store: make(map[string]*model.ActivationCode)}
}

func (m *memCodeRepo) Save(ctx context.Context, _ repository.Tx, code *model.ActivationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.store[code.Code]; dup {
		return domain.ErrAlreadyExists
	}
	if code.ID == "" {
		code.ID = code.Code
	}
	cp := *code
	m.store[code.Code] = &cp
	return nil
}

func (m *memCodeRepo) FindByCodeForUpdate(ctx context.Context, _ repository.Tx, code string) (*model.ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.store[code]
	if !ok {
		return nil, domain.ErrCodeInvalidOrUsed
	}
	cp := *c
	return &cp, nil
}

func (m *memCodeRepo) MarkUsed(ctx context.Context, _ repository.Tx, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.store {
		if c.ID == id {
			if c.IsUsed {
				return domain.ErrCodeInvalidOrUsed
			}
			c.IsUsed = true
			uid := userID
			c.UsedBy = &uid
			return nil
		}
	}
	return domain.ErrCodeInvalidOrUsed
}

func (m *memCodeRepo) CountUnused(ctx context.Context, _ repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.store {
		if !c.IsUsed {
			n++
		}
	}
	return n, nil
}

func (m *memCodeRepo) List(ctx context.Context, _ repository.Tx, offset, limit int) ([]*model.ActivationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ActivationCode
	for _, c := range m.store {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

var _ repository.ActivationCodeRepository = (*memCodeRepo)(nil)

// memAccountRepo keeps pool accounts; ClaimUnowned binds under one lock.
type memAccountRepo struct {
	mu    sync.Mutex
	store map[string]*model.Account
	order []string // insertion order, oldest first
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{store: make(map[string]*model.Account)}
}

func (m *memAccountRepo) Insert(ctx context.Context, _ repository.Tx, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.store[a.ID] = &cp
	m.order = append(m.order, a.ID)
	return nil
}

func (m *memAccountRepo) ClaimUnowned(ctx context.Context, _ repository.Tx, userID string, source model.AccountSource) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		a := m.store[id]
		if a.UserID == "" && a.Source == source && !a.IsHidden {
			a.UserID = userID
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *memAccountRepo) FindOwned(ctx context.Context, _ repository.Tx, userID, accountID string, source model.AccountSource) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[accountID]
	if !ok || a.UserID != userID {
		return nil, domain.ErrAccountNotFound
	}
	if source != "" && a.Source != source {
		return nil, domain.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAccountRepo) Hide(ctx context.Context, _ repository.Tx, userID, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.store[accountID]; ok && a.UserID == userID {
		a.IsHidden = true
	}
	return nil
}

func (m *memAccountRepo) ListVisible(ctx context.Context, _ repository.Tx, userID string) ([]*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Account
	// newest first
	for i := len(m.order) - 1; i >= 0; i-- {
		a := m.store[m.order[i]]
		if a.UserID == userID && !a.IsHidden {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memAccountRepo) CountVisible(ctx context.Context, _ repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.store {
		if !a.IsHidden {
			n++
		}
	}
	return n, nil
}

func (m *memAccountRepo) List(ctx context.Context, _ repository.Tx, offset, limit int) ([]*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Account
	for i := len(m.order) - 1; i >= 0; i-- {
		cp := *m.store[m.order[i]]
		out = append(out, &cp)
	}
	return out, nil
}

var _ repository.AccountRepository = (*memAccountRepo)(nil)
