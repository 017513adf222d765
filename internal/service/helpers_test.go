package service

import (
	"context"
	"errors"
	"time"

	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/storage/memory"
)

var errStoreDown = errors.New("store down")

// fakeClock 可手动推进的时钟
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newMemoryStore 创建与时钟同步的内存存储
func newMemoryStore(clock *fakeClock) *memory.Store {
	store := memory.NewStore()
	store.SetClock(clock.Now)
	return store
}

// failingStore 所有读写都返回 errStoreDown
type failingStore struct{}

func (failingStore) SaveEmail(context.Context, *domain.Email) error { return errStoreDown }

func (failingStore) ListEmailsByAddress(context.Context, string) ([]domain.Email, error) {
	return nil, errStoreDown
}

func (failingStore) GetInboxStatistics(context.Context) (*domain.AdminStats, error) {
	return nil, errStoreDown
}

func (failingStore) GetSetting(context.Context, string) (*domain.Setting, error) {
	return nil, errStoreDown
}

func (failingStore) SaveSetting(context.Context, *domain.Setting) error { return errStoreDown }

func (failingStore) SaveAdminSession(context.Context, *domain.AdminSession) error {
	return errStoreDown
}

func (failingStore) GetAdminSession(context.Context, string) (*domain.AdminSession, error) {
	return nil, errStoreDown
}

func (failingStore) DeleteAdminSession(context.Context, string) error { return errStoreDown }

func (failingStore) GetDomainExpiration(context.Context, string) (*domain.DomainExpiration, error) {
	return nil, errStoreDown
}

func (failingStore) SaveDomainExpiration(context.Context, *domain.DomainExpiration) error {
	return errStoreDown
}

func (failingStore) DeleteDomainExpiration(context.Context, string) error { return errStoreDown }
