package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/storage"
)

// Store 使用内存保存邮件、设置与会话数据，主要用于开发验证和测试。
type Store struct {
	mu          sync.RWMutex
	emails      map[string]*domain.Email            // emailID -> email
	byAddress   map[string]map[string]struct{}      // address -> emailID 集合
	settings    map[string]*domain.Setting          // key -> setting
	sessions    map[string]*domain.AdminSession     // token -> session
	expirations map[string]*domain.DomainExpiration // domain -> record

	now func() time.Time
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		emails:      make(map[string]*domain.Email),
		byAddress:   make(map[string]map[string]struct{}),
		settings:    make(map[string]*domain.Setting),
		sessions:    make(map[string]*domain.AdminSession),
		expirations: make(map[string]*domain.DomainExpiration),
		now:         time.Now,
	}
}

// SetClock 替换时间来源（测试使用）
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SaveEmail 写入邮件
func (s *Store) SaveEmail(_ context.Context, email *domain.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.emails[email.ID]; ok && old.Address != email.Address {
		delete(s.byAddress[old.Address], email.ID)
	}

	copyEmail := cloneEmail(email)
	s.emails[email.ID] = copyEmail
	ids, ok := s.byAddress[email.Address]
	if !ok {
		ids = make(map[string]struct{})
		s.byAddress[email.Address] = ids
	}
	ids[email.ID] = struct{}{}
	return nil
}

// ListEmailsByAddress 返回指定地址未过期的邮件，按接收时间倒序
func (s *Store) ListEmailsByAddress(_ context.Context, address string) ([]domain.Email, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	result := make([]domain.Email, 0, len(s.byAddress[address]))
	for id := range s.byAddress[address] {
		email := s.emails[id]
		if email == nil || email.IsExpired(now) {
			continue
		}
		result = append(result, *cloneEmail(email))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ReceivedAt.Equal(result[j].ReceivedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})
	return result, nil
}

// GetInboxStatistics 统计未过期邮件
func (s *Store) GetInboxStatistics(_ context.Context) (*domain.AdminStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	stats := &domain.AdminStats{}
	inboxes := make(map[string]struct{})
	var latest time.Time
	for _, email := range s.emails {
		if email.IsExpired(now) {
			continue
		}
		stats.MessageCount++
		inboxes[email.Address] = struct{}{}
		if email.ReceivedAt.After(latest) {
			latest = email.ReceivedAt
		}
	}
	stats.InboxCount = int64(len(inboxes))
	if stats.MessageCount > 0 {
		latest = latest.UTC()
		stats.LatestReceivedAt = &latest
	}
	return stats, nil
}

// GetSetting 获取设置项
func (s *Store) GetSetting(_ context.Context, key string) (*domain.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	setting, ok := s.settings[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copySetting := *setting
	return &copySetting, nil
}

// SaveSetting 写入或覆盖设置项
func (s *Store) SaveSetting(_ context.Context, setting *domain.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copySetting := *setting
	s.settings[setting.Key] = &copySetting
	return nil
}

// SaveAdminSession 保存管理员会话
func (s *Store) SaveAdminSession(_ context.Context, session *domain.AdminSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copySession := *session
	s.sessions[session.Token] = &copySession
	return nil
}

// GetAdminSession 获取会话，已过期的会话视为不存在
func (s *Store) GetAdminSession(_ context.Context, token string) (*domain.AdminSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok || !session.IsActive(s.now()) {
		return nil, storage.ErrNotFound
	}
	copySession := *session
	return &copySession, nil
}

// DeleteAdminSession 删除会话，不存在时不报错
func (s *Store) DeleteAdminSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}

// GetDomainExpiration 获取域名到期缓存
func (s *Store) GetDomainExpiration(_ context.Context, domainName string) (*domain.DomainExpiration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.expirations[domainName]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneExpiration(record), nil
}

// SaveDomainExpiration 写入或覆盖域名到期缓存
func (s *Store) SaveDomainExpiration(_ context.Context, record *domain.DomainExpiration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expirations[record.Domain] = cloneExpiration(record)
	return nil
}

// DeleteDomainExpiration 删除域名到期缓存
func (s *Store) DeleteDomainExpiration(_ context.Context, domainName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.expirations, domainName)
	return nil
}

// DeleteExpired 清理过期数据
func (s *Store) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, email := range s.emails {
		if !email.IsExpired(now) {
			continue
		}
		delete(s.emails, id)
		if ids, ok := s.byAddress[email.Address]; ok {
			delete(ids, id)
			if len(ids) == 0 {
				delete(s.byAddress, email.Address)
			}
		}
		removed++
	}
	for token, session := range s.sessions {
		if !session.IsActive(now) {
			delete(s.sessions, token)
			removed++
		}
	}
	for name, record := range s.expirations {
		if !record.CacheExpiresAt.After(now) {
			delete(s.expirations, name)
			removed++
		}
	}
	return removed, nil
}

// Close 内存存储无需释放资源
func (s *Store) Close() error {
	return nil
}

// Health 内存存储始终健康
func (s *Store) Health(_ context.Context) error {
	return nil
}

func cloneEmail(email *domain.Email) *domain.Email {
	copyEmail := *email
	if email.Attachments != nil {
		copyEmail.Attachments = append([]domain.Attachment(nil), email.Attachments...)
	}
	return &copyEmail
}

func cloneExpiration(record *domain.DomainExpiration) *domain.DomainExpiration {
	copyRecord := *record
	if record.ExpiresAt != nil {
		expiresAt := *record.ExpiresAt
		copyRecord.ExpiresAt = &expiresAt
	}
	return &copyRecord
}

var _ storage.Store = (*Store)(nil)
