package service

import (
	"context"

	"go.uber.org/zap"

	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/monitoring"
	"vaultmail/backend/internal/storage"
)

// InboxStatus 收件箱查询结果状态
type InboxStatus string

const (
	InboxOK          InboxStatus = "ok"
	InboxEmpty       InboxStatus = "empty"
	InboxUnavailable InboxStatus = "unavailable"
)

// InboxEmail 返回给客户端的邮件结构
type InboxEmail struct {
	ID          string              `json:"id"`
	From        string              `json:"from"`
	To          string              `json:"to"`
	Subject     string              `json:"subject"`
	Text        string              `json:"text"`
	HTML        string              `json:"html"`
	Attachments []domain.Attachment `json:"attachments"`
	ReceivedAt  string              `json:"receivedAt"`
	Read        bool                `json:"read"`
}

// InboxResult 区分空收件箱与查询失败
type InboxResult struct {
	Address string
	Emails  []InboxEmail
	Status  InboxStatus
	Err     error
}

// InboxService 按地址查询邮件
type InboxService struct {
	store   storage.EmailRepository
	log     *zap.Logger
	metrics *monitoring.Metrics
}

// NewInboxService 创建收件箱服务
func NewInboxService(store storage.EmailRepository, log *zap.Logger, metrics *monitoring.Metrics) *InboxService {
	if log == nil {
		log = zap.NewNop()
	}
	return &InboxService{store: store, log: log, metrics: metrics}
}

// ListForAddress 返回地址（大小写不敏感）下的邮件，按接收时间倒序。
//
// 存储错误不返回 error，而是以 InboxUnavailable 状态和空列表表示。
func (s *InboxService) ListForAddress(ctx context.Context, address string) InboxResult {
	normalized := domain.NormalizeAddress(address)
	result := InboxResult{Address: normalized, Emails: []InboxEmail{}}

	emails, err := s.store.ListEmailsByAddress(ctx, normalized)
	if err != nil {
		s.log.Error("failed to list emails", zap.String("address", normalized), zap.Error(err))
		s.metrics.RecordInboxQuery(monitoring.ResultUnavailable)
		result.Status = InboxUnavailable
		result.Err = err
		return result
	}

	for i := range emails {
		result.Emails = append(result.Emails, toInboxEmail(&emails[i]))
	}
	if len(result.Emails) == 0 {
		result.Status = InboxEmpty
		s.metrics.RecordInboxQuery(monitoring.ResultEmpty)
	} else {
		result.Status = InboxOK
		s.metrics.RecordInboxQuery(monitoring.ResultOK)
	}
	return result
}

func toInboxEmail(email *domain.Email) InboxEmail {
	attachments := email.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return InboxEmail{
		ID:          email.ID,
		From:        email.From,
		To:          email.To,
		Subject:     email.Subject,
		Text:        email.Text,
		HTML:        email.HTML,
		Attachments: attachments,
		ReceivedAt:  domain.FormatISO(email.ReceivedAt),
		Read:        email.Read,
	}
}
