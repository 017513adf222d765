package service

import (
	"context"
	"fmt"

	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/storage"
)

// AdminStatsView 管理后台统计信息
type AdminStatsView struct {
	InboxCount       int64   `json:"inboxCount"`
	MessageCount     int64   `json:"messageCount"`
	LatestReceivedAt *string `json:"latestReceivedAt"`
}

// AdminService 管理后台统计
type AdminService struct {
	store storage.EmailRepository
}

// NewAdminService 创建管理服务
func NewAdminService(store storage.EmailRepository) *AdminService {
	return &AdminService{store: store}
}

// Stats 统计收件地址数、邮件总数与最近接收时间
func (s *AdminService) Stats(ctx context.Context) (*AdminStatsView, error) {
	stats, err := s.store.GetInboxStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("inbox statistics: %w", err)
	}
	return &AdminStatsView{
		InboxCount:       stats.InboxCount,
		MessageCount:     stats.MessageCount,
		LatestReceivedAt: domain.FormatISOPtr(stats.LatestReceivedAt),
	}, nil
}
