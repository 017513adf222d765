package domain

import "time"

// AdminStats 管理后台统计信息
type AdminStats struct {
	InboxCount       int64      // 不同收件地址数量
	MessageCount     int64      // 邮件总数
	LatestReceivedAt *time.Time // 最近一封邮件的接收时间，无邮件时为 nil
}
