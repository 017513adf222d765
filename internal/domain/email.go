package domain

import "time"

// Email 表示一封投递到临时地址的邮件。
//
// 邮件由外部收信管道写入，本服务只读取；ExpireAt 到期后由存储层自动删除。
type Email struct {
	ID          string       `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Address     string       `json:"address" gorm:"type:varchar(320);not null;index:idx_emails_address_received,priority:1"`
	From        string       `json:"from" gorm:"type:varchar(512)"`
	To          string       `json:"to" gorm:"type:varchar(512)"`
	Subject     string       `json:"subject" gorm:"type:varchar(1000)"`
	Text        string       `json:"text" gorm:"type:text"`
	HTML        string       `json:"html" gorm:"type:text"`
	Attachments []Attachment `json:"attachments" gorm:"serializer:json;type:text"`
	ReceivedAt  time.Time    `json:"receivedAt" gorm:"not null;index:idx_emails_address_received,priority:2"`
	Read        bool         `json:"read" gorm:"default:false"`
	ExpireAt    time.Time    `json:"expireAt" gorm:"index"`
}

// IsExpired 判断邮件在指定时间是否已过保留期。零值 ExpireAt 表示永不过期。
func (e *Email) IsExpired(now time.Time) bool {
	if e.ExpireAt.IsZero() {
		return false
	}
	return !e.ExpireAt.After(now)
}
