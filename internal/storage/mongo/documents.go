package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/storage"
)

type attachmentDocument struct {
	Filename      string `bson:"filename,omitempty"`
	ContentType   string `bson:"contentType,omitempty"`
	ContentBase64 string `bson:"contentBase64,omitempty"`
	Omitted       bool   `bson:"omitted,omitempty"`
	Size          int64  `bson:"size,omitempty"`
}

type emailDocument struct {
	ID          string               `bson:"id"`
	Address     string               `bson:"address"`
	From        string               `bson:"from"`
	To          string               `bson:"to"`
	Subject     string               `bson:"subject"`
	Text        string               `bson:"text"`
	HTML        string               `bson:"html"`
	Attachments []attachmentDocument `bson:"attachments"`
	ReceivedAt  time.Time            `bson:"receivedAt"`
	Read        bool                 `bson:"read"`
	ExpireAt    time.Time            `bson:"expireAt,omitempty"`
}

type settingDocument struct {
	Key       string        `bson:"key"`
	Value     bson.RawValue `bson:"value"`
	UpdatedAt time.Time     `bson:"updatedAt,omitempty"`
}

type adminSessionDocument struct {
	Token     string    `bson:"token"`
	ExpiresAt time.Time `bson:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt,omitempty"`
}

// domainExpirationDocument 到期与检查时间以 ISO 字符串保存
type domainExpirationDocument struct {
	Domain         string    `bson:"domain"`
	ExpiresAt      *string   `bson:"expiresAt"`
	CheckedAt      string    `bson:"checkedAt"`
	CacheExpiresAt time.Time `bson:"cacheExpiresAt"`
}

func emailToDocument(email *domain.Email) emailDocument {
	attachments := make([]attachmentDocument, 0, len(email.Attachments))
	for _, a := range email.Attachments {
		attachments = append(attachments, attachmentDocument(a))
	}
	doc := emailDocument{
		ID:          email.ID,
		Address:     email.Address,
		From:        email.From,
		To:          email.To,
		Subject:     email.Subject,
		Text:        email.Text,
		HTML:        email.HTML,
		Attachments: attachments,
		ReceivedAt:  email.ReceivedAt.UTC(),
		Read:        email.Read,
	}
	if !email.ExpireAt.IsZero() {
		doc.ExpireAt = email.ExpireAt.UTC()
	}
	return doc
}

func (d *emailDocument) toDomain() domain.Email {
	attachments := make([]domain.Attachment, 0, len(d.Attachments))
	for _, a := range d.Attachments {
		attachments = append(attachments, domain.Attachment(a))
	}
	email := domain.Email{
		ID:          d.ID,
		Address:     d.Address,
		From:        d.From,
		To:          d.To,
		Subject:     d.Subject,
		Text:        d.Text,
		HTML:        d.HTML,
		Attachments: attachments,
		ReceivedAt:  d.ReceivedAt.UTC(),
		Read:        d.Read,
	}
	if !d.ExpireAt.IsZero() {
		email.ExpireAt = d.ExpireAt.UTC()
	}
	return email
}

// toDomain 将 value 转换为 JSON 文本；嵌入文档使用 relaxed Extended JSON
func (d *settingDocument) toDomain() (*domain.Setting, error) {
	setting := &domain.Setting{Key: d.Key, UpdatedAt: d.UpdatedAt.UTC()}

	switch d.Value.Type {
	case bsontype.Type(0), bsontype.Null, bsontype.Undefined:
		return nil, storage.ErrNotFound
	case bsontype.String:
		setting.Value = d.Value.StringValue()
	case bsontype.EmbeddedDocument:
		data, err := bson.MarshalExtJSON(d.Value.Document(), false, false)
		if err != nil {
			return nil, &storage.MalformedSettingError{Key: d.Key, Err: err}
		}
		setting.Value = string(data)
	default:
		return nil, &storage.MalformedSettingError{Key: d.Key}
	}
	return setting, nil
}

func domainExpirationToDocument(record *domain.DomainExpiration) domainExpirationDocument {
	return domainExpirationDocument{
		Domain:         record.Domain,
		ExpiresAt:      domain.FormatISOPtr(record.ExpiresAt),
		CheckedAt:      domain.FormatISO(record.CheckedAt),
		CacheExpiresAt: record.CacheExpiresAt.UTC(),
	}
}

func (d *domainExpirationDocument) toDomain() *domain.DomainExpiration {
	record := &domain.DomainExpiration{
		Domain:         d.Domain,
		CacheExpiresAt: d.CacheExpiresAt.UTC(),
	}
	if d.ExpiresAt != nil {
		if t, err := domain.ParseTimestamp(*d.ExpiresAt); err == nil {
			record.ExpiresAt = &t
		}
	}
	if t, err := domain.ParseTimestamp(d.CheckedAt); err == nil {
		record.CheckedAt = t
	}
	return record
}
