package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/storage"
)

// 集合名称
const (
	collectionEmails            = "emails"
	collectionSettings          = "settings"
	collectionAdminSessions     = "adminSessions"
	collectionDomainExpirations = "domainExpirations"
)

// DefaultDatabase 未配置数据库名时使用的默认值
const DefaultDatabase = "vaultmail"

// Store MongoDB 存储实现，过期数据由 TTL 索引淘汰
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    *zap.Logger

	emails            *mongo.Collection
	settings          *mongo.Collection
	adminSessions     *mongo.Collection
	domainExpirations *mongo.Collection
}

// NewStore 连接 MongoDB 并确保索引存在
func NewStore(ctx context.Context, uri, database string, log *zap.Logger) (*Store, error) {
	if uri == "" {
		return nil, errors.New("mongodb uri is required")
	}
	if database == "" {
		database = DefaultDatabase
	}
	if log == nil {
		log = zap.NewNop()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	store := &Store{
		client:            client,
		db:                db,
		log:               log,
		emails:            db.Collection(collectionEmails),
		settings:          db.Collection(collectionSettings),
		adminSessions:     db.Collection(collectionAdminSessions),
		domainExpirations: db.Collection(collectionDomainExpirations),
	}

	if err := store.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info("connected to MongoDB", zap.String("database", database))
	return store, nil
}

// EnsureIndexes 创建查询索引与 TTL 索引，重复执行是幂等的
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ttl := options.Index().SetExpireAfterSeconds(0)
	unique := options.Index().SetUnique(true)

	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.emails, mongo.IndexModel{Keys: bson.D{{Key: "address", Value: 1}, {Key: "receivedAt", Value: -1}}}},
		{s.emails, mongo.IndexModel{Keys: bson.D{{Key: "expireAt", Value: 1}}, Options: ttl}},
		{s.emails, mongo.IndexModel{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique}},
		{s.settings, mongo.IndexModel{Keys: bson.D{{Key: "key", Value: 1}}, Options: unique}},
		{s.adminSessions, mongo.IndexModel{Keys: bson.D{{Key: "token", Value: 1}}, Options: unique}},
		{s.adminSessions, mongo.IndexModel{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: ttl}},
		{s.domainExpirations, mongo.IndexModel{Keys: bson.D{{Key: "domain", Value: 1}}, Options: unique}},
		{s.domainExpirations, mongo.IndexModel{Keys: bson.D{{Key: "cacheExpiresAt", Value: 1}}, Options: ttl}},
	}

	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

// NativeExpiry TTL 索引负责淘汰过期文档
func (s *Store) NativeExpiry() bool {
	return true
}

// SaveEmail 写入邮件，按 id upsert
func (s *Store) SaveEmail(ctx context.Context, email *domain.Email) error {
	doc := emailToDocument(email)
	_, err := s.emails.ReplaceOne(ctx, bson.M{"id": email.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save email: %w", err)
	}
	return nil
}

// ListEmailsByAddress 按接收时间倒序列出未过期邮件
func (s *Store) ListEmailsByAddress(ctx context.Context, address string) ([]domain.Email, error) {
	filter := notExpired(time.Now().UTC())
	filter["address"] = address
	opts := options.Find().SetSort(bson.D{{Key: "receivedAt", Value: -1}, {Key: "id", Value: -1}})

	cursor, err := s.emails.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []emailDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode emails: %w", err)
	}

	emails := make([]domain.Email, 0, len(docs))
	for i := range docs {
		emails = append(emails, docs[i].toDomain())
	}
	return emails, nil
}

// GetInboxStatistics 统计未过期邮件
func (s *Store) GetInboxStatistics(ctx context.Context) (*domain.AdminStats, error) {
	filter := notExpired(time.Now().UTC())
	stats := &domain.AdminStats{}

	messageCount, err := s.emails.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count emails: %w", err)
	}
	stats.MessageCount = messageCount
	if messageCount == 0 {
		return stats, nil
	}

	addresses, err := s.emails.Distinct(ctx, "address", filter)
	if err != nil {
		return nil, fmt.Errorf("distinct addresses: %w", err)
	}
	stats.InboxCount = int64(len(addresses))

	var latest emailDocument
	err = s.emails.FindOne(ctx, filter,
		options.FindOne().
			SetSort(bson.D{{Key: "receivedAt", Value: -1}}).
			SetProjection(bson.M{"receivedAt": 1}),
	).Decode(&latest)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("latest email: %w", err)
	}
	if err == nil {
		receivedAt := latest.ReceivedAt.UTC()
		stats.LatestReceivedAt = &receivedAt
	}
	return stats, nil
}

// GetSetting 获取设置项，value 可为嵌入文档或 JSON 字符串
func (s *Store) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	var doc settingDocument
	err := s.settings.FindOne(ctx, bson.M{"key": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return doc.toDomain()
}

// SaveSetting 按 key upsert，value 以嵌入文档形式保存
func (s *Store) SaveSetting(ctx context.Context, setting *domain.Setting) error {
	var value bson.D
	if err := bson.UnmarshalExtJSON([]byte(setting.Value), false, &value); err != nil {
		return &storage.MalformedSettingError{Key: setting.Key, Err: err}
	}

	updatedAt := setting.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := s.settings.UpdateOne(ctx,
		bson.M{"key": setting.Key},
		bson.M{"$set": bson.M{"key": setting.Key, "value": value, "updatedAt": updatedAt}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	return nil
}

// SaveAdminSession 保存管理员会话
func (s *Store) SaveAdminSession(ctx context.Context, session *domain.AdminSession) error {
	doc := adminSessionDocument{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC(),
		CreatedAt: session.CreatedAt.UTC(),
	}
	_, err := s.adminSessions.ReplaceOne(ctx, bson.M{"token": session.Token}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save admin session: %w", err)
	}
	return nil
}

// GetAdminSession 获取未过期的会话
func (s *Store) GetAdminSession(ctx context.Context, token string) (*domain.AdminSession, error) {
	var doc adminSessionDocument
	err := s.adminSessions.FindOne(ctx, bson.M{
		"token":     token,
		"expiresAt": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin session: %w", err)
	}
	return &domain.AdminSession{Token: doc.Token, ExpiresAt: doc.ExpiresAt.UTC(), CreatedAt: doc.CreatedAt.UTC()}, nil
}

// DeleteAdminSession 删除会话
func (s *Store) DeleteAdminSession(ctx context.Context, token string) error {
	if _, err := s.adminSessions.DeleteOne(ctx, bson.M{"token": token}); err != nil {
		return fmt.Errorf("delete admin session: %w", err)
	}
	return nil
}

// GetDomainExpiration 获取域名到期缓存
func (s *Store) GetDomainExpiration(ctx context.Context, domainName string) (*domain.DomainExpiration, error) {
	var doc domainExpirationDocument
	err := s.domainExpirations.FindOne(ctx, bson.M{"domain": domainName}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get domain expiration: %w", err)
	}
	return doc.toDomain(), nil
}

// SaveDomainExpiration 按域名 upsert 到期缓存
func (s *Store) SaveDomainExpiration(ctx context.Context, record *domain.DomainExpiration) error {
	doc := domainExpirationToDocument(record)
	_, err := s.domainExpirations.ReplaceOne(ctx, bson.M{"domain": record.Domain}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save domain expiration: %w", err)
	}
	return nil
}

// DeleteDomainExpiration 删除域名到期缓存
func (s *Store) DeleteDomainExpiration(ctx context.Context, domainName string) error {
	if _, err := s.domainExpirations.DeleteOne(ctx, bson.M{"domain": domainName}); err != nil {
		return fmt.Errorf("delete domain expiration: %w", err)
	}
	return nil
}

// DeleteExpired 立即删除过期文档（TTL 监视器约每分钟运行一次）
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	var removed int64

	targets := []struct {
		coll  *mongo.Collection
		field string
	}{
		{s.emails, "expireAt"},
		{s.adminSessions, "expiresAt"},
		{s.domainExpirations, "cacheExpiresAt"},
	}
	for _, target := range targets {
		res, err := target.coll.DeleteMany(ctx, bson.M{target.field: bson.M{"$lte": now}})
		if err != nil {
			return removed, fmt.Errorf("delete expired %s: %w", target.coll.Name(), err)
		}
		removed += res.DeletedCount
	}
	return removed, nil
}

// Close 断开连接
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return err
	}
	s.log.Info("MongoDB connection closed")
	return nil
}

// Health 检查主节点连通性
func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// notExpired 未设置 expireAt 的邮件永不过期
func notExpired(now time.Time) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"expireAt": bson.M{"$gt": now}},
		bson.M{"expireAt": bson.M{"$exists": false}},
	}}
}

var _ storage.Store = (*Store)(nil)
