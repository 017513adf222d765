package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/storage"
	"vaultmail/backend/internal/storage/storetest"
)

func decodeSettingDoc(t *testing.T, doc bson.M) settingDocument {
	t.Helper()
	data, err := bson.Marshal(doc)
	require.NoError(t, err)
	var out settingDocument
	require.NoError(t, bson.Unmarshal(data, &out))
	return out
}

func TestSettingDocument_ToDomain(t *testing.T) {
	t.Run("嵌入文档转换为 JSON", func(t *testing.T) {
		doc := decodeSettingDoc(t, bson.M{
			"key":   domain.SettingKeyRetention,
			"value": bson.M{"seconds": int32(3600), "updatedAt": "2026-01-01T00:00:00.000Z"},
		})
		setting, err := doc.toDomain()
		require.NoError(t, err)

		var retention domain.RetentionSettings
		require.NoError(t, storage.DecodeSettingValue(setting, &retention))
		assert.Equal(t, 3600, retention.Seconds)
		assert.Equal(t, "2026-01-01T00:00:00.000Z", retention.UpdatedAt)
	})

	t.Run("字符串值原样返回", func(t *testing.T) {
		doc := decodeSettingDoc(t, bson.M{"key": domain.SettingKeyBranding, "value": `{"appName":"Mail"}`})
		setting, err := doc.toDomain()
		require.NoError(t, err)
		assert.Equal(t, `{"appName":"Mail"}`, setting.Value)
	})

	t.Run("null 视为不存在", func(t *testing.T) {
		doc := decodeSettingDoc(t, bson.M{"key": domain.SettingKeyBranding, "value": nil})
		_, err := doc.toDomain()
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("标量值格式错误", func(t *testing.T) {
		doc := decodeSettingDoc(t, bson.M{"key": domain.SettingKeyRetention, "value": int32(5)})
		_, err := doc.toDomain()
		assert.ErrorIs(t, err, storage.ErrMalformedSetting)
	})
}

func TestDomainExpirationDocument_RoundTrip(t *testing.T) {
	checkedAt := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	expiresAt := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	record := &domain.DomainExpiration{
		Domain:         "vaultmail.test",
		ExpiresAt:      &expiresAt,
		CheckedAt:      checkedAt,
		CacheExpiresAt: checkedAt.Add(domain.DomainExpirationCacheTTL),
	}

	doc := domainExpirationToDocument(record)
	require.NotNil(t, doc.ExpiresAt)
	assert.Equal(t, "2027-03-01T00:00:00.000Z", *doc.ExpiresAt)
	assert.Equal(t, "2026-03-01T08:30:00.000Z", doc.CheckedAt)

	got := doc.toDomain()
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expiresAt.Equal(*got.ExpiresAt))
	assert.True(t, checkedAt.Equal(got.CheckedAt))
}

// 需要真实 MongoDB：VAULTMAIL_TEST_MONGODB_URI=mongodb://localhost:27017
func TestMongoStore_Contract(t *testing.T) {
	uri := os.Getenv("VAULTMAIL_TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("VAULTMAIL_TEST_MONGODB_URI not set")
	}

	storetest.Run(t, func(t *testing.T) storage.Store {
		dbName := "vaultmail_test_" + uuid.NewString()[:8]
		store, err := NewStore(context.Background(), uri, dbName, nil)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = store.db.Drop(context.Background())
			_ = store.Close()
		})
		return store
	})
}
