package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "vaultmail/backend/docs"
	"vaultmail/backend/internal/auth"
	"vaultmail/backend/internal/config"
	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/health"
	"vaultmail/backend/internal/middleware"
	"vaultmail/backend/internal/monitoring"
	"vaultmail/backend/internal/service"
	"vaultmail/backend/internal/storage"
	"vaultmail/backend/internal/storage/memory"
	"vaultmail/backend/internal/storage/storetest"
	"vaultmail/backend/internal/whois"
)

const testPassword = "correct horse"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	store  *memory.Store
}

// newTestEnv 基于内存存储与本地 WHOIS 服务构建完整路由
func newTestEnv(t *testing.T, inboxStore storage.EmailRepository) *testEnv {
	t.Helper()

	store := memory.NewStore()
	if inboxStore == nil {
		inboxStore = store
	}

	whoisServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "known.test" {
			_, _ = w.Write([]byte(`{"result":{"expirationDate":"2030-01-01T00:00:00Z"}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(whoisServer.Close)

	cfg := &config.Config{
		Server: config.ServerConfig{MaxBodyBytes: 1 << 16},
		Admin:  config.AdminConfig{Password: testPassword},
		Whois:  config.WhoisConfig{BaseURL: whoisServer.URL, Timeout: time.Second},
	}

	verifier, err := auth.NewVerifier(cfg.Admin)
	require.NoError(t, err)
	metrics := monitoring.NewMetrics()

	router := NewRouter(RouterDependencies{
		Config:           cfg,
		AdminAuthService: service.NewAdminAuthService(store, verifier, auth.NewAttemptLimiter(5, 5), 0, nil, metrics),
		SettingsService:  service.NewSettingsService(store, service.SettingsDefaults{}, nil, metrics),
		InboxService:     service.NewInboxService(inboxStore, nil, metrics),
		DomainExpirationService: service.NewDomainExpirationService(
			store, whois.NewClient(cfg.Whois, nil), 0, nil, metrics,
		),
		AdminService: service.NewAdminService(store),
		Health:       health.NewChecker(store, nil, health.Options{StorageType: "memory"}),
		Metrics:      metrics,
	})
	return &testEnv{router: router, store: store}
}

func (e *testEnv) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// login 登录并返回会话 Cookie
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := e.do(http.MethodPost, "/api/admin/auth", `{"password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestAdminAuthRoutes(t *testing.T) {
	t.Run("登录成功下发 Cookie", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(http.MethodPost, "/api/admin/auth", `{"password":"`+testPassword+`"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String())

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		cookie := cookies[0]
		assert.Equal(t, middleware.SessionCookieName, cookie.Name)
		assert.NotEmpty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, "/", cookie.Path)
		assert.Equal(t, 604800, cookie.MaxAge)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Contains(t, rec.Header().Get("Set-Cookie"), "SameSite=Lax")
	})

	t.Run("密码错误返回纯文本 401", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(http.MethodPost, "/api/admin/auth", `{"password":"wrong"}`)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Unauthorized", rec.Body.String())
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("请求体无效按空密码处理", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(http.MethodPost, "/api/admin/auth", `not json`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("连续失败被限流", func(t *testing.T) {
		env := newTestEnv(t, nil)
		for i := 0; i < 5; i++ {
			env.do(http.MethodPost, "/api/admin/auth", `{"password":"wrong"}`)
		}
		rec := env.do(http.MethodPost, "/api/admin/auth", `{"password":"`+testPassword+`"}`)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.JSONEq(t, `{"error":"Too many attempts"}`, rec.Body.String())
	})

	t.Run("会话状态与退出", func(t *testing.T) {
		env := newTestEnv(t, nil)

		var status SessionStatus
		decode(t, env.do(http.MethodGet, "/api/admin/session", ""), &status)
		assert.False(t, status.Authenticated)

		cookie := env.login(t)
		decode(t, env.do(http.MethodGet, "/api/admin/session", "", cookie), &status)
		assert.True(t, status.Authenticated)

		rec := env.do(http.MethodPost, "/api/admin/logout", "", cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		cleared := rec.Result().Cookies()
		require.Len(t, cleared, 1)
		assert.Empty(t, cleared[0].Value)
		assert.Less(t, cleared[0].MaxAge, 0)

		decode(t, env.do(http.MethodGet, "/api/admin/session", "", cookie), &status)
		assert.False(t, status.Authenticated)

		rec = env.do(http.MethodGet, "/api/admin/stats", "", cookie)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAdminRoutes_RequireSession(t *testing.T) {
	env := newTestEnv(t, nil)

	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/admin/retention", ""},
		{http.MethodPost, "/api/admin/retention", `{"seconds":60}`},
		{http.MethodGet, "/api/admin/telegram", ""},
		{http.MethodPost, "/api/admin/telegram", `{"enabled":true}`},
		{http.MethodGet, "/api/admin/branding", ""},
		{http.MethodPost, "/api/admin/branding", `{"appName":"X"}`},
		{http.MethodGet, "/api/admin/stats", ""},
		{http.MethodPost, "/api/admin/domains/known.test/expiration/refresh", ""},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			rec := env.do(r.method, r.path, r.body, &http.Cookie{Name: middleware.SessionCookieName, Value: "forged"})
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Unauthorized", rec.Body.String())
		})
	}

	t.Run("未授权时不修改存储", func(t *testing.T) {
		_, err := env.store.GetSetting(context.Background(), domain.SettingKeyRetention)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = env.store.GetSetting(context.Background(), domain.SettingKeyBranding)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestAdminRetentionRoutes(t *testing.T) {
	t.Run("读取默认值", func(t *testing.T) {
		env := newTestEnv(t, nil)
		cookie := env.login(t)

		var got domain.RetentionSettings
		decode(t, env.do(http.MethodGet, "/api/admin/retention", "", cookie), &got)
		assert.Equal(t, domain.DefaultRetentionSeconds, got.Seconds)
	})

	t.Run("更新并返回设置", func(t *testing.T) {
		env := newTestEnv(t, nil)
		cookie := env.login(t)

		rec := env.do(http.MethodPost, "/api/admin/retention", `{"seconds":"3600"}`, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		var saved domain.RetentionSettings
		decode(t, rec, &saved)
		assert.Equal(t, 3600, saved.Seconds)
		assert.NotEmpty(t, saved.UpdatedAt)

		var public domain.RetentionSettings
		decode(t, env.do(http.MethodGet, "/api/retention", ""), &public)
		assert.Equal(t, saved, public)
	})

	for _, body := range []string{`{}`, `{"seconds":0}`, `{"seconds":-5}`, `{"seconds":"abc"}`, `{"seconds":"3600abc"}`, `{"seconds":1.5}`, `{"seconds":null}`, `broken`} {
		t.Run("无效请求 "+body, func(t *testing.T) {
			env := newTestEnv(t, nil)
			cookie := env.login(t)

			rec := env.do(http.MethodPost, "/api/admin/retention", body, cookie)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"Missing fields"}`, rec.Body.String())

			_, err := env.store.GetSetting(context.Background(), domain.SettingKeyRetention)
			assert.ErrorIs(t, err, storage.ErrNotFound)
		})
	}

	t.Run("存储值损坏时管理接口返回 500，公开接口回退默认值", func(t *testing.T) {
		env := newTestEnv(t, nil)
		cookie := env.login(t)
		require.NoError(t, env.store.SaveSetting(context.Background(), &domain.Setting{
			Key: domain.SettingKeyRetention, Value: "oops",
		}))

		rec := env.do(http.MethodGet, "/api/admin/retention", "", cookie)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())

		var public domain.RetentionSettings
		decode(t, env.do(http.MethodGet, "/api/retention", ""), &public)
		assert.Equal(t, domain.DefaultRetentionSeconds, public.Seconds)
	})
}

func TestLegacySettingsRoute(t *testing.T) {
	t.Run("未授权返回 JSON 401", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(http.MethodPost, "/api/settings", `{"retentionSeconds":60}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
		wantStored int
	}{
		{"数字", `{"retentionSeconds":120}`, http.StatusOK, `{"success":true}`, 120},
		{"数字字符串", `{"retentionSeconds":"7200"}`, http.StatusOK, `{"success":true}`, 7200},
		{"前导整数", `{"retentionSeconds":"90s"}`, http.StatusOK, `{"success":true}`, 90},
		{"零", `{"retentionSeconds":0}`, http.StatusBadRequest, `{"error":"Missing fields"}`, 0},
		{"缺失", `{}`, http.StatusBadRequest, `{"error":"Missing fields"}`, 0},
		{"无法解析", `{"retentionSeconds":"soon"}`, http.StatusBadRequest, `{"error":"Missing fields"}`, 0},
		{"请求体无效", `{`, http.StatusInternalServerError, `{"error":"Internal Server Error"}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			cookie := env.login(t)

			rec := env.do(http.MethodPost, "/api/settings", tt.body, cookie)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())

			setting, err := env.store.GetSetting(context.Background(), domain.SettingKeyRetention)
			if tt.wantStored == 0 {
				assert.ErrorIs(t, err, storage.ErrNotFound)
				return
			}
			require.NoError(t, err)
			var retention domain.RetentionSettings
			require.NoError(t, storage.DecodeSettingValue(setting, &retention))
			assert.Equal(t, tt.wantStored, retention.Seconds)
		})
	}
}

func TestAdminTelegramAndBrandingRoutes(t *testing.T) {
	t.Run("Telegram 设置宽松解析", func(t *testing.T) {
		env := newTestEnv(t, nil)
		cookie := env.login(t)

		var initial domain.TelegramSettings
		decode(t, env.do(http.MethodGet, "/api/admin/telegram", "", cookie), &initial)
		assert.False(t, initial.Enabled)

		rec := env.do(http.MethodPost, "/api/admin/telegram", `{"enabled":"yes","botToken":"  123:abc ","chatId":-100}`, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		var saved domain.TelegramSettings
		decode(t, rec, &saved)
		assert.True(t, saved.Enabled)
		assert.Equal(t, "123:abc", saved.BotToken)
		assert.Equal(t, "-100", saved.ChatID)

		var got domain.TelegramSettings
		decode(t, env.do(http.MethodGet, "/api/admin/telegram", "", cookie), &got)
		assert.Equal(t, saved, got)
	})

	t.Run("品牌更新后公开可见", func(t *testing.T) {
		env := newTestEnv(t, nil)
		cookie := env.login(t)

		var public BrandingResponse
		decode(t, env.do(http.MethodGet, "/api/branding", ""), &public)
		assert.Equal(t, domain.DefaultAppName, public.AppName)

		rec := env.do(http.MethodPost, "/api/admin/branding", `{"appName":"  Secret   Box "}`, cookie)
		require.Equal(t, http.StatusOK, rec.Code)

		decode(t, env.do(http.MethodGet, "/api/branding", ""), &public)
		assert.Equal(t, "Secret Box", public.AppName)
	})

	t.Run("空名称返回 400", func(t *testing.T) {
		env := newTestEnv(t, nil)
		cookie := env.login(t)

		rec := env.do(http.MethodPost, "/api/admin/branding", `{"appName":"   "}`, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid app name"}`, rec.Body.String())
	})
}

func TestAdminStatsRoute(t *testing.T) {
	env := newTestEnv(t, nil)
	cookie := env.login(t)

	var empty service.AdminStatsView
	decode(t, env.do(http.MethodGet, "/api/admin/stats", "", cookie), &empty)
	assert.Zero(t, empty.MessageCount)
	assert.Nil(t, empty.LatestReceivedAt)

	now := time.Now()
	require.NoError(t, env.store.SaveEmail(context.Background(), storetest.NewEmail("a@vault.test", now, time.Hour)))
	require.NoError(t, env.store.SaveEmail(context.Background(), storetest.NewEmail("b@vault.test", now.Add(-time.Minute), time.Hour)))

	var stats service.AdminStatsView
	decode(t, env.do(http.MethodGet, "/api/admin/stats", "", cookie), &stats)
	assert.Equal(t, int64(2), stats.InboxCount)
	assert.Equal(t, int64(2), stats.MessageCount)
	require.NotNil(t, stats.LatestReceivedAt)
	assert.Equal(t, domain.FormatISO(now), *stats.LatestReceivedAt)
}

// brokenInbox 查询总是失败
type brokenInbox struct{}

func (brokenInbox) SaveEmail(context.Context, *domain.Email) error { return errors.New("down") }

func (brokenInbox) ListEmailsByAddress(context.Context, string) ([]domain.Email, error) {
	return nil, errors.New("down")
}

func (brokenInbox) GetInboxStatistics(context.Context) (*domain.AdminStats, error) {
	return nil, errors.New("down")
}

func TestInboxRoute(t *testing.T) {
	t.Run("缺少地址", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(http.MethodGet, "/api/inbox", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Address required"}`, rec.Body.String())
	})

	t.Run("地址不区分大小写", func(t *testing.T) {
		env := newTestEnv(t, nil)
		email := storetest.NewEmail("foo@bar.com", time.Now(), time.Hour)
		require.NoError(t, env.store.SaveEmail(context.Background(), email))

		upper := env.do(http.MethodGet, "/api/inbox?address=Foo@Bar.com", "")
		lower := env.do(http.MethodGet, "/api/inbox?address=foo@bar.com", "")
		require.Equal(t, http.StatusOK, upper.Code)
		assert.Equal(t, lower.Body.String(), upper.Body.String())

		var resp struct {
			Emails []map[string]any `json:"emails"`
		}
		decode(t, upper, &resp)
		require.Len(t, resp.Emails, 1)
		assert.Equal(t, email.ID, resp.Emails[0]["id"])
		assert.Equal(t, []any{}, resp.Emails[0]["attachments"])
		assert.Equal(t, domain.FormatISO(email.ReceivedAt), resp.Emails[0]["receivedAt"])
		assert.Equal(t, false, resp.Emails[0]["read"])
	})

	t.Run("存储故障返回空列表", func(t *testing.T) {
		env := newTestEnv(t, brokenInbox{})
		rec := env.do(http.MethodGet, "/api/inbox?address=foo@bar.com", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"emails":[]}`, rec.Body.String())
	})
}

func TestDomainExpirationRoutes(t *testing.T) {
	t.Run("查询并缓存", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(http.MethodGet, "/api/domains/Known.TEST/expiration", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var view service.DomainExpirationView
		decode(t, rec, &view)
		assert.Equal(t, "known.test", view.Domain)
		require.NotNil(t, view.ExpiresAt)
		assert.Equal(t, "2030-01-01T00:00:00.000Z", *view.ExpiresAt)

		record, err := env.store.GetDomainExpiration(context.Background(), "known.test")
		require.NoError(t, err)
		assert.True(t, record.IsFresh(time.Now()))
	})

	t.Run("未知到期时间返回 null", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(http.MethodGet, "/api/domains/unknown.test/expiration", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		decode(t, rec, &body)
		assert.Contains(t, body, "expiresAt")
		assert.Nil(t, body["expiresAt"])
	})

	t.Run("无效域名", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do(http.MethodGet, "/api/domains/not_a_domain/expiration", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid domain"}`, rec.Body.String())
	})

	t.Run("管理员强制刷新", func(t *testing.T) {
		env := newTestEnv(t, nil)
		cookie := env.login(t)

		rec := env.do(http.MethodPost, "/api/admin/domains/known.test/expiration/refresh", "", cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		var view service.DomainExpirationView
		decode(t, rec, &view)
		require.NotNil(t, view.ExpiresAt)
	})
}

func TestOperationalRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var report health.Report
	decode(t, rec, &report)
	assert.Equal(t, health.StatusHealthy, report.Status)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health/ready", "").Code)

	env.do(http.MethodGet, "/api/branding", "")
	rec = env.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vaultmail_http_requests_total")

	rec = env.do(http.MethodGet, "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]json.RawMessage `json:"paths"`
	}
	decode(t, rec, &doc)
	assert.Equal(t, "VaultMail Backend API", doc.Info.Title)
	for _, path := range []string{"/api/inbox", "/api/settings", "/api/admin/retention", "/api/domains/{domain}/expiration"} {
		assert.Contains(t, doc.Paths, path)
	}

	rec = env.do(http.MethodGet, "/no/such/route", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
