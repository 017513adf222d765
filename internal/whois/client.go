// Package whois 通过 WHOIS 搜索接口查询域名注册到期时间。
package whois

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"vaultmail/backend/internal/config"
	"vaultmail/backend/internal/domain"
)

var (
	// ErrNoExpiration 响应中没有可用的到期时间
	ErrNoExpiration = errors.New("no expiration date in whois response")
	// ErrUpstreamStatus 接口返回非 2xx 状态码
	ErrUpstreamStatus = errors.New("whois upstream returned non-success status")
)

// 响应体读取上限
const maxResponseBytes = 1 << 20

// lookupResponse WHOIS 搜索接口响应，只解析需要的字段
type lookupResponse struct {
	Result *struct {
		ExpirationDate *string `json:"expirationDate"`
	} `json:"result"`
}

// Client WHOIS 搜索接口客户端
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient 创建 WHOIS 客户端
func NewClient(cfg config.WhoisConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// LookupExpiration 查询域名到期时间，结果转换为 UTC。
//
// 网络错误、非 2xx、JSON 无效、缺少或无法解析日期时返回错误。
func (c *Client) LookupExpiration(ctx context.Context, domainName string) (*time.Time, error) {
	requestURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid whois base url: %w", err)
	}
	query := requestURL.Query()
	query.Set("query", domainName)
	requestURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create whois request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whois request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode whois response: %w", err)
	}
	if body.Result == nil || body.Result.ExpirationDate == nil || *body.Result.ExpirationDate == "" {
		return nil, ErrNoExpiration
	}

	expiresAt, err := domain.ParseTimestamp(*body.Result.ExpirationDate)
	if err != nil {
		return nil, fmt.Errorf("%w: unparsable %q", ErrNoExpiration, *body.Result.ExpirationDate)
	}

	c.log.Debug("whois lookup succeeded",
		zap.String("domain", domainName),
		zap.Time("expires_at", expiresAt),
	)
	return &expiresAt, nil
}
