// Package graph 封装 Microsoft Graph 的 To Do 接口
// Package graph is the Microsoft Graph To Do adapter: OAuth token
// acquisition plus the REST client for lists and tasks.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	loginBase     = "https://login.microsoftonline.com"
	defaultScopes = "Tasks.ReadWrite offline_access"
)

// AuthConfig OAuth 配置 / AuthConfig holds the OAuth application settings.
type AuthConfig struct {
	ClientID     string
	TenantID     string
	ClientSecret string // non-empty switches to client credentials flow
	Scopes       string
	TokenCache   string // path of the cached token file
}

// Authenticator 获取并缓存访问令牌
// Authenticator acquires access tokens and caches them on disk so a
// daily run does not re-prompt the user.
type Authenticator struct {
	cfg    AuthConfig
	client *http.Client
}

func NewAuthenticator(cfg AuthConfig) *Authenticator {
	if strings.TrimSpace(cfg.Scopes) == "" {
		cfg.Scopes = defaultScopes
	}
	if strings.TrimSpace(cfg.TokenCache) == "" {
		cfg.TokenCache = "token_cache.json"
	}
	return &Authenticator{cfg: cfg, client: &http.Client{Timeout: 30 * time.Second}}
}

// cachedToken 磁盘上的令牌缓存格式 / on-disk token cache format.
type cachedToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type deviceCodeResponse struct {
	DeviceCode       string `json:"device_code"`
	UserCode         string `json:"user_code"`
	VerificationURI  string `json:"verification_uri"`
	Message          string `json:"message"`
	Interval         int    `json:"interval"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Token 返回一个可用的访问令牌
// Token returns a usable access token. Cached tokens are reused until
// close to expiry; otherwise refresh, client credentials, or device
// code flow runs, in that order of preference.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	if cached, ok := a.loadCache(); ok {
		if !tokenNearExpiry(cached.AccessToken) {
			return cached.AccessToken, nil
		}
		if cached.RefreshToken != "" {
			tok, err := a.refresh(ctx, cached.RefreshToken)
			if err == nil {
				return tok, nil
			}
			log.Printf("graph: token refresh failed, re-authenticating: %v", err)
		}
	}

	if a.cfg.ClientSecret != "" {
		return a.clientCredentials(ctx)
	}
	return a.deviceCode(ctx)
}

// tokenNearExpiry 解码 exp 声明判断是否快过期
// tokenNearExpiry decodes the exp claim without verifying the
// signature. Graph verifies tokens server side; we only need the
// expiry time. Undecodable tokens count as expired.
func tokenNearExpiry(token string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return time.Until(exp.Time) < 5*time.Minute
}

func (a *Authenticator) tokenEndpoint() string {
	tenant := strings.TrimSpace(a.cfg.TenantID)
	if tenant == "" {
		tenant = "common"
	}
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", loginBase, tenant)
}

func (a *Authenticator) clientCredentials(ctx context.Context) (string, error) {
	form := url.Values{
		"client_id":     {a.cfg.ClientID},
		"client_secret": {a.cfg.ClientSecret},
		"grant_type":    {"client_credentials"},
		// 客户端凭据流必须用 .default scope / client credentials requires .default
		"scope": {"https://graph.microsoft.com/.default"},
	}
	tok, err := a.postToken(ctx, form)
	if err != nil {
		return "", fmt.Errorf("client credentials flow: %w", err)
	}
	a.saveCache(cachedToken{AccessToken: tok.AccessToken})
	return tok.AccessToken, nil
}

func (a *Authenticator) refresh(ctx context.Context, refreshToken string) (string, error) {
	form := url.Values{
		"client_id":     {a.cfg.ClientID},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"scope":         {a.cfg.Scopes},
	}
	tok, err := a.postToken(ctx, form)
	if err != nil {
		return "", err
	}
	a.saveCache(cachedToken{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken})
	return tok.AccessToken, nil
}

// deviceCode 设备码流程,提示用户在浏览器里完成登录
// deviceCode runs the device code flow, printing the verification
// message and polling until the user signs in.
func (a *Authenticator) deviceCode(ctx context.Context) (string, error) {
	tenant := strings.TrimSpace(a.cfg.TenantID)
	if tenant == "" {
		tenant = "common"
	}
	form := url.Values{
		"client_id": {a.cfg.ClientID},
		"scope":     {a.cfg.Scopes},
	}
	resp, err := a.client.PostForm(
		fmt.Sprintf("%s/%s/oauth2/v2.0/devicecode", loginBase, tenant), form)
	if err != nil {
		return "", fmt.Errorf("start device flow: %w", err)
	}
	var dc deviceCodeResponse
	if err := decodeJSON(resp, &dc); err != nil {
		return "", fmt.Errorf("device flow response: %w", err)
	}
	if dc.Error != "" {
		return "", fmt.Errorf("device flow: %s: %s", dc.Error, dc.ErrorDescription)
	}

	fmt.Fprintln(os.Stderr, dc.Message)

	interval := time.Duration(dc.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	deadline := time.Now().Add(time.Duration(dc.ExpiresIn) * time.Second)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}

		tok, err := a.postToken(ctx, url.Values{
			"client_id":   {a.cfg.ClientID},
			"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
			"device_code": {dc.DeviceCode},
		})
		if err != nil {
			if strings.Contains(err.Error(), "authorization_pending") {
				continue
			}
			if strings.Contains(err.Error(), "slow_down") {
				interval += 5 * time.Second
				continue
			}
			return "", fmt.Errorf("device flow poll: %w", err)
		}
		a.saveCache(cachedToken{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken})
		return tok.AccessToken, nil
	}
	return "", fmt.Errorf("device flow expired before sign-in completed")
}

func (a *Authenticator) postToken(ctx context.Context, form url.Values) (tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenEndpoint(),
		strings.NewReader(form.Encode()))
	if err != nil {
		return tokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return tokenResponse{}, err
	}
	var tok tokenResponse
	if err := decodeJSON(resp, &tok); err != nil {
		return tokenResponse{}, err
	}
	if tok.Error != "" {
		return tokenResponse{}, fmt.Errorf("%s: %s", tok.Error, tok.ErrorDescription)
	}
	if tok.AccessToken == "" {
		return tokenResponse{}, fmt.Errorf("token response has no access_token")
	}
	return tok, nil
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (a *Authenticator) loadCache() (cachedToken, bool) {
	data, err := os.ReadFile(a.cfg.TokenCache)
	if err != nil {
		return cachedToken{}, false
	}
	var tok cachedToken
	if err := json.Unmarshal(data, &tok); err != nil || tok.AccessToken == "" {
		return cachedToken{}, false
	}
	return tok, true
}

func (a *Authenticator) saveCache(tok cachedToken) {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return
	}
	if dir := filepath.Dir(a.cfg.TokenCache); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	if err := os.WriteFile(a.cfg.TokenCache, data, 0o600); err != nil {
		log.Printf("graph: save token cache: %v", err)
	}
}

// ClearCache 删除令牌缓存 / ClearCache removes the cached token file.
func (a *Authenticator) ClearCache() error {
	err := os.Remove(a.cfg.TokenCache)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
