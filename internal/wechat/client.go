// Package wechat exchanges WeChat OAuth codes for stable OpenIDs. The
// WeChat platform is consumed as an external identity provider; nothing
// beyond the code->openid handshake lives here.
package wechat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const accessTokenURL = "https://api.weixin.qq.com/sns/oauth2/access_token"

// Client calls the WeChat OAuth API. The zero HTTPClient falls back to a
// client with a 5 second timeout.
type Client struct {
	AppID      string
	Secret     string
	HTTPClient *http.Client
}

func NewClient(appID, secret string) *Client {
	return &Client{
		AppID:      appID,
		Secret:     secret,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Configured reports whether app credentials are present. When they are
// not, the WeChat login endpoint rejects requests instead of calling out.
func (c *Client) Configured() bool {
	return c != nil && c.AppID != "" && c.Secret != ""
}

// sessionResponse is the provider's JSON payload. On failure errcode is
// non-zero and errmsg is human-readable; on success openid is set.
type sessionResponse struct {
	OpenID  string `json:"openid"`
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// ExchangeCode trades a one-time authorization code for the user's stable
// OpenID. Provider-reported failures (expired code, bad credentials)
// come back as ordinary errors with the provider message attached.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	q := url.Values{}
	q.Set("appid", c.AppID)
	q.Set("secret", c.Secret)
	q.Set("code", code)
	q.Set("grant_type", "authorization_code")

	endpoint := c.endpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	httpc := c.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 5 * time.Second}
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("wechat request: %w", err)
	}
	defer resp.Body.Close()

	var sess sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return "", fmt.Errorf("wechat decode: %w", err)
	}
	if sess.ErrCode != 0 {
		return "", fmt.Errorf("wechat auth failed: %s", sess.ErrMsg)
	}
	if sess.OpenID == "" {
		return "", fmt.Errorf("wechat auth returned no openid")
	}
	return sess.OpenID, nil
}

// baseURL can be overridden in tests to point at a local fake.
var baseURL = ""

func (c *Client) endpoint() string {
	if baseURL != "" {
		return baseURL
	}
	return accessTokenURL
}
