package wechat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"Paygate/config"
)

const (
	defaultGatewayBaseURL = "https://api.mch.weixin.qq.com"
	requestTimeout        = 8 * time.Second
	userAgent             = "paygate/0.1.0"
)

var defaultHTTPClient = &http.Client{Timeout: requestTimeout}

// Client 带签名的微信支付网关客户端
// 调用期间不得持有任何订单表锁
type Client struct {
	BaseURL    string
	Signer     *Signer
	HTTPClient *http.Client
}

func NewClient(cfg *config.WechatPayConfig, signer *Signer) *Client {
	base := cfg.GatewayBaseURL
	if base == "" {
		base = defaultGatewayBaseURL
	}
	return &Client{
		BaseURL:    base,
		Signer:     signer,
		HTTPClient: defaultHTTPClient,
	}
}

// Do 签名并发送请求，返回响应体；非 2xx 一律按上游错误处理
func (c *Client) Do(ctx context.Context, method, urlPath string, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("序列化请求体失败: %w", err)
		}
	}

	sig, err := c.Signer.SignRequest(method, urlPath, string(body))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+urlPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", sig.Authorization)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求微信网关失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取网关响应失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("微信网关返回 %d: %s %s: %s", resp.StatusCode, method, urlPath, respBody)
	}
	return respBody, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return defaultHTTPClient
}
