package config

import (
	"fmt"
	"time"
)

const (
	defaultAmountFen     = 1000
	defaultTokenTTL      = 10 * time.Minute
	defaultTokenMaxViews = 3
	defaultDescription   = "社群准入-报名费"
)

// AccessConfig 付费解锁资源的业务配置，均为可选项
type AccessConfig struct {
	AmountFen     int64  `yaml:"amount_fen"`      // 固定订单金额，单位：分
	Description   string `yaml:"description"`     // 商品描述
	QRImageURL    string `yaml:"qr_image_url"`    // 受保护资源（群二维码）地址
	TokenTTL      string `yaml:"token_ttl"`       // 凭证有效期，如 "10m"
	TokenMaxViews int    `yaml:"token_max_views"` // 凭证查看次数上限
}

func (a *AccessConfig) applyDefaults() {
	if a.AmountFen <= 0 {
		a.AmountFen = defaultAmountFen
	}
	if a.Description == "" {
		a.Description = defaultDescription
	}
	if a.TokenMaxViews < 1 {
		a.TokenMaxViews = defaultTokenMaxViews
	}
}

func (a *AccessConfig) Validate() error {
	if a.TokenTTL != "" {
		if _, err := time.ParseDuration(a.TokenTTL); err != nil {
			return fmt.Errorf("access.token_ttl 格式错误: %v", err)
		}
	}
	return nil
}

// TTL 解析后的凭证有效期
func (a *AccessConfig) TTL() time.Duration {
	if a.TokenTTL == "" {
		return defaultTokenTTL
	}
	d, err := time.ParseDuration(a.TokenTTL)
	if err != nil || d <= 0 {
		return defaultTokenTTL
	}
	return d
}
