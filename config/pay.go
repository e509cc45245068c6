package config

import "fmt"

// WechatPayConfig 微信支付 APIv3 商户配置，全部必填
type WechatPayConfig struct {
	AppID                      string `yaml:"app_id"`                        // 应用ID
	MchID                      string `yaml:"mch_id"`                        // 商户号
	MchCertificateSerialNumber string `yaml:"mch_certificate_serial_number"` // 商户证书序列号
	MchAPIv3Key                string `yaml:"mch_apiv3_key"`                 // APIv3密钥
	MchPrivateKeyPath          string `yaml:"mch_private_key_path"`          // 商户私钥文件路径
	PlatformCertPath           string `yaml:"platform_cert_path"`            // 微信支付平台证书路径
	NotifyURL                  string `yaml:"notify_url"`                    // 支付回调URL
	GatewayBaseURL             string `yaml:"gateway_base_url"`              // 留空则使用官方网关
}

func (w *WechatPayConfig) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"wechat_pay.app_id", w.AppID},
		{"wechat_pay.mch_id", w.MchID},
		{"wechat_pay.mch_certificate_serial_number", w.MchCertificateSerialNumber},
		{"wechat_pay.mch_apiv3_key", w.MchAPIv3Key},
		{"wechat_pay.mch_private_key_path", w.MchPrivateKeyPath},
		{"wechat_pay.platform_cert_path", w.PlatformCertPath},
		{"wechat_pay.notify_url", w.NotifyURL},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%s 必填", f.name)
		}
	}
	// AES-256-GCM 要求 32 字节密钥
	if len(w.MchAPIv3Key) != 32 {
		return fmt.Errorf("wechat_pay.mch_apiv3_key 长度必须为 32 字节, 实际 %d", len(w.MchAPIv3Key))
	}
	return nil
}

// ProvideWechatPayConfig 供注入器使用，支付组件只依赖商户配置切片
func ProvideWechatPayConfig(cfg *Config) *WechatPayConfig {
	return cfg.WechatPay
}
