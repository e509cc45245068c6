package wechat

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"Paygate/config"
	"Paygate/pkg/log"

	"github.com/wechatpay-apiv3/wechatpay-go/utils"
	"go.uber.org/zap"
)

// Verifier 验证回调签名并解密回调密文
// 先验签、再解密、之后才允许改动订单状态；两步都是纯函数，重复投递可安全重放
type Verifier struct {
	PublicKey *rsa.PublicKey
	APIKey    []byte
}

// NewVerifier 平台证书不可读或密钥非法属于配置错误，直接终止启动
func NewVerifier(cfg *config.WechatPayConfig) *Verifier {
	cert, err := utils.LoadCertificateWithPath(cfg.PlatformCertPath)
	if err != nil {
		log.L.Fatal("加载微信支付平台证书失败",
			zap.String("path", cfg.PlatformCertPath),
			zap.Error(err))
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		log.L.Fatal("平台证书公钥不是 RSA 公钥",
			zap.String("path", cfg.PlatformCertPath))
	}
	return &Verifier{
		PublicKey: pub,
		APIKey:    []byte(cfg.MchAPIv3Key),
	}
}

// VerifySignature 验签串: timestamp\nnonce\nbody\n
func (v *Verifier) VerifySignature(signature, timestamp, nonce string, body []byte) bool {
	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	message := fmt.Sprintf("%s\n%s\n%s\n", timestamp, nonce, body)
	digest := sha256.Sum256([]byte(message))
	return rsa.VerifyPKCS1v15(v.PublicKey, crypto.SHA256, digest[:], raw) == nil
}

// DecryptResource AES-256-GCM 解密回调密文，tag 单独传输
// 认证失败（tag 不匹配）视为硬错误，调用方不得使用任何输出
func (v *Verifier) DecryptResource(ciphertext, nonce, tag, associatedData string) ([]byte, error) {
	block, err := aes.NewCipher(v.APIKey)
	if err != nil {
		return nil, fmt.Errorf("初始化 AES 失败: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("初始化 GCM 失败: %w", err)
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("nonce 长度非法: %d", len(nonce))
	}

	ct, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("密文 base64 解码失败: %w", err)
	}
	tagRaw, err := base64.StdEncoding.DecodeString(tag)
	if err != nil {
		return nil, fmt.Errorf("tag base64 解码失败: %w", err)
	}

	plain, err := gcm.Open(nil, []byte(nonce), append(ct, tagRaw...), []byte(associatedData))
	if err != nil {
		return nil, fmt.Errorf("解密回调资源失败: %w", err)
	}
	return plain, nil
}
