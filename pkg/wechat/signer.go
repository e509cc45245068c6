package wechat

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"Paygate/config"
	"Paygate/pkg/log"
	"Paygate/pkg/strutil"

	"github.com/wechatpay-apiv3/wechatpay-go/utils"
	"go.uber.org/zap"
)

const authorizationType = "WECHATPAY2-SHA256-RSA2048"

// Signer 用商户私钥为出站请求和 JSAPI 唤起参数生成 RSA-SHA256 签名
type Signer struct {
	AppID      string
	MchID      string
	SerialNo   string
	PrivateKey *rsa.PrivateKey
}

// NewSigner 加载商户私钥失败属于配置错误，直接终止启动
func NewSigner(cfg *config.WechatPayConfig) *Signer {
	key, err := utils.LoadPrivateKeyWithPath(cfg.MchPrivateKeyPath)
	if err != nil {
		log.L.Fatal("加载商户私钥失败",
			zap.String("path", cfg.MchPrivateKeyPath),
			zap.Error(err))
	}
	return &Signer{
		AppID:      cfg.AppID,
		MchID:      cfg.MchID,
		SerialNo:   cfg.MchCertificateSerialNumber,
		PrivateKey: key,
	}
}

// RequestSignature 出站请求的认证头
type RequestSignature struct {
	Authorization string
	Timestamp     string
	NonceStr      string
}

// SignRequest 签名串: method\nurlPath\ntimestamp\nnonce\nbody\n
func (s *Signer) SignRequest(method, urlPath, body string) (*RequestSignature, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	nonceStr := strutil.RandomHex(8)

	message := fmt.Sprintf("%s\n%s\n%s\n%s\n%s\n", method, urlPath, timestamp, nonceStr, body)
	signature, err := s.sign(message)
	if err != nil {
		return nil, fmt.Errorf("签名请求失败: %w", err)
	}

	authorization := fmt.Sprintf(
		`%s mchid="%s",nonce_str="%s",signature="%s",timestamp="%s",serial_no="%s"`,
		authorizationType, s.MchID, nonceStr, signature, timestamp, s.SerialNo,
	)
	return &RequestSignature{
		Authorization: authorization,
		Timestamp:     timestamp,
		NonceStr:      nonceStr,
	}, nil
}

// JSAPIPayParams 前端唤起支付所需的参数
type JSAPIPayParams struct {
	AppID     string `json:"appId"`
	TimeStamp string `json:"timeStamp"`
	NonceStr  string `json:"nonceStr"`
	Package   string `json:"package"`
	SignType  string `json:"signType"`
	PaySign   string `json:"paySign"`
}

// SignClientInvocation 签名串: appid\ntimeStamp\nnonceStr\nprepay_id=xxx\n
// 二次支付确认由客户端发起，服务端不等待其结果
func (s *Signer) SignClientInvocation(prepayID string) (*JSAPIPayParams, error) {
	timeStamp := strconv.FormatInt(time.Now().Unix(), 10)
	nonceStr := strutil.RandomHex(8)
	pkg := "prepay_id=" + prepayID

	message := fmt.Sprintf("%s\n%s\n%s\n%s\n", s.AppID, timeStamp, nonceStr, pkg)
	signature, err := s.sign(message)
	if err != nil {
		return nil, fmt.Errorf("签名唤起参数失败: %w", err)
	}

	return &JSAPIPayParams{
		AppID:     s.AppID,
		TimeStamp: timeStamp,
		NonceStr:  nonceStr,
		Package:   pkg,
		SignType:  "RSA",
		PaySign:   signature,
	}, nil
}

func (s *Signer) sign(message string) (string, error) {
	digest := sha256.Sum256([]byte(message))
	raw, err := rsa.SignPKCS1v15(rand.Reader, s.PrivateKey, crypto.SHA256, digest[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
