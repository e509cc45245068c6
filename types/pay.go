package types

import (
	"time"

	"Paygate/pkg/wechat"
)

type CreateOrderRequest struct {
	Scene  string `json:"scene" binding:"required,oneof=jsapi native"` // 支付场景
	OpenID string `json:"openid"`                                      // jsapi 必填
}

type CreateOrderResponse struct {
	Mode       string                 `json:"mode"`
	OutTradeNo string                 `json:"outTradeNo"`
	PayParams  *wechat.JSAPIPayParams `json:"payParams,omitempty"` // jsapi
	CodeURL    string                 `json:"code_url,omitempty"`  // native
}

// OrderStatusView 脱敏后的订单状态投影
// 凭证只在支付成功且未过期时出现
type OrderStatusView struct {
	OutTradeNo     string     `json:"outTradeNo"`
	Status         string     `json:"status"`
	TransactionID  string     `json:"transactionId,omitempty"`
	AmountFen      int64      `json:"amountFen"`
	Scene          string     `json:"scene"`
	Token          string     `json:"token,omitempty"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
}

type RedeemResponse struct {
	Image          string    `json:"image"`
	ExpiresAt      time.Time `json:"expiresAt"`
	RemainingViews int       `json:"remainingViews"`
}

// NotifyAck 网关据此判定回调已送达，只能在状态落库后返回
type NotifyAck struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
