package models

import "time"

type Scene string

const (
	SceneJSAPI  Scene = "jsapi"
	SceneNative Scene = "native"
)

func (s Scene) Valid() bool {
	return s == SceneJSAPI || s == SceneNative
}

type OrderStatus string

const (
	StatusPending  OrderStatus = "pending"
	StatusSuccess  OrderStatus = "success"
	StatusClosed   OrderStatus = "closed"
	StatusRevoked  OrderStatus = "revoked"
	StatusRefund   OrderStatus = "refund"
	StatusPayError OrderStatus = "pay_error"
)

// Terminal pending 之外的状态全部终态，不可再迁移
func (s OrderStatus) Terminal() bool {
	return s != StatusPending && s != ""
}

var tradeStateMap = map[string]OrderStatus{
	"SUCCESS":  StatusSuccess,
	"CLOSED":   StatusClosed,
	"REVOKED":  StatusRevoked,
	"REFUND":   StatusRefund,
	"PAYERROR": StatusPayError,
}

// StatusFromTradeState 网关 trade_state 到本地状态的映射
// 未知状态（包括 NOTPAY）不做映射，由调用方拒绝并等网关重投
func StatusFromTradeState(state string) (OrderStatus, bool) {
	s, ok := tradeStateMap[state]
	return s, ok
}

// Order 订单主记录，仅存在于进程内订单表
type Order struct {
	OutTradeNo    string      `json:"out_trade_no"`
	Scene         Scene       `json:"scene"`
	Status        OrderStatus `json:"status"`
	AmountFen     int64       `json:"amount_fen"` // 单位：分
	TransactionID string      `json:"transaction_id"`
	NotifySerial  string      `json:"notify_serial"`
	CreatedAt     time.Time   `json:"created_at"`
	PaidAt        *time.Time  `json:"paid_at"`

	// 凭证字段，仅在首次进入 success 时一次性写入
	Token          string    `json:"-"`
	TokenExpiresAt time.Time `json:"-"`
	TokenViews     int       `json:"-"`
}
