package service

import (
	"crypto/subtle"
	"errors"
	"time"

	"Paygate/config"
	"Paygate/dao"
	"Paygate/models"
	"Paygate/pkg/strutil"
	"Paygate/types"
)

const tokenBytes = 12

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrNotPaid         = errors.New("order not paid")
	ErrTokenInvalid    = errors.New("token missing or mismatched")
	ErrTokenExpired    = errors.New("token expired")
	ErrViewLimit       = errors.New("token view limit reached")
	ErrQRNotConfigured = errors.New("qr image not configured")
)

// TokenIssuer 在订单之上实现凭证语义：一次性铸造、限时、限次
type TokenIssuer struct {
	Store    *dao.OrderStore
	TTL      time.Duration
	MaxViews int
	Resource string // 受保护资源引用
}

func NewTokenIssuer(cfg *config.Config, store *dao.OrderStore) *TokenIssuer {
	return &TokenIssuer{
		Store:    store,
		TTL:      cfg.Access.TTL(),
		MaxViews: cfg.Access.TokenMaxViews,
		Resource: cfg.Access.QRImageURL,
	}
}

// Mint 只允许从 ApplyTransition 的 success 分支调用
func (t *TokenIssuer) Mint() (string, time.Time) {
	return strutil.RandomHex(tokenBytes), time.Now().Add(t.TTL)
}

// Redeem 校验顺序固定：存在 -> 已支付 -> 凭证匹配 -> 未过期 -> 额度
// 凭证比对使用常数时间比较，避免枚举时的时序侧信道
func (t *TokenIssuer) Redeem(outTradeNo, suppliedToken string) (*types.RedeemResponse, error) {
	order, err := t.Store.Read(outTradeNo)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != models.StatusSuccess {
		return nil, ErrNotPaid
	}
	if order.Token == "" || suppliedToken == "" ||
		subtle.ConstantTimeCompare([]byte(order.Token), []byte(suppliedToken)) != 1 {
		return nil, ErrTokenInvalid
	}
	if time.Now().After(order.TokenExpiresAt) {
		return nil, ErrTokenExpired
	}
	if t.Resource == "" {
		return nil, ErrQRNotConfigured
	}

	remaining, err := t.Store.IncrementViewIfUnderBudget(outTradeNo, t.MaxViews)
	if err != nil {
		if errors.Is(err, dao.ErrViewBudget) {
			return nil, ErrViewLimit
		}
		return nil, err
	}

	return &types.RedeemResponse{
		Image:          t.Resource,
		ExpiresAt:      order.TokenExpiresAt,
		RemainingViews: remaining,
	}, nil
}
