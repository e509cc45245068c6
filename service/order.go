package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"Paygate/config"
	"Paygate/dao"
	"Paygate/models"
	"Paygate/pkg/log"
	"Paygate/pkg/utils"
	"Paygate/pkg/wechat"
	"Paygate/types"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	jsapiPrepayPath  = "/v3/pay/transactions/jsapi"
	nativePrepayPath = "/v3/pay/transactions/native"
	outTradeNoPrefix = "wc"
)

var (
	ErrSceneInvalid   = errors.New("scene must be jsapi or native")
	ErrOpenIDRequired = errors.New("openid required for jsapi")
	ErrSignature      = errors.New("notify signature mismatch")
)

var _ IOrderService = (*OrderService)(nil)

type IOrderService interface {
	CreateOrder(ctx context.Context, scene models.Scene, openid string) (*types.CreateOrderResponse, error)
	ReceiveNotification(ctx context.Context, rawBody []byte, signature, timestamp, nonce, serial string) error
	GetStatus(outTradeNo string) (*types.OrderStatusView, error)
	RedeemToken(outTradeNo, suppliedToken string) (*types.RedeemResponse, error)
}

type OrderService struct {
	Cfg      *config.Config
	Store    *dao.OrderStore
	Signer   *wechat.Signer
	Verifier *wechat.Verifier
	Gateway  *wechat.Client
	Issuer   *TokenIssuer
}

// CreateOrder 先请求网关，网关成功后才落 pending 记录；
// 网关失败不留任何订单痕迹，调用方可直接重试
func (s *OrderService) CreateOrder(ctx context.Context, scene models.Scene, openid string) (*types.CreateOrderResponse, error) {
	if !scene.Valid() {
		return nil, ErrSceneInvalid
	}
	if scene == models.SceneJSAPI && openid == "" {
		return nil, ErrOpenIDRequired
	}

	outTradeNo := utils.GenerateOutTradeNo(outTradeNoPrefix)
	payload := map[string]any{
		"appid":        s.Cfg.WechatPay.AppID,
		"mchid":        s.Cfg.WechatPay.MchID,
		"description":  s.Cfg.Access.Description,
		"out_trade_no": outTradeNo,
		"notify_url":   s.Cfg.WechatPay.NotifyURL,
		"amount": map[string]any{
			"total":    s.Cfg.Access.AmountFen,
			"currency": "CNY",
		},
	}

	resp := &types.CreateOrderResponse{
		Mode:       string(scene),
		OutTradeNo: outTradeNo,
	}

	switch scene {
	case models.SceneJSAPI:
		payload["payer"] = map[string]any{"openid": openid}
		body, err := s.Gateway.Do(ctx, http.MethodPost, jsapiPrepayPath, payload)
		if err != nil {
			return nil, fmt.Errorf("jsapi 下单失败: %w", err)
		}
		prepayID := gjson.GetBytes(body, "prepay_id").String()
		if prepayID == "" {
			return nil, fmt.Errorf("网关响应缺少 prepay_id: %s", body)
		}
		payParams, err := s.Signer.SignClientInvocation(prepayID)
		if err != nil {
			return nil, err
		}
		resp.PayParams = payParams

	case models.SceneNative:
		body, err := s.Gateway.Do(ctx, http.MethodPost, nativePrepayPath, payload)
		if err != nil {
			return nil, fmt.Errorf("native 下单失败: %w", err)
		}
		codeURL := gjson.GetBytes(body, "code_url").String()
		if codeURL == "" {
			return nil, fmt.Errorf("网关响应缺少 code_url: %s", body)
		}
		resp.CodeURL = codeURL
	}

	order := models.Order{
		OutTradeNo: outTradeNo,
		Scene:      scene,
		Status:     models.StatusPending,
		AmountFen:  s.Cfg.Access.AmountFen,
		CreatedAt:  time.Now(),
	}
	if err := s.Store.Create(order); err != nil {
		return nil, fmt.Errorf("创建订单记录失败: %w", err)
	}

	log.L.Info("order created",
		zap.String("out_trade_no", outTradeNo),
		zap.String("scene", string(scene)),
		zap.Int64("amount_fen", order.AmountFen))
	return resp, nil
}

// ReceiveNotification 验签 -> 解密 -> 原子迁移，顺序不可调换
// 任一环节失败都不改状态、不返回 SUCCESS 应答，网关会按至少一次语义重投
func (s *OrderService) ReceiveNotification(ctx context.Context, rawBody []byte, signature, timestamp, nonce, serial string) error {
	if !s.Verifier.VerifySignature(signature, timestamp, nonce, rawBody) {
		return ErrSignature
	}

	resource := gjson.GetBytes(rawBody, "resource")
	plain, err := s.Verifier.DecryptResource(
		resource.Get("ciphertext").String(),
		resource.Get("nonce").String(),
		resource.Get("tag").String(),
		resource.Get("associated_data").String(),
	)
	if err != nil {
		return err
	}

	outTradeNo := gjson.GetBytes(plain, "out_trade_no").String()
	tradeState := gjson.GetBytes(plain, "trade_state").String()
	transactionID := gjson.GetBytes(plain, "transaction_id").String()

	status, ok := models.StatusFromTradeState(tradeState)
	if !ok {
		return fmt.Errorf("未知的 trade_state: %q", tradeState)
	}

	order, err := s.Store.ApplyTransition(outTradeNo, status, dao.TransitionExtra{
		TransactionID: transactionID,
		NotifySerial:  serial,
	}, s.Issuer.Mint)
	if err != nil {
		return fmt.Errorf("应用状态迁移失败 %s: %w", outTradeNo, err)
	}

	log.L.Info("notify applied",
		zap.String("out_trade_no", outTradeNo),
		zap.String("trade_state", tradeState),
		zap.String("status", string(order.Status)))
	return nil
}

// GetStatus 轮询用投影；pending 或已过期时绝不泄露凭证
func (s *OrderService) GetStatus(outTradeNo string) (*types.OrderStatusView, error) {
	order, err := s.Store.Read(outTradeNo)
	if err != nil {
		return nil, ErrOrderNotFound
	}

	view := &types.OrderStatusView{
		OutTradeNo:    order.OutTradeNo,
		Status:        string(order.Status),
		TransactionID: order.TransactionID,
		AmountFen:     order.AmountFen,
		Scene:         string(order.Scene),
	}
	if order.Status == models.StatusSuccess && order.Token != "" && time.Now().Before(order.TokenExpiresAt) {
		view.Token = order.Token
		expiresAt := order.TokenExpiresAt
		view.TokenExpiresAt = &expiresAt
	}
	return view, nil
}

func (s *OrderService) RedeemToken(outTradeNo, suppliedToken string) (*types.RedeemResponse, error) {
	return s.Issuer.Redeem(outTradeNo, suppliedToken)
}
