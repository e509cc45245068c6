package handler

import (
	"errors"
	"io"
	"net/http"

	"Paygate/models"
	"Paygate/pkg/context"
	"Paygate/pkg/log"
	"Paygate/pkg/response"
	"Paygate/service"
	"Paygate/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Pay struct {
	OrderService service.IOrderService
}

func (p *Pay) RegisterRouter(r gin.IRouter) {
	r.POST("/order", context.Wrap(p.CreateOrder))
	r.POST("/notify", context.Wrap(p.PayNotify)) // 支付回调
	r.GET("/orders/:out_trade_no", context.Wrap(p.QueryOrder))
	r.GET("/orders/:out_trade_no/qr", context.Wrap(p.RedeemQR))
}

// CreateOrder 下单
func (p *Pay) CreateOrder(c *gin.Context) error {
	var req types.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(400, "参数错误: "+err.Error())
	}

	resp, err := p.OrderService.CreateOrder(c.Request.Context(), models.Scene(req.Scene), req.OpenID)
	if err != nil {
		if errors.Is(err, service.ErrSceneInvalid) || errors.Is(err, service.ErrOpenIDRequired) {
			return response.NewError(400, err.Error())
		}
		// 网关失败没有留下订单记录，可重试
		log.L.Error("创建订单失败", zap.Error(err))
		return response.NewError(502, "order_failed")
	}

	response.Success(c, resp)
	return nil
}

// PayNotify 支付回调：只有验签+解密+落状态全部成功才返回 SUCCESS 应答
func (p *Pay) PayNotify(c *gin.Context) error {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return response.NewError(500, "读取回调报文失败")
	}

	err = p.OrderService.ReceiveNotification(
		c.Request.Context(),
		rawBody,
		c.GetHeader("Wechatpay-Signature"),
		c.GetHeader("Wechatpay-Timestamp"),
		c.GetHeader("Wechatpay-Nonce"),
		c.GetHeader("Wechatpay-Serial"),
	)
	if err != nil {
		if errors.Is(err, service.ErrSignature) {
			log.L.Warn("回调验签失败", zap.String("ip", c.ClientIP()))
			return response.NewError(401, "SIGNATURE_ERROR")
		}
		log.L.Error("处理支付回调失败", zap.Error(err))
		return response.NewError(500, "ERROR")
	}

	c.JSON(http.StatusOK, types.NotifyAck{Code: "SUCCESS", Message: "OK"})
	return nil
}

// QueryOrder 查询订单状态（脱敏投影）
func (p *Pay) QueryOrder(c *gin.Context) error {
	outTradeNo := c.Param("out_trade_no")
	if outTradeNo == "" {
		return response.NewError(400, "订单号不能为空")
	}

	view, err := p.OrderService.GetStatus(outTradeNo)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return response.NewError(404, "not_found")
		}
		return err
	}

	response.Success(c, view)
	return nil
}

// RedeemQR 凭 token 兑换受保护资源
func (p *Pay) RedeemQR(c *gin.Context) error {
	outTradeNo := c.Param("out_trade_no")
	token := c.Query("token")

	resp, err := p.OrderService.RedeemToken(outTradeNo, token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			return response.NewError(404, "not_found")
		case errors.Is(err, service.ErrNotPaid):
			return response.NewError(403, "not_paid")
		case errors.Is(err, service.ErrTokenInvalid):
			return response.NewError(403, "token_invalid")
		case errors.Is(err, service.ErrTokenExpired):
			return response.NewError(403, "token_expired")
		case errors.Is(err, service.ErrViewLimit):
			return response.NewError(429, "token_view_limit")
		case errors.Is(err, service.ErrQRNotConfigured):
			return response.NewError(500, "qr_not_configured")
		}
		return err
	}

	response.Success(c, resp)
	return nil
}
