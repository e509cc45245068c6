package handler

import (
	"bytes"
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"Paygate/config"
	"Paygate/dao"
	"Paygate/pkg/response"
	"Paygate/pkg/strutil"
	"Paygate/pkg/wechat"
	"Paygate/service"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

const testAPIKey = "fedcba9876543210fedcba9876543210"

type payTestEnv struct {
	engine      *gin.Engine
	platformKey *rsa.PrivateKey
}

func newPayTestEnv(t *testing.T) *payTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	merchantKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate merchant key: %v", err)
	}
	platformKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate platform key: %v", err)
	}

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/pay/transactions/jsapi":
			fmt.Fprint(w, `{"prepay_id":"prepaytest123"}`)
		case "/v3/pay/transactions/native":
			fmt.Fprint(w, `{"code_url":"weixin://wxpay/bizpayurl?pr=test"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(gateway.Close)

	cfg := &config.Config{
		App:    &config.App{Env: "test"},
		Server: &config.Server{Http: 3000},
		WechatPay: &config.WechatPayConfig{
			AppID:                      "wxtestappid",
			MchID:                      "1900000001",
			MchCertificateSerialNumber: "TESTSERIAL001",
			MchAPIv3Key:                testAPIKey,
			NotifyURL:                  "https://example.com/api/notify",
			GatewayBaseURL:             gateway.URL,
		},
		Access: &config.AccessConfig{
			AmountFen:     1000,
			Description:   "测试报名费",
			QRImageURL:    "https://cdn.example.com/group-qr.png",
			TokenTTL:      "10m",
			TokenMaxViews: 3,
		},
	}

	store := dao.NewOrderStore()
	signer := &wechat.Signer{
		AppID:      cfg.WechatPay.AppID,
		MchID:      cfg.WechatPay.MchID,
		SerialNo:   cfg.WechatPay.MchCertificateSerialNumber,
		PrivateKey: merchantKey,
	}
	svc := &service.OrderService{
		Cfg:      cfg,
		Store:    store,
		Signer:   signer,
		Verifier: &wechat.Verifier{PublicKey: &platformKey.PublicKey, APIKey: []byte(testAPIKey)},
		Gateway:  wechat.NewClient(cfg.WechatPay, signer),
		Issuer:   service.NewTokenIssuer(cfg, store),
	}

	engine := gin.New()
	engine.Use(response.ErrorMiddleware())
	p := &Pay{OrderService: svc}
	p.RegisterRouter(engine.Group("/api"))

	return &payTestEnv{engine: engine, platformKey: platformKey}
}

func (e *payTestEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *payTestEnv) signedNotification(t *testing.T, outTradeNo, tradeState string) (*http.Request, []byte) {
	t.Helper()

	plain, _ := json.Marshal(map[string]string{
		"out_trade_no":   outTradeNo,
		"trade_state":    tradeState,
		"transaction_id": "4200000042",
	})

	block, _ := aes.NewCipher([]byte(testAPIKey))
	gcm, _ := cipher.NewGCM(block)
	resourceNonce := strutil.RandomHex(6)
	sealed := gcm.Seal(nil, []byte(resourceNonce), plain, []byte("transaction"))
	split := len(sealed) - gcm.Overhead()

	body, _ := json.Marshal(map[string]any{
		"resource": map[string]string{
			"ciphertext":      base64.StdEncoding.EncodeToString(sealed[:split]),
			"tag":             base64.StdEncoding.EncodeToString(sealed[split:]),
			"nonce":           resourceNonce,
			"associated_data": "transaction",
		},
	})

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	nonce := strutil.RandomHex(8)
	message := fmt.Sprintf("%s\n%s\n%s\n", timestamp, nonce, body)
	digest := sha256.Sum256([]byte(message))
	raw, err := rsa.SignPKCS1v15(rand.Reader, e.platformKey, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/notify", bytes.NewReader(body))
	req.Header.Set("Wechatpay-Signature", base64.StdEncoding.EncodeToString(raw))
	req.Header.Set("Wechatpay-Timestamp", timestamp)
	req.Header.Set("Wechatpay-Nonce", nonce)
	req.Header.Set("Wechatpay-Serial", "PLATFORMSERIAL001")
	return req, body
}

func TestCreateOrderBadScene(t *testing.T) {
	env := newPayTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/order", bytes.NewBufferString(`{"scene":"alipay"}`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(t, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateOrderJSAPIWithoutOpenID(t *testing.T) {
	env := newPayTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/order", bytes.NewBufferString(`{"scene":"jsapi"}`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(t, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestNotifyBadSignature(t *testing.T) {
	env := newPayTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/notify", bytes.NewBufferString(`{"resource":{}}`))
	req.Header.Set("Wechatpay-Signature", base64.StdEncoding.EncodeToString([]byte("garbage")))
	req.Header.Set("Wechatpay-Timestamp", "1700000000")
	req.Header.Set("Wechatpay-Nonce", "nonce123")
	w := env.do(t, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestQueryOrderUnknown(t *testing.T) {
	env := newPayTestEnv(t)

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/orders/wc-missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

// HTTP 全链路：下单 -> 回调 -> 轮询 -> 兑换三次 -> 限流
func TestNativeFlowOverHTTP(t *testing.T) {
	env := newPayTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/order", bytes.NewBufferString(`{"scene":"native"}`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(t, req)
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	outTradeNo := gjson.Get(w.Body.String(), "data.outTradeNo").String()
	if outTradeNo == "" {
		t.Fatalf("no outTradeNo in %s", w.Body.String())
	}
	if gjson.Get(w.Body.String(), "data.code_url").String() == "" {
		t.Fatalf("no code_url in %s", w.Body.String())
	}

	notifyReq, _ := env.signedNotification(t, outTradeNo, "SUCCESS")
	w = env.do(t, notifyReq)
	if w.Code != http.StatusOK {
		t.Fatalf("notify status = %d: %s", w.Code, w.Body.String())
	}
	if gjson.Get(w.Body.String(), "code").String() != "SUCCESS" {
		t.Fatalf("notify ack = %s", w.Body.String())
	}

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/orders/"+outTradeNo, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("query status = %d", w.Code)
	}
	token := gjson.Get(w.Body.String(), "data.token").String()
	if token == "" {
		t.Fatalf("no token in %s", w.Body.String())
	}

	qrPath := "/api/orders/" + outTradeNo + "/qr?token=" + token
	for i, want := range []int64{2, 1, 0} {
		w = env.do(t, httptest.NewRequest(http.MethodGet, qrPath, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("redeem %d status = %d: %s", i+1, w.Code, w.Body.String())
		}
		if got := gjson.Get(w.Body.String(), "data.remainingViews").Int(); got != want {
			t.Fatalf("redeem %d remaining = %d, want %d", i+1, got, want)
		}
	}

	w = env.do(t, httptest.NewRequest(http.MethodGet, qrPath, nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("4th redeem status = %d, want 429", w.Code)
	}

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/orders/"+outTradeNo+"/qr?token=wrong", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("wrong token status = %d, want 403", w.Code)
	}
}
