package wechat

import (
	"bytes"
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
)

const testAPIKey = "0123456789abcdef0123456789abcdef"

func newTestVerifier(t *testing.T) (*Verifier, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	v := &Verifier{
		PublicKey: &key.PublicKey,
		APIKey:    []byte(testAPIKey),
	}
	return v, key
}

// sealResource 按回调的线格式加密：密文与 tag 分开、各自 base64
func sealResource(t *testing.T, key []byte, nonce, associatedData string, plain []byte) (ciphertext, tag string) {
	t.Helper()
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatalf("gcm: %v", err)
	}
	sealed := gcm.Seal(nil, []byte(nonce), plain, []byte(associatedData))
	split := len(sealed) - gcm.Overhead()
	return base64.StdEncoding.EncodeToString(sealed[:split]),
		base64.StdEncoding.EncodeToString(sealed[split:])
}

func signNotify(t *testing.T, key *rsa.PrivateKey, timestamp, nonce string, body []byte) string {
	t.Helper()
	message := fmt.Sprintf("%s\n%s\n%s\n", timestamp, nonce, body)
	digest := sha256.Sum256([]byte(message))
	raw, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestVerifySignature(t *testing.T) {
	v, key := newTestVerifier(t)

	body := []byte(`{"resource":{"ciphertext":"xx"}}`)
	sig := signNotify(t, key, "1700000000", "noncenonce", body)

	if !v.VerifySignature(sig, "1700000000", "noncenonce", body) {
		t.Fatal("valid signature rejected")
	}
}

func TestVerifySignature_BitFlip(t *testing.T) {
	v, key := newTestVerifier(t)

	body := []byte(`{"resource":{"ciphertext":"xx"}}`)
	sig := signNotify(t, key, "1700000000", "noncenonce", body)

	// 任意一位被篡改都必须拒绝
	for i := 0; i < len(body); i++ {
		flipped := bytes.Clone(body)
		flipped[i] ^= 0x01
		if v.VerifySignature(sig, "1700000000", "noncenonce", flipped) {
			t.Fatalf("flipped body accepted at byte %d", i)
		}
	}
}

func TestVerifySignature_BadInput(t *testing.T) {
	v, key := newTestVerifier(t)

	body := []byte(`{}`)
	sig := signNotify(t, key, "1700000000", "noncenonce", body)

	if v.VerifySignature("%%%not-base64%%%", "1700000000", "noncenonce", body) {
		t.Fatal("non-base64 signature accepted")
	}
	if v.VerifySignature(sig, "1700000001", "noncenonce", body) {
		t.Fatal("wrong timestamp accepted")
	}
	if v.VerifySignature(sig, "1700000000", "othernonce", body) {
		t.Fatal("wrong nonce accepted")
	}
}

func TestDecryptResource_RoundTrip(t *testing.T) {
	v, _ := newTestVerifier(t)

	plain := []byte(`{"out_trade_no":"wc123","trade_state":"SUCCESS","transaction_id":"42000001"}`)
	nonce := "abc123def456"
	ct, tag := sealResource(t, v.APIKey, nonce, "transaction", plain)

	got, err := v.DecryptResource(ct, nonce, tag, "transaction")
	if err != nil {
		t.Fatalf("DecryptResource: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("plaintext mismatch:\n got %s\nwant %s", got, plain)
	}
}

func TestDecryptResource_TagMismatch(t *testing.T) {
	v, _ := newTestVerifier(t)

	plain := []byte(`{"out_trade_no":"wc123"}`)
	nonce := "abc123def456"
	ct, tag := sealResource(t, v.APIKey, nonce, "transaction", plain)

	tagRaw, _ := base64.StdEncoding.DecodeString(tag)
	tagRaw[0] ^= 0xff
	badTag := base64.StdEncoding.EncodeToString(tagRaw)

	if _, err := v.DecryptResource(ct, nonce, badTag, "transaction"); err == nil {
		t.Fatal("tampered tag accepted")
	}
}

func TestDecryptResource_WrongAAD(t *testing.T) {
	v, _ := newTestVerifier(t)

	plain := []byte(`{"out_trade_no":"wc123"}`)
	nonce := "abc123def456"
	ct, tag := sealResource(t, v.APIKey, nonce, "transaction", plain)

	if _, err := v.DecryptResource(ct, nonce, tag, "refund"); err == nil {
		t.Fatal("wrong associated data accepted")
	}
}

func TestDecryptResource_BadNonce(t *testing.T) {
	v, _ := newTestVerifier(t)

	if _, err := v.DecryptResource("", "short", "", ""); err == nil {
		t.Fatal("bad nonce length accepted")
	}
	if _, err := v.DecryptResource("", strings.Repeat("a", 12), "%%%", ""); err == nil {
		t.Fatal("bad tag base64 accepted")
	}
}
