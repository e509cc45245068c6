package strutil

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomHex 返回 n 个随机字节的十六进制串，长度 2n
func RandomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
