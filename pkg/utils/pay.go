package utils

import (
	"fmt"
	"strconv"
	"time"

	"Paygate/pkg/snowflake"
)

// GenerateOutTradeNo 商户订单号：前缀 + 秒级时间 + snowflake 后缀
// 后缀保证同一秒内不碰撞，整体长度控制在微信 32 字符限制内
func GenerateOutTradeNo(prefix string) string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("%s%s%s", prefix, now, strconv.FormatInt(snowflake.GenID(), 36))
}
