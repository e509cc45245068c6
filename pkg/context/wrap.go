package context

import (
	"github.com/gin-gonic/gin"
)

type HandlerFunc func(*gin.Context) error

// Wrap 错误不在这里落地，统一上报给 response.ErrorMiddleware 映射为响应
func Wrap(h func(*gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h(c); err != nil {

			// 如果已经写过响应，直接返回
			if c.Writer.Written() {
				return
			}
			_ = c.Error(err)
		}
	}
}
