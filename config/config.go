package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 配置信息
type Config struct {
	App       *App             `json:"app" yaml:"app"`
	Server    *Server          `json:"server" yaml:"server"`
	WechatPay *WechatPayConfig `json:"wechat_pay" yaml:"wechat_pay"`
	Access    *AccessConfig    `json:"access" yaml:"access"`
}

type Server struct {
	Http int `json:"http" yaml:"http"`
}

func New(filename string) *Config {

	content, err := os.ReadFile(filename)
	if err != nil {
		panic(err)
	}

	var conf Config
	if err := yaml.Unmarshal(content, &conf); err != nil {
		panic(fmt.Sprintf("解析 %s 失败: %v", filename, err))
	}

	conf.applyDefaults()
	if err := conf.Validate(); err != nil {
		panic(fmt.Sprintf("配置校验失败: %v", err))
	}

	return &conf
}

func (c *Config) applyDefaults() {
	if c.App == nil {
		c.App = &App{Env: "dev"}
	}
	if c.Server == nil {
		c.Server = &Server{}
	}
	if c.Server.Http == 0 {
		c.Server.Http = 3000
	}
	if c.Access == nil {
		c.Access = &AccessConfig{}
	}
	c.Access.applyDefaults()
}

// Validate 启动时一次性校验，缺必填项直接拒绝启动
func (c *Config) Validate() error {
	if c.WechatPay == nil {
		return fmt.Errorf("wechat_pay 配置缺失")
	}
	if err := c.WechatPay.Validate(); err != nil {
		return err
	}
	return c.Access.Validate()
}

// Debug 调试模式
func (c *Config) Debug() bool {
	return c.App.Debug
}
