//go:build wireinject
// +build wireinject

package main

import (
	"Paygate/config"
	"Paygate/dao"
	"Paygate/handler"
	"Paygate/pkg/server"
	"Paygate/pkg/wechat"
	"Paygate/service"

	"github.com/google/wire"
)

func InitServer(cfg *config.Config) *server.AppProvider {
	wire.Build(

		config.ProvideWechatPayConfig,
		dao.NewOrderStore,
		wechat.NewSigner,
		wechat.NewVerifier,
		wechat.NewClient,

		service.ProviderSet,

		wire.Struct(new(handler.Pay), "*"),
		wire.Struct(new(server.Handlers), "*"),
		server.NewGinEngine,
		wire.Struct(new(server.AppProvider), "*"),
	)
	return nil
}
