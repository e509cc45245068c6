package service

import (
	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(
	NewTokenIssuer,

	wire.Struct(new(OrderService), "*"),
	wire.Bind(new(IOrderService), new(*OrderService)),
)
