package server

import (
	"Paygate/handler"
)

type Handlers struct {
	Pay *handler.Pay
}
