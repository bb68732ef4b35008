package customer

import (
	"github.com/smallbiznis/talentloop/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.resolver",
	fx.Provide(service.New),
)
