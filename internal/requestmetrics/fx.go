package requestmetrics

import "go.uber.org/fx"

var Module = fx.Module("requestmetrics.service",
	fx.Provide(New),
)
