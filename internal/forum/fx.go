package forum

import (
	"github.com/smallbiznis/talentloop/internal/forum/service"
	"go.uber.org/fx"
)

var Module = fx.Module("forum.service",
	fx.Provide(service.New),
)
