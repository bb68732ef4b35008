package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentloop/internal/clock"
	"github.com/smallbiznis/talentloop/internal/config"
	"github.com/smallbiznis/talentloop/internal/entitlement"
	"github.com/smallbiznis/talentloop/internal/observability"
	"github.com/smallbiznis/talentloop/internal/ratelimit"
	"github.com/smallbiznis/talentloop/internal/scheduler"
	"github.com/smallbiznis/talentloop/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Leader lock for multi-replica deployments
		ratelimit.Module,
		entitlement.Module,

		// No server module!
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
