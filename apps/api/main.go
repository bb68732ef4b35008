package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentloop/internal/clock"
	"github.com/smallbiznis/talentloop/internal/config"
	"github.com/smallbiznis/talentloop/internal/customer"
	"github.com/smallbiznis/talentloop/internal/entitlement"
	"github.com/smallbiznis/talentloop/internal/forum"
	"github.com/smallbiznis/talentloop/internal/migration"
	"github.com/smallbiznis/talentloop/internal/observability"
	"github.com/smallbiznis/talentloop/internal/payment"
	"github.com/smallbiznis/talentloop/internal/plan"
	"github.com/smallbiznis/talentloop/internal/ratelimit"
	"github.com/smallbiznis/talentloop/internal/reconcile"
	"github.com/smallbiznis/talentloop/internal/requestmetrics"
	"github.com/smallbiznis/talentloop/internal/server"
	"github.com/smallbiznis/talentloop/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		// Reconciler and its collaborators
		plan.Module,
		ratelimit.Module,
		entitlement.Module,
		customer.Module,
		reconcile.Module,
		payment.Module,

		// Document stores
		forum.Module,
		requestmetrics.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
