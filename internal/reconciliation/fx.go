package reconciliation

import (
	"github.com/smallbiznis/leadbilling/internal/reconciliation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reconciliation.service",
	fx.Provide(service.New),
)
