package leadapi

import "go.uber.org/fx"

var Module = fx.Module("leadapi.client",
	fx.Provide(NewClient),
)
