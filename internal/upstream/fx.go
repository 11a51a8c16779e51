package upstream

import "go.uber.org/fx"

var Module = fx.Module("upstream",
	fx.Provide(New),
	fx.Provide(NewSource),
)
