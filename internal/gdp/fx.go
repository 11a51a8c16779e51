package gdp

import "go.uber.org/fx"

var Module = fx.Module("gdp",
	fx.Provide(NewFromEntropy),
)
