package refresh

import (
	"github.com/smallbiznis/countrystat/internal/render"
	"go.uber.org/fx"
)

var Module = fx.Module("refresh",
	fx.Provide(func(r *render.Renderer) SummaryRenderer { return r }),
	fx.Provide(New),
)
