package country

import (
	"github.com/smallbiznis/countrystat/internal/country/repository"
	"github.com/smallbiznis/countrystat/internal/country/service"
	"go.uber.org/fx"
)

var Module = fx.Module("country.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideStatus),
	fx.Provide(service.New),
)
