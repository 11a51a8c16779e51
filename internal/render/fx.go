package render

import (
	"github.com/smallbiznis/countrystat/internal/config"
	"github.com/spf13/afero"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("render",
	fx.Provide(provideStore),
	fx.Provide(provideFonts),
	fx.Provide(New),
)

func provideStore(cfg config.Config) ArtifactStore {
	return NewFileStore(afero.NewOsFs(), cfg.Summary.ImagePath)
}

func provideFonts(cfg config.Config, log *zap.Logger) FontSet {
	return LoadFonts(afero.NewOsFs(), cfg.Summary.FontRegularPath, cfg.Summary.FontBoldPath, log)
}
