package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/countrystat/internal/config"
	countrydomain "github.com/smallbiznis/countrystat/internal/country/domain"
	"github.com/smallbiznis/countrystat/internal/observability"
	obsmiddleware "github.com/smallbiznis/countrystat/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/countrystat/internal/observability/metrics"
	obstracing "github.com/smallbiznis/countrystat/internal/observability/tracing"
	"github.com/smallbiznis/countrystat/internal/refresh"
	"github.com/smallbiznis/countrystat/internal/render"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(func(p *refresh.Pipeline) Refresher { return p }),
	fx.Provide(func(r *render.Renderer) SummaryReader { return r }),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// Refresher triggers a synchronous refresh of the country store.
type Refresher interface {
	Refresh(ctx context.Context) (refresh.Result, error)
}

// SummaryReader serves the rendered summary artifacts.
type SummaryReader interface {
	Image(ctx context.Context) ([]byte, time.Time, error)
	Report(ctx context.Context) ([]byte, error)
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger, shutdowner fx.Shutdowner) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	countrySvc countrydomain.Service
	refresher  Refresher
	summary    SummaryReader
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	CountrySvc countrydomain.Service
	Refresher  Refresher
	Summary    SummaryReader
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http"),
		countrySvc: p.CountrySvc,
		refresher:  p.Refresher,
		summary:    p.Summary,
	}

	svc.registerRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	countries := s.engine.Group("/countries")
	{
		countries.POST("/refresh/", s.RefreshCountries)
		countries.GET("/image/", s.GetSummaryImage)
		countries.GET("/report/", s.GetSummaryReport)
		countries.GET("/", s.ListCountries)
		countries.POST("/", s.CreateCountry)
		countries.GET("/:name/", s.GetCountry)
		countries.DELETE("/:name/", s.DeleteCountry)
	}

	s.engine.GET("/status/", s.GetStatus)
}
