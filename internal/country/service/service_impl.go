package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/countrystat/internal/clock"
	"github.com/smallbiznis/countrystat/internal/country/domain"
	"github.com/smallbiznis/countrystat/internal/gdp"
	"github.com/smallbiznis/countrystat/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxCurrencyCodeLength = 10

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	StatusRepo domain.StatusRepository
	Estimator  *gdp.Estimator
	Clock      clock.Clock
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	statusRepo domain.StatusRepository
	estimator  *gdp.Estimator
	clock      clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("country.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		statusRepo: p.StatusRepo,
		estimator:  p.Estimator,
		clock:      p.Clock,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListCountryRequest) ([]domain.Country, error) {
	order, err := domain.ParseSort(req.Sort)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db, domain.ListCountryFilter{
		Region:   strings.TrimSpace(req.Region),
		Currency: strings.TrimSpace(req.Currency),
		Sort:     order,
	})
	if err != nil {
		return nil, err
	}

	countries := make([]domain.Country, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		countries = append(countries, *item)
	}
	return countries, nil
}

func (s *Service) GetByName(ctx context.Context, name string) (domain.Country, error) {
	key := domain.NameKey(name)
	if key == "" {
		return domain.Country{}, domain.ErrNotFound
	}

	item, err := s.repo.FindByNameKey(ctx, s.db, key)
	if err != nil {
		return domain.Country{}, err
	}
	if item == nil {
		return domain.Country{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) DeleteByName(ctx context.Context, name string) error {
	key := domain.NameKey(name)
	if key == "" {
		return domain.ErrNotFound
	}

	deleted, err := s.repo.DeleteByNameKey(ctx, s.db, key)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("country deleted", zap.String("name_key", key))
	return nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateCountryRequest) (domain.Country, error) {
	verr := domain.NewValidationError()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		verr.Add("name", "is required")
	}
	if req.Population == nil {
		verr.Add("population", "is required")
	} else if *req.Population < 0 {
		verr.Add("population", "must be greater than or equal to 0")
	}

	currency := trimmed(req.CurrencyCode)
	if currency != nil {
		upper := strings.ToUpper(*currency)
		currency = &upper
		if len(upper) > maxCurrencyCodeLength {
			verr.Add("currency_code", "must be at most 10 characters")
		}
	}
	if req.ExchangeRate != nil {
		if currency == nil {
			verr.Add("exchange_rate", "requires currency_code")
		} else if *req.ExchangeRate <= 0 {
			verr.Add("exchange_rate", "must be greater than 0")
		}
	}

	if verr.HasErrors() {
		return domain.Country{}, verr
	}

	key := domain.NameKey(name)
	existing, err := s.repo.FindByNameKey(ctx, s.db, key)
	if err != nil {
		return domain.Country{}, err
	}
	if existing != nil {
		verr.Add("name", "already exists")
		return domain.Country{}, verr
	}

	country := domain.Country{
		ID:              s.genID.Generate(),
		Name:            name,
		NameKey:         key,
		Capital:         trimmed(req.Capital),
		Region:          trimmed(req.Region),
		Population:      *req.Population,
		CurrencyCode:    currency,
		ExchangeRate:    req.ExchangeRate,
		FlagURL:         trimmed(req.FlagURL),
		LastRefreshedAt: s.clock.Now().UTC().Truncate(time.Microsecond),
	}
	country.EstimatedGDP = s.estimator.Estimate(country.Population, country.ExchangeRate)

	if err := s.repo.Insert(ctx, s.db, &country); err != nil {
		if db.IsDuplicateKeyErr(err) {
			verr.Add("name", "already exists")
			return domain.Country{}, verr
		}
		return domain.Country{}, err
	}

	s.log.Info("country created", zap.String("name_key", key))
	return country, nil
}

func (s *Service) Status(ctx context.Context) (domain.StatusResponse, error) {
	status, err := s.statusRepo.Get(ctx, s.db)
	if err != nil {
		return domain.StatusResponse{}, err
	}
	if status != nil {
		at := status.LastRefreshedAt.UTC()
		return domain.StatusResponse{
			TotalCountries:  int64(status.TotalCountries),
			LastRefreshedAt: &at,
		}, nil
	}

	count, err := s.repo.Count(ctx, s.db)
	if err != nil {
		return domain.StatusResponse{}, err
	}
	return domain.StatusResponse{TotalCountries: count}, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
