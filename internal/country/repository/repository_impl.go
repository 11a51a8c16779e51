package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/countrystat/internal/country/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertColumns are overwritten when a refresh sees a known name_key.
// The stored display name and id are kept.
var upsertColumns = []string{
	"capital",
	"region",
	"population",
	"currency_code",
	"exchange_rate",
	"estimated_gdp",
	"flag_url",
	"last_refreshed_at",
}

var sortClauses = map[domain.SortOrder]string{
	domain.SortDefault:        "name_key asc, id asc",
	domain.SortNameAsc:        "name_key asc, id asc",
	domain.SortNameDesc:       "name_key desc, id desc",
	domain.SortGDPAsc:         "estimated_gdp asc, name_key asc",
	domain.SortGDPDesc:        "estimated_gdp desc, name_key asc",
	domain.SortPopulationAsc:  "population asc, name_key asc",
	domain.SortPopulationDesc: "population desc, name_key asc",
}

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, country *domain.Country) error {
	return db.WithContext(ctx).Create(country).Error
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, country *domain.Country) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name_key"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).
		Create(country).Error
}

func (r *repo) FindByNameKey(ctx context.Context, db *gorm.DB, nameKey string) (*domain.Country, error) {
	var country domain.Country
	err := db.WithContext(ctx).
		Where("name_key = ?", nameKey).
		Take(&country).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &country, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCountryFilter) ([]*domain.Country, error) {
	var countries []*domain.Country
	stmt := db.WithContext(ctx).Model(&domain.Country{})
	if region := strings.TrimSpace(filter.Region); region != "" {
		stmt = stmt.Where("lower(region) = ?", strings.ToLower(region))
	}
	if currency := strings.TrimSpace(filter.Currency); currency != "" {
		stmt = stmt.Where("upper(currency_code) = ?", strings.ToUpper(currency))
	}

	order, ok := sortClauses[filter.Sort]
	if !ok {
		return nil, domain.ErrInvalidSort
	}
	if err := stmt.Order(order).Find(&countries).Error; err != nil {
		return nil, err
	}
	return countries, nil
}

func (r *repo) DeleteByNameKey(ctx context.Context, db *gorm.DB, nameKey string) (int64, error) {
	result := db.WithContext(ctx).
		Where("name_key = ?", nameKey).
		Delete(&domain.Country{})
	return result.RowsAffected, result.Error
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Country{}).Count(&count).Error
	return count, err
}

func (r *repo) TopByGDP(ctx context.Context, db *gorm.DB, limit int) ([]*domain.Country, error) {
	var countries []*domain.Country
	err := db.WithContext(ctx).
		Order("estimated_gdp desc, name_key asc").
		Limit(limit).
		Find(&countries).Error
	if err != nil {
		return nil, err
	}
	return countries, nil
}
