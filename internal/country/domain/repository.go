package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, country *Country) error
	// Upsert inserts the country or, when name_key already exists, updates every
	// column except id and name.
	Upsert(ctx context.Context, db *gorm.DB, country *Country) error
	FindByNameKey(ctx context.Context, db *gorm.DB, nameKey string) (*Country, error)
	List(ctx context.Context, db *gorm.DB, filter ListCountryFilter) ([]*Country, error)
	DeleteByNameKey(ctx context.Context, db *gorm.DB, nameKey string) (int64, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)
	TopByGDP(ctx context.Context, db *gorm.DB, limit int) ([]*Country, error)
}

type StatusRepository interface {
	Get(ctx context.Context, db *gorm.DB) (*RefreshStatus, error)
	// Replace writes the single status row keyed by RefreshStatusID.
	Replace(ctx context.Context, db *gorm.DB, status *RefreshStatus) error
}
