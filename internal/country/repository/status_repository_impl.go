package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/countrystat/internal/country/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type statusRepo struct{}

func ProvideStatus() domain.StatusRepository {
	return &statusRepo{}
}

func (r *statusRepo) Get(ctx context.Context, db *gorm.DB) (*domain.RefreshStatus, error) {
	var status domain.RefreshStatus
	err := db.WithContext(ctx).
		Where("id = ?", domain.RefreshStatusID).
		Take(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *statusRepo) Replace(ctx context.Context, db *gorm.DB, status *domain.RefreshStatus) error {
	status.ID = domain.RefreshStatusID
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_countries", "last_refreshed_at"}),
		}).
		Create(status).Error
}
