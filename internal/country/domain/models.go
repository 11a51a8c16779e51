package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// RefreshStatusID is the fixed primary key of the single refresh_status row.
const RefreshStatusID = 1

type Country struct {
	ID              snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name            string       `gorm:"not null;size:255" json:"name"`
	NameKey         string       `gorm:"column:name_key;not null;size:255;uniqueIndex:ux_countries_name_key" json:"-"`
	Capital         *string      `gorm:"size:255" json:"capital"`
	Region          *string      `gorm:"size:100;index:ix_countries_region" json:"region"`
	Population      int64        `gorm:"not null" json:"population"`
	CurrencyCode    *string      `gorm:"column:currency_code;size:10;index:ix_countries_currency_code" json:"currency_code"`
	ExchangeRate    *float64     `gorm:"column:exchange_rate" json:"exchange_rate"`
	EstimatedGDP    float64      `gorm:"column:estimated_gdp;not null" json:"estimated_gdp"`
	FlagURL         *string      `gorm:"column:flag_url;size:500" json:"flag_url"`
	LastRefreshedAt time.Time    `gorm:"column:last_refreshed_at;not null" json:"last_refreshed_at"`
}

func (Country) TableName() string { return "countries" }

type RefreshStatus struct {
	ID              int       `gorm:"primaryKey;autoIncrement:false" json:"-"`
	TotalCountries  int       `gorm:"column:total_countries;not null" json:"total_countries"`
	LastRefreshedAt time.Time `gorm:"column:last_refreshed_at;not null" json:"last_refreshed_at"`
}

func (RefreshStatus) TableName() string { return "refresh_status" }

// NameKey is the case-insensitive identity of a country name.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
