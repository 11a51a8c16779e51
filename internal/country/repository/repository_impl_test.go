package repository

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/countrystat/internal/country/countrytest"
	"github.com/smallbiznis/countrystat/internal/country/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertKeepsDisplayNameAndUpdatesFields(t *testing.T) {
	db := countrytest.OpenDB(t)
	node := countrytest.Node(t)
	r := Provide()
	ctx := context.Background()

	first := &domain.Country{
		ID:              node.Generate(),
		Name:            "Nigeria",
		NameKey:         domain.NameKey("Nigeria"),
		Population:      100,
		CurrencyCode:    countrytest.String("NGN"),
		ExchangeRate:    countrytest.Float(1600),
		EstimatedGDP:    100,
		LastRefreshedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, r.Upsert(ctx, db, first))

	second := &domain.Country{
		ID:              node.Generate(),
		Name:            "NIGERIA",
		NameKey:         domain.NameKey("NIGERIA"),
		Population:      200,
		Region:          countrytest.String("Africa"),
		LastRefreshedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, r.Upsert(ctx, db, second))

	count, err := r.Count(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := r.FindByNameKey(ctx, db, "nigeria")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "Nigeria", got.Name)
	assert.Equal(t, int64(200), got.Population)
	assert.Nil(t, got.CurrencyCode)
	assert.Nil(t, got.ExchangeRate)
	assert.Equal(t, 0.0, got.EstimatedGDP)
	assert.Equal(t, "Africa", *got.Region)
	assert.True(t, got.LastRefreshedAt.Equal(second.LastRefreshedAt))
}

func TestListFiltersAndSorts(t *testing.T) {
	db := countrytest.OpenDB(t)
	node := countrytest.Node(t)
	countrytest.Seed(t, db, node,
		domain.Country{Name: "Ghana", Region: countrytest.String("Africa"), Population: 31, CurrencyCode: countrytest.String("GHS"), EstimatedGDP: 300},
		domain.Country{Name: "Nigeria", Region: countrytest.String("Africa"), Population: 206, CurrencyCode: countrytest.String("NGN"), EstimatedGDP: 900},
		domain.Country{Name: "France", Region: countrytest.String("Europe"), Population: 67, CurrencyCode: countrytest.String("EUR"), EstimatedGDP: 1200},
		domain.Country{Name: "Antarctica", Population: 0},
	)
	r := Provide()
	ctx := context.Background()

	africa, err := r.List(ctx, db, domain.ListCountryFilter{Region: "aFrIcA", Sort: domain.SortGDPDesc})
	require.NoError(t, err)
	require.Len(t, africa, 2)
	assert.Equal(t, "Nigeria", africa[0].Name)
	assert.Equal(t, "Ghana", africa[1].Name)

	eur, err := r.List(ctx, db, domain.ListCountryFilter{Currency: "eur"})
	require.NoError(t, err)
	require.Len(t, eur, 1)
	assert.Equal(t, "France", eur[0].Name)

	all, err := r.List(ctx, db, domain.ListCountryFilter{})
	require.NoError(t, err)
	names := make([]string, 0, len(all))
	for _, c := range all {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Antarctica", "France", "Ghana", "Nigeria"}, names)

	byPop, err := r.List(ctx, db, domain.ListCountryFilter{Sort: domain.SortPopulationDesc})
	require.NoError(t, err)
	assert.Equal(t, "Nigeria", byPop[0].Name)
	assert.Equal(t, "Antarctica", byPop[3].Name)

	_, err = r.List(ctx, db, domain.ListCountryFilter{Sort: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidSort)
}

func TestTopByGDPAndDelete(t *testing.T) {
	db := countrytest.OpenDB(t)
	node := countrytest.Node(t)
	for i, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		countrytest.Seed(t, db, node, domain.Country{Name: name, EstimatedGDP: float64(i * 10)})
	}
	r := Provide()
	ctx := context.Background()

	top, err := r.TopByGDP(ctx, db, 5)
	require.NoError(t, err)
	require.Len(t, top, 5)
	assert.Equal(t, "G", top[0].Name)
	assert.Equal(t, "C", top[4].Name)

	deleted, err := r.DeleteByNameKey(ctx, db, "g")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = r.DeleteByNameKey(ctx, db, "g")
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	missing, err := r.FindByNameKey(ctx, db, "g")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStatusReplaceKeepsSingleRow(t *testing.T) {
	db := countrytest.OpenDB(t)
	r := ProvideStatus()
	ctx := context.Background()

	got, err := r.Get(ctx, db)
	require.NoError(t, err)
	assert.Nil(t, got)

	first := time.Date(2025, 10, 22, 18, 0, 0, 0, time.UTC)
	require.NoError(t, r.Replace(ctx, db, &domain.RefreshStatus{TotalCountries: 250, LastRefreshedAt: first}))
	second := first.Add(time.Hour)
	require.NoError(t, r.Replace(ctx, db, &domain.RefreshStatus{TotalCountries: 249, LastRefreshedAt: second}))

	var rows int64
	require.NoError(t, db.Model(&domain.RefreshStatus{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	got, err = r.Get(ctx, db)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 249, got.TotalCountries)
	assert.True(t, got.LastRefreshedAt.Equal(second))
}
