// Package countrytest provides an in-memory country database for tests.
package countrytest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/countrystat/internal/country/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns a migrated in-memory SQLite database private to the test.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(&domain.Country{}, &domain.RefreshStatus{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

// Node returns a snowflake node for tests.
func Node(t testing.TB) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

// Seed inserts countries built from the given values.
func Seed(t testing.TB, db *gorm.DB, node *snowflake.Node, countries ...domain.Country) []domain.Country {
	t.Helper()
	out := make([]domain.Country, 0, len(countries))
	for _, c := range countries {
		if c.ID == 0 {
			c.ID = node.Generate()
		}
		c.NameKey = domain.NameKey(c.Name)
		if c.LastRefreshedAt.IsZero() {
			c.LastRefreshedAt = time.Date(2025, 10, 22, 18, 0, 0, 0, time.UTC)
		}
		if err := db.Create(&c).Error; err != nil {
			t.Fatalf("seed %s: %v", c.Name, err)
		}
		out = append(out, c)
	}
	return out
}

func String(v string) *string { return &v }

func Float(v float64) *float64 { return &v }
