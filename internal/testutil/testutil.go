// Package testutil builds in-memory stores shared by service and handler tests.
package testutil

import (
	"testing"
	"time"

	"lamf-backend/internal/domain"
	"lamf-backend/internal/infrastructure/cache"
	"lamf-backend/internal/infrastructure/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database. A single connection keeps
// every query on the same in-memory schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// NewRedis starts miniredis and returns a client for it.
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return rdb, mr
}

// NewNAVCache is a NAV cache over miniredis.
func NewNAVCache(t *testing.T) (*cache.NAVCache, *miniredis.Miniredis) {
	t.Helper()
	rdb, mr := NewRedis(t)
	return cache.NewNAVCache(rdb, time.Hour), mr
}

// D parses a decimal literal.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// EquityProduct inserts the equity fund product: 1L to 1Cr, 6 to 36 months,
// 50% LTV, 10.5% interest, 1.5% fee.
func EquityProduct(t *testing.T, db *gorm.DB) *domain.LoanProduct {
	t.Helper()
	p := &domain.LoanProduct{
		Name:                    "Equity Mutual Fund Loan",
		MinAmount:               D("100000"),
		MaxAmount:               D("10000000"),
		InterestRate:            D("10.5"),
		LTVRatio:                D("50"),
		MinTenureMonths:         6,
		MaxTenureMonths:         36,
		ProcessingFeePercentage: D("1.5"),
		IsActive:                true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// Customer inserts a KYC-pending customer.
func Customer(t *testing.T, db *gorm.DB, pan, email string) *domain.Customer {
	t.Helper()
	c := &domain.Customer{PAN: pan, FullName: "Rahul Sharma", Email: email, Phone: "9876543210"}
	require.NoError(t, db.Create(c).Error)
	return c
}
