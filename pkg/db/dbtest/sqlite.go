// Package dbtest opens throwaway SQLite databases carrying the pricing schema.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Money columns are TEXT so decimals survive the round trip without float drift.
var schema = []string{
	`CREATE TABLE pricing_rules (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  code TEXT NOT NULL UNIQUE,
  description TEXT,
  rule_type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  priority INTEGER NOT NULL DEFAULT 0,
  discount_type TEXT NOT NULL,
  discount_value TEXT NOT NULL,
  max_discount_amount TEXT,
  min_price TEXT,
  applicable_channels TEXT,
  applicable_customer_tiers TEXT,
  start_date DATETIME,
  end_date DATETIME,
  start_time TEXT,
  end_time TEXT,
  applicable_days TEXT,
  conditions TEXT NOT NULL DEFAULT '[]',
  buy_quantity INTEGER,
  get_quantity INTEGER,
  max_uses INTEGER,
  current_uses INTEGER NOT NULL DEFAULT 0,
  max_uses_per_customer INTEGER,
  is_stackable INTEGER NOT NULL DEFAULT 0,
  is_exclusive INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE pricing_rule_products (
  id TEXT PRIMARY KEY,
  pricing_rule_id TEXT NOT NULL REFERENCES pricing_rules(id) ON DELETE CASCADE,
  product_id TEXT,
  product_variant_id TEXT,
  is_excluded INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`,
	`CREATE TABLE pricing_rule_categories (
  id TEXT PRIMARY KEY,
  pricing_rule_id TEXT NOT NULL REFERENCES pricing_rules(id) ON DELETE CASCADE,
  category_id TEXT NOT NULL,
  is_excluded INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`,
	`CREATE TABLE volume_discounts (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  product_id TEXT,
  product_variant_id TEXT,
  category_id TEXT,
  is_global INTEGER NOT NULL DEFAULT 0,
  min_quantity INTEGER NOT NULL,
  max_quantity INTEGER,
  discount_type TEXT NOT NULL,
  discount_value TEXT NOT NULL,
  max_discount_amount TEXT,
  channel TEXT,
  customer_tier TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  start_date DATETIME,
  end_date DATETIME,
  priority INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE promotions (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  code TEXT NOT NULL UNIQUE,
  description TEXT,
  status TEXT NOT NULL DEFAULT 'draft',
  discount_type TEXT NOT NULL,
  discount_value TEXT NOT NULL,
  max_discount_amount TEXT,
  min_order_value TEXT,
  applicable_channels TEXT,
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  max_uses INTEGER,
  current_uses INTEGER NOT NULL DEFAULT 0,
  max_uses_per_customer INTEGER,
  is_stackable INTEGER NOT NULL DEFAULT 0,
  auto_apply INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE promotion_usages (
  id TEXT PRIMARY KEY,
  promotion_id TEXT NOT NULL REFERENCES promotions(id) ON DELETE CASCADE,
  order_id TEXT,
  user_id TEXT,
  wholesale_customer_id TEXT,
  discount_amount TEXT NOT NULL,
  order_total_before_discount TEXT NOT NULL,
  order_total_after_discount TEXT NOT NULL,
  used_at DATETIME NOT NULL
);`,
	`CREATE TABLE customer_pricing_tiers (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  wholesale_customer_id TEXT,
  tier TEXT NOT NULL DEFAULT 'standard',
  discount_percentage TEXT NOT NULL DEFAULT '0',
  assignment_reason TEXT,
  effective_from DATETIME NOT NULL,
  effective_until DATETIME,
  is_automatic INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE channel_prices (
  id TEXT PRIMARY KEY,
  product_id TEXT,
  product_variant_id TEXT,
  channel TEXT NOT NULL,
  base_price TEXT NOT NULL,
  compare_at_price TEXT,
  cost_price TEXT,
  min_price TEXT,
  currency TEXT NOT NULL DEFAULT 'INR',
  is_active INTEGER NOT NULL DEFAULT 1,
  effective_from DATETIME,
  effective_until DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE price_history (
  id TEXT PRIMARY KEY,
  product_id TEXT,
  product_variant_id TEXT,
  channel TEXT,
  old_price TEXT,
  new_price TEXT NOT NULL,
  old_cost TEXT,
  new_cost TEXT,
  currency TEXT NOT NULL DEFAULT 'INR',
  change_reason TEXT NOT NULL,
  notes TEXT,
  effective_date DATETIME NOT NULL,
  created_at DATETIME
);`,
}

// NewSQLite returns an isolated in-memory database with the pricing tables created.
// The pool is pinned to one connection so concurrent writers serialize instead of
// tripping SQLite table locks.
func NewSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:pricing_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}
