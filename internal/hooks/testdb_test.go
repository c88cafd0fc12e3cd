package hooks

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
)

func setupHooksTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:hooks_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	profiles := `
CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  username TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL,
  bio TEXT,
  account_type TEXT NOT NULL DEFAULT 'personal',
  brand_name TEXT,
  brand_website TEXT,
  is_brand_verified INTEGER NOT NULL DEFAULT 0,
  is_seller INTEGER NOT NULL DEFAULT 0,
  setup_completed INTEGER NOT NULL DEFAULT 0,
  setup_completed_at DATETIME,
  avatar_url TEXT,
  cover_url TEXT,
  deleted_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	carts := `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  profile_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`
	profileStats := `
CREATE TABLE IF NOT EXISTS profile_stats (
  profile_id TEXT PRIMARY KEY,
  total_sales INTEGER NOT NULL DEFAULT 0,
  total_purchases INTEGER NOT NULL DEFAULT 0,
  total_listings INTEGER NOT NULL DEFAULT 0,
  rating_avg TEXT NOT NULL DEFAULT '0',
  rating_count INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`
	setupProgress := `
CREATE TABLE IF NOT EXISTS setup_progress (
  id TEXT PRIMARY KEY,
  profile_id TEXT NOT NULL,
  step TEXT NOT NULL,
  completed INTEGER NOT NULL DEFAULT 0,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (profile_id, step)
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  buyer_profile_id TEXT NOT NULL,
  seller_profile_id TEXT NOT NULL,
  listing_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending_payment',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  subtotal TEXT NOT NULL,
  shipping_cost TEXT NOT NULL DEFAULT '0',
  tax TEXT NOT NULL DEFAULT '0',
  discount TEXT NOT NULL DEFAULT '0',
  total TEXT NOT NULL,
  platform_fee TEXT NOT NULL DEFAULT '0',
  currency TEXT NOT NULL DEFAULT 'USD',
  cancelled_at DATETIME,
  shipped_at DATETIME,
  delivered_at DATETIME,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	payouts := `
CREATE TABLE IF NOT EXISTS payouts (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  seller_profile_id TEXT NOT NULL,
  gross_amount TEXT NOT NULL,
  platform_fee TEXT NOT NULL,
  net_amount TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME
);`
	listings := `
CREATE TABLE IF NOT EXISTS listings (
  id TEXT PRIMARY KEY,
  seller_profile_id TEXT NOT NULL,
  category_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL,
  brand TEXT,
  size TEXT,
  condition TEXT NOT NULL,
  price TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  photos TEXT,
  status TEXT NOT NULL DEFAULT 'draft',
  created_at DATETIME,
  updated_at DATETIME
);`

	for _, ddl := range []string{users, profiles, carts, profileStats, setupProgress, orders, payouts, listings} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func newTestProfile(t *testing.T, db *gorm.DB, username string) *models.Profile {
	t.Helper()

	profile := &models.Profile{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Username:    username,
		DisplayName: username,
	}
	require.NoError(t, db.Create(profile).Error)
	require.NoError(t, db.Create(&models.ProfileStats{ProfileID: profile.ID}).Error)
	return profile
}
