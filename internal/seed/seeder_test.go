package seed

import (
	"testing"

	"github.com/quillblog/backend/internal/database"
	"github.com/quillblog/backend/internal/models"
	"github.com/quillblog/backend/internal/owntracks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.MigrateDB(db))
	return db
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestSeedCreatesDemoData(t *testing.T) {
	db := setupDB(t)
	s := NewSeeder(db)

	sizes := Sizes{Users: 3, Categories: 2, Tags: 4, Articles: 8, Comments: 10, Links: 5, Pings: 40, PingDays: 3}
	require.NoError(t, s.Seed(sizes))

	assert.Equal(t, int64(3), count(t, db, &models.User{}))
	assert.Equal(t, int64(8), count(t, db, &models.Article{}))
	assert.Equal(t, int64(10), count(t, db, &models.Comment{}))
	assert.Equal(t, int64(5), count(t, db, &models.Link{}))
	assert.Equal(t, int64(40), count(t, db, &models.OwnTrackLog{}))
	assert.LessOrEqual(t, count(t, db, &models.Tag{}), int64(4))

	var pings []models.OwnTrackLog
	require.NoError(t, db.Find(&pings).Error)
	for _, p := range pings {
		assert.GreaterOrEqual(t, p.Lat, owntracks.MinDemoLat)
		assert.LessOrEqual(t, p.Lat, owntracks.MaxDemoLat)
		assert.GreaterOrEqual(t, p.Lon, owntracks.MinDemoLon)
		assert.LessOrEqual(t, p.Lon, owntracks.MaxDemoLon)
	}

	// Every show type gets a link
	var types []string
	require.NoError(t, db.Model(&models.Link{}).Distinct().Pluck("show_type", &types).Error)
	assert.ElementsMatch(t, models.LinkShowTypes, types)
}

func TestSeedTestIsIdempotent(t *testing.T) {
	db := setupDB(t)
	s := NewSeeder(db)

	require.NoError(t, s.SeedTest())
	require.NoError(t, s.SeedTest())
	assert.Equal(t, int64(3), count(t, db, &models.User{}))

	var admin models.User
	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	assert.True(t, admin.IsSuperuser)
	assert.True(t, admin.IsActive)
}

func TestClean(t *testing.T) {
	db := setupDB(t)
	s := NewSeeder(db)
	require.NoError(t, s.Seed(Sizes{Users: 2, Categories: 1, Tags: 2, Articles: 3, Comments: 2, Links: 1, Pings: 5, PingDays: 1}))

	require.NoError(t, s.Clean())
	assert.Zero(t, count(t, db, &models.Article{}))
	assert.Zero(t, count(t, db, &models.OwnTrackLog{}))
	assert.Zero(t, count(t, db, &models.User{}))
}
