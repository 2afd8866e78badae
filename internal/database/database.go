package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"trade-viewer/internal/logger"
	"trade-viewer/internal/models"
)

// Initialize opens the MySQL archive database and migrates its tables.
func Initialize(databaseURL string, log *logger.Log) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is empty")
	}

	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.TradeSnapshotRecord{}, &models.TradePricePoint{}); err != nil {
		return nil, fmt.Errorf("failed to migrate archive tables: %w", err)
	}

	entry := log.WithComponent("database")
	if err := ensurePricePointTimeIndex(db); err != nil {
		entry.WithError(err).Warn("migration warning")
	}
	entry.Info("database initialized")
	return db, nil
}

// ensurePricePointTimeIndex adds the (item_id, fetch_time) index used by
// history queries on tables created before it existed.
func ensurePricePointTimeIndex(db *gorm.DB) error {
	const name = "idx_tpp_item_time"
	if db.Migrator().HasIndex(&models.TradePricePoint{}, name) {
		return nil
	}
	sql := fmt.Sprintf("CREATE INDEX %s ON trade_price_points (item_id, fetch_time)", name)
	if err := db.Exec(sql).Error; err != nil {
		return fmt.Errorf("failed adding %s: %w", name, err)
	}
	return nil
}
