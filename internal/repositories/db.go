package repositories

import (
	"fmt"
	"log"
	"os"
	"time"

	"brokebuy/internal/config"
	"brokebuy/internal/logger"
	"brokebuy/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openRequestIndex enforces at most one open request per (listing, buyer).
const openRequestIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_purchase_requests_open
	ON purchase_requests (listing_id, buyer_id)
	WHERE status IN ('pending', 'accepted')`

// InitDB opens the PostgreSQL connection, applies pool settings and
// migrates the schema.
func InitDB(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode)

	// Ignore "record not found", the repositories translate it to ErrNotFound
	newLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  !config.IsProduction(),
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("PostgreSQL connected & migrations applied")
	return db, nil
}

// Migrate creates or updates every table the marketplace core owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.PurchaseRequest{},
		&models.WalletLedgerEntry{},
		&models.CreditTransaction{},
		&models.Message{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate failed: %w", err)
	}
	if err := db.Exec(openRequestIndex).Error; err != nil {
		return fmt.Errorf("failed to create open request index: %w", err)
	}
	return nil
}

// CloseDB closes the underlying connection pool.
func CloseDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}
}
