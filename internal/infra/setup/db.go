package setup

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Srujan0798/Rest-iN-U-sub003/internal/domain"
)

// InitDB opens the MySQL connection pool used for durable records.
func InitDB(user, password, host, port, name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, name)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// MigrateDB creates or updates the tables owned by the realtime engine.
// Listing/document/payment schemas belong to the CRUD services, not here.
func MigrateDB(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Message{},
		&domain.Bid{},
		&domain.AuctionResult{},
	)
	if err != nil {
		return fmt.Errorf("migrate realtime tables: %w", err)
	}
	return nil
}
