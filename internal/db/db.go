package db

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/glebarez/sqlite"
	"github.com/pysugar/postflow/internal/db/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store wraps the database connection. The storage engine is picked once
// at Open time; nothing branches on the driver after that.
type Store struct {
	db *gorm.DB
}

// Open initializes the database connection and runs migrations.
// Supported drivers: "sqlite" (default) and "postgres".
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate all models
	if err := gdb.AutoMigrate(
		&models.Post{},
		&models.PostedHistory{},
		&models.OAuthToken{},
		&models.Config{},
	); err != nil {
		return nil, err
	}

	store := &Store{db: gdb}

	// Ensure webhook secret exists (generate on first run)
	store.ensureWebhookSecret()

	return store, nil
}

// NewStore wraps an already-open gorm connection. Used by tests.
func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

// ensureWebhookSecret generates the inbound webhook path secret if not exists
func (s *Store) ensureWebhookSecret() {
	var config models.Config
	result := s.db.Where("key = ?", "webhook_secret").First(&config)

	if result.Error != nil {
		secretBytes := make([]byte, 16)
		rand.Read(secretBytes)
		secret := hex.EncodeToString(secretBytes)

		s.db.Create(&models.Config{
			Key:   "webhook_secret",
			Value: secret,
		})
		log.Printf("🔑 Generated new webhook secret: %s", secret)
	}
}

// WebhookSecret retrieves the webhook secret from database
func (s *Store) WebhookSecret() string {
	var config models.Config
	s.db.Where("key = ?", "webhook_secret").First(&config)
	return config.Value
}
