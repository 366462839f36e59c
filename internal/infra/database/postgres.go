package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/totegamma/community/internal/infra/database/models"
)

// NewGormLogger returns the SQL logger shared by every gorm connection.
func NewGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             300 * time.Millisecond, // Slow SQL threshold
			LogLevel:                  logger.Warn,            // Log level
			IgnoreRecordNotFoundError: true,                   // Ignore ErrRecordNotFound error for logger
			Colorful:                  true,                   // Enable color
		},
	)
}

func NewPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         NewGormLogger(),
	})
	return db, err
}

// Migrate creates or updates the schema. Authors are migrated first because
// every content table references them.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Author{},
		&models.Post{},
		&models.PostTag{},
		&models.Comment{},
		&models.PostLike{},
		&models.PostAttachment{},
	)
}
