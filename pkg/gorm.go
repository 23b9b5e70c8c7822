package pkg

import (
	"fmt"

	"github.com/skillforge/assessment-service/internal/config"
	"github.com/skillforge/assessment-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Migrate applies the schema for all engine entities.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ProfileSurvey{},
		&models.TestSession{},
		&models.Question{},
		&models.AttemptAnswer{},
		&models.RoundResult{},
		&models.Attempt{},
		&models.AttemptRound{},
	)
}
