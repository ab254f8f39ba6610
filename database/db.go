package database

import (
	"fmt"
	"log/slog"
	"time"

	"circlehub/internal/config"
	"circlehub/internal/microservices/http-api/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ConnectDB opens the postgres pool and checks it is reachable.
func ConnectDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	logLevel := gormlogger.Error
	if cfg.IsDevelopment() {
		logLevel = gormlogger.Warn
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	// Verify the connection
	if err := sqlDB.Ping(); err != nil {
		// close the pool if ping fails to avoid resource leak
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Connected to the database successfully")
	return db, nil
}

// Migrate creates the circle tables. users, books and user_books belong to
// the identity and library services and are only read here.
func Migrate(db *gorm.DB, logger *slog.Logger) error {
	err := db.AutoMigrate(
		&models.Circle{},
		&models.CircleMember{},
		&models.Challenge{},
		&models.ChallengeProgress{},
		&models.CircleActivity{},
	)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// feed and leaderboard read paths
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_circle_activities_feed ON circle_activities (circle_id, created_at DESC, id DESC)",
		"CREATE INDEX IF NOT EXISTS idx_circle_members_user ON circle_members (user_id)",
		"CREATE INDEX IF NOT EXISTS idx_challenge_progress_completed ON challenge_progress (challenge_id) WHERE completed",
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	logger.Info("Database migrations applied successfully")
	return nil
}

// Close releases the pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
