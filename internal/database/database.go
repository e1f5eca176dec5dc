package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"voltage-backend/internal/config"
	"voltage-backend/internal/models"
	"voltage-backend/pkg/logger"
)

// Open connects to the configured database. TranslateError is enabled so that
// unique violations surface as gorm.ErrDuplicatedKey on every driver.
func Open(cfg *config.Config) (*gorm.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	case "postgres", "":
		dialector = postgres.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}

	logger.Info("Connecting to database", map[string]interface{}{"driver": cfg.DBDriver})

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.UsesSQLite() {
		// SQLite serialises writers; a single connection avoids SQLITE_BUSY under load.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

// OpenSQLite opens an SQLite database at path with the same settings as Open.
func OpenSQLite(path string) (*gorm.DB, error) {
	return Open(&config.Config{DBDriver: "sqlite", SQLitePath: path})
}

func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	logger.Info("Running database migrations", nil)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Chapter{},
		&models.Lecture{},
		&models.Enrollment{},
		&models.Quiz{},
		&models.Question{},
		&models.StudentResult{},
		&models.PaymentOrder{},
		&models.WalletConfig{},
		&models.ActivationCode{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return err
	}

	logger.Info("Database migration completed", nil)
	return nil
}

func createIndexes(db *gorm.DB) error {
	statements := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_orders_pending ON payment_orders(student_id, lecture_id) WHERE status = 'pending'",
		"CREATE INDEX IF NOT EXISTS idx_lectures_chapter_order ON lectures(chapter_id, \"order\")",
		"CREATE INDEX IF NOT EXISTS idx_questions_quiz_order ON questions(quiz_id, \"order\")",
		"CREATE INDEX IF NOT EXISTS idx_activation_codes_unused ON activation_codes(code) WHERE is_used = false",
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
