package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"catalog-service/internal/models"

	"github.com/Tesseract-Nexus/go-shared/secrets"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// Server
	Port           string
	Environment    string
	AllowedOrigins []string

	// Events
	NATSURL string
	StoreID string

	// Pagination
	DefaultPageSize int
	MaxPageSize     int

	// Import settings
	ImportMaxRows      int
	ImportDefaultStock int
	ImportReportTTL    time.Duration
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	defaultPageSize, _ := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "20"))
	maxPageSize, _ := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "100"))
	importMaxRows, _ := strconv.Atoi(getEnv("IMPORT_MAX_ROWS", "5000"))
	importDefaultStock, _ := strconv.Atoi(getEnv("IMPORT_DEFAULT_STOCK", "10"))
	reportTTLHours, _ := strconv.Atoi(getEnv("IMPORT_REPORT_TTL_HOURS", "24"))

	return &Config{
		// Database - fetch password from GCP Secret Manager if enabled
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: secrets.GetDBPassword(),
		DBName:     getEnv("DB_NAME", "catalog_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("PORT", "8087"),
		Environment: getEnv("ENVIRONMENT", "development"),

		AllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		// Publishing is off unless NATS_URL is set
		NATSURL: os.Getenv("NATS_URL"),
		StoreID: getEnv("STORE_ID", "default"),

		DefaultPageSize: defaultPageSize,
		MaxPageSize:     maxPageSize,

		ImportMaxRows:      importMaxRows,
		ImportDefaultStock: importDefaultStock,
		ImportReportTTL:    time.Duration(reportTTLHours) * time.Hour,
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Additive only: existing columns are never dropped
	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Brand{},
		&models.Product{},
	); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "does not exist") && strings.Contains(errStr, "constraint") {
			log.Printf("Note: Migration constraint warning (safe to ignore): %v", err)
		} else {
			return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
		}
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
