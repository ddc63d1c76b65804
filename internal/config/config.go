package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultMaxTensorElements caps how many elements one generation request may
// ask for. Large requests are refused rather than queued: a single oversized
// tensor would stall every other caller behind one cipher fill.
const DefaultMaxTensorElements = 1 << 20

var Cfg *AppConfig

// AppConfig holds all environment variables.
type AppConfig struct {
	Port              string
	DBHost            string
	DBPort            string
	DBUser            string
	DBName            string
	DBPassword        string
	DBSSLMode         string
	JWTSecret         string
	FrontendURL       string
	PosthogAPIKey     string
	PosthogEndpoint   string
	MaxTensorElements int
}

// Load reads environment variables (and .env if present)
func Load() *AppConfig {
	_ = godotenv.Load()

	Cfg = &AppConfig{
		Port:            os.Getenv("PORT"),
		DBHost:          os.Getenv("DB_HOST"),
		DBPort:          os.Getenv("DB_PORT"),
		DBUser:          os.Getenv("DB_USER"),
		DBName:          os.Getenv("DB_NAME"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBSSLMode:       os.Getenv("DB_SSLMODE"),
		JWTSecret:       os.Getenv("JWT_SECRET_KEY"),
		FrontendURL:     os.Getenv("FRONTEND_URL"),
		PosthogAPIKey:   os.Getenv("POSTHOG_API_KEY"),
		PosthogEndpoint: os.Getenv("POSTHOG_INSTANCE_ADDRESS"),
	}
	if Cfg.Port == "" {
		Cfg.Port = "8080"
	}
	if Cfg.DBSSLMode == "" {
		Cfg.DBSSLMode = "disable"
	}
	Cfg.MaxTensorElements = DefaultMaxTensorElements
	if v := os.Getenv("MAX_TENSOR_ELEMENTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Printf("config: ignoring invalid MAX_TENSOR_ELEMENTS %q", v)
		} else {
			Cfg.MaxTensorElements = n
		}
	}
	return Cfg
}

var DB *gorm.DB

// InitDB connects to Postgres with a detailed query logger.
func InitDB(c *AppConfig) *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Info,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		panic("failed to connect database: " + err.Error())
	}
	DB = db
	return db
}

// CORSMiddleware allows the configured frontend origin, or any origin when
// none is configured.
func CORSMiddleware() gin.HandlerFunc {
	conf := cors.DefaultConfig()
	if Cfg != nil && Cfg.FrontendURL != "" {
		conf.AllowOrigins = []string{Cfg.FrontendURL}
	} else {
		conf.AllowAllOrigins = true
	}
	conf.AllowHeaders = append(conf.AllowHeaders, "Authorization")
	return cors.New(conf)
}
