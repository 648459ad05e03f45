package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv     string
	Port       string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	MongoURI string
	MongoDB  string

	JWTSecret string
	JWTTTL    time.Duration

	UploadRoot     string
	MaxUploadBytes int64
	CORSOrigins    []string

	FirebaseServiceAccountPath string
	ReminderInterval           time.Duration
	ReminderAfter              time.Duration

	PDFFontPath string
}

var (
	cfg  *Config
	once sync.Once
)

// LoadConfig membaca .env satu kali lalu mengisi Config dari environment.
func LoadConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: .env file not found. Relying on environment variables.")
		}
		cfg = FromEnv()
	})
	return cfg
}

// FromEnv membangun Config langsung dari environment tanpa sync.Once.
func FromEnv() *Config {
	return &Config{
		AppEnv:     os.Getenv("APP_ENV"),
		Port:       getEnv("PORT", "8080"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBName:     os.Getenv("DB_NAME"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "telekonsul"),

		JWTSecret: os.Getenv("JWT_SECRET_KEY"),
		JWTTTL:    time.Duration(getInt("JWT_TTL_HOURS", 72)) * time.Hour,

		UploadRoot:     getEnv("UPLOAD_ROOT", "."),
		MaxUploadBytes: int64(getInt("MAX_UPLOAD_MB", 10)) << 20,
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),

		FirebaseServiceAccountPath: os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"),
		ReminderInterval:           time.Duration(getInt("REMINDER_INTERVAL_MINUTES", 15)) * time.Minute,
		ReminderAfter:              time.Duration(getInt("REMINDER_AFTER_MINUTES", 30)) * time.Minute,

		PDFFontPath: os.Getenv("PDF_FONT_PATH"),
	}
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
