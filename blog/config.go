// blog/config.go
package blog

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process settings. Everything has a local-development default
// except the database; with no DATABASE_URL the server runs on the in-memory
// store.
type Config struct {
	DatabaseURL  string
	Port         string
	JWTSecret    string
	JWTExpiresIn time.Duration
}

func LoadConfig() Config {
	loadDotenv()
	return Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		Port:         envOr("PORT", "3000"),
		JWTSecret:    envOr("JWT_SECRET", "somesecretkey"),
		JWTExpiresIn: durationOr("JWT_EXPIRES_IN", 24*time.Hour),
	}
}

func loadDotenv() {
	for _, p := range []string{".env", filepath.Join("..", ".env")} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Overload(p)
			log.Println("[env] loaded", p)
			return
		}
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func durationOr(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[env] bad duration for %s: %v, using %s", k, err, d)
		return d
	}
	return parsed
}
