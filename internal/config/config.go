package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	StoreBackend     string
	MongoURI         string
	DBName           string
	FirestoreProject string
	JWTSecret        string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	ShippingFee      float64
	BuyNowTTL        time.Duration
	CORSOrigins      []string
	Port             string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = FromEnv()
}

// FromEnv reads the configuration without touching .env files.
func FromEnv() Config {
	return Config{
		StoreBackend:     getEnvOrDefault("STORE_BACKEND", "mongo"),
		MongoURI:         getEnvOrDefault("MONGO_URI", ""),
		DBName:           getEnvOrDefault("DB_NAME", "storefront"),
		FirestoreProject: getEnvOrDefault("FIRESTORE_PROJECT", ""),
		JWTSecret:        getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:   getDurationEnv("ACCESS_TOKEN_TTL", 20, time.Minute),
		RefreshTokenTTL:  getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),
		ShippingFee:      getFloatEnv("SHIPPING_FEE", 120),
		BuyNowTTL:        getDurationEnv("BUY_NOW_TTL", 30, time.Minute),
		CORSOrigins:      getListEnv("CORS_ORIGINS", []string{"*"}),
		Port:             getEnvOrDefault("PORT", "8080"),
	}
}
