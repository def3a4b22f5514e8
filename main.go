package main

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"herobook_back/composer"
	"herobook_back/photos"
	"herobook_back/pipeline"
	"herobook_back/prefs"
	"herobook_back/session"
)

func mustLoadEnv() {
	_ = godotenv.Load()
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	cfg.MaxAge = 12 * time.Hour

	origins := strings.TrimSpace(os.Getenv("CORS_ALLOW_ORIGINS"))
	if origins == "" {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = strings.Split(origins, ",")
	return cfg
}

func main() {
	mustLoadEnv()

	r := gin.Default()
	r.Use(cors.New(corsConfig()))

	sessions, err := session.RegisterRoutes(r)
	if err != nil {
		log.Fatalf("register session routes: %v", err)
	}
	if _, err := photos.RegisterRoutes(r, sessions); err != nil {
		log.Fatalf("register photo routes: %v", err)
	}
	if _, err := pipeline.RegisterRoutes(r, sessions); err != nil {
		log.Fatalf("register job routes: %v", err)
	}
	if _, err := composer.RegisterRoutes(r, sessions); err != nil {
		log.Fatalf("register export routes: %v", err)
	}
	if _, err := prefs.RegisterRoutes(r); err != nil {
		log.Fatalf("register settings routes: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("start server: %v", err)
	}
}
