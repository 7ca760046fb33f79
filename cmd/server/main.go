package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"deal-finder-api/internal/config"
	"deal-finder-api/internal/generator"
	"deal-finder-api/internal/handlers"
	"deal-finder-api/internal/middleware"
	"deal-finder-api/internal/services"
	"deal-finder-api/pkg/cache"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stopJanitor := context.WithCancel(context.Background())

	gemini, err := generator.NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, cfg.ModelTimeout)
	if err != nil {
		log.Fatalf("failed to create Gemini client: %v", err)
	}

	redisCache := cache.NewRedisCache(ctx, cache.Config{
		URL: cfg.RedisURL,
		DB:  cfg.RedisDB,
		TTL: cfg.CacheTTL,
	})

	fetcher := services.NewCachedFetcher(services.NewDealService(gemini), redisCache)
	sessions := services.NewSessionStore(fetcher, cfg.SessionTTL)
	go sessions.RunJanitor(ctx, time.Minute)

	limiter := middleware.NewIPRateLimiter(cfg.RatePerSecond, cfg.RateBurst)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.RequestID())
	r.Use(limiter.Middleware())

	handlers.New(sessions, fetcher, redisCache, limiter).Register(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Starting deal finder on :%s (model %s)", cfg.Port, cfg.Model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout,
		shutdownOperations(srv, stopJanitor, redisCache))

	exitCode := <-wait
	log.Printf("Server exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// shutdownOperations stops accepting requests, ends the session janitor and
// releases the Redis connection pool.
func shutdownOperations(srv *http.Server, stopJanitor context.CancelFunc, redisCache *cache.RedisCache) map[string]gfshutdown.Operation {
	return map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			log.Println("Shutting down server...")
			return srv.Shutdown(ctx)
		},
		"session-janitor": func(context.Context) error {
			stopJanitor()
			return nil
		},
		"redis-cache": func(context.Context) error {
			return redisCache.Close()
		},
	}
}
