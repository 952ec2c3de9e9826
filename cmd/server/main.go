package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Hkilla-ux/shopsmart/internal/cache"
	"github.com/Hkilla-ux/shopsmart/internal/cart"
	"github.com/Hkilla-ux/shopsmart/internal/catalog"
	"github.com/Hkilla-ux/shopsmart/internal/checkout"
	"github.com/Hkilla-ux/shopsmart/internal/domain"
	h "github.com/Hkilla-ux/shopsmart/internal/http"
	"github.com/Hkilla-ux/shopsmart/internal/metrics"
	"github.com/Hkilla-ux/shopsmart/internal/order"
	"github.com/Hkilla-ux/shopsmart/internal/publisher"
	"github.com/Hkilla-ux/shopsmart/internal/reconciler"
)

type Config struct {
	HTTPPort string

	CatalogDBPath         string
	CatalogMigrationsPath string

	MongoURI    string
	MongoDBName string

	PostgresHost         string
	PostgresPort         int
	PostgresUser         string
	PostgresPassword     string
	PostgresDBName       string
	OrdersMigrationsPath string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	ReconcileTick   time.Duration
	ReconcileWindow time.Duration
}

func loadConfig() *Config {
	var brokers []string
	if raw := getEnv("KAFKA_BROKERS", ""); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return &Config{
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		CatalogDBPath:         getEnv("CATALOG_DB_PATH", ""),
		CatalogMigrationsPath: getEnv("CATALOG_MIGRATIONS_PATH", "./migrations/catalog"),
		MongoURI:              getEnv("MONGO_URI", ""),
		MongoDBName:           getEnv("MONGO_DB_NAME", "cartdb"),
		PostgresHost:          getEnv("POSTGRES_HOST", ""),
		PostgresPort:          getEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:          getEnv("POSTGRES_USER", "shopsmart"),
		PostgresPassword:      getEnv("POSTGRES_PASSWORD", ""),
		PostgresDBName:        getEnv("POSTGRES_DB_NAME", "ordersdb"),
		OrdersMigrationsPath:  getEnv("ORDERS_MIGRATIONS_PATH", "./migrations/orders"),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:          brokers,
		RequestTimeout:        30 * time.Second,
		ShutdownTimeout:       10 * time.Second,
		ReconcileTick:         30 * time.Second,
		ReconcileWindow:       24 * time.Hour,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	// Catalog store
	var productRepo catalog.ProductRepository
	if cfg.CatalogDBPath != "" {
		repo, err := catalog.NewRepository(cfg.CatalogDBPath)
		if err != nil {
			log.Fatalf("Failed to open catalog database: %v", err)
		}
		if err := repo.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
			log.Fatalf("Failed to run catalog migrations: %v", err)
		}
		productRepo = repo
		log.Printf("Catalog using SQLite at %s", cfg.CatalogDBPath)
	} else {
		repo := catalog.NewMemoryRepository()
		seedCatalog(repo)
		productRepo = repo
		log.Printf("Catalog using in-memory store (CATALOG_DB_PATH not set)")
	}
	defer productRepo.Close()

	// Product cache
	var productCache cache.ProductCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		productCache = cache.NewRedisCache(redisClient)
		log.Printf("Product cache using redis at %s", cfg.RedisAddr)
	}

	catalogService := catalog.NewService(productRepo, productCache)

	// Cart store
	var cartRepo cart.CartRepository
	if cfg.MongoURI != "" {
		mongoDB, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer mongoDB.Client().Disconnect(ctx)
		repo := cart.NewMongoRepository(mongoDB)
		if err := repo.CreateIndexes(ctx); err != nil {
			log.Fatalf("Failed to create cart indexes: %v", err)
		}
		cartRepo = repo
		log.Printf("Cart store using MongoDB at %s", cfg.MongoURI)
	} else {
		cartRepo = cart.NewMemoryRepository()
		log.Printf("Cart store using in-memory store (MONGO_URI not set)")
	}

	// Order store
	var orderRepo order.OrderRepository
	if cfg.PostgresHost != "" {
		cred := &order.Credentials{
			Host:              cfg.PostgresHost,
			Port:              cfg.PostgresPort,
			User:              cfg.PostgresUser,
			Password:          cfg.PostgresPassword,
			DBName:            cfg.PostgresDBName,
			MigrationsDirPath: cfg.OrdersMigrationsPath,
		}
		repo, err := order.NewRepository(cred)
		if err != nil {
			log.Fatalf("Failed to connect to postgres: %v", err)
		}
		if err := repo.RunMigrations(cred); err != nil {
			log.Fatalf("Failed to run orders migrations: %v", err)
		}
		orderRepo = repo
		log.Printf("Order store using postgres at %s:%d", cfg.PostgresHost, cfg.PostgresPort)
	} else {
		orderRepo = order.NewMemoryRepository()
		log.Printf("Order store using in-memory store (POSTGRES_HOST not set)")
	}
	defer orderRepo.Close()

	m := metrics.New()
	orchestrator := checkout.NewOrchestrator(cartRepo, catalogService, orderRepo)

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	sweep := reconciler.New(cartRepo, orderRepo, cfg.ReconcileTick, cfg.ReconcileWindow, m)
	go sweep.Run(workerCtx)

	if len(cfg.KafkaBrokers) > 0 {
		poller := publisher.NewOutboxPoller(orderRepo, cfg.KafkaBrokers...)
		defer poller.Close()
		go poller.Run(workerCtx)
		log.Printf("Outbox poller publishing to kafka brokers %v", cfg.KafkaBrokers)
	}

	// Handlers
	productHandler := h.NewProductHandler(catalogService, cfg.RequestTimeout)
	cartHandler := h.NewCartHandler(cartRepo, cfg.RequestTimeout)
	checkoutHandler := h.NewCheckoutHandler(orchestrator, m, cfg.RequestTimeout)
	ordersHandler := h.NewOrdersHandler(orderRepo, cfg.RequestTimeout)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(h.MockAuthMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Get("/products", productHandler.GetProducts)
	r.Get("/products/{id}", productHandler.GetProduct)
	r.Get("/cart", cartHandler.GetCart)
	r.Post("/cart", cartHandler.PutLine)
	r.Post("/checkout", checkoutHandler.Checkout)
	r.Get("/orders", ordersHandler.ListOrders)
	r.Get("/orders/{id}", ordersHandler.GetOrder)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "shopsmart"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("shopsmart starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	stopWorkers()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}

func seedCatalog(repo *catalog.MemoryRepository) {
	seed := []struct {
		id, name, description, price, imageURL string
	}{
		{"p-espresso", "Espresso Machine", "Compact 15-bar espresso machine", "149.99", "/img/espresso.png"},
		{"p-grinder", "Burr Grinder", "Conical burr grinder, 18 settings", "64.50", "/img/grinder.png"},
		{"p-kettle", "Gooseneck Kettle", "1L variable temperature kettle", "39.00", "/img/kettle.png"},
		{"p-beans", "House Blend Beans", "1kg whole bean, medium roast", "18.75", "/img/beans.png"},
		{"p-mug", "Ceramic Mug", "350ml double-walled mug", "12.00", "/img/mug.png"},
	}
	for _, p := range seed {
		repo.Put(&domain.Product{
			ID:          p.id,
			Name:        p.name,
			Description: p.description,
			Price:       decimal.RequireFromString(p.price),
			ImageURL:    p.imageURL,
			CreatedAt:   time.Now(),
		})
	}
}
