package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go-order-commit/internal/handler"
	"go-order-commit/internal/lock"
	"go-order-commit/internal/middleware"
	"go-order-commit/internal/model"
	"go-order-commit/internal/repository"
	"go-order-commit/internal/service"
	"go-order-commit/internal/ws"
	"go-order-commit/pkg/database"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func main() {
	// 1. Load env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// 2. Setup database
	db := database.ConnectDB()
	// Auto migrate (hati-hati di production, sebaiknya pakai tools migrasi terpisah)
	db.AutoMigrate(&model.Product{}, &model.StockRecord{}, &model.Movement{}, &model.Order{}, &model.OrderLine{}, &model.User{})

	// 3. Seed default API user
	seedDefaultUser(db)

	// 4. WebSocket hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 5. Per-product lock manager
	locks := lock.NewManager(lockConfigFromEnv())

	// 6. Dependency injection (wiring layers)
	productRepo := repository.NewProductRepo(db)
	stockRepo := repository.NewStockRepo(db)
	movementRepo := repository.NewMovementRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	userRepo := repository.NewUserRepo(db)

	ledger := service.NewStockLedger(productRepo, stockRepo, movementRepo, db, locks, wsHub)
	conflictValidator := service.NewConflictValidator(stockRepo)
	engine := service.NewCommitEngine(db, locks, conflictValidator, ledger, orderRepo, productRepo, wsHub)
	authService := service.NewAuthService(userRepo)

	checkoutHandler := handler.NewCheckoutHandler(engine, conflictValidator)
	invHandler := handler.NewInventoryHandler(ledger)
	movementHandler := handler.NewMovementHandler(ledger)
	authHandler := handler.NewAuthHandler(authService)

	// 7. Setup fiber
	app := fiber.New(fiber.Config{
		AppName: "Order Commit Engine v1.0",
	})

	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// 8. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(userRepo))

	// Checkout
	protected.Post("/checkout", checkoutHandler.Commit)
	protected.Post("/checkout/validate", checkoutHandler.Preflight)
	protected.Get("/orders/:id", checkoutHandler.GetOrder)

	// Products & stock
	protected.Get("/products", invHandler.GetProducts)
	protected.Post("/products", invHandler.CreateProduct)
	protected.Get("/stock/:productId/available", invHandler.GetAvailable)
	protected.Delete("/stock/:productId", invHandler.DeactivateProduct)

	// Movements (bulk tooling + audit)
	protected.Post("/movements", movementHandler.Apply)
	protected.Post("/movements/batch", movementHandler.ApplyBatch)
	protected.Get("/movements", movementHandler.GetMovements)

	// WebSocket route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 9. Graceful shutdown
	go func() {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

func lockConfigFromEnv() lock.Config {
	cfg := lock.DefaultConfig()
	if v := os.Getenv("LOCK_WAIT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.WaitTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("LOCK_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxAttempts = n
		}
	}
	if v := os.Getenv("LOCK_BACKOFF_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.BackoffBase = time.Duration(ms) * time.Millisecond
		}
	}
	return cfg
}

// seedDefaultUser creates the default API user if none exists yet
func seedDefaultUser(db *gorm.DB) {
	userRepo := repository.NewUserRepo(db)

	if _, err := userRepo.FindByEmail("admin@example.com"); err == nil {
		return
	}

	admin := &model.User{
		Email:    "admin@example.com",
		FullName: "Administrator",
		IsActive: true,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"

	if err := admin.SetPassword("admin123"); err != nil {
		log.Printf("Warning: Failed to hash admin password: %v", err)
		return
	}

	if err := userRepo.Create(admin); err != nil {
		log.Printf("Warning: Failed to create admin user: %v", err)
	} else {
		log.Println("Admin user created: admin@example.com / admin123")
	}
}
